package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
)

const issuer = "go-popup-ledger"

// Claims is what the identity provider puts in a staff token.
type Claims struct {
	StaffID    uuid.UUID `json:"staff_id"`
	Name       string    `json:"name"`
	RoleCode   string    `json:"role_code"`
	Privileges []string  `json:"privileges"`
	jwt.RegisteredClaims
}

// Signer issues and validates HS256 staff tokens with one shared secret.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl}
}

// GenerateToken creates a token for a staff member. Production tokens come
// from the identity provider; this is used by tooling and tests.
func (s *Signer) GenerateToken(staffID uuid.UUID, name, roleCode string, privileges []string) (string, error) {
	now := time.Now()
	claims := &Claims{
		StaffID:    staffID,
		Name:       name,
		RoleCode:   roleCode,
		Privileges: privileges,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses and validates a JWT token
func (s *Signer) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.StaffID != uuid.Nil {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
