package jwt_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-popup-ledger/pkg/jwt"
)

func TestSigner_RoundTrip(t *testing.T) {
	signer := jwt.NewSigner("secret", time.Hour)
	staffID := uuid.New()

	token, err := signer.GenerateToken(staffID, "Rina", "CASHIER", []string{"sale:create"})
	require.NoError(t, err)

	claims, err := signer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, staffID, claims.StaffID)
	assert.Equal(t, "CASHIER", claims.RoleCode)
	assert.Equal(t, []string{"sale:create"}, claims.Privileges)
}

func TestSigner_RejectsForeignSecret(t *testing.T) {
	token, err := jwt.NewSigner("one", time.Hour).GenerateToken(uuid.New(), "x", "ADMIN", nil)
	require.NoError(t, err)

	_, err = jwt.NewSigner("two", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestSigner_RejectsExpired(t *testing.T) {
	expired := jwt.NewSigner("secret", time.Nanosecond)
	token, err := expired.GenerateToken(uuid.New(), "x", "ADMIN", nil)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = expired.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestSigner_MissingToken(t *testing.T) {
	_, err := jwt.NewSigner("secret", time.Hour).ValidateToken("")
	assert.ErrorIs(t, err, jwt.ErrMissingToken)
}
