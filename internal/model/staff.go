package model

import (
	"time"

	"github.com/google/uuid"
)

// Staff is a person who can be assigned to channels and act on the ledger.
// Credentials live with the identity provider; this service only reads
// role, privileges and the active flag.
type Staff struct {
	BaseModel
	Code       string      `gorm:"type:varchar(32);uniqueIndex;not null" json:"code" validate:"required"`
	FullName   string      `gorm:"type:varchar(255)" json:"full_name" validate:"required"`
	Email      string      `gorm:"type:varchar(255)" json:"email" validate:"omitempty,email"`
	RoleID     *uint       `gorm:"index" json:"role_id"`
	Role       *Role       `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	IsActive   bool        `gorm:"default:true" json:"is_active"`
	Privileges []Privilege `gorm:"many2many:staff_privileges;" json:"privileges,omitempty"`
	LastSeenAt *time.Time  `json:"last_seen_at,omitempty"`
}

// TableName keeps the plural form stable regardless of naming strategy.
func (Staff) TableName() string {
	return "staff"
}

// HasPrivilege checks if the staff member has a specific privilege
func (s *Staff) HasPrivilege(code string) bool {
	for _, p := range s.Privileges {
		if p.Code == code {
			return true
		}
	}
	return false
}

// GetPrivilegeCodes returns a slice of all privilege codes for this staff member
func (s *Staff) GetPrivilegeCodes() []string {
	codes := make([]string, len(s.Privileges))
	for i, p := range s.Privileges {
		codes[i] = p.Code
	}
	return codes
}

// StaffResponse is used for API responses
type StaffResponse struct {
	ID         uuid.UUID  `json:"id"`
	Code       string     `json:"code"`
	FullName   string     `json:"full_name"`
	Email      string     `json:"email"`
	Role       *Role      `json:"role,omitempty"`
	IsActive   bool       `json:"is_active"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	Privileges []string   `json:"privileges"`
}

func (s *Staff) ToResponse() StaffResponse {
	return StaffResponse{
		ID:         s.ID,
		Code:       s.Code,
		FullName:   s.FullName,
		Email:      s.Email,
		Role:       s.Role,
		IsActive:   s.IsActive,
		LastSeenAt: s.LastSeenAt,
		Privileges: s.GetPrivilegeCodes(),
	}
}
