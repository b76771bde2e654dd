package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the single normalised role enumeration. Stored values are lower-case.
type Role string

const (
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
	RoleTechnician Role = "technician"
	RoleUser       Role = "user"
)

var validRoles = map[Role]bool{
	RoleAdmin:      true,
	RolePharmacist: true,
	RoleTechnician: true,
	RoleUser:       true,
}

// ParseRole normalises a role literal. Matching is case-insensitive so legacy
// upper-case spellings ("ADMIN") resolve to the same role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !validRoles[r] {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// ApprovalStatus is the only stored approval state of an account.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

// User represents a row in the users table together with its pharmacy assignments.
type User struct {
	ID             uuid.UUID
	Email          string
	Name           string
	PasswordHash   *string // nil for invited accounts without a usable password
	Role           Role
	ApprovalStatus ApprovalStatus
	IsActive       bool
	ApprovedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PharmacyIDs    []uuid.UUID
}

// IsApproved is derived from ApprovalStatus and never stored.
func (u *User) IsApproved() bool {
	return u.ApprovalStatus == StatusApproved
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasPassword reports whether a usable password hash is set.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// NormalizeEmail lower-cases and trims an email address for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
