package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/coldtrace/coldtrace/internal/user"
)

// Scope is the set of pharmacies a session may operate on. Admins are unrestricted.
type Scope struct {
	All         bool        `json:"all"`
	PharmacyIDs []uuid.UUID `json:"pharmacyIds,omitempty"`
}

// ScopeFor captures a user's pharmacy scope at the current instant.
func ScopeFor(u *user.User) Scope {
	if u.IsAdmin() {
		return Scope{All: true}
	}
	ids := make([]uuid.UUID, len(u.PharmacyIDs))
	copy(ids, u.PharmacyIDs)
	return Scope{PharmacyIDs: ids}
}

// Allows reports whether the pharmacy is inside the scope.
func (s Scope) Allows(pharmacyID uuid.UUID) bool {
	return s.All || slices.Contains(s.PharmacyIDs, pharmacyID)
}

// Claims is the payload of a session token. The subject is the user ID.
type Claims struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     user.Role `json:"role"`
	Approved bool      `json:"approved"`
	Scope    Scope     `json:"scope"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// IsAdmin reports whether the role claim is the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == user.RoleAdmin
}

// Session is the result of a successful sign-in.
type Session struct {
	Token  string
	Claims *Claims
	User   *user.User
}
