package auth

import "github.com/coldtrace/coldtrace/internal/user"

// CheckEligibility decides whether an account may authenticate. Deactivated
// accounts are rejected before the approval status is considered.
func CheckEligibility(u *user.User) error {
	if !u.IsActive {
		return ErrAccountDisabled
	}
	if !u.IsApproved() {
		return ErrNotApproved
	}
	return nil
}
