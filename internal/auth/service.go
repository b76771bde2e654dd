package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coldtrace/coldtrace/internal/user"
)

// Sign-in rejections. Each maps to one stable reason; anything else returned by
// SignIn is a backend failure.
var (
	ErrAccountNotFound = errors.New("no account for email")
	ErrNoPassword      = errors.New("account has no password set")
	ErrInvalidPassword = errors.New("password does not match")
	ErrNotApproved     = errors.New("account not approved")
	ErrAccountDisabled = errors.New("account disabled")
)

// Reason returns the rejection category of a SignIn error.
func Reason(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, ErrNoPassword):
		return "no_password"
	case errors.Is(err, ErrInvalidPassword):
		return "invalid_password"
	case errors.Is(err, ErrNotApproved):
		return "not_approved"
	case errors.Is(err, ErrAccountDisabled):
		return "account_disabled"
	default:
		return "error"
	}
}

// IsCredentialRejection reports whether err must be presented to the caller as
// a generic invalid-credentials response.
func IsCredentialRejection(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrNoPassword) ||
		errors.Is(err, ErrInvalidPassword)
}

// Service runs the sign-in flow: lookup, password check, eligibility, issuance.
type Service struct {
	users    user.Repository
	hasher   *PasswordHasher
	sessions *SessionManager
}

// NewService creates a new auth Service.
func NewService(users user.Repository, hasher *PasswordHasher, sessions *SessionManager) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
	}
}

// Sessions returns the session manager used for issuance and verification.
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// Hasher returns the password hasher.
func (s *Service) Hasher() *PasswordHasher {
	return s.hasher
}

// SignIn authenticates an email/password pair and issues a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("looking up account: %w", err)
	}

	if !u.HasPassword() {
		return nil, ErrNoPassword
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrInvalidPassword
	}

	if err := CheckEligibility(u); err != nil {
		return nil, err
	}

	token, claims, err := s.sessions.Issue(u)
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, Claims: claims, User: u}, nil
}

// RefreshSession re-issues the session behind c from the current account
// record. Accounts deactivated, rejected or deleted since sign-in are refused
// with the matching sign-in rejection.
func (s *Service) RefreshSession(ctx context.Context, c *Claims) (string, *Claims, error) {
	id, err := c.UserID()
	if err != nil {
		return "", nil, ErrSessionInvalid
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return "", nil, ErrAccountNotFound
		}
		return "", nil, fmt.Errorf("reloading account: %w", err)
	}

	if err := CheckEligibility(u); err != nil {
		return "", nil, err
	}

	return s.sessions.Refresh(c, u)
}

// IsSessionRefused reports whether err from RefreshSession means the account
// may no longer hold a session.
func IsSessionRefused(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrNotApproved) ||
		errors.Is(err, ErrAccountDisabled) ||
		errors.Is(err, ErrSessionInvalid)
}

// SignUpInput holds the fields of a self-service account request.
type SignUpInput struct {
	Email    string
	Name     string
	Password string
	Role     user.Role
}

// ErrAdminSignUp is returned when a sign-up requests the admin role.
var ErrAdminSignUp = errors.New("admin accounts cannot be requested")

// SignUp records a pending account. It cannot authenticate until approved.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*user.User, error) {
	role := in.Role
	if role == "" {
		role = user.RoleUser
	}
	if role == user.RoleAdmin {
		return nil, ErrAdminSignUp
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		Email:          user.NormalizeEmail(in.Email),
		Name:           strings.TrimSpace(in.Name),
		PasswordHash:   &hash,
		Role:           role,
		ApprovalStatus: user.StatusPending,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Logout revokes the session behind token. Missing or invalid tokens are not
// an error: the caller clears the cookie either way.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.sessions.Verify(ctx, token)
	if err != nil {
		if IsUnauthenticated(err) {
			return nil
		}
		return err
	}
	return s.sessions.Revoke(ctx, claims)
}
