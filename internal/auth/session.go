package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/coldtrace/coldtrace/internal/user"
)

// Session verification errors. Any other error returned by Verify is an
// infrastructure failure.
var (
	ErrSessionMissing = errors.New("session token missing")
	ErrSessionInvalid = errors.New("session token invalid")
	ErrSessionExpired = errors.New("session token expired")
	ErrSessionRevoked = errors.New("session token revoked")
)

// IsUnauthenticated reports whether err means the caller has no valid session.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrSessionMissing) ||
		errors.Is(err, ErrSessionInvalid) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrSessionRevoked)
}

// SessionManager issues and verifies HS256 session tokens.
type SessionManager struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	revoker Revoker
	now     func() time.Time
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithRevoker sets the revocation list consulted by Verify and written by Revoke.
func WithRevoker(r Revoker) SessionOption {
	return func(m *SessionManager) { m.revoker = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

// NewSessionManager creates a manager with the provided secret, issuer and lifetime.
func NewSessionManager(secret, issuer string, ttl time.Duration, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		secret:  []byte(secret),
		issuer:  issuer,
		ttl:     ttl,
		revoker: NoopRevoker{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the lifetime of issued tokens.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for the user, snapshotting role and pharmacy scope.
func (m *SessionManager) Issue(u *user.User) (string, *Claims, error) {
	claims := &Claims{
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		Approved: u.IsApproved(),
		Scope:    ScopeFor(u),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:      uuid.New().String(),
			Subject: u.ID.String(),
		},
	}
	token, err := m.sign(claims)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Refresh re-signs a session for u with a fresh expiry. Role, approval and
// pharmacy scope come from u; the token ID is carried over so a revocation of
// the original token still applies.
func (m *SessionManager) Refresh(c *Claims, u *user.User) (string, *Claims, error) {
	next := &Claims{
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		Approved: u.IsApproved(),
		Scope:    ScopeFor(u),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:      c.ID,
			Subject: u.ID.String(),
		},
	}
	token, err := m.sign(next)
	if err != nil {
		return "", nil, err
	}
	return token, next, nil
}

// NeedsRefresh reports whether less than half of the token lifetime remains.
func (m *SessionManager) NeedsRefresh(c *Claims) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Sub(m.now()) < m.ttl/2
}

// Verify decodes a token, checking signature, issuer, expiry and revocation.
func (m *SessionManager) Verify(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrSessionMissing
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, ErrSessionInvalid
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrSessionInvalid
	}

	revoked, err := m.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("checking session revocation: %w", err)
	}
	if revoked {
		return nil, ErrSessionRevoked
	}

	return claims, nil
}

// Revoke blocks the token ID until the token would have expired anyway.
func (m *SessionManager) Revoke(ctx context.Context, c *Claims) error {
	if c.ExpiresAt == nil {
		return nil
	}
	remaining := c.ExpiresAt.Sub(m.now())
	if remaining <= 0 {
		return nil
	}
	if err := m.revoker.Revoke(ctx, c.ID, remaining); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

func (m *SessionManager) sign(c *Claims) (string, error) {
	now := m.now()
	c.Issuer = m.issuer
	c.IssuedAt = jwt.NewNumericDate(now)
	c.NotBefore = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}
