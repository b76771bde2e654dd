package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/coldtrace/coldtrace/internal/api/cookie"
	"github.com/coldtrace/coldtrace/internal/api/response"
	"github.com/coldtrace/coldtrace/internal/auth"
	"github.com/coldtrace/coldtrace/internal/metrics"
)

const claimsKey contextKey = "claims"

// Guard states, also used as metric labels.
const (
	statePublic       = "public_path"
	stateNoToken      = "no_token"
	stateTokenInvalid = "token_invalid"
	stateTokenValid   = "token_valid"
	stateRefused      = "account_refused"
	stateError        = "error"
)

// SessionRefresher re-issues a session from the current account record.
type SessionRefresher interface {
	RefreshSession(ctx context.Context, c *auth.Claims) (string, *auth.Claims, error)
}

// GuardConfig configures the session guard.
type GuardConfig struct {
	Sessions  *auth.SessionManager
	Refresher SessionRefresher
	Jar       cookie.Jar
	// SignInURL receives browser navigations without a valid session.
	SignInURL string
	// PublicPaths match exactly; PublicPrefixes match by prefix.
	PublicPaths    []string
	PublicPrefixes []string
}

func (c GuardConfig) isPublic(path string) bool {
	for _, p := range c.PublicPaths {
		if path == p {
			return true
		}
	}
	for _, p := range c.PublicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Guard verifies the session cookie on every non-public request. A missing or
// invalid token redirects browser navigations to the sign-in page with the
// original path as callbackUrl and answers everything else with 401. Valid
// claims are stored in the request context. Tokens past half their lifetime
// are re-issued from the current account record; an account that was
// deactivated, rejected or removed loses its session at that point.
func Guard(cfg GuardConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.isPublic(r.URL.Path) {
				metrics.GuardDecisions.WithLabelValues(statePublic).Inc()
				next.ServeHTTP(w, r)
				return
			}

			token := cfg.Jar.Read(r)
			if token == "" {
				metrics.GuardDecisions.WithLabelValues(stateNoToken).Inc()
				denySession(w, r, cfg.SignInURL)
				return
			}

			claims, err := cfg.Sessions.Verify(r.Context(), token)
			if err != nil {
				if !auth.IsUnauthenticated(err) {
					metrics.GuardDecisions.WithLabelValues(stateError).Inc()
					slog.Error("session verification failed", "error", err, "requestId", GetRequestID(r.Context()))
					response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Session verification failed", GetRequestID(r.Context()))
					return
				}
				metrics.GuardDecisions.WithLabelValues(stateTokenInvalid).Inc()
				slog.Debug("rejected session token", "reason", err.Error(), "path", r.URL.Path)
				cfg.Jar.Clear(w)
				denySession(w, r, cfg.SignInURL)
				return
			}

			if cfg.Sessions.NeedsRefresh(claims) {
				token, fresh, err := cfg.Refresher.RefreshSession(r.Context(), claims)
				switch {
				case err == nil:
					cfg.Jar.Set(w, token)
					claims = fresh
				case auth.IsSessionRefused(err):
					metrics.GuardDecisions.WithLabelValues(stateRefused).Inc()
					slog.Info("session refused on refresh", "reason", err.Error(), "userId", claims.Subject)
					if err := cfg.Sessions.Revoke(r.Context(), claims); err != nil {
						slog.Warn("failed to revoke refused session", "error", err)
					}
					cfg.Jar.Clear(w)
					denySession(w, r, cfg.SignInURL)
					return
				default:
					// the current token stays valid; the next request retries
					slog.Warn("session refresh failed", "error", err, "requestId", GetRequestID(r.Context()))
				}
			}

			metrics.GuardDecisions.WithLabelValues(stateTokenValid).Inc()

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims retrieves the verified session claims from the request context.
func GetClaims(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(claimsKey).(*auth.Claims); ok {
		return c
	}
	return nil
}

// WithClaims returns a context carrying claims, for handlers mounted behind Guard.
func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func denySession(w http.ResponseWriter, r *http.Request, signInURL string) {
	if signInURL != "" && isBrowserNavigation(r) {
		http.Redirect(w, r, signInRedirect(signInURL, r.URL.RequestURI()), http.StatusFound)
		return
	}
	response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", GetRequestID(r.Context()))
}

func isBrowserNavigation(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func signInRedirect(signInURL, callback string) string {
	u, err := url.Parse(signInURL)
	if err != nil {
		return signInURL
	}
	q := u.Query()
	q.Set("callbackUrl", callback)
	u.RawQuery = q.Encode()
	return u.String()
}
