package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/coldtrace/coldtrace/internal/api/cookie"
	"github.com/coldtrace/coldtrace/internal/api/middleware"
	"github.com/coldtrace/coldtrace/internal/api/response"
	"github.com/coldtrace/coldtrace/internal/api/validation"
	"github.com/coldtrace/coldtrace/internal/auth"
	"github.com/coldtrace/coldtrace/internal/metrics"
	"github.com/coldtrace/coldtrace/internal/user"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type signInResponse struct {
	User      userResponse `json:"user"`
	ExpiresAt string       `json:"expiresAt"`
}

// AuthHandler handles sign-in, sign-up, session and logout endpoints.
type AuthHandler struct {
	authService *auth.Service
	jar         cookie.Jar
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service, jar cookie.Jar) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jar:         jar,
	}
}

// SignIn handles POST /auth/signin.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateSignInRequest(validation.SignInRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	session, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	metrics.SignInAttempts.WithLabelValues(auth.Reason(err)).Inc()
	if err != nil {
		switch {
		case auth.IsCredentialRejection(err):
			slog.Info("sign-in rejected", "reason", auth.Reason(err), "requestId", requestID)
			response.Err(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", requestID)
		case errors.Is(err, auth.ErrNotApproved):
			slog.Info("sign-in rejected", "reason", auth.Reason(err), "requestId", requestID)
			response.Err(w, http.StatusForbidden, "NOT_APPROVED", "Account is awaiting administrator approval", requestID)
		case errors.Is(err, auth.ErrAccountDisabled):
			slog.Info("sign-in rejected", "reason", auth.Reason(err), "requestId", requestID)
			response.Err(w, http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled", requestID)
		default:
			slog.Error("sign-in failed", "error", err, "requestId", requestID)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Sign-in failed", requestID)
		}
		return
	}

	slog.Info("sign-in succeeded", "userId", session.User.ID, "role", session.User.Role, "requestId", requestID)
	h.jar.Set(w, session.Token)
	response.Success(w, http.StatusOK, signInResponse{
		User:      toUserResponse(session.User),
		ExpiresAt: formatTime(session.Claims.ExpiresAt.Time),
	}, requestID)
}

// SignUp handles POST /auth/signup. The account stays pending until an
// administrator approves it.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateSignUpRequest(validation.SignUpRequest{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	var role user.Role
	if req.Role != "" {
		role, _ = user.ParseRole(req.Role) // already validated
	}

	u, err := h.authService.SignUp(r.Context(), auth.SignUpInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			response.Err(w, http.StatusConflict, "CONFLICT", "An account with this email already exists", requestID)
			return
		}
		slog.Error("failed to create account request", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create account", requestID)
		return
	}

	slog.Info("account requested", "userId", u.ID, "role", u.Role)
	response.Success(w, http.StatusCreated, toUserResponse(u), requestID)
}

// Session handles GET /auth/session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	claims, err := h.authService.Sessions().Verify(r.Context(), h.jar.Read(r))
	if err != nil {
		if auth.IsUnauthenticated(err) {
			response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "No active session", requestID)
			return
		}
		slog.Error("session verification failed", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Session verification failed", requestID)
		return
	}

	response.Success(w, http.StatusOK, toSessionResponse(claims), requestID)
}

// Logout handles POST /auth/logout. The cookie is always cleared.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	err := h.authService.Logout(r.Context(), h.jar.Read(r))
	h.jar.Clear(w)
	if err != nil {
		slog.Error("failed to revoke session", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Logout failed", requestID)
		return
	}

	response.Success(w, http.StatusOK, map[string]string{"status": "signed_out"}, requestID)
}
