package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coldtrace/coldtrace/internal/api/middleware"
	"github.com/coldtrace/coldtrace/internal/api/response"
	"github.com/coldtrace/coldtrace/internal/api/validation"
	"github.com/coldtrace/coldtrace/internal/auth"
	"github.com/coldtrace/coldtrace/internal/metrics"
	"github.com/coldtrace/coldtrace/internal/user"
)

type createUserRequest struct {
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	Approved    bool     `json:"approved"`
	PharmacyIDs []string `json:"pharmacyIds"`
}

type setPasswordRequest struct {
	Password string `json:"password"`
}

type setPharmaciesRequest struct {
	PharmacyIDs []string `json:"pharmacyIds"`
}

// UserHandler handles administrative user endpoints.
type UserHandler struct {
	userRepo user.Repository
	hasher   *auth.PasswordHasher
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userRepo user.Repository, hasher *auth.PasswordHasher) *UserHandler {
	return &UserHandler{
		userRepo: userRepo,
		hasher:   hasher,
	}
}

// List handles GET /admin/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	users, err := h.userRepo.List(r.Context())
	if err != nil {
		slog.Error("failed to list users", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list users", requestID)
		return
	}

	items := make([]userResponse, 0, len(users))
	for i := range users {
		items = append(items, toUserResponse(&users[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Create handles POST /admin/users. Accounts may be pre-approved and may be
// created without a password (invitations).
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateCreateUserRequest(validation.CreateUserRequest{
		Email:       req.Email,
		Name:        req.Name,
		Password:    req.Password,
		Role:        req.Role,
		PharmacyIDs: req.PharmacyIDs,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	// already validated
	role, _ := user.ParseRole(req.Role)
	pharmacyIDs, _ := validation.ParseUUIDs("pharmacyIds", req.PharmacyIDs)

	u := &user.User{
		Email:          user.NormalizeEmail(req.Email),
		Name:           strings.TrimSpace(req.Name),
		Role:           role,
		ApprovalStatus: user.StatusPending,
		IsActive:       true,
		PharmacyIDs:    pharmacyIDs,
	}
	if req.Approved {
		u.ApprovalStatus = user.StatusApproved
	}
	if req.Password != "" {
		hash, err := h.hasher.Hash(req.Password)
		if err != nil {
			slog.Error("failed to hash password", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create user", requestID)
			return
		}
		u.PasswordHash = &hash
	}

	if err := h.userRepo.Create(r.Context(), u); err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			response.Err(w, http.StatusConflict, "CONFLICT", "An account with this email already exists", requestID)
		case errors.Is(err, user.ErrUnknownPharmacy):
			response.Err(w, http.StatusUnprocessableEntity, "UNKNOWN_PHARMACY", "One or more pharmacies do not exist", requestID)
		default:
			slog.Error("failed to create user", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create user", requestID)
		}
		return
	}

	h.audit(r, "user_created", u.ID, "role", u.Role, "approvalStatus", u.ApprovalStatus)
	response.Success(w, http.StatusCreated, toUserResponse(u), requestID)
}

// Approve handles POST /admin/users/{id}/approve.
func (h *UserHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, user.StatusApproved)
}

// Reject handles POST /admin/users/{id}/reject.
func (h *UserHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, user.StatusRejected)
}

func (h *UserHandler) setStatus(w http.ResponseWriter, r *http.Request, status user.ApprovalStatus) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if status != user.StatusApproved && isSelf(r, id) {
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "Cannot reject your own account", requestID)
		return
	}

	if err := h.userRepo.SetApprovalStatus(r.Context(), id, status); err != nil {
		h.writeUserError(w, err, "Failed to update approval status", requestID)
		return
	}

	u, err := h.userRepo.GetByID(r.Context(), id)
	if err != nil {
		h.writeUserError(w, err, "Failed to update approval status", requestID)
		return
	}

	h.audit(r, "user_"+string(status), id)
	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

// SetPharmacies handles PUT /admin/users/{id}/pharmacies. The assignment set
// is replaced, not merged.
func (h *UserHandler) SetPharmacies(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req setPharmaciesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	if fieldErrors := validation.ValidateAssignmentsRequest(req.PharmacyIDs); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}
	pharmacyIDs, _ := validation.ParseUUIDs("pharmacyIds", req.PharmacyIDs) // already validated

	if err := h.userRepo.ReplaceAssignments(r.Context(), id, pharmacyIDs); err != nil {
		if errors.Is(err, user.ErrUnknownPharmacy) {
			response.Err(w, http.StatusUnprocessableEntity, "UNKNOWN_PHARMACY", "One or more pharmacies do not exist", requestID)
			return
		}
		h.writeUserError(w, err, "Failed to update pharmacy assignments", requestID)
		return
	}

	u, err := h.userRepo.GetByID(r.Context(), id)
	if err != nil {
		h.writeUserError(w, err, "Failed to update pharmacy assignments", requestID)
		return
	}

	h.audit(r, "assignments_replaced", id, "pharmacies", len(pharmacyIDs))
	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

// SetPassword handles PUT /admin/users/{id}/password.
func (h *UserHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req setPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	if fieldErrors := validation.ValidateSetPasswordRequest(req.Password); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to set password", requestID)
		return
	}

	if err := h.userRepo.SetPassword(r.Context(), id, hash); err != nil {
		h.writeUserError(w, err, "Failed to set password", requestID)
		return
	}

	h.audit(r, "password_reset", id)
	response.NoContent(w)
}

// Deactivate handles DELETE /admin/users/{id}. Users are never hard-deleted.
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if isSelf(r, id) {
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "Cannot deactivate your own account", requestID)
		return
	}

	if err := h.userRepo.Deactivate(r.Context(), id); err != nil {
		h.writeUserError(w, err, "Failed to deactivate user", requestID)
		return
	}

	h.audit(r, "user_deactivated", id)
	response.NoContent(w)
}

func (h *UserHandler) writeUserError(w http.ResponseWriter, err error, message, requestID string) {
	if errors.Is(err, user.ErrUserNotFound) {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
		return
	}
	slog.Error(strings.ToLower(message), "error", err, "requestId", requestID)
	response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", message, requestID)
}

func (h *UserHandler) audit(r *http.Request, action string, target uuid.UUID, attrs ...any) {
	metrics.AdminMutations.WithLabelValues(action).Inc()
	args := []any{"audit", true, "action", action, "targetUserId", target}
	if claims := middleware.GetClaims(r.Context()); claims != nil {
		args = append(args, "actorUserId", claims.Subject)
	}
	slog.Info("admin mutation", append(args, attrs...)...)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", middleware.GetRequestID(r.Context()))
		return uuid.Nil, false
	}
	return id, true
}

func isSelf(r *http.Request, id uuid.UUID) bool {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		return false
	}
	self, err := claims.UserID()
	return err == nil && self == id
}
