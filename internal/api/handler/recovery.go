package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coldtrace/coldtrace/internal/api/middleware"
	"github.com/coldtrace/coldtrace/internal/api/response"
	"github.com/coldtrace/coldtrace/internal/api/validation"
	"github.com/coldtrace/coldtrace/internal/auth"
	"github.com/coldtrace/coldtrace/internal/metrics"
	"github.com/coldtrace/coldtrace/internal/user"
)

type reconcileRequest struct {
	Email string `json:"email"`
}

// AdminReconciler converges a configured admin account.
type AdminReconciler interface {
	ReconcileAdmin(ctx context.Context, email string) (*user.User, error)
}

// RecoveryHandler exposes admin account reconciliation.
type RecoveryHandler struct {
	reconciler AdminReconciler
}

// NewRecoveryHandler creates a new RecoveryHandler.
func NewRecoveryHandler(reconciler AdminReconciler) *RecoveryHandler {
	return &RecoveryHandler{reconciler: reconciler}
}

// Reconcile handles POST /admin/recovery/reconcile. Only emails listed in the
// admin seed file can be reconciled.
func (h *RecoveryHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req reconcileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "email", Message: "email is required"}}, requestID)
		return
	}

	u, err := h.reconciler.ReconcileAdmin(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUnknownAdminTarget) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "No admin target configured for this email", requestID)
			return
		}
		slog.Error("failed to reconcile admin", "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reconcile admin account", requestID)
		return
	}

	metrics.AdminMutations.WithLabelValues("admin_reconciled").Inc()
	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}
