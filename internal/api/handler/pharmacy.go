package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coldtrace/coldtrace/internal/api/middleware"
	"github.com/coldtrace/coldtrace/internal/api/response"
	"github.com/coldtrace/coldtrace/internal/api/validation"
	"github.com/coldtrace/coldtrace/internal/metrics"
	"github.com/coldtrace/coldtrace/internal/pharmacy"
)

type createPharmacyRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// PharmacyHandler serves pharmacies filtered by the caller's session scope.
type PharmacyHandler struct {
	repo pharmacy.Repository
}

// NewPharmacyHandler creates a new PharmacyHandler.
func NewPharmacyHandler(repo pharmacy.Repository) *PharmacyHandler {
	return &PharmacyHandler{repo: repo}
}

// List handles GET /pharmacies. The scope comes from the session snapshot.
func (h *PharmacyHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", requestID)
		return
	}

	var (
		pharmacies []pharmacy.Pharmacy
		err        error
	)
	if claims.Scope.All {
		pharmacies, err = h.repo.List(r.Context())
	} else {
		pharmacies, err = h.repo.ListByIDs(r.Context(), claims.Scope.PharmacyIDs)
	}
	if err != nil {
		slog.Error("failed to list pharmacies", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list pharmacies", requestID)
		return
	}

	items := make([]pharmacyResponse, 0, len(pharmacies))
	for i := range pharmacies {
		items = append(items, toPharmacyResponse(&pharmacies[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// GetByID handles GET /pharmacies/{id}.
func (h *PharmacyHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", requestID)
		return
	}

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pharmacy.ErrPharmacyNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Pharmacy not found", requestID)
			return
		}
		slog.Error("failed to get pharmacy", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get pharmacy", requestID)
		return
	}

	if !claims.Scope.Allows(p.ID) {
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "Pharmacy is outside your scope", requestID)
		return
	}

	response.Success(w, http.StatusOK, toPharmacyResponse(p), requestID)
}

// Create handles POST /admin/pharmacies.
func (h *PharmacyHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req createPharmacyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateCreatePharmacyRequest(validation.CreatePharmacyRequest{
		Name:    req.Name,
		Address: req.Address,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	p := &pharmacy.Pharmacy{
		Name:    strings.TrimSpace(req.Name),
		Address: strings.TrimSpace(req.Address),
	}
	if err := h.repo.Create(r.Context(), p); err != nil {
		if errors.Is(err, pharmacy.ErrDuplicatePharmacyName) {
			response.Err(w, http.StatusConflict, "CONFLICT", "A pharmacy with this name already exists", requestID)
			return
		}
		slog.Error("failed to create pharmacy", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create pharmacy", requestID)
		return
	}

	metrics.AdminMutations.WithLabelValues("pharmacy_created").Inc()
	slog.Info("admin mutation", "audit", true, "action", "pharmacy_created", "pharmacyId", p.ID)
	response.Success(w, http.StatusCreated, toPharmacyResponse(p), requestID)
}
