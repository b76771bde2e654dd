package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coldtrace/coldtrace/internal/api/middleware"
	"github.com/coldtrace/coldtrace/internal/auth"
	"github.com/coldtrace/coldtrace/internal/pharmacy"
	"github.com/coldtrace/coldtrace/internal/user"
)

const testBcryptCost = 4 // low cost for fast tests

// --- Mock User Repository ---

type mockUserRepo struct {
	createFn             func(ctx context.Context, u *user.User) error
	getByIDFn            func(ctx context.Context, id uuid.UUID) (*user.User, error)
	findByEmailFn        func(ctx context.Context, email string) (*user.User, error)
	listFn               func(ctx context.Context) ([]user.User, error)
	setApprovalStatusFn  func(ctx context.Context, id uuid.UUID, status user.ApprovalStatus) error
	setPasswordFn        func(ctx context.Context, id uuid.UUID, hash string) error
	deactivateFn         func(ctx context.Context, id uuid.UUID) error
	replaceAssignmentsFn func(ctx context.Context, id uuid.UUID, pharmacyIDs []uuid.UUID) error
	upsertAdminFn        func(ctx context.Context, u *user.User) error
}

func (m *mockUserRepo) Create(ctx context.Context, u *user.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now().UTC()
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, user.ErrUserNotFound
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, user.ErrUserNotFound
}

func (m *mockUserRepo) List(ctx context.Context) ([]user.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []user.User{}, nil
}

func (m *mockUserRepo) SetApprovalStatus(ctx context.Context, id uuid.UUID, status user.ApprovalStatus) error {
	if m.setApprovalStatusFn != nil {
		return m.setApprovalStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockUserRepo) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	if m.setPasswordFn != nil {
		return m.setPasswordFn(ctx, id, hash)
	}
	return nil
}

func (m *mockUserRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) ReplaceAssignments(ctx context.Context, id uuid.UUID, pharmacyIDs []uuid.UUID) error {
	if m.replaceAssignmentsFn != nil {
		return m.replaceAssignmentsFn(ctx, id, pharmacyIDs)
	}
	return nil
}

func (m *mockUserRepo) UpsertAdmin(ctx context.Context, u *user.User) error {
	if m.upsertAdminFn != nil {
		return m.upsertAdminFn(ctx, u)
	}
	return nil
}

// --- Mock Pharmacy Repository ---

type mockPharmacyRepo struct {
	createFn    func(ctx context.Context, p *pharmacy.Pharmacy) error
	getByIDFn   func(ctx context.Context, id uuid.UUID) (*pharmacy.Pharmacy, error)
	listFn      func(ctx context.Context) ([]pharmacy.Pharmacy, error)
	listByIDsFn func(ctx context.Context, ids []uuid.UUID) ([]pharmacy.Pharmacy, error)
}

func (m *mockPharmacyRepo) Create(ctx context.Context, p *pharmacy.Pharmacy) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	return nil
}

func (m *mockPharmacyRepo) GetByID(ctx context.Context, id uuid.UUID) (*pharmacy.Pharmacy, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, pharmacy.ErrPharmacyNotFound
}

func (m *mockPharmacyRepo) List(ctx context.Context) ([]pharmacy.Pharmacy, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []pharmacy.Pharmacy{}, nil
}

func (m *mockPharmacyRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]pharmacy.Pharmacy, error) {
	if m.listByIDsFn != nil {
		return m.listByIDsFn(ctx, ids)
	}
	return []pharmacy.Pharmacy{}, nil
}

// --- Helpers ---

func makeChiRequest(method, path string, body []byte, params map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	return req, w
}

func withClaims(req *http.Request, claims *auth.Claims) *http.Request {
	return req.WithContext(middleware.WithClaims(req.Context(), claims))
}

func adminClaims(id uuid.UUID) *auth.Claims {
	c := &auth.Claims{Role: user.RoleAdmin, Approved: true, Scope: auth.Scope{All: true}}
	c.Subject = id.String()
	return c
}

func scopedClaims(role user.Role, pharmacies ...uuid.UUID) *auth.Claims {
	c := &auth.Claims{Role: role, Approved: true, Scope: auth.Scope{PharmacyIDs: pharmacies}}
	c.Subject = uuid.New().String()
	return c
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &env)
	require.NoError(t, err, "failed to parse response body")
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := parseEnvelope(t, w)
	errObj, ok := env["error"].(map[string]interface{})
	require.True(t, ok, "expected error envelope")
	return errObj["code"].(string)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
