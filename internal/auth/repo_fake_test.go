package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coldtrace/coldtrace/internal/user"
)

// memUserRepo is an in-memory user.Repository. Error hooks override the
// default behaviour when set.
type memUserRepo struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*user.User
	pharmacies []uuid.UUID

	findByEmailErr error
	getByIDErr     error
	upsertErrFor   map[string]error
	upsertCalls    int
	upserted       []string
}

func newMemUserRepo(pharmacies ...uuid.UUID) *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*user.User), pharmacies: pharmacies}
}

func (m *memUserRepo) add(u *user.User) *user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = user.NormalizeEmail(u.Email)
	cp := *u
	m.users[u.ID] = &cp
	return u
}

func (m *memUserRepo) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.NormalizeEmail(u.Email) {
			return user.ErrDuplicateEmail
		}
	}
	u.ID = uuid.New()
	u.Email = user.NormalizeEmail(u.Email)
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	if m.getByIDErr != nil {
		return nil, m.getByIDErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (m *memUserRepo) List(_ context.Context) ([]user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]user.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memUserRepo) SetApprovalStatus(_ context.Context, id uuid.UUID, status user.ApprovalStatus) error {
	return m.mutate(id, func(u *user.User) { u.ApprovalStatus = status })
}

func (m *memUserRepo) SetPassword(_ context.Context, id uuid.UUID, hash string) error {
	return m.mutate(id, func(u *user.User) { u.PasswordHash = &hash })
}

func (m *memUserRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	return m.mutate(id, func(u *user.User) { u.IsActive = false })
}

func (m *memUserRepo) ReplaceAssignments(_ context.Context, id uuid.UUID, pharmacyIDs []uuid.UUID) error {
	return m.mutate(id, func(u *user.User) { u.PharmacyIDs = append([]uuid.UUID(nil), pharmacyIDs...) })
}

func (m *memUserRepo) UpsertAdmin(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	m.upserted = append(m.upserted, user.NormalizeEmail(u.Email))
	if err := m.upsertErrFor[user.NormalizeEmail(u.Email)]; err != nil {
		return err
	}

	var target *user.User
	for _, existing := range m.users {
		if existing.Email == user.NormalizeEmail(u.Email) {
			target = existing
			break
		}
	}
	if target == nil {
		target = &user.User{ID: uuid.New(), Email: user.NormalizeEmail(u.Email), CreatedAt: time.Now().UTC()}
		m.users[target.ID] = target
	}
	target.Name = u.Name
	target.PasswordHash = u.PasswordHash
	target.Role = user.RoleAdmin
	target.ApprovalStatus = user.StatusApproved
	target.IsActive = true
	target.PharmacyIDs = append([]uuid.UUID(nil), m.pharmacies...)

	*u = *target
	return nil
}

func (m *memUserRepo) mutate(id uuid.UUID, fn func(*user.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (m *memUserRepo) update(id uuid.UUID, fn func(*user.User)) {
	_ = m.mutate(id, fn)
}

func (m *memUserRepo) remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}
