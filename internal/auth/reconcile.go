package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/coldtrace/coldtrace/internal/user"
)

// ErrUnknownAdminTarget is returned when reconciling an email that is not configured.
var ErrUnknownAdminTarget = errors.New("admin target not configured")

// AdminTarget describes an admin account that must always exist and be usable.
type AdminTarget struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type adminSeedFile struct {
	Admins []AdminTarget `json:"admins"`
}

// LoadAdminTargets reads admin targets from a YAML file of the form:
//
//	admins:
//	  - email: admin@example.com
//	    name: Administrator
//	    password: change-me-please
func LoadAdminTargets(path string) ([]AdminTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading admin seed file: %w", err)
	}
	return ParseAdminTargets(data)
}

// ParseAdminTargets parses and validates YAML admin targets.
func ParseAdminTargets(data []byte) ([]AdminTarget, error) {
	var f adminSeedFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parsing admin seed file: %w", err)
	}

	seen := make(map[string]bool, len(f.Admins))
	for i := range f.Admins {
		t := &f.Admins[i]
		t.Email = user.NormalizeEmail(t.Email)
		t.Name = strings.TrimSpace(t.Name)
		if t.Email == "" {
			return nil, fmt.Errorf("admin target %d: email is required", i)
		}
		if len(t.Password) < 8 {
			return nil, fmt.Errorf("admin target %s: password must be at least 8 characters", t.Email)
		}
		if seen[t.Email] {
			return nil, fmt.Errorf("admin target %s: duplicate email", t.Email)
		}
		seen[t.Email] = true
	}
	return f.Admins, nil
}

// Reconciler converges configured admin accounts to a known-good state.
type Reconciler struct {
	users   user.Repository
	hasher  *PasswordHasher
	targets map[string]AdminTarget
	order   []string
}

// NewReconciler creates a Reconciler for the given targets.
func NewReconciler(users user.Repository, hasher *PasswordHasher, targets []AdminTarget) *Reconciler {
	r := &Reconciler{users: users, hasher: hasher, targets: make(map[string]AdminTarget, len(targets))}
	for _, t := range targets {
		email := user.NormalizeEmail(t.Email)
		if _, dup := r.targets[email]; !dup {
			r.order = append(r.order, email)
		}
		r.targets[email] = t
	}
	return r
}

// ReconcileAdmin upserts the configured admin for email: role admin, approved,
// active, configured password, linked to every pharmacy. Safe to repeat.
func (r *Reconciler) ReconcileAdmin(ctx context.Context, email string) (*user.User, error) {
	t, ok := r.targets[user.NormalizeEmail(email)]
	if !ok {
		return nil, ErrUnknownAdminTarget
	}

	hash, err := r.hasher.Hash(t.Password)
	if err != nil {
		return nil, err
	}

	name := t.Name
	if name == "" {
		name = "Administrator"
	}

	u := &user.User{
		Email:        t.Email,
		Name:         name,
		PasswordHash: &hash,
	}
	if err := r.users.UpsertAdmin(ctx, u); err != nil {
		return nil, fmt.Errorf("reconciling admin %s: %w", t.Email, err)
	}

	slog.Info("admin account reconciled", "audit", true, "email", u.Email, "userId", u.ID, "pharmacies", len(u.PharmacyIDs))
	return u, nil
}

// ReconcileAll reconciles every configured target in file order. A failing
// target does not stop the others; all failures are returned together.
func (r *Reconciler) ReconcileAll(ctx context.Context) error {
	var errs []error
	for _, email := range r.order {
		if _, err := r.ReconcileAdmin(ctx, email); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
