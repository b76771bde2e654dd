package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when a user record is not found.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateEmail is returned when a user with the same email already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrUnknownPharmacy is returned when an assignment references a missing pharmacy.
var ErrUnknownPharmacy = errors.New("pharmacy does not exist")

// ErrInvalidRole is returned when a role literal is not part of the enumeration.
var ErrInvalidRole = errors.New("invalid role")

// Repository provides operations on the users and pharmacy_assignments tables.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// FindByEmail normalises the email before lookup. A miss returns ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	SetApprovalStatus(ctx context.Context, id uuid.UUID, status ApprovalStatus) error
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	// ReplaceAssignments deletes every assignment of the user and inserts the given set.
	ReplaceAssignments(ctx context.Context, id uuid.UUID, pharmacyIDs []uuid.UUID) error
	// UpsertAdmin creates or repairs an admin account and links it to every pharmacy.
	UpsertAdmin(ctx context.Context, u *User) error
}
