package pharmacy

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrPharmacyNotFound is returned when a pharmacy record is not found.
var ErrPharmacyNotFound = errors.New("pharmacy not found")

// ErrDuplicatePharmacyName is returned when a pharmacy with the same name already exists.
var ErrDuplicatePharmacyName = errors.New("pharmacy name already exists")

// Repository provides operations on the pharmacies table.
type Repository interface {
	Create(ctx context.Context, p *Pharmacy) error
	GetByID(ctx context.Context, id uuid.UUID) (*Pharmacy, error)
	List(ctx context.Context) ([]Pharmacy, error)
	// ListByIDs returns the pharmacies whose IDs are in ids. Unknown IDs are ignored.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]Pharmacy, error)
}
