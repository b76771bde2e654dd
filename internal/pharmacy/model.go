package pharmacy

import (
	"time"

	"github.com/google/uuid"
)

// Pharmacy represents a row in the pharmacies table.
type Pharmacy struct {
	ID        uuid.UUID
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
