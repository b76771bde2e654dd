package pharmacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new pharmacy record.
func (r *PostgresRepository) Create(ctx context.Context, p *Pharmacy) error {
	query := `
		INSERT INTO pharmacies (name, address)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, p.Name, p.Address).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePharmacyName
		}
		return fmt.Errorf("inserting pharmacy: %w", err)
	}

	return nil
}

// GetByID retrieves a single pharmacy by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Pharmacy, error) {
	query := `
		SELECT id, name, address, created_at, updated_at
		FROM pharmacies
		WHERE id = $1`

	var p Pharmacy
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Address, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPharmacyNotFound
		}
		return nil, fmt.Errorf("querying pharmacy: %w", err)
	}

	return &p, nil
}

// List retrieves all pharmacies ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]Pharmacy, error) {
	query := `
		SELECT id, name, address, created_at, updated_at
		FROM pharmacies
		ORDER BY name ASC`

	return r.query(ctx, query)
}

// ListByIDs retrieves the pharmacies with the given IDs ordered by name.
func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]Pharmacy, error) {
	if len(ids) == 0 {
		return []Pharmacy{}, nil
	}

	query := `
		SELECT id, name, address, created_at, updated_at
		FROM pharmacies
		WHERE id = ANY($1)
		ORDER BY name ASC`

	return r.query(ctx, query, ids)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]Pharmacy, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing pharmacies: %w", err)
	}
	defer rows.Close()

	var pharmacies []Pharmacy
	for rows.Next() {
		var p Pharmacy
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning pharmacy row: %w", err)
		}
		pharmacies = append(pharmacies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pharmacy rows: %w", err)
	}

	if pharmacies == nil {
		pharmacies = []Pharmacy{}
	}

	return pharmacies, nil
}
