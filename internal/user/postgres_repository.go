package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// selectUser reads a user with its assignments aggregated into a uuid array.
const selectUser = `
	SELECT u.id, u.email, u.name, u.password_hash, u.role, u.approval_status,
	       u.is_active, u.approved_at, u.created_at, u.updated_at,
	       COALESCE(ARRAY(
	           SELECT pa.pharmacy_id FROM pharmacy_assignments pa
	           WHERE pa.user_id = u.id ORDER BY pa.pharmacy_id
	       ), '{}')
	FROM users u`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new user record and its pharmacy assignments.
func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	u.Email = NormalizeEmail(u.Email)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO users (email, name, password_hash, role, approval_status, is_active, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, CASE WHEN $5 = 'approved' THEN NOW() END)
		RETURNING id, approved_at, created_at, updated_at`

	err = tx.QueryRow(ctx, query,
		u.Email,
		u.Name,
		u.PasswordHash,
		string(u.Role),
		string(u.ApprovalStatus),
		u.IsActive,
	).Scan(&u.ID, &u.ApprovedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	if err := insertAssignments(ctx, tx, u.ID, u.PharmacyIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing user: %w", err)
	}
	return nil
}

// GetByID retrieves a single user by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE u.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// FindByEmail retrieves a user by normalised email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE u.email = $1`, NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return u, nil
}

// List retrieves all users ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, selectUser+` ORDER BY u.created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	if users == nil {
		users = []User{}
	}

	return users, nil
}

// SetApprovalStatus updates the approval status. approved_at follows the status.
func (r *PostgresRepository) SetApprovalStatus(ctx context.Context, id uuid.UUID, status ApprovalStatus) error {
	query := `
		UPDATE users
		SET approval_status = $2,
		    approved_at = CASE WHEN $2 = 'approved' THEN COALESCE(approved_at, NOW()) END,
		    updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "updating approval status", query, id, string(status))
}

// SetPassword replaces the stored password hash.
func (r *PostgresRepository) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "updating password", query, id, hash)
}

// Deactivate clears is_active. Deactivating an inactive user is not an error.
func (r *PostgresRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "deactivating user", query, id)
}

// ReplaceAssignments swaps the full assignment set inside one transaction.
func (r *PostgresRepository) ReplaceAssignments(ctx context.Context, id uuid.UUID, pharmacyIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("checking user existence: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM pharmacy_assignments WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("deleting assignments: %w", err)
	}

	if err := insertAssignments(ctx, tx, id, pharmacyIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing assignments: %w", err)
	}
	return nil
}

// UpsertAdmin creates the account if missing, otherwise forces it back to an
// approved, active admin with the given password. Assignments are replaced with
// every pharmacy. u.ID, timestamps and PharmacyIDs are filled from the result.
func (r *PostgresRepository) UpsertAdmin(ctx context.Context, u *User) error {
	u.Email = NormalizeEmail(u.Email)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO users (email, name, password_hash, role, approval_status, is_active, approved_at)
		VALUES ($1, $2, $3, 'admin', 'approved', TRUE, NOW())
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name,
		    password_hash = EXCLUDED.password_hash,
		    role = 'admin',
		    approval_status = 'approved',
		    is_active = TRUE,
		    approved_at = COALESCE(users.approved_at, NOW()),
		    updated_at = NOW()
		RETURNING id, approved_at, created_at, updated_at`

	err = tx.QueryRow(ctx, query, u.Email, u.Name, u.PasswordHash).
		Scan(&u.ID, &u.ApprovedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting admin: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM pharmacy_assignments WHERE user_id = $1`, u.ID); err != nil {
		return fmt.Errorf("deleting admin assignments: %w", err)
	}

	rows, err := tx.Query(ctx, `
		INSERT INTO pharmacy_assignments (user_id, pharmacy_id)
		SELECT $1, id FROM pharmacies
		RETURNING pharmacy_id`, u.ID)
	if err != nil {
		return fmt.Errorf("linking admin to pharmacies: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return fmt.Errorf("collecting admin assignments: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing admin: %w", err)
	}

	u.Role = RoleAdmin
	u.ApprovalStatus = StatusApproved
	u.IsActive = true
	u.PharmacyIDs = ids
	return nil
}

func (r *PostgresRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func insertAssignments(ctx context.Context, tx pgx.Tx, userID uuid.UUID, pharmacyIDs []uuid.UUID) error {
	if len(pharmacyIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO pharmacy_assignments (user_id, pharmacy_id)
		SELECT $1, p FROM unnest($2::uuid[]) AS p
		ON CONFLICT DO NOTHING`

	if _, err := tx.Exec(ctx, query, userID, pharmacyIDs); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrUnknownPharmacy
		}
		return fmt.Errorf("inserting assignments: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u      User
		role   string
		status string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &status,
		&u.IsActive, &u.ApprovedAt, &u.CreatedAt, &u.UpdatedAt,
		&u.PharmacyIDs,
	)
	if err != nil {
		return nil, err
	}
	u.Role = Role(role)
	u.ApprovalStatus = ApprovalStatus(status)
	return &u, nil
}
