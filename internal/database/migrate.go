package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrLegacyDataConflict is returned when existing rows cannot be normalised
// without manual repair.
var ErrLegacyDataConflict = errors.New("legacy user data conflicts with the schema")

// schemaMigrations create or extend tables. They are idempotent and applied in
// order on every start.
var schemaMigrations = []string{
	`CREATE TABLE IF NOT EXISTS pharmacies (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT UNIQUE NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT,
		role TEXT NOT NULL DEFAULT 'user',
		approval_status TEXT NOT NULL DEFAULT 'pending',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		approved_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS approval_status TEXT NOT NULL DEFAULT 'pending';`,
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS is_active BOOLEAN NOT NULL DEFAULT TRUE;`,
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS approved_at TIMESTAMPTZ;`,
	`ALTER TABLE users ALTER COLUMN password_hash DROP NOT NULL;`,
	// Legacy rows carried two approval fields. Approved survives only where both agreed.
	`DO $$
	BEGIN
		IF EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = 'users' AND column_name = 'is_approved'
		) THEN
			UPDATE users SET approval_status = 'pending'
			WHERE lower(approval_status) = 'approved' AND is_approved IS NOT TRUE;
			ALTER TABLE users DROP COLUMN is_approved;
		END IF;
	END $$;`,
	`CREATE TABLE IF NOT EXISTS pharmacy_assignments (
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		pharmacy_id UUID NOT NULL REFERENCES pharmacies(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, pharmacy_id)
	);`,
	`CREATE INDEX IF NOT EXISTS pharmacy_assignments_pharmacy_idx ON pharmacy_assignments (pharmacy_id);`,
}

// normalizeMigrations canonicalise stored values and pin them with
// constraints. checkLegacyData runs first so conflicts are reported by row.
var normalizeMigrations = []string{
	`UPDATE users SET email = lower(btrim(email)) WHERE email <> lower(btrim(email));`,
	`UPDATE users SET role = lower(role) WHERE role <> lower(role);`,
	`UPDATE users SET approval_status = lower(approval_status) WHERE approval_status <> lower(approval_status);`,
	`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_role_check;`,
	`ALTER TABLE users ADD CONSTRAINT users_role_check
		CHECK (role IN ('admin', 'pharmacist', 'technician', 'user'));`,
	`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_approval_status_check;`,
	`ALTER TABLE users ADD CONSTRAINT users_approval_status_check
		CHECK (approval_status IN ('pending', 'approved', 'rejected'));`,
}

// Migrate applies the schema statements in order.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if err := apply(ctx, pool, "schema", schemaMigrations); err != nil {
		return err
	}
	if err := checkLegacyData(ctx, pool); err != nil {
		return err
	}
	return apply(ctx, pool, "normalize", normalizeMigrations)
}

func apply(ctx context.Context, pool *pgxpool.Pool, stage string, stmts []string) error {
	for i, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying %s migration %d: %w", stage, i, err)
		}
	}
	return nil
}

// checkLegacyData finds emails that collide once lower-cased and role or
// approval literals outside the enumerations.
func checkLegacyData(ctx context.Context, pool *pgxpool.Pool) error {
	var problems []string

	rows, err := pool.Query(ctx, `
		SELECT lower(btrim(email)), string_agg(email, ', ' ORDER BY email)
		FROM users
		GROUP BY lower(btrim(email))
		HAVING count(*) > 1
		ORDER BY 1`)
	if err != nil {
		return fmt.Errorf("checking duplicate emails: %w", err)
	}
	for rows.Next() {
		var normalized, variants string
		if err := rows.Scan(&normalized, &variants); err != nil {
			rows.Close()
			return fmt.Errorf("scanning duplicate emails: %w", err)
		}
		problems = append(problems, fmt.Sprintf("email %s is used by [%s]", normalized, variants))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("checking duplicate emails: %w", err)
	}

	rows, err = pool.Query(ctx, `
		SELECT id::text, email, role, approval_status
		FROM users
		WHERE lower(role) NOT IN ('admin', 'pharmacist', 'technician', 'user')
		   OR lower(approval_status) NOT IN ('pending', 'approved', 'rejected')
		ORDER BY email`)
	if err != nil {
		return fmt.Errorf("checking enumerations: %w", err)
	}
	for rows.Next() {
		var id, email, role, status string
		if err := rows.Scan(&id, &email, &role, &status); err != nil {
			rows.Close()
			return fmt.Errorf("scanning enumerations: %w", err)
		}
		problems = append(problems, fmt.Sprintf("user %s (%s) has role %q and approval status %q", id, email, role, status))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("checking enumerations: %w", err)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrLegacyDataConflict, strings.Join(problems, "; "))
	}
	return nil
}
