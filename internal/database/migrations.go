package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createRefreshTokensTable,
		createEventsTable,
		createDiscountCodesTable,
		createRegistrationsTable,
		createPaymentsTable,
		createRegistrationIndexes,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    full_name VARCHAR(255) NOT NULL DEFAULT '',
    is_staff BOOLEAN NOT NULL DEFAULT FALSE,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createRefreshTokensTable = `
CREATE TABLE IF NOT EXISTS refresh_tokens (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    token_hash VARCHAR(64) UNIQUE NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    revoked_at TIMESTAMPTZ
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    slug VARCHAR(255) UNIQUE NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status VARCHAR(10) NOT NULL DEFAULT 'draft',
    price BIGINT NOT NULL DEFAULT 0,
    capacity BIGINT,
    registration_start_at TIMESTAMPTZ,
    registration_end_at TIMESTAMPTZ,
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('draft', 'published', 'cancelled', 'completed')),
    CHECK (price >= 0)
);`

const createDiscountCodesTable = `
CREATE TABLE IF NOT EXISTS discount_codes (
    id SERIAL PRIMARY KEY,
    code VARCHAR(64) UNIQUE NOT NULL,
    event_id INTEGER REFERENCES events(id) ON DELETE CASCADE,
    kind VARCHAR(10) NOT NULL DEFAULT 'percent',
    value BIGINT NOT NULL,
    max_discount BIGINT,
    min_amount BIGINT,
    usage_limit BIGINT,
    used_count BIGINT NOT NULL DEFAULT 0,
    starts_at TIMESTAMPTZ,
    ends_at TIMESTAMPTZ,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,

    CHECK (kind IN ('percent', 'fixed')),
    CHECK (value >= 0),
    CHECK (used_count >= 0)
);`

const createRegistrationsTable = `
CREATE TABLE IF NOT EXISTS registrations (
    id SERIAL PRIMARY KEY,
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    status VARCHAR(10) NOT NULL DEFAULT 'pending',
    ticket_id UUID UNIQUE,
    discount_code_id INTEGER REFERENCES discount_codes(id) ON DELETE SET NULL,
    discount_amount BIGINT NOT NULL DEFAULT 0,
    final_price BIGINT,
    registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'confirmed', 'cancelled', 'attended'))
);`

const createPaymentsTable = `
CREATE TABLE IF NOT EXISTS payments (
    id SERIAL PRIMARY KEY,
    registration_id INTEGER NOT NULL REFERENCES registrations(id) ON DELETE CASCADE,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    base_amount BIGINT NOT NULL,
    discount_amount BIGINT NOT NULL DEFAULT 0,
    amount BIGINT NOT NULL,
    status VARCHAR(10) NOT NULL DEFAULT 'INIT',
    authority VARCHAR(64) UNIQUE,
    ref_id VARCHAR(64) UNIQUE,
    verified_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('INIT', 'PENDING', 'PAID', 'FAILED', 'CANCELED')),
    CHECK (amount >= 0),
    CHECK (amount = base_amount - discount_amount)
);`

// The partial unique index backs the one-non-cancelled-registration invariant
// at the store level; the admission transaction re-checks it under the event
// row lock so callers get a clean conflict error instead of a constraint
// violation in the common case.
const createRegistrationIndexes = `
CREATE UNIQUE INDEX IF NOT EXISTS registrations_event_user_active_idx
ON registrations (event_id, user_id) WHERE status <> 'cancelled';
CREATE INDEX IF NOT EXISTS registrations_event_status_idx ON registrations (event_id, status);
CREATE INDEX IF NOT EXISTS payments_registration_idx ON payments (registration_id);`
