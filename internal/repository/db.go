package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the minimal database surface the repositories use. Both
// *pgxpool.Pool and pgxmock pools satisfy it, which keeps the repositories
// testable without a live database.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB wraps the connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates the connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate applies the schema migrations in order.
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateClients,
		migrationCreateAppointments,
		migrationCreateTrips,
		migrationCreateSettings,
	}

	for _, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

const migrationCreateClients = `
CREATE TABLE IF NOT EXISTS clients (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    address TEXT,
    latitude DOUBLE PRECISION,
    longitude DOUBLE PRECISION,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`

const migrationCreateAppointments = `
CREATE TABLE IF NOT EXISTS appointments (
    id BIGSERIAL PRIMARY KEY,
    client_id BIGINT NOT NULL REFERENCES clients(id),
    scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_appointments_client_id ON appointments(client_id);
CREATE INDEX IF NOT EXISTS idx_appointments_scheduled_at ON appointments(scheduled_at);
`

const migrationCreateTrips = `
CREATE TABLE IF NOT EXISTS trips (
    id UUID PRIMARY KEY,
    date DATE NOT NULL,
    start_latitude DOUBLE PRECISION,
    start_longitude DOUBLE PRECISION,
    end_latitude DOUBLE PRECISION,
    end_longitude DOUBLE PRECISION,
    start_address JSONB,
    end_address JSONB,
    start_display_name TEXT DEFAULT '',
    end_display_name TEXT DEFAULT '',
    miles DOUBLE PRECISION NOT NULL,
    purpose TEXT NOT NULL DEFAULT '',
    notes TEXT DEFAULT '',
    auto_tracked BOOLEAN NOT NULL DEFAULT false,
    review_status VARCHAR(20) NOT NULL,
    linked_appointment_id BIGINT,
    suggested_appointment_id BIGINT,
    started_at TIMESTAMP WITH TIME ZONE,
    ended_at TIMESTAMP WITH TIME ZONE,
    sync_status VARCHAR(10) NOT NULL DEFAULT 'pending',
    deleted_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_trips_date ON trips(date);
CREATE INDEX IF NOT EXISTS idx_trips_review_status ON trips(review_status);
CREATE INDEX IF NOT EXISTS idx_trips_sync_status ON trips(sync_status);
`

const migrationCreateSettings = `
CREATE TABLE IF NOT EXISTS auto_tracking_settings (
    id SMALLINT PRIMARY KEY DEFAULT 1,
    enabled BOOLEAN NOT NULL DEFAULT false,
    start_minute INT NOT NULL DEFAULT 420,
    end_minute INT NOT NULL DEFAULT 1080,
    days_mask INT NOT NULL DEFAULT 62,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    CONSTRAINT single_row CHECK (id = 1)
);
INSERT INTO auto_tracking_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
`
