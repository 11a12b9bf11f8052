package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the Postgres schema. Safe to run repeatedly.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createCentersQuery := `
	CREATE TABLE IF NOT EXISTS centers (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createUsersQuery := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL CHECK (role IN ('resident', 'collector', 'admin')),
		center_id UUID REFERENCES centers(id),
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		last_assigned_at TIMESTAMPTZ,
		last_waste_pickup TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT collector_has_center CHECK (role <> 'collector' OR center_id IS NOT NULL)
	);
	`

	createCollectorQueueIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_users_collector_queue
	ON users (center_id, last_assigned_at NULLS FIRST, id)
	WHERE role = 'collector' AND is_available;
	`

	createPickupsQuery := `
	CREATE TABLE IF NOT EXISTS pickup_requests (
		id UUID PRIMARY KEY,
		requester_id UUID NOT NULL,
		center_id UUID NOT NULL REFERENCES centers(id),
		collector_id UUID REFERENCES users(id),
		address TEXT NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		waste_type TEXT NOT NULL,
		urgency TEXT NOT NULL CHECK (urgency IN ('low', 'medium', 'high')),
		status TEXT NOT NULL CHECK (status IN ('pending', 'assigned', 'completed', 'canceled')),
		requested_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	);
	`

	// A collector is flagged unavailable for exactly one open request.
	createOpenRequestIndexQuery := `
	CREATE UNIQUE INDEX IF NOT EXISTS ux_pickup_requests_open_collector
	ON pickup_requests (collector_id)
	WHERE status IN ('pending', 'assigned');
	`

	createRequesterIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_pickup_requests_requester
	ON pickup_requests (requester_id, requested_at DESC);
	`

	createCenterIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_pickup_requests_center
	ON pickup_requests (center_id, requested_at DESC);
	`

	createSavedAddressesQuery := `
	CREATE TABLE IF NOT EXISTS saved_addresses (
		user_id UUID NOT NULL,
		address TEXT NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		waste_type TEXT NOT NULL DEFAULT '',
		urgency TEXT NOT NULL DEFAULT 'medium',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, address, lon, lat)
	);
	`

	createRouteCacheQuery := `
	CREATE TABLE IF NOT EXISTS route_cache (
		route_key TEXT PRIMARY KEY,
		start_lon DOUBLE PRECISION NOT NULL,
		start_lat DOUBLE PRECISION NOT NULL,
		end_lon DOUBLE PRECISION NOT NULL,
		end_lat DOUBLE PRECISION NOT NULL,
		distance_meters DOUBLE PRECISION NOT NULL,
		duration_seconds DOUBLE PRECISION NOT NULL,
		steps JSONB NOT NULL DEFAULT '[]',
		waypoints BYTEA,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL
	);
	`

	statements := []string{
		createCentersQuery,
		createUsersQuery,
		createCollectorQueueIndexQuery,
		createPickupsQuery,
		createOpenRequestIndexQuery,
		createRequesterIndexQuery,
		createCenterIndexQuery,
		createSavedAddressesQuery,
		createRouteCacheQuery,
		createGeocodeCacheQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
