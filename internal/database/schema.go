package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// users and vehicles are read models owned by the identity and vehicle
// services; they are only created here so a fresh database is usable.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		plate TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vehicles_user ON vehicles (user_id)`,
	`CREATE TABLE IF NOT EXISTS ride_groups (
		id BIGSERIAL PRIMARY KEY,
		driver_id BIGINT NOT NULL,
		destination_name TEXT NOT NULL,
		destination_lat DOUBLE PRECISION,
		destination_lon DOUBLE PRECISION,
		total_seats INTEGER NOT NULL CHECK (total_seats >= 1),
		price DOUBLE PRECISION CHECK (price >= 0),
		departure_at TIMESTAMPTZ,
		notes TEXT NOT NULL DEFAULT '',
		trip_id BIGINT UNIQUE,
		status TEXT NOT NULL DEFAULT 'open',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ride_groups_status ON ride_groups (status, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS group_members (
		id BIGSERIAL PRIMARY KEY,
		group_id BIGINT NOT NULL REFERENCES ride_groups (id),
		user_id BIGINT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL,
		approved_at TIMESTAMPTZ,
		agreed_amount DOUBLE PRECISION,
		UNIQUE (group_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members (user_id, status)`,
	`CREATE TABLE IF NOT EXISTS driver_ratings (
		id BIGSERIAL PRIMARY KEY,
		driver_id BIGINT NOT NULL,
		passenger_id BIGINT NOT NULL,
		group_id BIGINT NOT NULL REFERENCES ride_groups (id),
		score INTEGER NOT NULL CHECK (score BETWEEN 1 AND 5),
		comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (driver_id, passenger_id)
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		plate TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vehicles_user ON vehicles (user_id)`,
	`CREATE TABLE IF NOT EXISTS ride_groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		driver_id INTEGER NOT NULL,
		destination_name TEXT NOT NULL,
		destination_lat REAL,
		destination_lon REAL,
		total_seats INTEGER NOT NULL CHECK (total_seats >= 1),
		price REAL CHECK (price >= 0),
		departure_at TIMESTAMP,
		notes TEXT NOT NULL DEFAULT '',
		trip_id INTEGER UNIQUE,
		status TEXT NOT NULL DEFAULT 'open',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ride_groups_status ON ride_groups (status, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS group_members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_id INTEGER NOT NULL REFERENCES ride_groups (id),
		user_id INTEGER NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		joined_at TIMESTAMP NOT NULL,
		approved_at TIMESTAMP,
		agreed_amount REAL,
		UNIQUE (group_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members (user_id, status)`,
	`CREATE TABLE IF NOT EXISTS driver_ratings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		driver_id INTEGER NOT NULL,
		passenger_id INTEGER NOT NULL,
		group_id INTEGER NOT NULL REFERENCES ride_groups (id),
		score INTEGER NOT NULL CHECK (score BETWEEN 1 AND 5),
		comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (driver_id, passenger_id)
	)`,
}

// Migrate creates any missing tables. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect, logger *zap.Logger) error {
	stmts := postgresSchema
	if dialect == SQLite {
		stmts = sqliteSchema
	}

	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}

	logger.Info("Schema is up to date", zap.String("dialect", string(dialect)), zap.Int("statements", len(stmts)))
	return nil
}
