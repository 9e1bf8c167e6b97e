// Package store provides PostgreSQL-backed persistence for driver profiles,
// ride state, user accounts and ride history.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medride/dispatch/infra/logger"
)

// PostgresConfig holds the database connection settings.
type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// SetDefaults applies sane defaults.
func (c *PostgresConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
}

// DSN renders the connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// DB wraps a pgx connection pool shared by the repository types.
type DB struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

// Connect opens a pool and verifies the connection.
func Connect(ctx context.Context, cfg PostgresConfig) (*DB, error) {
	cfg.SetDefaults()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log := logger.New("postgres")
	log.Infof("connected to %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	return &DB{pool: pool, log: log}, nil
}

// Close releases the pool.
func (db *DB) Close() { db.pool.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS drivers (
		uid              TEXT PRIMARY KEY,
		username         TEXT NOT NULL DEFAULT '',
		email            TEXT NOT NULL DEFAULT '',
		phone_number     TEXT NOT NULL DEFAULT '',
		ambulance_number TEXT NOT NULL DEFAULT '',
		active           BOOLEAN NOT NULL DEFAULT FALSE,
		enabled          BOOLEAN NOT NULL DEFAULT FALSE,
		notify_address   TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		uid          TEXT PRIMARY KEY,
		username     TEXT NOT NULL DEFAULT '',
		email        TEXT NOT NULL DEFAULT '',
		phone_number TEXT NOT NULL DEFAULT '',
		address      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS rides (
		request_uid     TEXT PRIMARY KEY,
		start_lat       DOUBLE PRECISION NOT NULL,
		start_lng       DOUBLE PRECISION NOT NULL,
		dest_lat        DOUBLE PRECISION NOT NULL,
		dest_lng        DOUBLE PRECISION NOT NULL,
		assigned_driver TEXT,
		excluded        TEXT[] NOT NULL DEFAULT '{}',
		deadline        TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS history (
		id         BIGSERIAL PRIMARY KEY,
		ride_date  TIMESTAMPTZ NOT NULL,
		user_uid   TEXT NOT NULL,
		driver_uid TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS history_driver_idx ON history (driver_uid)`,
	`CREATE INDEX IF NOT EXISTS history_user_idx ON history (user_uid)`,
}

// Migrate creates the tables when they do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
