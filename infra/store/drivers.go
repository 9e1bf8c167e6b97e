package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/medride/dispatch/core/driver"
	"github.com/medride/dispatch/core/model"
)

// DriverRegistry implements driver.Registry on Postgres.
type DriverRegistry struct {
	db *DB
}

// NewDriverRegistry creates a registry backed by the shared pool.
func NewDriverRegistry(db *DB) *DriverRegistry {
	return &DriverRegistry{db: db}
}

func (r *DriverRegistry) ListAll(ctx context.Context) ([]model.DriverProfile, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT uid, username, email, phone_number, ambulance_number, active, enabled, notify_address
		FROM drivers
		ORDER BY uid`)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var out []model.DriverProfile
	for rows.Next() {
		var p model.DriverProfile
		if err := rows.Scan(&p.UID, &p.Username, &p.Email, &p.PhoneNumber,
			&p.AmbulanceNumber, &p.Active, &p.Enabled, &p.NotifyAddress); err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *DriverRegistry) Get(ctx context.Context, uid string) (model.DriverProfile, error) {
	var p model.DriverProfile
	err := r.db.pool.QueryRow(ctx, `
		SELECT uid, username, email, phone_number, ambulance_number, active, enabled, notify_address
		FROM drivers WHERE uid = $1`, uid).
		Scan(&p.UID, &p.Username, &p.Email, &p.PhoneNumber,
			&p.AmbulanceNumber, &p.Active, &p.Enabled, &p.NotifyAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.DriverProfile{}, driver.ErrNotFound
	}
	if err != nil {
		return model.DriverProfile{}, fmt.Errorf("get driver %s: %w", uid, err)
	}
	return p, nil
}

func (r *DriverRegistry) Put(ctx context.Context, p model.DriverProfile) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO drivers (uid, username, email, phone_number, ambulance_number, active, enabled, notify_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (uid) DO UPDATE SET
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			phone_number = EXCLUDED.phone_number,
			ambulance_number = EXCLUDED.ambulance_number,
			active = EXCLUDED.active,
			enabled = EXCLUDED.enabled,
			notify_address = EXCLUDED.notify_address`,
		p.UID, p.Username, p.Email, p.PhoneNumber, p.AmbulanceNumber,
		p.Active, p.Enabled, p.NotifyAddress)
	if err != nil {
		return fmt.Errorf("put driver %s: %w", p.UID, err)
	}
	return nil
}

func (r *DriverRegistry) Delete(ctx context.Context, uid string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM drivers WHERE uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete driver %s: %w", uid, err)
	}
	if tag.RowsAffected() == 0 {
		return driver.ErrNotFound
	}
	return nil
}

var _ driver.Registry = (*DriverRegistry)(nil)
