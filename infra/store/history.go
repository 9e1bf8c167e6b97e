package store

import (
	"context"
	"fmt"

	"github.com/medride/dispatch/core/history"
)

// HistoryStore implements history.Store on Postgres.
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a history store backed by the shared pool.
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) Append(ctx context.Context, rec history.Record) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO history (ride_date, user_uid, driver_uid) VALUES ($1, $2, $3)`,
		rec.Date, rec.UserUID, rec.DriverUID)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *HistoryStore) ByDriver(ctx context.Context, driverUID string) ([]history.Record, error) {
	return s.query(ctx, `
		SELECT ride_date, user_uid, driver_uid FROM history
		WHERE driver_uid = $1 ORDER BY ride_date DESC`, driverUID)
}

func (s *HistoryStore) ByUser(ctx context.Context, userUID string) ([]history.Record, error) {
	return s.query(ctx, `
		SELECT ride_date, user_uid, driver_uid FROM history
		WHERE user_uid = $1 ORDER BY ride_date DESC`, userUID)
}

func (s *HistoryStore) query(ctx context.Context, sql string, arg any) ([]history.Record, error) {
	rows, err := s.db.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []history.Record
	for rows.Next() {
		var r history.Record
		if err := rows.Scan(&r.Date, &r.UserUID, &r.DriverUID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ history.Store = (*HistoryStore)(nil)
