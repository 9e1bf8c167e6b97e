package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/medride/dispatch/core/model"
	"github.com/medride/dispatch/core/ride"
)

// RideStore implements ride.Store on Postgres. The compare-and-swap runs in
// a transaction holding a row lock, so two racing writers serialize and the
// loser observes the winner's driver.
type RideStore struct {
	db *DB
}

// NewRideStore creates a ride store backed by the shared pool.
func NewRideStore(db *DB) *RideStore {
	return &RideStore{db: db}
}

func (s *RideStore) Create(ctx context.Context, st model.RideState) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO rides (request_uid, start_lat, start_lng, dest_lat, dest_lng, assigned_driver, excluded, deadline, created_at)
		VALUES ($1, $2, $3, $4, $5, NULL, '{}', $6, $7)
		ON CONFLICT (request_uid) DO UPDATE SET
			start_lat = EXCLUDED.start_lat,
			start_lng = EXCLUDED.start_lng,
			dest_lat = EXCLUDED.dest_lat,
			dest_lng = EXCLUDED.dest_lng,
			assigned_driver = NULL,
			excluded = '{}',
			deadline = EXCLUDED.deadline,
			created_at = EXCLUDED.created_at`,
		st.RequestUID, st.Start.Lat, st.Start.Lng, st.Dest.Lat, st.Dest.Lng,
		nullableTime(st.Deadline), st.CreatedAt)
	if err != nil {
		return fmt.Errorf("create ride %s: %w", st.RequestUID, err)
	}
	return nil
}

func (s *RideStore) Get(ctx context.Context, requestUID string) (model.RideState, error) {
	return scanRide(s.db.pool.QueryRow(ctx, `
		SELECT request_uid, start_lat, start_lng, dest_lat, dest_lng, assigned_driver, excluded, deadline, created_at
		FROM rides WHERE request_uid = $1`, requestUID))
}

func (s *RideStore) CompareAndSwap(ctx context.Context, requestUID string, expect *string, update func(*model.RideState)) (model.RideState, error) {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return model.RideState{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	st, err := scanRide(tx.QueryRow(ctx, `
		SELECT request_uid, start_lat, start_lng, dest_lat, dest_lng, assigned_driver, excluded, deadline, created_at
		FROM rides WHERE request_uid = $1 FOR UPDATE`, requestUID))
	if err != nil {
		return model.RideState{}, err
	}
	if !sameDriver(st.AssignedDriver, expect) {
		return model.RideState{}, ride.ErrConcurrentModification
	}

	update(&st)

	excluded := make([]string, 0, len(st.Excluded))
	for uid := range st.Excluded {
		excluded = append(excluded, uid)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE rides SET assigned_driver = $2, excluded = $3, deadline = $4
		WHERE request_uid = $1`,
		requestUID, st.AssignedDriver, excluded, nullableTime(st.Deadline)); err != nil {
		return model.RideState{}, fmt.Errorf("update ride %s: %w", requestUID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.RideState{}, fmt.Errorf("commit: %w", err)
	}
	return st, nil
}

func (s *RideStore) Expired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT request_uid FROM rides
		WHERE assigned_driver IS NULL AND deadline IS NOT NULL AND deadline < $1`, now)
	if err != nil {
		return nil, fmt.Errorf("expired scan: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		out = append(out, uid)
	}
	return out, rows.Err()
}

func (s *RideStore) Delete(ctx context.Context, requestUID string) error {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM rides WHERE request_uid = $1`, requestUID)
	if err != nil {
		return fmt.Errorf("delete ride %s: %w", requestUID, err)
	}
	if tag.RowsAffected() == 0 {
		return ride.ErrNotFound
	}
	return nil
}

func scanRide(row pgx.Row) (model.RideState, error) {
	var (
		st       model.RideState
		excluded []string
		deadline *time.Time
	)
	err := row.Scan(&st.RequestUID, &st.Start.Lat, &st.Start.Lng, &st.Dest.Lat, &st.Dest.Lng,
		&st.AssignedDriver, &excluded, &deadline, &st.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RideState{}, ride.ErrNotFound
	}
	if err != nil {
		return model.RideState{}, fmt.Errorf("scan ride: %w", err)
	}
	if len(excluded) > 0 {
		st.Excluded = make(map[string]struct{}, len(excluded))
		for _, uid := range excluded {
			st.Excluded[uid] = struct{}{}
		}
	}
	if deadline != nil {
		st.Deadline = *deadline
	}
	return st, nil
}

func sameDriver(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ ride.Store = (*RideStore)(nil)
