package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/medride/dispatch/core/user"
)

// UserStore implements user.Store on Postgres.
type UserStore struct {
	db *DB
}

// NewUserStore creates a user store backed by the shared pool.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Get(ctx context.Context, uid string) (user.Profile, error) {
	var p user.Profile
	err := s.db.pool.QueryRow(ctx, `
		SELECT uid, username, email, phone_number, address FROM users WHERE uid = $1`, uid).
		Scan(&p.UID, &p.Username, &p.Email, &p.PhoneNumber, &p.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.Profile{}, user.ErrNotFound
	}
	if err != nil {
		return user.Profile{}, fmt.Errorf("get user %s: %w", uid, err)
	}
	return p, nil
}

func (s *UserStore) Put(ctx context.Context, p user.Profile) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO users (uid, username, email, phone_number, address)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (uid) DO UPDATE SET
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			phone_number = EXCLUDED.phone_number,
			address = EXCLUDED.address`,
		p.UID, p.Username, p.Email, p.PhoneNumber, p.Address)
	if err != nil {
		return fmt.Errorf("put user %s: %w", p.UID, err)
	}
	return nil
}

func (s *UserStore) Delete(ctx context.Context, uid string) error {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM users WHERE uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", uid, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

var _ user.Store = (*UserStore)(nil)
