package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// System settings are admin-tunable key/value pairs recorded through
// the admin API. The engine itself reads its limits from the
// environment at startup, so a changed setting takes effect on the
// next restart.

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	row := s.Pool.QueryRow(ctx, `SELECT value FROM system_settings WHERE key = $1`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return v, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO system_settings (key, value) VALUES ($1,$2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	return err
}

func (s *Store) AllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.Pool.Query(ctx, `SELECT key, value FROM system_settings ORDER BY key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
