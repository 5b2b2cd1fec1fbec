package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateRoom(ctx context.Context, r *Room) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.Status == "" {
		r.Status = "waiting"
	}
	row := s.Pool.QueryRow(ctx, `INSERT INTO rooms (id, name, game_type, host_id, status, bet_room, bet_amount) VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING created_at`,
		r.ID, r.Name, r.GameType, r.HostID, r.Status, r.BetRoom, r.BetAmount)
	return row.Scan(&r.CreatedAt)
}

func (s *Store) GetRoom(ctx context.Context, id string) (*Room, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, name, game_type, host_id, status, bet_room, bet_amount, created_at, ended_at FROM rooms WHERE id = $1`, id)
	var r Room
	if err := row.Scan(&r.ID, &r.Name, &r.GameType, &r.HostID, &r.Status, &r.BetRoom, &r.BetAmount, &r.CreatedAt, &r.EndedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) UpdateRoomStatus(ctx context.Context, id, status string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE rooms SET status = $1, ended_at = CASE WHEN $1 = 'ended' THEN now() ELSE ended_at END WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveRooms returns rooms that are joinable or running.
func (s *Store) ListActiveRooms(ctx context.Context) ([]Room, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, name, game_type, host_id, status, bet_room, bet_amount, created_at, ended_at FROM rooms WHERE status IN ('waiting', 'playing') ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Room{}
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.Name, &r.GameType, &r.HostID, &r.Status, &r.BetRoom, &r.BetAmount, &r.CreatedAt, &r.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
