package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"game-parlor/internal/escrow"
)

// CreateEscrow debits the buy-in and opens a pending escrow in one
// transaction; a failed debit leaves no escrow row behind.
func (s *Store) CreateEscrow(ctx context.Context, roomID, userID string, amount int64) (*Escrow, error) {
	if amount <= 0 {
		return nil, errors.New("amount must be positive")
	}
	e := &Escrow{ID: NewID(), RoomID: roomID, UserID: userID, Amount: amount, Status: escrow.StatusPending}
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if _, _, err := s.debitTx(ctx, tx, userID, amount, "escrow_debit", "bet room buy-in", "room", roomID); err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `INSERT INTO escrows (id, room_id, user_id, amount, status) VALUES ($1,$2,$3,$4,$5) RETURNING created_at, updated_at`,
			e.ID, e.RoomID, e.UserID, e.Amount, string(e.Status))
		return row.Scan(&e.CreatedAt, &e.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) GetEscrow(ctx context.Context, id string) (*Escrow, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, room_id, user_id, amount, status, created_at, updated_at FROM escrows WHERE id = $1`, id)
	return scanEscrow(row)
}

func (s *Store) ListRoomEscrows(ctx context.Context, roomID string) ([]Escrow, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, room_id, user_id, amount, status, created_at, updated_at FROM escrows WHERE room_id = $1 ORDER BY created_at ASC`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Escrow{}
	for rows.Next() {
		var e Escrow
		if err := rows.Scan(&e.ID, &e.RoomID, &e.UserID, &e.Amount, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEscrow(row rowScanner) (*Escrow, error) {
	var e Escrow
	if err := row.Scan(&e.ID, &e.RoomID, &e.UserID, &e.Amount, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// transitionEscrowTx flips the status with the legal-transition table
// compiled into the WHERE clause, so a concurrent writer that already
// moved the row makes this update match zero rows instead of
// overwriting it.
func (s *Store) transitionEscrowTx(ctx context.Context, tx pgx.Tx, id string, to escrow.Status) (*Escrow, error) {
	from := make([]string, 0, 2)
	for _, st := range escrow.Statuses() {
		if escrow.CanTransition(st, to) {
			from = append(from, string(st))
		}
	}
	row := tx.QueryRow(ctx, `UPDATE escrows SET status = $1, updated_at = now() WHERE id = $2 AND status = ANY($3) RETURNING id, room_id, user_id, amount, status, created_at, updated_at`,
		string(to), id, from)
	e, err := scanEscrow(row)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	// Distinguish a missing row from an illegal transition.
	if _, getErr := getEscrowTx(ctx, tx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrEscrowTransition
}

func getEscrowTx(ctx context.Context, tx pgx.Tx, id string) (*Escrow, error) {
	row := tx.QueryRow(ctx, `SELECT id, room_id, user_id, amount, status, created_at, updated_at FROM escrows WHERE id = $1`, id)
	return scanEscrow(row)
}

// LockEscrow commits a pending buy-in to an in-progress game.
func (s *Store) LockEscrow(ctx context.Context, id string) (*Escrow, error) {
	var e *Escrow
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		e, err = s.transitionEscrowTx(ctx, tx, id, escrow.StatusLocked)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ReleaseEscrow settles the escrow and credits payout to the owner.
// A zero payout (stake fully lost to other players) still releases
// the row but writes no credit.
func (s *Store) ReleaseEscrow(ctx context.Context, id string, payout int64) (*Escrow, error) {
	if payout < 0 {
		return nil, errors.New("payout must not be negative")
	}
	var e *Escrow
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		e, err = s.transitionEscrowTx(ctx, tx, id, escrow.StatusReleased)
		if err != nil {
			return err
		}
		if payout == 0 {
			return nil
		}
		_, _, err = s.creditTx(ctx, tx, e.UserID, payout, "escrow_release_credit", "bet settlement", "room", e.RoomID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ForfeitEscrow permanently removes the stake from the player. The
// chips stay available for redistribution through other players'
// releases.
func (s *Store) ForfeitEscrow(ctx context.Context, id string) (*Escrow, error) {
	var e *Escrow
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		e, err = s.transitionEscrowTx(ctx, tx, id, escrow.StatusForfeited)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}
