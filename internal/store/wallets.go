package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func (s *Store) EnsureUser(ctx context.Context, id, name string) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO users (id, name) VALUES ($1,$2) ON CONFLICT (id) DO NOTHING`, id, name)
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, name, created_at FROM users WHERE id = $1`, id)
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// EnsureWallet creates the wallet with its starting balance on first
// sight and records the grant as a transaction. Existing wallets are
// left alone.
func (s *Store) EnsureWallet(ctx context.Context, userID string, initial int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `INSERT INTO wallets (user_id, balance) VALUES ($1,$2) ON CONFLICT (user_id) DO NOTHING`, userID, initial)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 || initial <= 0 {
			return nil
		}
		_, err = s.recordTx(ctx, tx, userID, "initial_grant_credit", initial, initial, "starting balance", "", "")
		return err
	})
}

func (s *Store) GetWallet(ctx context.Context, userID string) (*Wallet, error) {
	row := s.Pool.QueryRow(ctx, `SELECT user_id, balance, frozen_at, claim_streak, last_claim_at, updated_at FROM wallets WHERE user_id = $1`, userID)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (*Wallet, error) {
	var w Wallet
	if err := row.Scan(&w.UserID, &w.Balance, &w.FrozenAt, &w.ClaimStreak, &w.LastClaimAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// inTx runs fn inside a serializable transaction. Wallet mutations
// from every API path are linearized here, no in-process lock stands
// in. Serialization failures are retried so the caller sees the
// precondition error (insufficient balance, frozen) computed against
// the winning writer's state.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = s.runTx(ctx, fn)
		if !isSerializationFailure(err) {
			return err
		}
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	// 40001 serialization_failure, 40P01 deadlock_detected.
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

// lockWallet re-reads the row under FOR UPDATE so preconditions are
// validated against the balance this transaction will mutate.
func lockWallet(ctx context.Context, tx pgx.Tx, userID string) (*Wallet, error) {
	row := tx.QueryRow(ctx, `SELECT user_id, balance, frozen_at, claim_streak, last_claim_at, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

// creditTx adds amount and appends the paired transaction record.
func (s *Store) creditTx(ctx context.Context, tx pgx.Tx, userID string, amount int64, txType, desc, refType, refID string) (*Wallet, *Transaction, error) {
	w, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return nil, nil, err
	}
	w.Balance += amount
	if err := writeBalance(ctx, tx, w); err != nil {
		return nil, nil, err
	}
	rec, err := s.recordTx(ctx, tx, userID, txType, amount, w.Balance, desc, refType, refID)
	if err != nil {
		return nil, nil, err
	}
	return w, rec, nil
}

// debitTx subtracts amount, failing on frozen wallets and insufficient
// balance under the locked read.
func (s *Store) debitTx(ctx context.Context, tx pgx.Tx, userID string, amount int64, txType, desc, refType, refID string) (*Wallet, *Transaction, error) {
	w, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return nil, nil, err
	}
	if w.Frozen() {
		return nil, nil, ErrWalletFrozen
	}
	if w.Balance < amount {
		return nil, nil, ErrInsufficientBalance
	}
	w.Balance -= amount
	if err := writeBalance(ctx, tx, w); err != nil {
		return nil, nil, err
	}
	rec, err := s.recordTx(ctx, tx, userID, txType, -amount, w.Balance, desc, refType, refID)
	if err != nil {
		return nil, nil, err
	}
	return w, rec, nil
}

func writeBalance(ctx context.Context, tx pgx.Tx, w *Wallet) error {
	_, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1, updated_at = now() WHERE user_id = $2`, w.Balance, w.UserID)
	return err
}

func (s *Store) recordTx(ctx context.Context, tx pgx.Tx, userID, txType string, amount, balanceAfter int64, desc, refType, refID string) (*Transaction, error) {
	rec := &Transaction{
		ID:           NewID(),
		UserID:       userID,
		Type:         txType,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Description:  desc,
		RefType:      refType,
		RefID:        refID,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := tx.Exec(ctx, `INSERT INTO transactions (id, user_id, type, amount, balance_after, description, ref_type, ref_id, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rec.ID, rec.UserID, rec.Type, rec.Amount, rec.BalanceAfter, rec.Description, rec.RefType, rec.RefID, rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) Credit(ctx context.Context, userID string, amount int64, txType, desc, refType, refID string) (*Wallet, *Transaction, error) {
	if amount <= 0 {
		return nil, nil, errors.New("amount must be positive")
	}
	var w *Wallet
	var rec *Transaction
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		w, rec, err = s.creditTx(ctx, tx, userID, amount, txType, desc, refType, refID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return w, rec, nil
}

func (s *Store) Debit(ctx context.Context, userID string, amount int64, txType, desc, refType, refID string) (*Wallet, *Transaction, error) {
	if amount <= 0 {
		return nil, nil, errors.New("amount must be positive")
	}
	var w *Wallet
	var rec *Transaction
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		w, rec, err = s.debitTx(ctx, tx, userID, amount, txType, desc, refType, refID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return w, rec, nil
}

// Transfer moves amount between two wallets atomically. Rows are locked
// in user-id order so concurrent opposite transfers cannot deadlock.
func (s *Store) Transfer(ctx context.Context, fromID, toID string, amount int64, desc string) (*Transaction, error) {
	if amount <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if fromID == toID {
		return nil, ErrSelfTransfer
	}
	var rec *Transaction
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		first, second := fromID, toID
		if second < first {
			first, second = second, first
		}
		if _, err := lockWallet(ctx, tx, first); err != nil {
			return err
		}
		if _, err := lockWallet(ctx, tx, second); err != nil {
			return err
		}
		var err error
		_, rec, err = s.debitTx(ctx, tx, fromID, amount, "transfer_out", desc, "user", toID)
		if err != nil {
			return err
		}
		_, _, err = s.creditTx(ctx, tx, toID, amount, "transfer_in", desc, "user", fromID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) SetWalletFrozen(ctx context.Context, userID string, frozen bool) (*Wallet, error) {
	var w *Wallet
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		w, err = lockWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		if frozen {
			now := time.Now().UTC()
			w.FrozenAt = &now
		} else {
			w.FrozenAt = nil
		}
		_, err = tx.Exec(ctx, `UPDATE wallets SET frozen_at = $1, updated_at = now() WHERE user_id = $2`, w.FrozenAt, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

type TransactionFilter struct {
	UserID string
	Type   string
	RoomID string
	From   *time.Time
	To     *time.Time
}

func (s *Store) ListTransactions(ctx context.Context, f TransactionFilter, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	where := "WHERE 1=1"
	args := []any{}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if f.RoomID != "" {
		args = append(args, f.RoomID)
		where += fmt.Sprintf(" AND ref_type = 'room' AND ref_id = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	args = append(args, limit, offset)
	q := `SELECT id, user_id, type, amount, balance_after, description, ref_type, ref_id, created_at FROM transactions ` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := s.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Transaction{}
	for rows.Next() {
		var e Transaction
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Amount, &e.BalanceAfter, &e.Description, &e.RefType, &e.RefID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// BalanceHistory reconstructs the wallet's balance over time from the
// transaction log, most recent first.
func (s *Store) BalanceHistory(ctx context.Context, userID string, limit int) ([]BalancePoint, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx, `SELECT created_at, balance_after FROM transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []BalancePoint{}
	for rows.Next() {
		var p BalancePoint
		if err := rows.Scan(&p.At, &p.Balance); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Leaderboard ranks users by net game winnings recorded in the ledger.
func (s *Store) Leaderboard(ctx context.Context, limit, offset int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT u.id, u.name, COALESCE(SUM(t.amount), 0) AS net
		FROM users u
		LEFT JOIN transactions t ON t.user_id = u.id AND t.type IN ('bet_debit', 'payout_credit', 'escrow_debit', 'escrow_release_credit')
		GROUP BY u.id, u.name
		ORDER BY net DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LeaderboardEntry{}
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Net); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
