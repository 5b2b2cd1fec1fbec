package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

var (
	ErrDailyClaimed  = errors.New("daily_already_claimed")
	ErrWeeklyClaimed = errors.New("weekly_bonus_not_ready")
)

const activityWindow = 7 * 24 * time.Hour

// ClaimDaily grants the daily allowance: base scaled by an activity
// multiplier between 1.0 and 2.0, with fixedBonus substituted on every
// 7th consecutive claim. Eligibility resets at UTC midnight and is
// re-checked under the row lock, so two racing claims cannot both pay.
func (s *Store) ClaimDaily(ctx context.Context, userID string, base, fixedBonus int64) (*Wallet, *Transaction, error) {
	var w *Wallet
	var rec *Transaction
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		locked, err := lockWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		if locked.Frozen() {
			return ErrWalletFrozen
		}
		now := time.Now().UTC()
		today := now.Truncate(24 * time.Hour)
		streak := 1
		if locked.LastClaimAt != nil {
			last := locked.LastClaimAt.UTC().Truncate(24 * time.Hour)
			if last.Equal(today) {
				return ErrDailyClaimed
			}
			if last.Equal(today.AddDate(0, 0, -1)) {
				streak = locked.ClaimStreak + 1
			}
		}

		amount := fixedBonus
		if streak%7 != 0 {
			bps, err := activityMultiplierBps(ctx, tx, userID, now, streak)
			if err != nil {
				return err
			}
			amount = base * bps / 10000
		}

		_, err = tx.Exec(ctx, `UPDATE wallets SET claim_streak = $1, last_claim_at = $2 WHERE user_id = $3`, streak, now, userID)
		if err != nil {
			return err
		}
		w, rec, err = s.creditTx(ctx, tx, userID, amount, "daily_claim_credit", "daily allowance", "", "")
		if err != nil {
			return err
		}
		w.ClaimStreak = streak
		w.LastClaimAt = &now
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return w, rec, nil
}

// ClaimWeekly grants the flat weekly bonus. The cooldown is checked
// against the last weekly_bonus_credit row under the wallet lock.
func (s *Store) ClaimWeekly(ctx context.Context, userID string, amount int64) (*Wallet, *Transaction, error) {
	var w *Wallet
	var rec *Transaction
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		locked, err := lockWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		if locked.Frozen() {
			return ErrWalletFrozen
		}
		var last *time.Time
		row := tx.QueryRow(ctx, `
			SELECT MAX(created_at) FROM transactions
			WHERE user_id = $1 AND type = 'weekly_bonus_credit'
		`, userID)
		if err := row.Scan(&last); err != nil {
			return err
		}
		if last != nil && time.Since(*last) < activityWindow {
			return ErrWeeklyClaimed
		}
		w, rec, err = s.creditTx(ctx, tx, userID, amount, "weekly_bonus_credit", "weekly bonus", "", "")
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return w, rec, nil
}

// activityMultiplierBps scales the grant by how much the user actually
// plays: games in the last 7 days, distinct active days in the same
// window and the current claim streak. Returned in basis points,
// clamped to [10000, 20000] (a multiplier of 1.0 to 2.0).
func activityMultiplierBps(ctx context.Context, tx pgx.Tx, userID string, now time.Time, streak int) (int64, error) {
	since := now.Add(-activityWindow)
	var games, activeDays int64
	row := tx.QueryRow(ctx, `
		SELECT COUNT(1) FILTER (WHERE type IN ('bet_debit', 'escrow_debit')),
		       COUNT(DISTINCT date_trunc('day', created_at))
		FROM transactions
		WHERE user_id = $1 AND created_at >= $2
	`, userID, since)
	if err := row.Scan(&games, &activeDays); err != nil {
		return 0, err
	}
	if games > 10 {
		games = 10
	}
	capped := int64(streak)
	if capped > 10 {
		capped = 10
	}
	bps := 10000 + 400*games + 500*activeDays + 250*capped
	if bps > 20000 {
		bps = 20000
	}
	return bps, nil
}
