// Package ledger is the typed money API: every chip movement goes
// through here with a transaction type the audit trail can filter on.
package ledger

import (
	"context"
	"errors"

	"game-parlor/internal/store"
)

// Transaction types written by the engine.
const (
	TypeInitialGrant  = "initial_grant_credit"
	TypeDailyClaim    = "daily_claim_credit"
	TypeWeeklyBonus   = "weekly_bonus_credit"
	TypeBetDebit      = "bet_debit"
	TypePayoutCredit  = "payout_credit"
	TypeEscrowDebit   = "escrow_debit"
	TypeEscrowRelease = "escrow_release_credit"
	TypeTransferOut   = "transfer_out"
	TypeTransferIn    = "transfer_in"
	TypeAdminCredit   = "admin_credit"
	TypeAdminDebit    = "admin_debit"
)

var ErrTransferLimit = errors.New("transfer_limit_exceeded")

type Ledger struct {
	Store *store.Store

	// TransferMax caps a single transfer; zero disables the cap.
	TransferMax int64
}

func New(s *store.Store) *Ledger {
	return &Ledger{Store: s}
}

// Register creates the user and wallet if needed, funding new wallets
// with the initial grant.
func (l *Ledger) Register(ctx context.Context, userID, name string, initialGrant int64) error {
	if err := l.Store.EnsureUser(ctx, userID, name); err != nil {
		return err
	}
	return l.Store.EnsureWallet(ctx, userID, initialGrant)
}

func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	w, err := l.Store.GetWallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// DebitBet charges a house-banked wager (blackjack, roulette).
func (l *Ledger) DebitBet(ctx context.Context, userID, roomID string, amount int64) (*store.Wallet, *store.Transaction, error) {
	return l.Store.Debit(ctx, userID, amount, TypeBetDebit, "round wager", "room", roomID)
}

// CreditPayout pays out a settled house-banked round.
func (l *Ledger) CreditPayout(ctx context.Context, userID, roomID string, amount int64) (*store.Wallet, *store.Transaction, error) {
	return l.Store.Credit(ctx, userID, amount, TypePayoutCredit, "round payout", "room", roomID)
}

// EscrowBuyIn locks a bet-room stake out of the wallet.
func (l *Ledger) EscrowBuyIn(ctx context.Context, roomID, userID string, amount int64) (*store.Escrow, error) {
	return l.Store.CreateEscrow(ctx, roomID, userID, amount)
}

// LockEscrow commits a pending buy-in when the game starts.
func (l *Ledger) LockEscrow(ctx context.Context, escrowID string) (*store.Escrow, error) {
	return l.Store.LockEscrow(ctx, escrowID)
}

// ReleaseEscrow settles an escrow: payout is the player's share of the
// pool, zero when the stake was lost.
func (l *Ledger) ReleaseEscrow(ctx context.Context, escrowID string, payout int64) (*store.Escrow, error) {
	return l.Store.ReleaseEscrow(ctx, escrowID, payout)
}

// ForfeitEscrow burns an abandoned stake.
func (l *Ledger) ForfeitEscrow(ctx context.Context, escrowID string) (*store.Escrow, error) {
	return l.Store.ForfeitEscrow(ctx, escrowID)
}

func (l *Ledger) Transfer(ctx context.Context, fromID, toID string, amount int64, note string) (*store.Transaction, error) {
	if l.TransferMax > 0 && amount > l.TransferMax {
		return nil, ErrTransferLimit
	}
	return l.Store.Transfer(ctx, fromID, toID, amount, note)
}

func (l *Ledger) DailyClaim(ctx context.Context, userID string, base, fixedBonus int64) (*store.Wallet, *store.Transaction, error) {
	return l.Store.ClaimDaily(ctx, userID, base, fixedBonus)
}

// WeeklyBonus is a flat grant on a seven-day cooldown.
func (l *Ledger) WeeklyBonus(ctx context.Context, userID string, amount int64) (*store.Wallet, *store.Transaction, error) {
	return l.Store.ClaimWeekly(ctx, userID, amount)
}

func (l *Ledger) AdminCredit(ctx context.Context, userID string, amount int64, note string) (*store.Wallet, *store.Transaction, error) {
	return l.Store.Credit(ctx, userID, amount, TypeAdminCredit, note, "", "")
}

func (l *Ledger) AdminDebit(ctx context.Context, userID string, amount int64, note string) (*store.Wallet, *store.Transaction, error) {
	return l.Store.Debit(ctx, userID, amount, TypeAdminDebit, note, "", "")
}

func (l *Ledger) Freeze(ctx context.Context, userID string) (*store.Wallet, error) {
	return l.Store.SetWalletFrozen(ctx, userID, true)
}

func (l *Ledger) Unfreeze(ctx context.Context, userID string) (*store.Wallet, error) {
	return l.Store.SetWalletFrozen(ctx, userID, false)
}

func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]store.BalancePoint, error) {
	return l.Store.BalanceHistory(ctx, userID, limit)
}
