package store

import (
	"time"

	"game-parlor/internal/escrow"
)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Wallet struct {
	UserID      string     `json:"user_id"`
	Balance     int64      `json:"balance"`
	FrozenAt    *time.Time `json:"frozen_at,omitempty"`
	ClaimStreak int        `json:"claim_streak"`
	LastClaimAt *time.Time `json:"last_claim_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (w *Wallet) Frozen() bool { return w.FrozenAt != nil }

// Transaction is an immutable ledger record. Amount is signed: credits
// positive, debits negative. BalanceAfter snapshots the wallet balance
// the moment the row was written.
type Transaction struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Type         string    `json:"type"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	Description  string    `json:"description"`
	RefType      string    `json:"ref_type,omitempty"`
	RefID        string    `json:"ref_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Escrow struct {
	ID        string        `json:"id"`
	RoomID    string        `json:"room_id"`
	UserID    string        `json:"user_id"`
	Amount    int64         `json:"amount"`
	Status    escrow.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type Room struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	GameType  string     `json:"game_type"`
	HostID    string     `json:"host_id"`
	Status    string     `json:"status"`
	BetRoom   bool       `json:"bet_room"`
	BetAmount int64      `json:"bet_amount"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

type LeaderboardEntry struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Net    int64  `json:"net"`
}

// BalancePoint is one step of a wallet's history, reconstructed from
// the transaction log.
type BalancePoint struct {
	At      time.Time `json:"at"`
	Balance int64     `json:"balance"`
}
