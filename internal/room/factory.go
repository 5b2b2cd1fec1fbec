package room

import (
	"context"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"game-parlor/internal/game"
	"game-parlor/internal/game/blackjack"
	"game-parlor/internal/game/holdem"
	"game-parlor/internal/game/kniffel"
	"game-parlor/internal/game/roulette"
	"game-parlor/internal/ledger"
	"game-parlor/internal/rng"
	"game-parlor/internal/store"
)

// Options fixes a room's rules at creation time.
type Options struct {
	GameType   game.Type `json:"game_type"`
	Name       string    `json:"name"`
	HostID     string    `json:"host_id"`
	MaxPlayers int       `json:"max_players"`

	// BetRoom rooms escrow BetAmount per seat; free rooms play for
	// points only. House-banked tables ignore both and use the table
	// limits below.
	BetRoom   bool  `json:"bet_room"`
	BetAmount int64 `json:"bet_amount"`

	MinBet     int64 `json:"min_bet"`
	MaxBet     int64 `json:"max_bet"`
	SmallBlind int64 `json:"small_blind"`
	BigBlind   int64 `json:"big_blind"`

	// Kniffel variants.
	Columns            []int `json:"columns,omitempty"`
	TeamScoring        bool  `json:"team_scoring,omitempty"`
	JokerCount         int   `json:"joker_count,omitempty"`
	DisabledCategories int   `json:"disabled_categories,omitempty"`
	Teams              map[string]string `json:"teams,omitempty"`

	// Seed pins the shuffle for replays; 0 draws from crypto/rand.
	Seed int64 `json:"seed,omitempty"`

	TurnTimeout  time.Duration `json:"-"`
	AFKWarnTurns int           `json:"-"`
	AFKGrace     time.Duration `json:"-"`
}

type RosterEntry struct {
	UserID string
	Name   string
}

// Bank is the slice of the ledger a room moves money through.
// *ledger.Ledger satisfies it; tests swap in a fake.
type Bank interface {
	Balance(ctx context.Context, userID string) (int64, error)
	DebitBet(ctx context.Context, userID, roomID string, amount int64) (*store.Wallet, *store.Transaction, error)
	CreditPayout(ctx context.Context, userID, roomID string, amount int64) (*store.Wallet, *store.Transaction, error)
	EscrowBuyIn(ctx context.Context, roomID, userID string, amount int64) (*store.Escrow, error)
	LockEscrow(ctx context.Context, escrowID string) (*store.Escrow, error)
	ReleaseEscrow(ctx context.Context, escrowID string, payout int64) (*store.Escrow, error)
	ForfeitEscrow(ctx context.Context, escrowID string) (*store.Escrow, error)
}

// RoomStore persists room rows. *store.Store satisfies it.
type RoomStore interface {
	CreateRoom(ctx context.Context, r *store.Room) error
	UpdateRoomStatus(ctx context.Context, id, status string) error
}

type Deps struct {
	Clock quartz.Clock
	Bank  Bank
	Rooms RoomStore
	Sink  Sink
	Log   zerolog.Logger
}

var _ Bank = (*ledger.Ledger)(nil)
var _ RoomStore = (*store.Store)(nil)

func (o *Options) normalize() {
	if o.MaxPlayers <= 0 {
		o.MaxPlayers = maxPlayers(o.GameType)
	}
	if o.MaxPlayers > maxPlayers(o.GameType) {
		o.MaxPlayers = maxPlayers(o.GameType)
	}
	if o.MinBet <= 0 {
		o.MinBet = 10
	}
	if o.MaxBet <= 0 {
		o.MaxBet = 1000
	}
	// House-banked tables wager against the bank per round; there is
	// no pot to escrow.
	if houseBanked(o.GameType) {
		o.BetRoom = false
	}
	if !o.BetRoom {
		o.BetAmount = 0
	}
	if o.GameType == game.TypePoker {
		if o.BigBlind <= 0 {
			o.BigBlind = pokerStack(*o) / 50
			if o.BigBlind < 2 {
				o.BigBlind = 2
			}
		}
		if o.SmallBlind <= 0 {
			o.SmallBlind = o.BigBlind / 2
		}
	}
}

// freePokerStack is the point stack each seat gets when no buy-in is
// escrowed, same idea as kniffel's stake-zero rooms.
const freePokerStack = 1000

// pokerStack is the chips a seat starts with: the escrowed buy-in on
// bet tables, points on free ones.
func pokerStack(o Options) int64 {
	if o.BetAmount > 0 {
		return o.BetAmount
	}
	return freePokerStack
}

func minPlayers(t game.Type) int {
	switch t {
	case game.TypePoker, game.TypeKniffel:
		return 2
	default:
		return 1
	}
}

func maxPlayers(t game.Type) int {
	switch t {
	case game.TypeKniffel:
		return 8
	case game.TypeBlackjack:
		return 5
	case game.TypeRoulette:
		return 10
	case game.TypePoker:
		return 9
	}
	return 8
}

// houseBanked games settle every round against the bank; the others
// play for an escrowed pot.
func houseBanked(t game.Type) bool {
	return t == game.TypeBlackjack || t == game.TypeRoulette
}

// buildGame instantiates the machine and opening state for one room.
// Called at start and again per round for house-banked tables.
func buildGame(opts Options, roster []RosterEntry) (game.Machine, game.State, error) {
	if len(roster) < minPlayers(opts.GameType) {
		return nil, nil, ErrTooFew
	}
	src := rng.Crypto()
	if opts.Seed != 0 {
		src = rng.Seeded(opts.Seed)
	}
	ids := make([]string, len(roster))
	for i, e := range roster {
		ids[i] = e.UserID
	}
	switch opts.GameType {
	case game.TypeKniffel:
		players := make([]kniffel.Player, len(roster))
		for i, e := range roster {
			team := e.UserID
			if t, ok := opts.Teams[e.UserID]; ok && opts.TeamScoring {
				team = t
			}
			players[i] = kniffel.Player{UserID: e.UserID, TeamID: team}
		}
		rs := kniffelRuleset(opts, src)
		return kniffel.Machine{RNG: src}, kniffel.New(players, rs, opts.BetAmount), nil
	case game.TypeBlackjack:
		return blackjack.Machine{RNG: src}, blackjack.New(ids, opts.MinBet, opts.MaxBet), nil
	case game.TypeRoulette:
		return roulette.Machine{RNG: src}, roulette.New(ids, opts.HostID, opts.MaxBet), nil
	case game.TypePoker:
		return holdem.Machine{RNG: src}, holdem.New(ids, opts.HostID, pokerStack(opts), opts.SmallBlind, opts.BigBlind), nil
	}
	return nil, nil, ErrUnknownGameType
}

func kniffelRuleset(opts Options, src rng.Source) kniffel.Ruleset {
	rs := kniffel.DefaultRuleset()
	if len(opts.Columns) > 0 {
		rs.Columns = nil
		for _, m := range opts.Columns {
			rs.Columns = append(rs.Columns, kniffel.Column{Multiplier: m})
		}
	}
	rs.TeamScoring = opts.TeamScoring
	rs.JokerCount = opts.JokerCount
	if opts.DisabledCategories > 0 {
		rs = rs.WithRandomDisabled(src, opts.DisabledCategories)
	}
	return rs
}
