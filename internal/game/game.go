// Package game defines the contract shared by the four table-game
// state machines. Machines are pure: Apply never mutates its input and
// returns a fresh state, so a persisted action log replays to an
// identical final state given the same randomness source.
package game

type Type string

const (
	TypeKniffel   Type = "kniffel"
	TypeBlackjack Type = "blackjack"
	TypeRoulette  Type = "roulette"
	TypePoker     Type = "poker"
)

type Phase string

// State is the tagged union of per-game states, discriminated by
// GameType. Each variant owns its fields; cross-game access is a type
// error rather than a nil field.
type State interface {
	GameType() Type
	Phase() Phase
	// ActorID returns the player expected to act, or "" when no single
	// player is on the clock (e.g. a roulette betting window).
	ActorID() string
	// View returns the personalized snapshot for viewerID. Hidden
	// information (hole cards, the dealer's down card) is filtered until
	// the phase that reveals it.
	View(viewerID string) any
}

// Settler is implemented by states whose current phase requires the
// orchestrator to move chips before broadcasting.
type Settler interface {
	Settled() bool
	// Payouts maps userID to the gross amount owed for the finished
	// round or hand.
	Payouts() map[string]int64
}

// Ender is implemented by states that can report the game is over.
type Ender interface {
	Ended() bool
}

// Wagerer is implemented by settled states that owe the ledger a
// record of what each player committed during the round.
type Wagerer interface {
	Wagered() map[string]int64
}

// AutoAdvancer marks states sitting in an automatic phase (dealer
// draw, wheel spin). The orchestrator submits ActionAdvance with no
// actor until the state stops asking.
type AutoAdvancer interface {
	NeedsAdvance() bool
}

// ActionAdvance drives automatic phases through the same apply path as
// player actions.
const ActionAdvance = "advance"

// Action is the flat envelope submitted by players (or synthesized by
// the turn timer). Machines read only the fields they understand and
// reject the rest.
type Action struct {
	Kind     string `json:"kind"`
	Amount   int64  `json:"amount,omitempty"`
	Keep     []bool `json:"keep,omitempty"`     // kniffel: dice to hold on reroll
	Category string `json:"category,omitempty"` // kniffel: scoresheet category
	Column   int    `json:"column,omitempty"`   // kniffel: scoring column variant
	BetType  string `json:"bet_type,omitempty"` // roulette
	Numbers  []int  `json:"numbers,omitempty"`  // roulette: covered numbers
	Hand     int    `json:"hand,omitempty"`     // blackjack: split hand index
}

// Machine advances one game's state. Implementations must treat the
// incoming state as read-only.
type Machine interface {
	Type() Type
	Apply(s State, a Action, actorID string) (State, error)
	// DefaultAction is what the turn timer submits when the active
	// player lets the clock run out.
	DefaultAction(s State) Action
}
