// Package roulette implements the wheel: a betting window, a single
// CSPRNG draw in [0,36], and settlement against the standard payout
// table.
package roulette

import (
	"game-parlor/internal/game"
	"game-parlor/internal/rng"
)

const (
	PhaseBetting    game.Phase = "betting"
	PhaseSpin       game.Phase = "spin"
	PhaseSettlement game.Phase = "settlement"
)

const (
	ActionPlaceBet = "place_bet"
	ActionSpin     = "spin"
)

type BetType string

const (
	BetStraight BetType = "straight"
	BetSplit    BetType = "split"
	BetStreet   BetType = "street"
	BetCorner   BetType = "corner"
	BetLine     BetType = "line"
	BetDozen    BetType = "dozen"
	BetColumn   BetType = "column"
	BetRed      BetType = "red"
	BetBlack    BetType = "black"
	BetEven     BetType = "even"
	BetOdd      BetType = "odd"
	BetLow      BetType = "low"
	BetHigh     BetType = "high"
)

// payoutRatio is winnings per unit staked; a winning bet returns
// stake * (ratio + 1).
var payoutRatio = map[BetType]int64{
	BetStraight: 35,
	BetSplit:    17,
	BetStreet:   11,
	BetCorner:   8,
	BetLine:     5,
	BetDozen:    2,
	BetColumn:   2,
	BetRed:      1,
	BetBlack:    1,
	BetEven:     1,
	BetOdd:      1,
	BetLow:      1,
	BetHigh:     1,
}

var pickCount = map[BetType]int{
	BetStraight: 1,
	BetSplit:    2,
	BetStreet:   3,
	BetCorner:   4,
	BetLine:     6,
}

var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

type Bet struct {
	UserID  string  `json:"user_id"`
	Type    BetType `json:"type"`
	Numbers []int   `json:"numbers,omitempty"`
	Amount  int64   `json:"amount"`
}

func (b Bet) wins(winning int) bool {
	switch b.Type {
	case BetStraight, BetSplit, BetStreet, BetCorner, BetLine:
		for _, n := range b.Numbers {
			if n == winning {
				return true
			}
		}
		return false
	case BetDozen:
		if winning == 0 {
			return false
		}
		return (winning-1)/12+1 == b.Numbers[0]
	case BetColumn:
		if winning == 0 {
			return false
		}
		return (winning-1)%3+1 == b.Numbers[0]
	case BetRed:
		return redNumbers[winning]
	case BetBlack:
		return winning != 0 && !redNumbers[winning]
	case BetEven:
		return winning != 0 && winning%2 == 0
	case BetOdd:
		return winning%2 == 1
	case BetLow:
		return winning >= 1 && winning <= 18
	case BetHigh:
		return winning >= 19
	}
	return false
}

type State struct {
	phase   game.Phase
	players map[string]bool
	hostID  string
	bets    []Bet
	maxBet  int64
	winning int
	payouts map[string]int64
	wagered map[string]int64
}

type Machine struct {
	RNG rng.Source
}

func (Machine) Type() game.Type { return game.TypeRoulette }

func New(userIDs []string, hostID string, maxBet int64) *State {
	players := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		players[id] = true
	}
	return &State{phase: PhaseBetting, players: players, hostID: hostID, maxBet: maxBet, winning: -1}
}

func (s *State) GameType() game.Type { return game.TypeRoulette }
func (s *State) Phase() game.Phase   { return s.phase }

// ActorID is empty: roulette has a shared betting window, not turns.
func (s *State) ActorID() string { return "" }

func (s *State) Settled() bool { return s.phase == PhaseSettlement }
func (s *State) Ended() bool   { return s.phase == PhaseSettlement }

func (s *State) NeedsAdvance() bool { return s.phase == PhaseSpin }

func (s *State) Payouts() map[string]int64 { return s.payouts }
func (s *State) Wagered() map[string]int64 { return s.wagered }

// WinningNumber returns the drawn pocket, or -1 before the spin.
func (s *State) WinningNumber() int { return s.winning }

func (s *State) Bets() []Bet { return append([]Bet{}, s.bets...) }

func (s *State) clone() *State {
	cp := *s
	cp.players = make(map[string]bool, len(s.players))
	for k := range s.players {
		cp.players[k] = true
	}
	cp.bets = append([]Bet{}, s.bets...)
	if s.payouts != nil {
		cp.payouts = make(map[string]int64, len(s.payouts))
		for k, v := range s.payouts {
			cp.payouts[k] = v
		}
	}
	if s.wagered != nil {
		cp.wagered = make(map[string]int64, len(s.wagered))
		for k, v := range s.wagered {
			cp.wagered[k] = v
		}
	}
	return &cp
}

// DefaultAction closes the betting window: the timer spins the wheel.
func (Machine) DefaultAction(game.State) game.Action {
	return game.Action{Kind: ActionSpin}
}

func (m Machine) Apply(gs game.State, a game.Action, actorID string) (game.State, error) {
	s, ok := gs.(*State)
	if !ok {
		return nil, game.ErrWrongGameState
	}
	switch a.Kind {
	case ActionPlaceBet:
		return s.applyBet(a, actorID)
	case ActionSpin:
		return m.applySpin(s, actorID)
	case game.ActionAdvance:
		return s.applySettle()
	default:
		return nil, game.ErrInvalidAction
	}
}

func (s *State) applyBet(a game.Action, actorID string) (game.State, error) {
	if s.phase != PhaseBetting {
		return nil, game.ErrWrongPhase
	}
	if !s.players[actorID] {
		return nil, game.ErrUnknownPlayer
	}
	bet := Bet{UserID: actorID, Type: BetType(a.BetType), Numbers: a.Numbers, Amount: a.Amount}
	if err := validateBet(bet, s.maxBet); err != nil {
		return nil, err
	}
	next := s.clone()
	next.bets = append(next.bets, bet)
	return next, nil
}

func validateBet(b Bet, maxBet int64) error {
	if b.Amount <= 0 || (maxBet > 0 && b.Amount > maxBet) {
		return game.ErrInvalidAction
	}
	if _, known := payoutRatio[b.Type]; !known {
		return game.ErrInvalidAction
	}
	if n, needsPicks := pickCount[b.Type]; needsPicks {
		if len(b.Numbers) != n {
			return game.ErrInvalidAction
		}
		seen := map[int]bool{}
		for _, v := range b.Numbers {
			if v < 0 || v > 36 || seen[v] {
				return game.ErrInvalidAction
			}
			// Zero only takes part in straight bets.
			if v == 0 && b.Type != BetStraight {
				return game.ErrInvalidAction
			}
			seen[v] = true
		}
		return nil
	}
	if b.Type == BetDozen || b.Type == BetColumn {
		if len(b.Numbers) != 1 || b.Numbers[0] < 1 || b.Numbers[0] > 3 {
			return game.ErrInvalidAction
		}
		return nil
	}
	if len(b.Numbers) != 0 {
		return game.ErrInvalidAction
	}
	return nil
}

// applySpin consumes exactly one draw from the wheel. Only the host
// may close the betting window early; the timer spins with an empty
// actor.
func (m Machine) applySpin(s *State, actorID string) (game.State, error) {
	if s.phase != PhaseBetting {
		return nil, game.ErrWrongPhase
	}
	if actorID != "" && actorID != s.hostID {
		return nil, game.ErrNotYourTurn
	}
	next := s.clone()
	next.winning = m.RNG.Intn(37)
	next.phase = PhaseSpin
	return next, nil
}

func (s *State) applySettle() (game.State, error) {
	if s.phase != PhaseSpin {
		return nil, game.ErrWrongPhase
	}
	next := s.clone()
	next.payouts = map[string]int64{}
	next.wagered = map[string]int64{}
	for _, b := range next.bets {
		next.wagered[b.UserID] += b.Amount
		if b.wins(next.winning) {
			next.payouts[b.UserID] += b.Amount * (payoutRatio[b.Type] + 1)
		}
	}
	next.phase = PhaseSettlement
	return next, nil
}
