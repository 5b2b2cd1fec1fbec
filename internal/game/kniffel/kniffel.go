// Package kniffel implements the dice game's state machine: a roll
// budget of three per turn, keep/reroll masks, one claim per category
// per scoring column, the upper-section bonus, and ruleset variants.
package kniffel

import (
	"game-parlor/internal/game"
	"game-parlor/internal/rng"
)

const (
	PhaseWaiting game.Phase = "waiting"
	PhaseRolling game.Phase = "rolling"
	PhasePaused  game.Phase = "paused"
	PhaseScoring game.Phase = "scoring"
	PhaseEnded   game.Phase = "ended"
)

const (
	ActionStart       = "start"
	ActionRoll        = "roll"
	ActionClaim       = "claim"
	ActionClaimJoker  = "claim_joker"
	ActionPause       = "pause"
	ActionResume      = "resume"
	ActionForfeitTurn = "forfeit_turn"
)

const maxRolls = 3

type PlayerState struct {
	UserID     string
	TeamID     string
	Sheets     []Sheet // one per scoring column
	JokersLeft int
}

type State struct {
	phase       game.Phase
	resumePhase game.Phase
	players     []PlayerState
	turn        int
	dice        [5]int
	rollsUsed   int
	ruleset     Ruleset
	stake       int64
	payouts     map[string]int64
}

type Machine struct {
	RNG rng.Source
}

func (Machine) Type() game.Type { return game.TypeKniffel }

// New builds the waiting-phase state. players are in turn order; stake
// is the per-player buy-in (0 for free rooms).
func New(players []Player, ruleset Ruleset, stake int64) *State {
	ps := make([]PlayerState, len(players))
	for i, p := range players {
		sheets := make([]Sheet, len(ruleset.Columns))
		for j := range sheets {
			sheets[j] = Sheet{}
		}
		ps[i] = PlayerState{UserID: p.UserID, TeamID: p.TeamID, Sheets: sheets, JokersLeft: ruleset.JokerCount}
	}
	return &State{phase: PhaseWaiting, players: ps, ruleset: ruleset, stake: stake}
}

type Player struct {
	UserID string
	TeamID string
}

func (s *State) GameType() game.Type { return game.TypeKniffel }
func (s *State) Phase() game.Phase   { return s.phase }

func (s *State) ActorID() string {
	if s.phase != PhaseRolling {
		return ""
	}
	return s.players[s.turn].UserID
}

func (s *State) Settled() bool { return s.phase == PhaseEnded }

func (s *State) Ended() bool { return s.phase == PhaseEnded }

func (s *State) Payouts() map[string]int64 { return s.payouts }

func (s *State) clone() *State {
	cp := *s
	cp.players = make([]PlayerState, len(s.players))
	for i, p := range s.players {
		np := p
		np.Sheets = make([]Sheet, len(p.Sheets))
		for j, sheet := range p.Sheets {
			np.Sheets[j] = sheet.clone()
		}
		cp.players[i] = np
	}
	if s.payouts != nil {
		cp.payouts = make(map[string]int64, len(s.payouts))
		for k, v := range s.payouts {
			cp.payouts[k] = v
		}
	}
	return &cp
}

func (m Machine) DefaultAction(game.State) game.Action {
	return game.Action{Kind: ActionForfeitTurn}
}

func (m Machine) Apply(gs game.State, a game.Action, actorID string) (game.State, error) {
	s, ok := gs.(*State)
	if !ok {
		return nil, game.ErrWrongGameState
	}
	if s.phase == PhaseEnded {
		return nil, game.ErrGameOver
	}

	switch a.Kind {
	case ActionStart:
		return m.applyStart(s)
	case ActionPause:
		return s.applyPause()
	case ActionResume:
		return s.applyResume()
	}

	if s.phase == PhasePaused {
		return nil, game.ErrWrongPhase
	}
	if s.phase != PhaseRolling {
		return nil, game.ErrWrongPhase
	}
	if actorID != s.players[s.turn].UserID {
		return nil, game.ErrNotYourTurn
	}

	switch a.Kind {
	case ActionRoll:
		return m.applyRoll(s, a)
	case ActionClaim:
		return s.applyClaim(a, false)
	case ActionClaimJoker:
		return s.applyClaim(a, true)
	case ActionForfeitTurn:
		return s.applyForfeit()
	default:
		return nil, game.ErrInvalidAction
	}
}

func (m Machine) applyStart(s *State) (game.State, error) {
	if s.phase != PhaseWaiting {
		return nil, game.ErrWrongPhase
	}
	if len(s.players) == 0 {
		return nil, game.ErrInvalidAction
	}
	next := s.clone()
	next.phase = PhaseRolling
	next.turn = 0
	next.rollsUsed = 0
	return next, nil
}

func (s *State) applyPause() (game.State, error) {
	if s.phase == PhasePaused {
		return nil, game.ErrWrongPhase
	}
	next := s.clone()
	next.resumePhase = s.phase
	next.phase = PhasePaused
	return next, nil
}

func (s *State) applyResume() (game.State, error) {
	if s.phase != PhasePaused {
		return nil, game.ErrWrongPhase
	}
	next := s.clone()
	next.phase = next.resumePhase
	next.resumePhase = ""
	return next, nil
}

func (m Machine) applyRoll(s *State, a game.Action) (game.State, error) {
	if s.rollsUsed >= maxRolls {
		return nil, game.ErrInvalidAction
	}
	if s.rollsUsed > 0 {
		// Rerolls need a full keep mask.
		if len(a.Keep) != 5 {
			return nil, game.ErrInvalidAction
		}
	}
	next := s.clone()
	for i := 0; i < 5; i++ {
		if next.rollsUsed == 0 || !a.Keep[i] {
			next.dice[i] = m.RNG.Intn(6) + 1
		}
	}
	next.rollsUsed++
	return next, nil
}

func (s *State) applyClaim(a game.Action, joker bool) (game.State, error) {
	if s.rollsUsed == 0 {
		return nil, game.ErrInvalidAction
	}
	cat := Category(a.Category)
	if !validCategory(cat) || s.ruleset.Disabled(cat) {
		return nil, game.ErrInvalidAction
	}
	col := a.Column
	if col < 0 || col >= len(s.ruleset.Columns) {
		return nil, game.ErrInvalidAction
	}
	player := s.players[s.turn]
	if player.Sheets[col].Claimed(cat) {
		return nil, game.ErrInvalidAction
	}
	if joker && player.JokersLeft == 0 {
		return nil, game.ErrInvalidAction
	}

	next := s.clone()
	np := &next.players[next.turn]
	var score int
	if joker {
		score = jokerScore(cat)
		np.JokersLeft--
	} else {
		score = Score(cat, next.dice)
	}
	np.Sheets[col].Set(cat, score*s.ruleset.Columns[col].Multiplier)
	next.advanceTurn()
	return next, nil
}

func (s *State) applyForfeit() (game.State, error) {
	next := s.clone()
	np := &next.players[next.turn]
	// Scratch the first open category on the first open column.
	for col := range np.Sheets {
		for _, cat := range Categories {
			if next.ruleset.Disabled(cat) {
				continue
			}
			if !np.Sheets[col].Claimed(cat) {
				np.Sheets[col].Set(cat, 0)
				next.advanceTurn()
				return next, nil
			}
		}
	}
	return nil, game.ErrInvalidAction
}

func (s *State) advanceTurn() {
	s.rollsUsed = 0
	s.dice = [5]int{}
	if s.allComplete() {
		s.finish()
		return
	}
	for {
		s.turn = (s.turn + 1) % len(s.players)
		if !s.sheetComplete(s.turn) {
			return
		}
	}
}

func (s *State) sheetComplete(idx int) bool {
	for col := range s.players[idx].Sheets {
		for _, cat := range Categories {
			if s.ruleset.Disabled(cat) {
				continue
			}
			if !s.players[idx].Sheets[col].Claimed(cat) {
				return false
			}
		}
	}
	return true
}

func (s *State) allComplete() bool {
	for i := range s.players {
		if !s.sheetComplete(i) {
			return false
		}
	}
	return true
}

// finish moves through the scoring phase: totals are computed, the
// stake pool is split among the winners, and the game ends.
func (s *State) finish() {
	s.phase = PhaseScoring
	totals := s.totals()

	pool := s.stake * int64(len(s.players))
	s.payouts = map[string]int64{}
	if pool > 0 {
		winners := s.winners(totals)
		share := pool / int64(len(winners))
		remainder := pool - share*int64(len(winners))
		for _, w := range winners {
			s.payouts[w] += share
			if remainder > 0 {
				s.payouts[w]++
				remainder--
			}
		}
	}
	s.phase = PhaseEnded
}

// totals returns each player's grand total across columns, including
// upper-section bonuses.
func (s *State) totals() map[string]int {
	totals := map[string]int{}
	for _, p := range s.players {
		total := 0
		for col, sheet := range p.Sheets {
			total += sheet.Total(s.ruleset.Columns[col].Multiplier)
		}
		totals[p.UserID] = total
	}
	return totals
}

// winners returns the user ids owed a payout share, in turn order.
// With team scoring the whole winning team shares the pool.
func (s *State) winners(totals map[string]int) []string {
	if s.ruleset.TeamScoring {
		teamTotals := map[string]int{}
		for _, p := range s.players {
			teamTotals[p.TeamID] += totals[p.UserID]
		}
		bestTotal := -1
		for _, total := range teamTotals {
			if total > bestTotal {
				bestTotal = total
			}
		}
		// Tied teams split the pool, same as tied players below.
		out := []string{}
		for _, p := range s.players {
			if teamTotals[p.TeamID] == bestTotal {
				out = append(out, p.UserID)
			}
		}
		return out
	}

	bestTotal := -1
	for _, p := range s.players {
		if totals[p.UserID] > bestTotal {
			bestTotal = totals[p.UserID]
		}
	}
	out := []string{}
	for _, p := range s.players {
		if totals[p.UserID] == bestTotal {
			out = append(out, p.UserID)
		}
	}
	return out
}

// Dice exposes the current roll for snapshots and tests.
func (s *State) Dice() [5]int { return s.dice }

// RollsUsed exposes the roll budget spent this turn.
func (s *State) RollsUsed() int { return s.rollsUsed }

// Totals exposes final or running totals per user.
func (s *State) Totals() map[string]int { return s.totals() }
