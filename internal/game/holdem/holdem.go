// Package holdem implements multiway no-limit Texas hold'em. Hands run
// preflop through river with blinds, raise reopening rules and all-in
// side pots; a session ends when one player holds every chip or the
// host stops the game.
package holdem

import (
	"game-parlor/internal/deck"
	"game-parlor/internal/game"
	"game-parlor/internal/poker"
	"game-parlor/internal/rng"
)

const (
	PhaseWaiting  game.Phase = "waiting"
	PhasePreflop  game.Phase = "preflop"
	PhaseFlop     game.Phase = "flop"
	PhaseTurn     game.Phase = "turn"
	PhaseRiver    game.Phase = "river"
	PhaseShowdown game.Phase = "showdown"
	PhaseHandEnd  game.Phase = "hand_end"
	PhaseGameEnd  game.Phase = "game_end"
)

const (
	ActionStart = "start"
	ActionFold  = "fold"
	ActionCheck = "check"
	ActionCall  = "call"
	ActionRaise = "raise"
	ActionEnd   = "end_game"
)

type playerState struct {
	ID        string
	Stack     int64
	Hole      []deck.Card
	Bet       int64 // committed this betting round
	Committed int64 // committed this hand
	Folded    bool
	AllIn     bool
	Acted     bool
	Out       bool // busted, sits out remaining hands
}

func (p *playerState) clone() *playerState {
	cp := *p
	cp.Hole = append([]deck.Card{}, p.Hole...)
	return &cp
}

type State struct {
	phase      game.Phase
	players    []*playerState
	hostID     string
	button     int
	turn       int // index into players, -1 when no one is on the clock
	deck       *deck.Deck
	community  []deck.Card
	currentBet int64
	minRaise   int64
	smallBlind int64
	bigBlind   int64
	handPots   map[string]int64 // last hand's distribution, for broadcast
	payouts    map[string]int64 // final stacks, set at game_end
	revealed   bool
}

type Machine struct {
	RNG rng.Source
}

func (Machine) Type() game.Type { return game.TypePoker }

func New(userIDs []string, hostID string, buyIn, smallBlind, bigBlind int64) *State {
	players := make([]*playerState, len(userIDs))
	for i, id := range userIDs {
		players[i] = &playerState{ID: id, Stack: buyIn}
	}
	return &State{
		phase:      PhaseWaiting,
		players:    players,
		hostID:     hostID,
		button:     -1,
		turn:       -1,
		smallBlind: smallBlind,
		bigBlind:   bigBlind,
	}
}

func (s *State) GameType() game.Type { return game.TypePoker }
func (s *State) Phase() game.Phase   { return s.phase }

func (s *State) ActorID() string {
	if s.phase == PhaseWaiting || s.phase == PhaseHandEnd {
		if s.phase == PhaseHandEnd && s.liveCount() < 2 {
			return ""
		}
		return s.hostID
	}
	if s.turn < 0 || s.turn >= len(s.players) {
		return ""
	}
	return s.players[s.turn].ID
}

func (s *State) Ended() bool   { return s.phase == PhaseGameEnd }
func (s *State) Settled() bool { return s.phase == PhaseGameEnd }

// Payouts returns each player's final stack, the amount their escrowed
// buy-in settles to.
func (s *State) Payouts() map[string]int64 { return s.payouts }

// HandPots returns the distribution of the most recent hand.
func (s *State) HandPots() map[string]int64 { return s.handPots }

func (s *State) Community() []deck.Card { return append([]deck.Card{}, s.community...) }

func (s *State) NeedsAdvance() bool {
	switch s.phase {
	case PhaseShowdown:
		return true
	case PhaseHandEnd:
		// One player left with chips: nothing to deal, close the game.
		return s.liveCount() < 2
	case PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver:
		// Everyone all-in or folded: run out the board.
		return s.turn < 0
	}
	return false
}

func (s *State) clone() *State {
	cp := *s
	cp.players = make([]*playerState, len(s.players))
	for i, p := range s.players {
		cp.players[i] = p.clone()
	}
	if s.deck != nil {
		cp.deck = s.deck.Clone()
	}
	cp.community = append([]deck.Card{}, s.community...)
	cp.handPots = cloneAmounts(s.handPots)
	cp.payouts = cloneAmounts(s.payouts)
	return &cp
}

func cloneAmounts(m map[string]int64) map[string]int64 {
	if m == nil {
		return nil
	}
	cp := make(map[string]int64, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func (s *State) player(id string) (int, *playerState) {
	for i, p := range s.players {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

// DefaultAction folds during betting and deals the next hand for a
// host idling between hands.
func (Machine) DefaultAction(gs game.State) game.Action {
	if s, ok := gs.(*State); ok && (s.phase == PhaseWaiting || s.phase == PhaseHandEnd) {
		return game.Action{Kind: ActionStart}
	}
	return game.Action{Kind: ActionFold}
}

func (m Machine) Apply(gs game.State, a game.Action, actorID string) (game.State, error) {
	s, ok := gs.(*State)
	if !ok {
		return nil, game.ErrWrongGameState
	}
	switch a.Kind {
	case ActionStart:
		return m.applyStart(s, actorID)
	case ActionFold, ActionCheck, ActionCall, ActionRaise:
		return s.applyBetting(a, actorID)
	case ActionEnd:
		return s.applyEnd(actorID)
	case game.ActionAdvance:
		return m.applyAdvance(s)
	default:
		return nil, game.ErrInvalidAction
	}
}

func (m Machine) applyStart(s *State, actorID string) (game.State, error) {
	if s.phase != PhaseWaiting && s.phase != PhaseHandEnd {
		return nil, game.ErrWrongPhase
	}
	if actorID != s.hostID {
		return nil, game.ErrNotYourTurn
	}
	if s.liveCount() < 2 {
		return nil, game.ErrInvalidAction
	}
	next := s.clone()
	m.dealHand(next)
	return next, nil
}

func (s *State) liveCount() int {
	n := 0
	for _, p := range s.players {
		if !p.Out && p.Stack > 0 {
			n++
		}
	}
	return n
}

// dealHand rotates the button, posts blinds and deals hole cards.
func (m Machine) dealHand(s *State) {
	for _, p := range s.players {
		p.Hole = nil
		p.Bet = 0
		p.Committed = 0
		p.AllIn = false
		p.Acted = false
		p.Folded = p.Out || p.Stack == 0
		if p.Stack == 0 {
			p.Out = true
		}
	}
	s.community = nil
	s.handPots = nil
	s.revealed = false
	s.deck = deck.NewShuffled(m.RNG)
	s.button = s.nextLive(s.button)

	var sb, bb int
	if s.liveCount() == 2 {
		sb = s.button
		bb = s.nextLive(sb)
	} else {
		sb = s.nextLive(s.button)
		bb = s.nextLive(sb)
	}
	s.postBlind(s.players[sb], s.smallBlind)
	s.postBlind(s.players[bb], s.bigBlind)
	s.currentBet = s.bigBlind
	s.minRaise = s.bigBlind

	for _, p := range s.players {
		if !p.Folded {
			p.Hole = s.deck.DealN(2)
		}
	}
	s.phase = PhasePreflop
	s.turn = s.firstToAct(bb)
}

func (s *State) postBlind(p *playerState, amount int64) {
	if amount > p.Stack {
		amount = p.Stack
	}
	p.Stack -= amount
	p.Bet += amount
	p.Committed += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
}

// nextLive returns the next seat after i holding chips this hand.
func (s *State) nextLive(i int) int {
	for off := 1; off <= len(s.players); off++ {
		j := ((i + off) % len(s.players) + len(s.players)) % len(s.players)
		p := s.players[j]
		if !p.Out && p.Stack+p.Committed > 0 && !p.Folded {
			return j
		}
	}
	return i
}

// firstToAct returns the first seat after i that can still bet, or -1.
func (s *State) firstToAct(i int) int {
	for off := 1; off <= len(s.players); off++ {
		j := (i + off) % len(s.players)
		p := s.players[j]
		if !p.Folded && !p.AllIn {
			return j
		}
	}
	return -1
}

func (s *State) applyBetting(a game.Action, actorID string) (game.State, error) {
	switch s.phase {
	case PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver:
	default:
		return nil, game.ErrWrongPhase
	}
	idx, p := s.player(actorID)
	if p == nil {
		return nil, game.ErrUnknownPlayer
	}
	if s.turn != idx {
		return nil, game.ErrNotYourTurn
	}

	next := s.clone()
	actor := next.players[idx]
	switch a.Kind {
	case ActionFold:
		actor.Folded = true
		actor.Acted = true
	case ActionCheck:
		if actor.Bet != next.currentBet {
			return nil, game.ErrInvalidAction
		}
		actor.Acted = true
	case ActionCall:
		owed := next.currentBet - actor.Bet
		if owed <= 0 {
			return nil, game.ErrInvalidAction
		}
		next.commit(actor, owed)
		actor.Acted = true
	case ActionRaise:
		if err := next.applyRaise(actor, a.Amount); err != nil {
			return nil, err
		}
	}
	next.afterAction(idx)
	return next, nil
}

// applyRaise treats Amount as raise-to: the actor's total bet for this
// round after the raise.
func (s *State) applyRaise(actor *playerState, to int64) error {
	add := to - actor.Bet
	if add <= 0 || add > actor.Stack || to <= s.currentBet {
		return game.ErrInvalidAction
	}
	fullRaise := to >= s.currentBet+s.minRaise
	if !fullRaise && add < actor.Stack {
		// Short raises are only legal as an all-in.
		return game.ErrInvalidAction
	}
	s.commit(actor, add)
	if fullRaise {
		s.minRaise = to - s.currentBet
		// A full raise reopens the action.
		for _, o := range s.players {
			if o != actor && !o.Folded && !o.AllIn {
				o.Acted = false
			}
		}
	}
	s.currentBet = to
	actor.Acted = true
	return nil
}

func (s *State) commit(p *playerState, amount int64) {
	if amount >= p.Stack {
		amount = p.Stack
		p.AllIn = true
	}
	p.Stack -= amount
	p.Bet += amount
	p.Committed += amount
}

// afterAction decides who is next, or closes the betting round.
func (s *State) afterAction(actedIdx int) {
	if s.foldedToOne() {
		s.finishFoldWin()
		return
	}
	if s.roundComplete() {
		s.nextStreet()
		return
	}
	for off := 1; off <= len(s.players); off++ {
		j := (actedIdx + off) % len(s.players)
		p := s.players[j]
		if !p.Folded && !p.AllIn && (!p.Acted || p.Bet < s.currentBet) {
			s.turn = j
			return
		}
	}
	s.nextStreet()
}

func (s *State) foldedToOne() bool {
	n := 0
	for _, p := range s.players {
		if !p.Folded {
			n++
		}
	}
	return n <= 1
}

func (s *State) roundComplete() bool {
	for _, p := range s.players {
		if p.Folded || p.AllIn {
			continue
		}
		if !p.Acted || p.Bet < s.currentBet {
			return false
		}
	}
	return true
}

func (s *State) canBetCount() int {
	n := 0
	for _, p := range s.players {
		if !p.Folded && !p.AllIn {
			n++
		}
	}
	return n
}

// nextStreet deals the next community cards. With at most one player
// still able to bet the street opens with no actor and the hand runs
// out through advance actions.
func (s *State) nextStreet() {
	for _, p := range s.players {
		p.Bet = 0
		p.Acted = false
	}
	s.currentBet = 0
	s.minRaise = s.bigBlind

	switch s.phase {
	case PhasePreflop:
		s.community = append(s.community, s.deck.DealN(3)...)
		s.phase = PhaseFlop
	case PhaseFlop:
		s.community = append(s.community, s.deck.Deal())
		s.phase = PhaseTurn
	case PhaseTurn:
		s.community = append(s.community, s.deck.Deal())
		s.phase = PhaseRiver
	case PhaseRiver:
		s.phase = PhaseShowdown
		s.turn = -1
		return
	}
	if s.canBetCount() >= 2 {
		s.turn = s.firstToAct(s.button)
	} else {
		s.turn = -1
	}
}

func (m Machine) applyAdvance(s *State) (game.State, error) {
	if !s.NeedsAdvance() {
		return nil, game.ErrWrongPhase
	}
	next := s.clone()
	switch next.phase {
	case PhaseShowdown:
		next.settleShowdown()
	case PhaseHandEnd:
		next.finishGame()
	default:
		next.nextStreet()
	}
	return next, nil
}

// finishFoldWin awards the whole pot to the last unfolded player.
func (s *State) finishFoldWin() {
	pots := poker.CalculateSidePots(s.contributions())
	for _, p := range s.players {
		if !p.Folded {
			won := poker.TotalPot(pots)
			p.Stack += won
			s.handPots = map[string]int64{p.ID: won}
			break
		}
	}
	s.phase = PhaseHandEnd
	s.turn = -1
}

func (s *State) settleShowdown() {
	pots := poker.CalculateSidePots(s.contributions())
	rankings := map[string]poker.HandRank{}
	for _, p := range s.players {
		if !p.Folded {
			rankings[p.ID] = poker.Evaluate(p.Hole, s.community)
		}
	}
	s.handPots = poker.DistributePots(pots, rankings)
	for _, p := range s.players {
		p.Stack += s.handPots[p.ID]
	}
	s.revealed = true
	s.phase = PhaseHandEnd
	s.turn = -1
}

func (s *State) contributions() []poker.Contribution {
	contribs := make([]poker.Contribution, 0, len(s.players))
	for _, p := range s.players {
		if p.Committed == 0 {
			continue
		}
		contribs = append(contribs, poker.Contribution{UserID: p.ID, Amount: p.Committed, Folded: p.Folded})
	}
	return contribs
}

func (s *State) applyEnd(actorID string) (game.State, error) {
	if actorID != s.hostID {
		return nil, game.ErrNotYourTurn
	}
	switch s.phase {
	case PhaseWaiting, PhaseHandEnd:
	default:
		return nil, game.ErrWrongPhase
	}
	next := s.clone()
	next.finishGame()
	return next, nil
}

// finishGame freezes final stacks as the settlement amounts.
func (s *State) finishGame() {
	s.payouts = make(map[string]int64, len(s.players))
	for _, p := range s.players {
		s.payouts[p.ID] = p.Stack
	}
	s.phase = PhaseGameEnd
	s.turn = -1
}
