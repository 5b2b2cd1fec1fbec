package holdem

import (
	"errors"
	"testing"

	"game-parlor/internal/game"
	"game-parlor/internal/rng"
)

const (
	buyIn = int64(500)
	sb    = int64(5)
	bb    = int64(10)
)

func newGame(seed int64, ids ...string) (Machine, *State) {
	return Machine{RNG: rng.Seeded(seed)}, New(ids, ids[0], buyIn, sb, bb)
}

func mustApply(t *testing.T, m Machine, s game.State, a game.Action, actor string) *State {
	t.Helper()
	next, err := m.Apply(s, a, actor)
	if err != nil {
		t.Fatalf("apply %s by %s in %s: %v", a.Kind, actor, s.Phase(), err)
	}
	return next.(*State)
}

func start(t *testing.T, m Machine, s *State) *State {
	t.Helper()
	return mustApply(t, m, s, game.Action{Kind: ActionStart}, s.hostID)
}

func seatView(t *testing.T, s *State, id string) (Snapshot, PlayerView) {
	t.Helper()
	snap := s.View(id).(Snapshot)
	for _, p := range snap.Players {
		if p.ID == id {
			return snap, p
		}
	}
	t.Fatalf("player %s not in snapshot", id)
	return Snapshot{}, PlayerView{}
}

// callOrCheck plays the current actor's cheapest continuing action.
func callOrCheck(t *testing.T, m Machine, s *State) *State {
	t.Helper()
	actor := s.ActorID()
	snap, me := seatView(t, s, actor)
	kind := ActionCheck
	if snap.CurrentBet > me.Bet {
		kind = ActionCall
	}
	return mustApply(t, m, s, game.Action{Kind: kind}, actor)
}

// playToHandEnd checks and calls every decision down to hand_end.
func playToHandEnd(t *testing.T, m Machine, s *State) *State {
	t.Helper()
	for i := 0; i < 100; i++ {
		if s.Phase() == PhaseHandEnd || s.Phase() == PhaseGameEnd {
			return s
		}
		if s.NeedsAdvance() {
			s = mustApply(t, m, s, game.Action{Kind: game.ActionAdvance}, "")
			continue
		}
		s = callOrCheck(t, m, s)
	}
	t.Fatalf("hand did not finish, stuck in %s", s.Phase())
	return nil
}

func totalStacks(s *State) int64 {
	var sum int64
	for _, p := range s.players {
		sum += p.Stack + p.Committed
	}
	return sum
}

func TestStartPostsBlindsAndDeals(t *testing.T) {
	m, s := newGame(1, "ann", "bob", "cid")
	s = start(t, m, s)
	if s.Phase() != PhasePreflop {
		t.Fatalf("phase = %s", s.Phase())
	}
	snap, _ := seatView(t, s, "ann")
	if snap.Pot != sb+bb {
		t.Fatalf("pot = %d, want %d", snap.Pot, sb+bb)
	}
	if snap.CurrentBet != bb {
		t.Fatalf("current bet = %d, want %d", snap.CurrentBet, bb)
	}
	// Button on seat 0, so seat 0 is under the gun.
	if s.ActorID() != "ann" {
		t.Fatalf("first to act = %s, want ann", s.ActorID())
	}
	for _, id := range []string{"ann", "bob", "cid"} {
		_, me := seatView(t, s, id)
		if len(me.Hole) != 2 {
			t.Fatalf("%s has %d hole cards", id, len(me.Hole))
		}
	}
}

func TestStartRequiresHost(t *testing.T) {
	m, s := newGame(1, "ann", "bob")
	if _, err := m.Apply(s, game.Action{Kind: ActionStart}, "bob"); !errors.Is(err, game.ErrNotYourTurn) {
		t.Fatalf("err = %v, want not_your_turn", err)
	}
}

func TestOutOfTurnRejected(t *testing.T) {
	m, s := newGame(1, "ann", "bob", "cid")
	s = start(t, m, s)
	if _, err := m.Apply(s, game.Action{Kind: ActionCall}, "bob"); !errors.Is(err, game.ErrNotYourTurn) {
		t.Fatalf("err = %v, want not_your_turn", err)
	}
	if _, err := m.Apply(s, game.Action{Kind: ActionFold}, "dora"); !errors.Is(err, game.ErrUnknownPlayer) {
		t.Fatalf("err = %v, want unknown_player", err)
	}
}

func TestCheckFacingBetRejected(t *testing.T) {
	m, s := newGame(1, "ann", "bob", "cid")
	s = start(t, m, s)
	if _, err := m.Apply(s, game.Action{Kind: ActionCheck}, "ann"); !errors.Is(err, game.ErrInvalidAction) {
		t.Fatalf("err = %v, want invalid_action", err)
	}
}

func TestRaiseBelowMinimumRejected(t *testing.T) {
	m, s := newGame(1, "ann", "bob", "cid")
	s = start(t, m, s)
	// Min raise over the big blind is to 20.
	if _, err := m.Apply(s, game.Action{Kind: ActionRaise, Amount: 15}, "ann"); !errors.Is(err, game.ErrInvalidAction) {
		t.Fatalf("short raise err = %v, want invalid_action", err)
	}
	s2 := mustApply(t, m, s, game.Action{Kind: ActionRaise, Amount: 20}, "ann")
	snap, _ := seatView(t, s2, "ann")
	if snap.CurrentBet != 20 || snap.MinRaise != 10 {
		t.Fatalf("current bet = %d min raise = %d", snap.CurrentBet, snap.MinRaise)
	}
}

func TestShortAllInRaiseAllowed(t *testing.T) {
	m, s := newGame(1, "ann", "bob", "cid")
	s = start(t, m, s)
	s = mustApply(t, m, s, game.Action{Kind: ActionRaise, Amount: buyIn}, "ann")
	_, me := seatView(t, s, "ann")
	if !me.AllIn || me.Stack != 0 {
		t.Fatalf("ann not all-in: stack %d", me.Stack)
	}
}

func TestBigBlindHasOption(t *testing.T) {
	m, s := newGame(1, "ann", "bob", "cid")
	s = start(t, m, s)
	s = mustApply(t, m, s, game.Action{Kind: ActionCall}, "ann")
	s = mustApply(t, m, s, game.Action{Kind: ActionCall}, "bob")
	if s.ActorID() != "cid" {
		t.Fatalf("actor = %s, want big blind cid", s.ActorID())
	}
	s = mustApply(t, m, s, game.Action{Kind: ActionCheck}, "cid")
	if s.Phase() != PhaseFlop {
		t.Fatalf("phase = %s after option check, want flop", s.Phase())
	}
	if got := len(s.Community()); got != 3 {
		t.Fatalf("flop has %d cards", got)
	}
}

func TestFoldToOneAwardsPotWithoutShowdown(t *testing.T) {
	m, s := newGame(1, "ann", "bob", "cid")
	s = start(t, m, s)
	s = mustApply(t, m, s, game.Action{Kind: ActionFold}, "ann")
	s = mustApply(t, m, s, game.Action{Kind: ActionFold}, "bob")
	if s.Phase() != PhaseHandEnd {
		t.Fatalf("phase = %s, want hand_end", s.Phase())
	}
	if got := s.HandPots()["cid"]; got != sb+bb {
		t.Fatalf("cid won %d, want %d", got, sb+bb)
	}
	// No showdown reveal of the winner's cards.
	snap := s.View("ann").(Snapshot)
	for _, p := range snap.Players {
		if p.ID == "cid" && p.Hole != nil {
			t.Fatalf("fold win revealed cid's hole cards")
		}
	}
	if totalStacks(s) != 3*buyIn {
		t.Fatalf("chips not conserved: %d", totalStacks(s))
	}
}

func TestCheckdownReachesShowdownAndConserves(t *testing.T) {
	m, s := newGame(7, "ann", "bob", "cid")
	s = start(t, m, s)
	s = playToHandEnd(t, m, s)
	if s.Phase() != PhaseHandEnd {
		t.Fatalf("phase = %s", s.Phase())
	}
	if got := len(s.Community()); got != 5 {
		t.Fatalf("board has %d cards, want 5", got)
	}
	var won int64
	for _, amt := range s.HandPots() {
		won += amt
	}
	if won != 3*bb {
		t.Fatalf("distributed %d, want %d", won, 3*bb)
	}
	if totalStacks(s) != 3*buyIn {
		t.Fatalf("chips not conserved: %d", totalStacks(s))
	}
}

func TestAllInRunout(t *testing.T) {
	m, s := newGame(3, "ann", "bob", "cid")
	s = start(t, m, s)
	s = mustApply(t, m, s, game.Action{Kind: ActionRaise, Amount: buyIn}, "ann")
	s = mustApply(t, m, s, game.Action{Kind: ActionCall}, "bob")
	s = mustApply(t, m, s, game.Action{Kind: ActionCall}, "cid")
	if !s.NeedsAdvance() {
		t.Fatalf("expected board runout after everyone all-in, phase %s", s.Phase())
	}
	s = playToHandEnd(t, m, s)
	if got := len(s.Community()); got != 5 {
		t.Fatalf("board has %d cards, want 5", got)
	}
	if totalStacks(s) != 3*buyIn {
		t.Fatalf("chips not conserved: %d", totalStacks(s))
	}
}

func TestShowdownRevealsOnlyUnfoldedHands(t *testing.T) {
	m, s := newGame(7, "ann", "bob", "cid")
	s = start(t, m, s)
	s = mustApply(t, m, s, game.Action{Kind: ActionFold}, "ann")
	s = playToHandEnd(t, m, s)
	snap := s.View("ann").(Snapshot)
	for _, p := range snap.Players {
		switch p.ID {
		case "ann":
			// Folded preflop before committing; own view keeps own cards.
			if len(p.Hole) != 2 {
				t.Fatalf("own hole cards missing")
			}
		default:
			if len(p.Hole) != 2 {
				t.Fatalf("%s's showdown hand not revealed", p.ID)
			}
		}
	}
	// A bystander view never sees ann's folded hand.
	snap = s.View("bob").(Snapshot)
	for _, p := range snap.Players {
		if p.ID == "ann" && p.Hole != nil {
			t.Fatalf("folded hand revealed to opponent")
		}
	}
}

func TestHoleCardsHiddenBeforeShowdown(t *testing.T) {
	m, s := newGame(1, "ann", "bob")
	s = start(t, m, s)
	snap := s.View("ann").(Snapshot)
	for _, p := range snap.Players {
		if p.ID == "bob" && p.Hole != nil {
			t.Fatalf("opponent hole cards visible preflop")
		}
	}
}

func TestHeadsUpOrder(t *testing.T) {
	m, s := newGame(1, "ann", "bob")
	s = start(t, m, s)
	// Button posts the small blind and acts first preflop.
	if s.ActorID() != "ann" {
		t.Fatalf("preflop actor = %s, want ann", s.ActorID())
	}
	s = mustApply(t, m, s, game.Action{Kind: ActionCall}, "ann")
	s = mustApply(t, m, s, game.Action{Kind: ActionCheck}, "bob")
	if s.Phase() != PhaseFlop {
		t.Fatalf("phase = %s", s.Phase())
	}
	if s.ActorID() != "bob" {
		t.Fatalf("postflop actor = %s, want bob", s.ActorID())
	}
}

func TestHostEndsGameFreezesStacks(t *testing.T) {
	m, s := newGame(7, "ann", "bob", "cid")
	s = start(t, m, s)
	s = playToHandEnd(t, m, s)
	if _, err := m.Apply(s, game.Action{Kind: ActionEnd}, "bob"); !errors.Is(err, game.ErrNotYourTurn) {
		t.Fatalf("non-host end err = %v", err)
	}
	s = mustApply(t, m, s, game.Action{Kind: ActionEnd}, "ann")
	if !s.Ended() || !s.Settled() {
		t.Fatalf("game not ended")
	}
	var sum int64
	for _, p := range s.players {
		if s.Payouts()[p.ID] != p.Stack {
			t.Fatalf("payout for %s = %d, stack %d", p.ID, s.Payouts()[p.ID], p.Stack)
		}
		sum += s.Payouts()[p.ID]
	}
	if sum != 3*buyIn {
		t.Fatalf("payouts sum %d, want %d", sum, 3*buyIn)
	}
}

func TestHeadsUpAllInUntilBust(t *testing.T) {
	m, s := newGame(11, "ann", "bob")
	for hand := 0; hand < 200; hand++ {
		s = start(t, m, s)
		for s.Phase() != PhaseHandEnd && s.Phase() != PhaseGameEnd {
			if s.NeedsAdvance() {
				s = mustApply(t, m, s, game.Action{Kind: game.ActionAdvance}, "")
				continue
			}
			actor := s.ActorID()
			snap, me := seatView(t, s, actor)
			if me.AllIn {
				s = callOrCheck(t, m, s)
				continue
			}
			to := me.Bet + me.Stack
			if to > snap.CurrentBet {
				s = mustApply(t, m, s, game.Action{Kind: ActionRaise, Amount: to}, actor)
			} else {
				s = callOrCheck(t, m, s)
			}
		}
		if totalStacks(s) != 2*buyIn {
			t.Fatalf("hand %d: chips not conserved: %d", hand, totalStacks(s))
		}
		if s.NeedsAdvance() {
			s = mustApply(t, m, s, game.Action{Kind: game.ActionAdvance}, "")
		}
		if s.Phase() == PhaseGameEnd {
			var sum int64
			for _, amt := range s.Payouts() {
				sum += amt
			}
			if sum != 2*buyIn {
				t.Fatalf("final payouts sum %d, want %d", sum, 2*buyIn)
			}
			return
		}
	}
	t.Fatalf("no bust after 200 all-in hands")
}

func TestApplyDoesNotMutate(t *testing.T) {
	m, s := newGame(1, "ann", "bob", "cid")
	started := start(t, m, s)
	if s.Phase() != PhaseWaiting {
		t.Fatalf("start mutated prior state")
	}
	folded := mustApply(t, m, started, game.Action{Kind: ActionFold}, "ann")
	_, before := seatView(t, started, "ann")
	if before.Folded {
		t.Fatalf("fold mutated prior state")
	}
	_, after := seatView(t, folded, "ann")
	if !after.Folded {
		t.Fatalf("fold not applied")
	}
}

func TestDefaultActionByPhase(t *testing.T) {
	m, s := newGame(1, "ann", "bob")
	if a := m.DefaultAction(s); a.Kind != ActionStart {
		t.Fatalf("waiting default = %s, want start", a.Kind)
	}
	s = start(t, m, s)
	if a := m.DefaultAction(s); a.Kind != ActionFold {
		t.Fatalf("betting default = %s, want fold", a.Kind)
	}
}
