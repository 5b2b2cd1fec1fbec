package kniffel

import (
	"testing"

	"game-parlor/internal/game"
	"game-parlor/internal/rng"
)

func newTestGame(t *testing.T, seed int64, players ...string) (Machine, game.State) {
	t.Helper()
	ps := make([]Player, len(players))
	for i, id := range players {
		ps[i] = Player{UserID: id}
	}
	m := Machine{RNG: rng.Seeded(seed)}
	var s game.State = New(ps, DefaultRuleset(), 0)
	s, err := m.Apply(s, game.Action{Kind: ActionStart}, players[0])
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return m, s
}

func TestScoreUpperSection(t *testing.T) {
	dice := [5]int{3, 3, 3, 5, 1}
	if got := Score(Threes, dice); got != 9 {
		t.Fatalf("threes: expected 9, got %d", got)
	}
	if got := Score(Fives, dice); got != 5 {
		t.Fatalf("fives: expected 5, got %d", got)
	}
	if got := Score(Sixes, dice); got != 0 {
		t.Fatalf("sixes: expected 0, got %d", got)
	}
}

func TestScoreLowerSection(t *testing.T) {
	cases := []struct {
		cat  Category
		dice [5]int
		want int
	}{
		{ThreeOfAKind, [5]int{4, 4, 4, 2, 1}, 15},
		{ThreeOfAKind, [5]int{4, 4, 3, 2, 1}, 0},
		{FourOfAKind, [5]int{6, 6, 6, 6, 2}, 26},
		{FullHouse, [5]int{2, 2, 5, 5, 5}, 25},
		{FullHouse, [5]int{2, 2, 5, 5, 6}, 0},
		{SmallStraight, [5]int{1, 2, 3, 4, 6}, 30},
		{LargeStraight, [5]int{2, 3, 4, 5, 6}, 40},
		{LargeStraight, [5]int{1, 2, 3, 4, 6}, 0},
		{Kniffel, [5]int{3, 3, 3, 3, 3}, 50},
		{Chance, [5]int{1, 2, 3, 4, 5}, 15},
	}
	for _, tc := range cases {
		if got := Score(tc.cat, tc.dice); got != tc.want {
			t.Fatalf("%s %v: expected %d, got %d", tc.cat, tc.dice, tc.want, got)
		}
	}
}

func TestUpperBonus(t *testing.T) {
	sheet := Sheet{}
	// Three of each upper face: 3+6+9+12+15+18 = 63, exactly the threshold.
	sheet.Set(Ones, 3)
	sheet.Set(Twos, 6)
	sheet.Set(Threes, 9)
	sheet.Set(Fours, 12)
	sheet.Set(Fives, 15)
	sheet.Set(Sixes, 18)
	if got := sheet.Total(1); got != 63+35 {
		t.Fatalf("expected bonus at 63, got total %d", got)
	}

	under := Sheet{}
	under.Set(Ones, 3)
	under.Set(Twos, 6)
	if got := under.Total(1); got != 9 {
		t.Fatalf("expected no bonus under threshold, got %d", got)
	}
}

func TestRollBudgetEnforced(t *testing.T) {
	m, s := newTestGame(t, 1, "alice", "bob")
	var err error
	s, err = m.Apply(s, game.Action{Kind: ActionRoll}, "alice")
	if err != nil {
		t.Fatalf("first roll: %v", err)
	}
	keep := []bool{true, true, false, false, false}
	s, err = m.Apply(s, game.Action{Kind: ActionRoll, Keep: keep}, "alice")
	if err != nil {
		t.Fatalf("second roll: %v", err)
	}
	s, err = m.Apply(s, game.Action{Kind: ActionRoll, Keep: keep}, "alice")
	if err != nil {
		t.Fatalf("third roll: %v", err)
	}
	if _, err = m.Apply(s, game.Action{Kind: ActionRoll, Keep: keep}, "alice"); err == nil {
		t.Fatal("fourth roll must be rejected")
	}
}

func TestKeepMaskHoldsDice(t *testing.T) {
	m, s := newTestGame(t, 2, "alice")
	s, _ = m.Apply(s, game.Action{Kind: ActionRoll}, "alice")
	before := s.(*State).Dice()
	keep := []bool{true, true, true, true, true}
	s, err := m.Apply(s, game.Action{Kind: ActionRoll, Keep: keep}, "alice")
	if err != nil {
		t.Fatalf("reroll: %v", err)
	}
	if s.(*State).Dice() != before {
		t.Fatalf("kept dice changed: %v vs %v", before, s.(*State).Dice())
	}
}

func TestOutOfTurnRejected(t *testing.T) {
	m, s := newTestGame(t, 3, "alice", "bob")
	if _, err := m.Apply(s, game.Action{Kind: ActionRoll}, "bob"); err != game.ErrNotYourTurn {
		t.Fatalf("expected not_your_turn, got %v", err)
	}
}

func TestClaimRequiresARoll(t *testing.T) {
	m, s := newTestGame(t, 4, "alice")
	if _, err := m.Apply(s, game.Action{Kind: ActionClaim, Category: string(Chance)}, "alice"); err == nil {
		t.Fatal("claim before rolling must be rejected")
	}
}

func TestCategoryClaimedOncePerSheet(t *testing.T) {
	m, s := newTestGame(t, 5, "alice", "bob")
	var err error
	s, _ = m.Apply(s, game.Action{Kind: ActionRoll}, "alice")
	s, err = m.Apply(s, game.Action{Kind: ActionClaim, Category: string(Chance)}, "alice")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	// Bob's turn; he scratches into ones to get back to alice.
	s, _ = m.Apply(s, game.Action{Kind: ActionRoll}, "bob")
	s, err = m.Apply(s, game.Action{Kind: ActionClaim, Category: string(Ones)}, "bob")
	if err != nil {
		t.Fatalf("bob claim: %v", err)
	}
	s, _ = m.Apply(s, game.Action{Kind: ActionRoll}, "alice")
	if _, err = m.Apply(s, game.Action{Kind: ActionClaim, Category: string(Chance)}, "alice"); err == nil {
		t.Fatal("second claim of same category must be rejected")
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	m, s := newTestGame(t, 6, "alice")
	before := s.(*State)
	beforeDice := before.Dice()
	beforeRolls := before.RollsUsed()
	if _, err := m.Apply(s, game.Action{Kind: ActionRoll}, "alice"); err != nil {
		t.Fatalf("roll: %v", err)
	}
	if before.Dice() != beforeDice || before.RollsUsed() != beforeRolls {
		t.Fatal("Apply mutated its input state")
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	run := func() game.State {
		m, s := newTestGame(t, 77, "alice", "bob")
		actions := []struct {
			a     game.Action
			actor string
		}{
			{game.Action{Kind: ActionRoll}, "alice"},
			{game.Action{Kind: ActionClaim, Category: string(Chance)}, "alice"},
			{game.Action{Kind: ActionRoll}, "bob"},
			{game.Action{Kind: ActionRoll, Keep: []bool{true, false, true, false, true}}, "bob"},
			{game.Action{Kind: ActionClaim, Category: string(Threes)}, "bob"},
		}
		for _, step := range actions {
			var err error
			s, err = m.Apply(s, step.a, step.actor)
			if err != nil {
				t.Fatalf("replay step failed: %v", err)
			}
		}
		return s
	}
	a := run().(*State)
	b := run().(*State)
	if a.Dice() != b.Dice() {
		t.Fatalf("replay diverged on dice: %v vs %v", a.Dice(), b.Dice())
	}
	at, bt := a.Totals(), b.Totals()
	for id, v := range at {
		if bt[id] != v {
			t.Fatalf("replay diverged on totals for %s: %d vs %d", id, v, bt[id])
		}
	}
}

func TestForfeitTurnScratchesAndAdvances(t *testing.T) {
	m, s := newTestGame(t, 8, "alice", "bob")
	s, err := m.Apply(s, game.Action{Kind: ActionForfeitTurn}, "alice")
	if err != nil {
		t.Fatalf("forfeit: %v", err)
	}
	st := s.(*State)
	if st.ActorID() != "bob" {
		t.Fatalf("expected turn to advance to bob, got %s", st.ActorID())
	}
	if !st.players[0].Sheets[0].Claimed(Ones) || st.players[0].Sheets[0][Ones] != 0 {
		t.Fatal("expected first open category scratched to zero")
	}
}

func TestGameEndsAndPaysWinner(t *testing.T) {
	ps := []Player{{UserID: "alice"}, {UserID: "bob"}}
	ruleset := DefaultRuleset()
	m := Machine{RNG: rng.Seeded(9)}
	var s game.State = New(ps, ruleset, 100)
	s, err := m.Apply(s, game.Action{Kind: ActionStart}, "alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	// Force the game to completion by forfeiting every turn. Every
	// category scratches to zero, so both players tie and split.
	for s.(*State).Phase() != PhaseEnded {
		actor := s.ActorID()
		s, err = m.Apply(s, game.Action{Kind: ActionForfeitTurn}, actor)
		if err != nil {
			t.Fatalf("forfeit loop: %v", err)
		}
	}
	st := s.(*State)
	if !st.Settled() {
		t.Fatal("ended game must report settled")
	}
	payouts := st.Payouts()
	var total int64
	for _, v := range payouts {
		total += v
	}
	if total != 200 {
		t.Fatalf("payout pool must equal stakes, got %d", total)
	}
	if payouts["alice"] != 100 || payouts["bob"] != 100 {
		t.Fatalf("tied players should split evenly, got %+v", payouts)
	}
}

func TestTiedTeamsSplitThePool(t *testing.T) {
	ps := []Player{
		{UserID: "a1", TeamID: "reds"},
		{UserID: "b1", TeamID: "blues"},
	}
	ruleset := DefaultRuleset()
	ruleset.TeamScoring = true
	m := Machine{RNG: rng.Seeded(9)}

	// Run the same all-forfeit game several times. Both teams finish
	// at zero, so the split must come out identical every run.
	want := map[string]int64{"a1": 100, "b1": 100}
	for run := 0; run < 5; run++ {
		var s game.State = New(ps, ruleset, 100)
		s, err := m.Apply(s, game.Action{Kind: ActionStart}, "a1")
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		for s.(*State).Phase() != PhaseEnded {
			s, err = m.Apply(s, game.Action{Kind: ActionForfeitTurn}, s.ActorID())
			if err != nil {
				t.Fatalf("forfeit loop: %v", err)
			}
		}
		payouts := s.(*State).Payouts()
		for id, amount := range want {
			if payouts[id] != amount {
				t.Fatalf("run %d: payouts = %+v, want %+v", run, payouts, want)
			}
		}
	}
}

func TestPauseBlocksActions(t *testing.T) {
	m, s := newTestGame(t, 10, "alice")
	s, err := m.Apply(s, game.Action{Kind: ActionPause}, "alice")
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err = m.Apply(s, game.Action{Kind: ActionRoll}, "alice"); err == nil {
		t.Fatal("roll while paused must be rejected")
	}
	s, err = m.Apply(s, game.Action{Kind: ActionResume}, "alice")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if _, err = m.Apply(s, game.Action{Kind: ActionRoll}, "alice"); err != nil {
		t.Fatalf("roll after resume: %v", err)
	}
}

func TestJokerClaimUsesFixedValue(t *testing.T) {
	ps := []Player{{UserID: "alice"}}
	ruleset := DefaultRuleset()
	ruleset.JokerCount = 1
	m := Machine{RNG: rng.Seeded(11)}
	var s game.State = New(ps, ruleset, 0)
	s, _ = m.Apply(s, game.Action{Kind: ActionStart}, "alice")
	s, _ = m.Apply(s, game.Action{Kind: ActionRoll}, "alice")
	s, err := m.Apply(s, game.Action{Kind: ActionClaimJoker, Category: string(LargeStraight)}, "alice")
	if err != nil {
		t.Fatalf("joker claim: %v", err)
	}
	st := s.(*State)
	if st.players[0].Sheets[0][LargeStraight] != 40 {
		t.Fatalf("joker large straight should score 40, got %d", st.players[0].Sheets[0][LargeStraight])
	}
	if st.players[0].JokersLeft != 0 {
		t.Fatalf("joker not consumed")
	}
	s, _ = m.Apply(s, game.Action{Kind: ActionRoll}, "alice")
	if _, err = m.Apply(s, game.Action{Kind: ActionClaimJoker, Category: string(Kniffel)}, "alice"); err == nil {
		t.Fatal("joker claim without jokers left must be rejected")
	}
}

func TestMultiColumnRulesetMultiplies(t *testing.T) {
	ps := []Player{{UserID: "alice"}}
	ruleset := Ruleset{Columns: []Column{{Multiplier: 1}, {Multiplier: 2}}}
	m := Machine{RNG: rng.Seeded(12)}
	var s game.State = New(ps, ruleset, 0)
	s, _ = m.Apply(s, game.Action{Kind: ActionStart}, "alice")
	s, _ = m.Apply(s, game.Action{Kind: ActionRoll}, "alice")
	dice := s.(*State).Dice()
	base := Score(Chance, dice)
	s, err := m.Apply(s, game.Action{Kind: ActionClaim, Category: string(Chance), Column: 1}, "alice")
	if err != nil {
		t.Fatalf("claim column 1: %v", err)
	}
	st := s.(*State)
	if st.players[0].Sheets[1][Chance] != base*2 {
		t.Fatalf("expected doubled score %d, got %d", base*2, st.players[0].Sheets[1][Chance])
	}
}

func TestDisabledCategoryRejected(t *testing.T) {
	ps := []Player{{UserID: "alice"}}
	ruleset := DefaultRuleset()
	ruleset.DisabledCat = []Category{FullHouse}
	m := Machine{RNG: rng.Seeded(13)}
	var s game.State = New(ps, ruleset, 0)
	s, _ = m.Apply(s, game.Action{Kind: ActionStart}, "alice")
	s, _ = m.Apply(s, game.Action{Kind: ActionRoll}, "alice")
	if _, err := m.Apply(s, game.Action{Kind: ActionClaim, Category: string(FullHouse)}, "alice"); err == nil {
		t.Fatal("claim of disabled category must be rejected")
	}
}
