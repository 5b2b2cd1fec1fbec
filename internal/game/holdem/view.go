package holdem

import (
	"game-parlor/internal/deck"
	"game-parlor/internal/game"
)

type PlayerView struct {
	ID        string   `json:"id"`
	Stack     int64    `json:"stack"`
	Bet       int64    `json:"bet"`
	Committed int64    `json:"committed"`
	Folded    bool     `json:"folded"`
	AllIn     bool     `json:"all_in"`
	Out       bool     `json:"out"`
	Hole      []string `json:"hole,omitempty"`
}

type Snapshot struct {
	Phase      game.Phase       `json:"phase"`
	Players    []PlayerView     `json:"players"`
	Button     int              `json:"button"`
	ActorID    string           `json:"actor_id,omitempty"`
	Community  []string         `json:"community"`
	CurrentBet int64            `json:"current_bet"`
	MinRaise   int64            `json:"min_raise"`
	Pot        int64            `json:"pot"`
	HandPots   map[string]int64 `json:"hand_pots,omitempty"`
	Payouts    map[string]int64 `json:"payouts,omitempty"`
}

// View masks every other player's hole cards until the showdown
// reveals them. Folded hands stay hidden even then.
func (s *State) View(viewerID string) any {
	snap := Snapshot{
		Phase:      s.phase,
		Button:     s.button,
		ActorID:    s.ActorID(),
		Community:  cardStrings(s.community),
		CurrentBet: s.currentBet,
		MinRaise:   s.minRaise,
		HandPots:   cloneAmounts(s.handPots),
		Payouts:    cloneAmounts(s.payouts),
	}
	for _, p := range s.players {
		pv := PlayerView{
			ID:        p.ID,
			Stack:     p.Stack,
			Bet:       p.Bet,
			Committed: p.Committed,
			Folded:    p.Folded,
			AllIn:     p.AllIn,
			Out:       p.Out,
		}
		snap.Pot += p.Committed
		if p.ID == viewerID || (s.revealed && !p.Folded) {
			pv.Hole = cardStrings(p.Hole)
		}
		snap.Players = append(snap.Players, pv)
	}
	return snap
}

func cardStrings(cards []deck.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}
