package roulette

import "game-parlor/internal/game"

type Snapshot struct {
	Phase         game.Phase `json:"phase"`
	Bets          []Bet      `json:"bets"`
	WinningNumber *int       `json:"winning_number,omitempty"`
	Payouts       map[string]int64 `json:"payouts,omitempty"`
}

// View is identical for every seat; roulette has no hidden state.
func (s *State) View(string) any {
	snap := Snapshot{Phase: s.phase, Bets: s.Bets()}
	if s.winning >= 0 {
		w := s.winning
		snap.WinningNumber = &w
	}
	if s.payouts != nil {
		snap.Payouts = make(map[string]int64, len(s.payouts))
		for k, v := range s.payouts {
			snap.Payouts[k] = v
		}
	}
	return snap
}
