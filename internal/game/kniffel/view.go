package kniffel

import "game-parlor/internal/game"

// Snapshot is the wire view of a kniffel game. Dice and sheets are
// public, so every viewer sees the same thing.
type Snapshot struct {
	Phase     game.Phase       `json:"phase"`
	Dice      [5]int           `json:"dice"`
	RollsUsed int              `json:"rolls_used"`
	RollsLeft int              `json:"rolls_left"`
	Turn      string           `json:"turn"`
	Players   []PlayerSnapshot `json:"players"`
	Payouts   map[string]int64 `json:"payouts,omitempty"`
}

type PlayerSnapshot struct {
	UserID     string           `json:"user_id"`
	TeamID     string           `json:"team_id,omitempty"`
	Sheets     []map[string]int `json:"sheets"`
	JokersLeft int              `json:"jokers_left"`
	Total      int              `json:"total"`
}

func (s *State) View(string) any {
	totals := s.totals()
	players := make([]PlayerSnapshot, len(s.players))
	for i, p := range s.players {
		sheets := make([]map[string]int, len(p.Sheets))
		for j, sheet := range p.Sheets {
			m := make(map[string]int, len(sheet))
			for cat, v := range sheet {
				m[string(cat)] = v
			}
			sheets[j] = m
		}
		players[i] = PlayerSnapshot{
			UserID:     p.UserID,
			TeamID:     p.TeamID,
			Sheets:     sheets,
			JokersLeft: p.JokersLeft,
			Total:      totals[p.UserID],
		}
	}
	return Snapshot{
		Phase:     s.phase,
		Dice:      s.dice,
		RollsUsed: s.rollsUsed,
		RollsLeft: maxRolls - s.rollsUsed,
		Turn:      s.ActorID(),
		Players:   players,
		Payouts:   s.payouts,
	}
}
