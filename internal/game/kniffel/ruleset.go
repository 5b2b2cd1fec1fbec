package kniffel

import "game-parlor/internal/rng"

// Column is one scoring column. Classic play has a single ×1 column;
// variants add ×2 or ×3 columns that must each be filled.
type Column struct {
	Multiplier int `json:"multiplier"`
}

// Ruleset selects game variants at room creation instead of branching
// on flags inside the machine.
type Ruleset struct {
	Columns     []Column   `json:"columns"`
	TeamScoring bool       `json:"team_scoring"`
	JokerCount  int        `json:"joker_count"`
	DisabledCat []Category `json:"disabled_categories,omitempty"`
}

func DefaultRuleset() Ruleset {
	return Ruleset{Columns: []Column{{Multiplier: 1}}}
}

func (r Ruleset) Disabled(cat Category) bool {
	for _, d := range r.DisabledCat {
		if d == cat {
			return true
		}
	}
	return false
}

// WithRandomDisabled disables n randomly chosen lower-section
// categories, shortening the game.
func (r Ruleset) WithRandomDisabled(src rng.Source, n int) Ruleset {
	lower := []Category{ThreeOfAKind, FourOfAKind, FullHouse, SmallStraight, LargeStraight, Chance}
	rng.Shuffle(src, len(lower), func(i, j int) {
		lower[i], lower[j] = lower[j], lower[i]
	})
	if n > len(lower) {
		n = len(lower)
	}
	out := r
	out.DisabledCat = append(append([]Category{}, r.DisabledCat...), lower[:n]...)
	return out
}
