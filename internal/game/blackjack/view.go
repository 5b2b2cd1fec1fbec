package blackjack

import (
	"game-parlor/internal/deck"
	"game-parlor/internal/game"
)

type Snapshot struct {
	Phase       game.Phase       `json:"phase"`
	Turn        string           `json:"turn,omitempty"`
	DealerUp    []string         `json:"dealer_cards"`
	DealerValue int              `json:"dealer_value,omitempty"`
	HoleHidden  bool             `json:"hole_hidden"`
	Players     []PlayerSnapshot `json:"players"`
	Payouts     map[string]int64 `json:"payouts,omitempty"`
}

type PlayerSnapshot struct {
	UserID    string         `json:"user_id"`
	SatOut    bool           `json:"sat_out,omitempty"`
	Insurance int64          `json:"insurance,omitempty"`
	Hands     []HandSnapshot `json:"hands"`
}

type HandSnapshot struct {
	Cards       []string `json:"cards"`
	Value       int      `json:"value"`
	Bet         int64    `json:"bet"`
	Stood       bool     `json:"stood,omitempty"`
	Doubled     bool     `json:"doubled,omitempty"`
	Surrendered bool     `json:"surrendered,omitempty"`
	Busted      bool     `json:"busted,omitempty"`
}

// View hides the dealer's hole card until the dealer turn. Player
// hands are face up, so all viewers share the rest of the snapshot.
func (s *State) View(string) any {
	reveal := s.phase == PhaseDealerTurn || s.phase == PhaseRoundEnd
	dealerCards := []string{}
	for i, c := range s.dealer {
		if i == 1 && !reveal {
			dealerCards = append(dealerCards, "??")
			continue
		}
		dealerCards = append(dealerCards, c.String())
	}
	dealerValue := 0
	if reveal && len(s.dealer) > 0 {
		dealerValue = Value(s.dealer)
	}

	players := make([]PlayerSnapshot, len(s.players))
	for i, p := range s.players {
		hands := make([]HandSnapshot, len(p.Hands))
		for j, h := range p.Hands {
			cards := make([]string, len(h.Cards))
			for k, c := range h.Cards {
				cards[k] = c.String()
			}
			hands[j] = HandSnapshot{
				Cards:       cards,
				Value:       Value(h.Cards),
				Bet:         h.Bet,
				Stood:       h.Stood,
				Doubled:     h.Doubled,
				Surrendered: h.Surrendered,
				Busted:      h.Busted(),
			}
		}
		players[i] = PlayerSnapshot{UserID: p.UserID, SatOut: p.SatOut, Insurance: p.Insurance, Hands: hands}
	}
	return Snapshot{
		Phase:      s.phase,
		Turn:       s.ActorID(),
		DealerUp:   dealerCards,
		DealerValue: dealerValue,
		HoleHidden: !reveal && len(s.dealer) == 2,
		Players:    players,
		Payouts:    s.payouts,
	}
}

// DealerCards exposes the dealer hand for tests and settlement logs.
func (s *State) DealerCards() []deck.Card { return append([]deck.Card{}, s.dealer...) }
