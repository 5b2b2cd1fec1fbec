// Package blackjack implements the dealer-banked blackjack round:
// sequential betting, per-hand player actions with shape-dependent
// legality, an automatic dealer phase, and 3:2 natural payouts.
package blackjack

import (
	"game-parlor/internal/deck"
	"game-parlor/internal/game"
	"game-parlor/internal/rng"
)

const (
	PhaseBetting    game.Phase = "betting"
	PhasePlayerTurn game.Phase = "player_turn"
	PhaseDealerTurn game.Phase = "dealer_turn"
	PhaseRoundEnd   game.Phase = "round_end"
)

const (
	ActionBet       = "bet"
	ActionSitOut    = "sit_out"
	ActionHit       = "hit"
	ActionStand     = "stand"
	ActionDouble    = "double"
	ActionSplit     = "split"
	ActionSurrender = "surrender"
	ActionInsurance = "insurance"
)

type Hand struct {
	Cards       []deck.Card
	Bet         int64
	Stood       bool
	Doubled     bool
	Surrendered bool
	FromSplit   bool
}

func (h Hand) Busted() bool { return Value(h.Cards) > 21 }

// Natural is a two-card 21 on a non-split hand; it pays 3:2.
func (h Hand) Natural() bool {
	return !h.FromSplit && len(h.Cards) == 2 && Value(h.Cards) == 21
}

// untouched means the hand still holds its first two cards and has not
// been doubled or surrendered.
func (h Hand) untouched() bool {
	return len(h.Cards) == 2 && !h.Doubled && !h.Surrendered
}

type PlayerState struct {
	UserID    string
	Hands     []Hand
	Insurance int64
	SatOut    bool
	bet       int64 // base bet placed during the betting phase
}

type State struct {
	phase   game.Phase
	players []PlayerState
	dealer  []deck.Card
	shoe    *deck.Deck
	turn    int // player index during betting and player_turn
	handIdx int
	minBet  int64
	maxBet  int64
	payouts map[string]int64
	wagered map[string]int64
}

type Machine struct {
	RNG rng.Source
}

func (Machine) Type() game.Type { return game.TypeBlackjack }

func New(userIDs []string, minBet, maxBet int64) *State {
	players := make([]PlayerState, len(userIDs))
	for i, id := range userIDs {
		players[i] = PlayerState{UserID: id}
	}
	return &State{phase: PhaseBetting, players: players, minBet: minBet, maxBet: maxBet}
}

func (s *State) GameType() game.Type { return game.TypeBlackjack }
func (s *State) Phase() game.Phase   { return s.phase }

func (s *State) ActorID() string {
	switch s.phase {
	case PhaseBetting, PhasePlayerTurn:
		if s.turn < len(s.players) {
			return s.players[s.turn].UserID
		}
	}
	return ""
}

func (s *State) Settled() bool { return s.phase == PhaseRoundEnd }
func (s *State) Ended() bool   { return s.phase == PhaseRoundEnd }

func (s *State) Payouts() map[string]int64 { return s.payouts }
func (s *State) Wagered() map[string]int64 { return s.wagered }

func (s *State) NeedsAdvance() bool { return s.phase == PhaseDealerTurn }

func (s *State) clone() *State {
	cp := *s
	cp.players = make([]PlayerState, len(s.players))
	for i, p := range s.players {
		np := p
		np.Hands = make([]Hand, len(p.Hands))
		for j, h := range p.Hands {
			nh := h
			nh.Cards = append([]deck.Card{}, h.Cards...)
			np.Hands[j] = nh
		}
		cp.players[i] = np
	}
	cp.dealer = append([]deck.Card{}, s.dealer...)
	if s.shoe != nil {
		cp.shoe = s.shoe.Clone()
	}
	cp.payouts = cloneAmounts(s.payouts)
	cp.wagered = cloneAmounts(s.wagered)
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

func (m Machine) DefaultAction(gs game.State) game.Action {
	s, ok := gs.(*State)
	if ok && s.phase == PhaseBetting {
		// A player asleep during betting sits the round out.
		return game.Action{Kind: ActionSitOut}
	}
	return game.Action{Kind: ActionStand}
}

func (m Machine) Apply(gs game.State, a game.Action, actorID string) (game.State, error) {
	s, ok := gs.(*State)
	if !ok {
		return nil, game.ErrWrongGameState
	}
	switch s.phase {
	case PhaseBetting:
		return m.applyBetting(s, a, actorID)
	case PhasePlayerTurn:
		return m.applyPlayerTurn(s, a, actorID)
	case PhaseDealerTurn:
		if a.Kind != game.ActionAdvance {
			return nil, game.ErrWrongPhase
		}
		return m.applyDealerTurn(s)
	default:
		return nil, game.ErrGameOver
	}
}

func (m Machine) applyBetting(s *State, a game.Action, actorID string) (game.State, error) {
	if actorID != s.ActorID() {
		return nil, game.ErrNotYourTurn
	}
	next := s.clone()
	p := &next.players[next.turn]
	switch a.Kind {
	case ActionBet:
		if a.Amount < next.minBet || (next.maxBet > 0 && a.Amount > next.maxBet) {
			return nil, game.ErrInvalidAction
		}
		p.bet = a.Amount
	case ActionSitOut:
		p.SatOut = true
	default:
		return nil, game.ErrInvalidAction
	}
	next.turn++
	if next.turn >= len(next.players) {
		return m.deal(next)
	}
	return next, nil
}

// deal runs once all bets are in: shuffle, two cards per live player,
// dealer up-card plus hole card, then the first player acts.
func (m Machine) deal(s *State) (game.State, error) {
	live := 0
	for _, p := range s.players {
		if !p.SatOut {
			live++
		}
	}
	if live == 0 {
		s.phase = PhaseRoundEnd
		s.payouts = map[string]int64{}
		s.wagered = map[string]int64{}
		return s, nil
	}
	s.shoe = deck.NewShuffled(m.RNG)
	for i := range s.players {
		if s.players[i].SatOut {
			continue
		}
		s.players[i].Hands = []Hand{{
			Cards: []deck.Card{s.shoe.Deal(), s.shoe.Deal()},
			Bet:   s.players[i].bet,
		}}
	}
	s.dealer = []deck.Card{s.shoe.Deal(), s.shoe.Deal()}
	s.phase = PhasePlayerTurn
	s.turn = -1
	s.handIdx = 0
	s.nextActor()
	return s, nil
}

func (m Machine) applyPlayerTurn(s *State, a game.Action, actorID string) (game.State, error) {
	if actorID != s.ActorID() {
		return nil, game.ErrNotYourTurn
	}
	next := s.clone()
	p := &next.players[next.turn]
	h := &p.Hands[next.handIdx]

	switch a.Kind {
	case ActionHit:
		h.Cards = append(h.Cards, next.shoe.Deal())
		if h.Busted() || Value(h.Cards) == 21 {
			next.advanceHand()
		}
	case ActionStand:
		h.Stood = true
		next.advanceHand()
	case ActionDouble:
		if !h.untouched() {
			return nil, game.ErrInvalidAction
		}
		h.Bet *= 2
		h.Doubled = true
		h.Cards = append(h.Cards, next.shoe.Deal())
		next.advanceHand()
	case ActionSurrender:
		if !h.untouched() || h.FromSplit {
			return nil, game.ErrInvalidAction
		}
		h.Surrendered = true
		next.advanceHand()
	case ActionSplit:
		if len(p.Hands) != 1 || len(h.Cards) != 2 || h.Cards[0].Rank != h.Cards[1].Rank {
			return nil, game.ErrInvalidAction
		}
		second := Hand{Cards: []deck.Card{h.Cards[1], next.shoe.Deal()}, Bet: h.Bet, FromSplit: true}
		h.Cards = []deck.Card{h.Cards[0], next.shoe.Deal()}
		h.FromSplit = true
		p.Hands = append(p.Hands, second)
	case ActionInsurance:
		if s.dealer[0].Rank != deck.Ace || len(h.Cards) != 2 || p.Insurance > 0 {
			return nil, game.ErrInvalidAction
		}
		p.Insurance = h.Bet / 2
	default:
		return nil, game.ErrInvalidAction
	}
	return next, nil
}

// advanceHand moves to the player's next split hand or the next player;
// after the last live hand the dealer phase begins.
func (s *State) advanceHand() {
	p := &s.players[s.turn]
	if s.handIdx+1 < len(p.Hands) {
		s.handIdx++
		return
	}
	s.nextActor()
}

func (s *State) nextActor() {
	s.handIdx = 0
	for {
		s.turn++
		if s.turn >= len(s.players) {
			s.phase = PhaseDealerTurn
			return
		}
		if !s.players[s.turn].SatOut {
			return
		}
	}
}

// applyDealerTurn reveals the hole card, draws to 17, and settles.
func (m Machine) applyDealerTurn(s *State) (game.State, error) {
	next := s.clone()
	for Value(next.dealer) < 17 {
		next.dealer = append(next.dealer, next.shoe.Deal())
	}
	next.settle()
	return next, nil
}

func (s *State) settle() {
	dealerValue := Value(s.dealer)
	dealerBust := dealerValue > 21
	dealerNatural := len(s.dealer) == 2 && dealerValue == 21

	s.payouts = map[string]int64{}
	s.wagered = map[string]int64{}
	for _, p := range s.players {
		if p.SatOut {
			continue
		}
		var wagered, payout int64
		for _, h := range p.Hands {
			wagered += h.Bet
			switch {
			case h.Surrendered:
				payout += h.Bet / 2
			case h.Busted():
				// stake lost
			case h.Natural() && !dealerNatural:
				payout += h.Bet + h.Bet*3/2
			case dealerBust || Value(h.Cards) > dealerValue:
				payout += h.Bet * 2
			case Value(h.Cards) == dealerValue:
				payout += h.Bet
			}
		}
		if p.Insurance > 0 {
			wagered += p.Insurance
			if dealerNatural {
				payout += p.Insurance * 3
			}
		}
		s.wagered[p.UserID] = wagered
		s.payouts[p.UserID] = payout
	}
	s.phase = PhaseRoundEnd
}

// Value scores a hand with soft/hard aces: each ace counts 11 unless
// that busts the hand, then 1.
func Value(cards []deck.Card) int {
	total := 0
	aces := 0
	for _, c := range cards {
		v := c.BlackjackValue()
		if c.Rank == deck.Ace {
			aces++
		}
		total += v
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}
