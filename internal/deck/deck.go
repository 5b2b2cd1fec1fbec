package deck

import "game-parlor/internal/rng"

type Deck struct {
	cards []Card
}

// New builds an ordered 52-card deck.
func New() *Deck {
	cards := make([]Card, 0, 52)
	for s := Spades; s <= Clubs; s++ {
		for r := Two; r <= Ace; r++ {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	return &Deck{cards: cards}
}

// NewShuffled builds a deck and shuffles it with src.
func NewShuffled(src rng.Source) *Deck {
	d := New()
	d.Shuffle(src)
	return d
}

func (d *Deck) Shuffle(src rng.Source) {
	rng.Shuffle(src, len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

func (d *Deck) Deal() Card {
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c
}

func (d *Deck) DealN(n int) []Card {
	out := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, d.Deal())
	}
	return out
}

func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Clone copies the deck so state machines can replace state without
// mutating the previous snapshot's deal order.
func (d *Deck) Clone() *Deck {
	cards := make([]Card, len(d.cards))
	copy(cards, d.cards)
	return &Deck{cards: cards}
}
