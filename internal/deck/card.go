package deck

type Suit int

type Rank int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

var rankNames = map[Rank]string{
	Two: "2", Three: "3", Four: "4", Five: "5", Six: "6", Seven: "7",
	Eight: "8", Nine: "9", Ten: "T", Jack: "J", Queen: "Q", King: "K", Ace: "A",
}

var suitNames = map[Suit]string{Spades: "s", Hearts: "h", Diamonds: "d", Clubs: "c"}

func (c Card) String() string {
	return rankNames[c.Rank] + suitNames[c.Suit]
}

// BlackjackValue returns the hard value of a single card: face cards 10, ace 11.
// Soft/hard hand totals are computed over whole hands, not single cards.
func (c Card) BlackjackValue() int {
	switch {
	case c.Rank >= Ten:
		if c.Rank == Ace {
			return 11
		}
		return 10
	default:
		return int(c.Rank)
	}
}
