// Package escrow defines the lifecycle of chips removed from a wallet
// to back a bet-room stake. The store enforces the same table on every
// row update, so a concurrent writer cannot smuggle in an illegal edge.
package escrow

type Status string

const (
	// StatusPending: buy-in accepted, game not yet started. Still cancelable.
	StatusPending Status = "PENDING"
	// StatusLocked: the stake is committed to an in-progress game.
	StatusLocked Status = "LOCKED"
	// StatusReleased: funds returned to the wallet, with or without winnings.
	StatusReleased Status = "RELEASED"
	// StatusForfeited: funds permanently lost (AFK default, abandonment).
	StatusForfeited Status = "FORFEITED"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusLocked, StatusReleased},
	StatusLocked:    {StatusReleased, StatusForfeited},
	StatusReleased:  {},
	StatusForfeited: {},
}

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidTransitions returns the outgoing edges of from. Terminal states
// return an empty slice.
func ValidTransitions(from Status) []Status {
	out := make([]Status, len(transitions[from]))
	copy(out, transitions[from])
	return out
}

// Statuses returns every status in the lifecycle.
func Statuses() []Status {
	return []Status{StatusPending, StatusLocked, StatusReleased, StatusForfeited}
}

// IsTerminal reports whether a status has no outgoing edges.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}
