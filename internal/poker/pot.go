package poker

import "sort"

// Contribution is one player's cumulative wager for the current hand.
type Contribution struct {
	UserID string
	Amount int64
	Folded bool
}

// Pot is a main or side pot. Eligible preserves the order in which the
// contributing players were supplied; payout remainders follow it.
type Pot struct {
	Amount   int64
	Eligible []string
}

// CalculateSidePots partitions contributions into a main pot and side
// pots, one per distinct all-in level. Folded players' chips stay in
// the pot amounts but folded players are never eligible to win.
// The sum of all pot amounts always equals the sum of all contributions.
func CalculateSidePots(contribs []Contribution) []Pot {
	levels := make([]int64, 0, len(contribs))
	seen := map[int64]bool{}
	for _, c := range contribs {
		if c.Amount > 0 && !seen[c.Amount] {
			seen[c.Amount] = true
			levels = append(levels, c.Amount)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]Pot, 0, len(levels))
	var prev int64
	for _, level := range levels {
		pot := Pot{}
		for _, c := range contribs {
			if c.Amount >= level {
				pot.Amount += level - prev
				if !c.Folded {
					pot.Eligible = append(pot.Eligible, c.UserID)
				}
			}
		}
		if pot.Amount > 0 {
			pots = append(pots, pot)
		}
		prev = level
	}
	return pots
}

// DistributePots pays each pot to its best-ranked eligible players.
// Ties split evenly, truncating toward zero; the remainder is handed
// out one unit at a time in the pot's eligible order. A pot with a
// single eligible player pays in full without a ranking lookup.
func DistributePots(pots []Pot, rankings map[string]HandRank) map[string]int64 {
	payouts := map[string]int64{}
	for _, pot := range pots {
		if len(pot.Eligible) == 0 {
			continue
		}
		if len(pot.Eligible) == 1 {
			payouts[pot.Eligible[0]] += pot.Amount
			continue
		}
		winners := potWinners(pot.Eligible, rankings)
		if len(winners) == 0 {
			continue
		}
		share := pot.Amount / int64(len(winners))
		remainder := pot.Amount - share*int64(len(winners))
		for _, w := range winners {
			payouts[w] += share
			if remainder > 0 {
				payouts[w]++
				remainder--
			}
		}
	}
	return payouts
}

func potWinners(eligible []string, rankings map[string]HandRank) []string {
	var best HandRank
	found := false
	for _, id := range eligible {
		r, ok := rankings[id]
		if !ok {
			continue
		}
		if !found || r.Beats(best) {
			best = r
			found = true
		}
	}
	if !found {
		return nil
	}
	winners := make([]string, 0, len(eligible))
	for _, id := range eligible {
		if r, ok := rankings[id]; ok && r.Equals(best) {
			winners = append(winners, id)
		}
	}
	return winners
}

// TotalPot sums pot amounts; used by settlement and invariant checks.
func TotalPot(pots []Pot) int64 {
	var total int64
	for _, p := range pots {
		total += p.Amount
	}
	return total
}
