package kniffel

type Category string

const (
	Ones          Category = "ones"
	Twos          Category = "twos"
	Threes        Category = "threes"
	Fours         Category = "fours"
	Fives         Category = "fives"
	Sixes         Category = "sixes"
	ThreeOfAKind  Category = "three_of_a_kind"
	FourOfAKind   Category = "four_of_a_kind"
	FullHouse     Category = "full_house"
	SmallStraight Category = "small_straight"
	LargeStraight Category = "large_straight"
	Kniffel       Category = "kniffel"
	Chance        Category = "chance"
)

// Categories lists every category in sheet order.
var Categories = []Category{
	Ones, Twos, Threes, Fours, Fives, Sixes,
	ThreeOfAKind, FourOfAKind, FullHouse, SmallStraight, LargeStraight, Kniffel, Chance,
}

var upperCategories = map[Category]int{
	Ones: 1, Twos: 2, Threes: 3, Fours: 4, Fives: 5, Sixes: 6,
}

const (
	fullHouseScore     = 25
	smallStraightScore = 30
	largeStraightScore = 40
	kniffelScore       = 50
	upperBonusNeed     = 63
	upperBonus         = 35
)

func validCategory(c Category) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

// Score rates dice against a category. A roll that does not qualify
// scores zero (a scratch).
func Score(cat Category, dice [5]int) int {
	counts := [7]int{}
	sum := 0
	for _, d := range dice {
		counts[d]++
		sum += d
	}

	if face, ok := upperCategories[cat]; ok {
		return counts[face] * face
	}

	switch cat {
	case ThreeOfAKind:
		if maxCount(counts) >= 3 {
			return sum
		}
	case FourOfAKind:
		if maxCount(counts) >= 4 {
			return sum
		}
	case FullHouse:
		hasThree, hasPair := false, false
		for _, c := range counts {
			if c == 3 {
				hasThree = true
			}
			if c == 2 {
				hasPair = true
			}
			if c == 5 {
				// Five of a kind counts as a full house too.
				hasThree, hasPair = true, true
			}
		}
		if hasThree && hasPair {
			return fullHouseScore
		}
	case SmallStraight:
		if hasRun(counts, 4) {
			return smallStraightScore
		}
	case LargeStraight:
		if hasRun(counts, 5) {
			return largeStraightScore
		}
	case Kniffel:
		if maxCount(counts) == 5 {
			return kniffelScore
		}
	case Chance:
		return sum
	}
	return 0
}

// jokerScore is the fixed value a joker claim awards regardless of dice.
func jokerScore(cat Category) int {
	if face, ok := upperCategories[cat]; ok {
		return face * 5
	}
	switch cat {
	case FullHouse:
		return fullHouseScore
	case SmallStraight:
		return smallStraightScore
	case LargeStraight:
		return largeStraightScore
	case Kniffel:
		return kniffelScore
	default:
		// Of-a-kind and chance jokers award the maximum roll.
		return 30
	}
}

func maxCount(counts [7]int) int {
	best := 0
	for face := 1; face <= 6; face++ {
		if counts[face] > best {
			best = counts[face]
		}
	}
	return best
}

func hasRun(counts [7]int, need int) bool {
	run := 0
	for face := 1; face <= 6; face++ {
		if counts[face] > 0 {
			run++
			if run >= need {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// Sheet records claimed categories for one scoring column. Values are
// stored post-multiplier.
type Sheet map[Category]int

func (sh Sheet) Claimed(cat Category) bool {
	_, ok := sh[cat]
	return ok
}

func (sh Sheet) Set(cat Category, score int) {
	sh[cat] = score
}

func (sh Sheet) clone() Sheet {
	cp := make(Sheet, len(sh))
	for k, v := range sh {
		cp[k] = v
	}
	return cp
}

// UpperSum is the raw upper-section sum, un-multiplied, used for the
// bonus threshold check.
func (sh Sheet) UpperSum(multiplier int) int {
	sum := 0
	for cat := range upperCategories {
		if v, ok := sh[cat]; ok {
			if multiplier > 0 {
				sum += v / multiplier
			}
		}
	}
	return sum
}

// Total sums the sheet including the upper bonus when the un-multiplied
// upper section reaches the threshold.
func (sh Sheet) Total(multiplier int) int {
	total := 0
	for _, v := range sh {
		total += v
	}
	if sh.UpperSum(multiplier) >= upperBonusNeed {
		total += upperBonus * multiplier
	}
	return total
}
