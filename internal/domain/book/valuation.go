package book

import "math"

// Suggested-value formula. The output is advisory only: listings keep their
// flat condition value, so the cost snapshot an in-flight exchange took at
// creation never drifts under demand swings.

// DemandScore weighs interest in a book: each wishlist entry 0.5, each
// unresolved exchange request 2.0, each completed exchange 0.2. Normalized
// into [0, 1] with a cap at 20 raw points.
func DemandScore(wishlist, pending, completed int) float64 {
	score := float64(wishlist)*0.5 + float64(pending)*2.0 + float64(completed)*0.2
	if score >= 20 {
		return 1
	}
	return score / 20
}

// RarityScore is the inverse of the number of available copies of the same
// title and author: one copy scores 1.0, two 0.5, and so on.
func RarityScore(copies int) float64 {
	if copies < 1 {
		copies = 1
	}
	return 1.0 / float64(copies)
}

// SuggestedValue applies the condition multiplier to the base value, then up
// to a 50% bonus each for demand and rarity. Never below 1.
func SuggestedValue(condition Condition, demand, rarity float64) int {
	base := float64(condition.PointValue()) * condition.Multiplier()
	value := base * (1.0 + 0.5*demand + 0.5*rarity)

	n := int(math.Round(value))
	if n < 1 {
		n = 1
	}
	return n
}
