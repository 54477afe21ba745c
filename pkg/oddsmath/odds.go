// Package oddsmath converts between odds formats and derives fair probabilities and EV.
package oddsmath

import (
	"fmt"
	"math"
)

// FairOdds is a vig-free probability with its decimal odds.
type FairOdds struct {
	Probability float64
	DecimalOdds float64
}

// Clamp limits value to [min, max].
func Clamp(value, min, max float64) float64 {
	return math.Max(min, math.Min(value, max))
}

// ClampUnit limits value to [0, 1].
func ClampUnit(value float64) float64 {
	return Clamp(value, 0, 1)
}

// AmericanToDecimal converts American odds to decimal odds.
// American +150 → Decimal 2.50
// American -150 → Decimal 1.67
func AmericanToDecimal(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("invalid American odds: cannot be 0")
	}

	if american > 0 {
		return 1.0 + float64(american)/100.0, nil
	}

	return 1.0 + 100.0/float64(-american), nil
}

// DecimalToAmerican converts decimal odds to American odds, rounded to the nearest integer.
// Decimal 2.50 → American +150
// Decimal 1.67 → American -149
func DecimalToAmerican(decimal float64) (int, error) {
	if decimal <= 1.0 {
		return 0, fmt.Errorf("invalid decimal odds: must be > 1.0, got %f", decimal)
	}

	if decimal >= 2.0 {
		return int(math.Round((decimal - 1.0) * 100.0)), nil
	}

	return int(math.Round(-100.0 / (decimal - 1.0))), nil
}

// ImpliedProbabilityFromDecimal converts decimal odds to implied probability.
func ImpliedProbabilityFromDecimal(decimal float64) (float64, error) {
	if decimal <= 1.0 {
		return 0, fmt.Errorf("invalid decimal odds: must be > 1.0, got %f", decimal)
	}

	return 1.0 / decimal, nil
}

// ImpliedProbabilityFromAmerican converts American odds directly to implied probability.
func ImpliedProbabilityFromAmerican(american int) (float64, error) {
	decimal, err := AmericanToDecimal(american)
	if err != nil {
		return 0, err
	}

	return ImpliedProbabilityFromDecimal(decimal)
}

// RemoveVigTwoOutcomes normalizes a two-way pair of implied probabilities so they sum to 1.
//
// Example:
// Side A: -110 (52.38% implied) | Side B: -110 (52.38% implied)
// Fair: 50% / 50%
func RemoveVigTwoOutcomes(probA, probB float64) (fairA, fairB float64, err error) {
	total := probA + probB
	if total <= 0 {
		return 0, 0, fmt.Errorf("sum of implied probabilities must be > 0, got %f", total)
	}

	return probA / total, probB / total, nil
}

// FairOddsFromProbability returns decimal odds 1/p for a clamped probability.
// A zero probability yields infinite decimal odds.
func FairOddsFromProbability(prob float64) FairOdds {
	p := ClampUnit(prob)
	if p == 0 {
		return FairOdds{Probability: 0, DecimalOdds: math.Inf(1)}
	}
	return FairOdds{Probability: p, DecimalOdds: 1.0 / p}
}

// ExpectedValueForOneUnit returns the expected profit of staking one unit at decimal odds
// when the true win probability is trueProb.
func ExpectedValueForOneUnit(trueProb, decimal float64) (float64, error) {
	if decimal <= 1.0 {
		return 0, fmt.Errorf("invalid decimal odds: must be > 1.0, got %f", decimal)
	}

	p := ClampUnit(trueProb)
	payout := decimal - 1.0
	return p*payout - (1.0 - p), nil
}

// EdgePercentage returns (pTrue - pMarket) / pMarket * 100, guarding a zero market price.
func EdgePercentage(pTrue, pMarket float64) float64 {
	pm := math.Max(1e-9, pMarket)
	return (pTrue - pm) / pm * 100.0
}

// ApplyFeeToProbability discounts an implied probability by a fee fraction.
// The fee is clamped to [0, 1] and the result to [0, 1].
func ApplyFeeToProbability(prob, fee float64) float64 {
	return ClampUnit(prob * (1.0 - ClampUnit(fee)))
}

// BetterAmericanPrice reports whether candidate should replace current as the best quote
// for one side. Between two negatives the smaller magnitude wins, between two positives the
// smaller wins, and a positive quote always beats a negative one.
func BetterAmericanPrice(candidate, current int) bool {
	switch {
	case candidate < 0 && current < 0:
		return -candidate < -current
	case candidate > 0 && current > 0:
		return candidate < current
	case candidate > 0 && current < 0:
		return true
	default:
		return false
	}
}
