package analytics

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Growth returns (current - prior) / prior * 100 rounded to two decimals.
// Without a positive baseline there is no meaningful rate and it returns 0.
func Growth(current, prior decimal.Decimal) decimal.Decimal {
	if !prior.IsPositive() {
		return decimal.Zero
	}
	return current.Sub(prior).Mul(hundred).DivRound(prior, 2)
}

// GrowthCount is Growth for counters.
func GrowthCount(current, prior int) decimal.Decimal {
	return Growth(decimal.NewFromInt(int64(current)), decimal.NewFromInt(int64(prior)))
}
