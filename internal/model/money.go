package model

import "math"

// RoundCents rounds a fractional cent amount to a whole number of cents,
// half away from zero.
func RoundCents(v float64) int64 {
	return int64(math.Round(v))
}

// PercentOf returns pct percent of amount, rounded to whole cents.
func PercentOf(amount int64, pct float64) int64 {
	return RoundCents(float64(amount) * pct / 100)
}
