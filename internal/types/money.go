// README: Common money value object used across modules.
package types

import (
	"fmt"
	"math"
)

// Money is an amount in minor currency units (paise for INR).
type Money struct {
	Amount   int64
	Currency string
}

const DefaultCurrency = "INR"

// MajorUnits returns the amount as a decimal in major units.
func (m Money) MajorUnits() float64 {
	return float64(m.Amount) / 100
}

func (m Money) String() string {
	cur := m.Currency
	if cur == "" {
		cur = DefaultCurrency
	}
	return fmt.Sprintf("%s %.2f", cur, m.MajorUnits())
}

// FromMajor converts a whole or fractional major-unit value into minor units.
func FromMajor(v float64) int64 {
	return int64(math.Round(v * 100))
}

// RateToBasisPoints converts a fractional rate such as 0.15 into 1500.
func RateToBasisPoints(rate float64) int64 {
	return int64(math.Round(rate * 10000))
}

// ApplyBasisPoints returns amount*bps/10000 rounded half away from zero.
func ApplyBasisPoints(amount, bps int64) int64 {
	n := amount * bps
	if n >= 0 {
		return (n + 5000) / 10000
	}
	return (n - 5000) / 10000
}
