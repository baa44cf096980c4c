// Package money holds the integer minor-unit amount used for every persisted
// monetary value. Conversions between minor units and display units happen
// only inside this package.
package money

import "github.com/shopspring/decimal"

// Money is an amount expressed in minor currency units (kobo, cents).
type Money int64

// Zero is the zero amount.
const Zero Money = 0

// FromMinor wraps a raw minor-unit count.
func FromMinor(v int64) Money {
	return Money(v)
}

// Minor returns the raw minor-unit count.
func (m Money) Minor() int64 {
	return int64(m)
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return m + o
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return m - o
}

// Neg returns -m.
func (m Money) Neg() Money {
	return -m
}

// Abs returns the absolute amount.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m == 0
}

// Decimal returns the amount in display units for the given minor-unit scale.
func (m Money) Decimal(scale int) decimal.Decimal {
	return decimal.New(int64(m), -int32(scale))
}

// Max returns the larger of a and b.
func Max(a, b Money) Money {
	if a > b {
		return a
	}
	return b
}

// Sum adds all values.
func Sum(values ...Money) Money {
	var total Money
	for _, v := range values {
		total += v
	}
	return total
}

// FromDecimal rounds a display-unit decimal (half away from zero) into minor units.
func FromDecimal(d decimal.Decimal, scale int) Money {
	return Money(d.Shift(int32(scale)).Round(0).IntPart())
}
