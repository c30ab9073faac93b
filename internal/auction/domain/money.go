package domain

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the precision amounts are stored and compared with
const MoneyPlaces int32 = 2

// MaxAmount is the largest amount the NUMERIC(12,2) money columns hold
var MaxAmount = decimal.RequireFromString("9999999999.99")

const (
	maxIntegerDigits = 10
	minExponent      = -20
)

// IsMoney reports whether d has no more than two decimal places and fits under MaxAmount.
// Exponents outside the column range are refused before any rescaling.
func IsMoney(d decimal.Decimal) bool {
	if d.Exponent() < minExponent || d.NumDigits()+int(d.Exponent()) > maxIntegerDigits {
		return false
	}
	return d.Equal(d.Round(MoneyPlaces)) && d.Abs().LessThanOrEqual(MaxAmount)
}

// ValidateAmount checks a bid amount
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() || !IsMoney(d) {
		return ErrInvalidAmount
	}
	return nil
}

// ParseAmount reads an amount written as a decimal string, such as "125.50" or "1e3"
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
