package utils

import (
	"github.com/shopspring/decimal"
)

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

// RoundMoney finalizes a monetary amount to 2 decimal places using
// banker's rounding (round half to even). Intermediate accumulation
// stays unrounded; call this only when a line amount is finalized.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

func DecimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
