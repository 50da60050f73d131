// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and reais representations.
package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CurrencyCode is the ISO code every amount is expressed in.
const CurrencyCode = money.BRL

// Money is an amount in cents. It serializes as a bare JSON integer.
type Money struct {
	Cents int64
}

// Cents builds a Money value.
func Cents(c int64) Money { return Money{Cents: c} }

// Reais builds a Money value from a decimal amount, rounding half away from zero.
func Reais(v float64) Money {
	return Money{Cents: decimal.NewFromFloat(v).Shift(2).Round(0).IntPart()}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Times multiplies by a fractional quantity (square meters, litres) and
// rounds to the nearest cent.
func (m Money) Times(qty float64) Money {
	d := decimal.NewFromInt(m.Cents).Mul(decimal.NewFromFloat(qty))
	return Money{Cents: d.Round(0).IntPart()}
}

// Reais returns the value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Reais() float64 {
	return float64(m.Cents) / 100.0
}

// String renders the amount in Brazilian format, e.g. "R$1.500,00".
func (m Money) String() string {
	return money.New(m.Cents, CurrencyCode).Display()
}

// subCentTolerance absorbs binary float noise in stored doubles such as
// 0.30000000000000004.
var subCentTolerance = decimal.New(1, -6)

// MarshalJSON writes the amount as a number of reais (99.9), the format the
// stored documents use.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.New(m.Cents, -2).String()), nil
}

// UnmarshalJSON reads a number of reais. Amounts with more than two decimal
// places are rejected instead of rounded.
func (m *Money) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("money: %w", err)
	}
	if n == "" {
		m.Cents = 0
		return nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return fmt.Errorf("money: %w", err)
	}
	cents := d.Shift(2)
	whole := cents.Round(0)
	if cents.Sub(whole).Abs().GreaterThan(subCentTolerance) {
		return fmt.Errorf("money: %w: %s has more than two decimal places", ErrInvalidAmount, n)
	}
	if whole.Abs().GreaterThan(decimal.New(math.MaxInt64, 0)) {
		return fmt.Errorf("money: %w: %s is out of range", ErrInvalidAmount, n)
	}
	m.Cents = whole.IntPart()
	return nil
}

// ParseAmount converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Zero is allowed because new
// costs start at zero; negative values are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234, nil
//	ParseAmount("12,34")  -> 1234, nil
//	ParseAmount("12.345") -> 1235, nil (rounds up)
//	ParseAmount("0")      -> 0, nil
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return Money{}, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return Money{}, ErrInvalidAmount
	}
	// First two fractional digits, then half-up on the third
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return Money{Cents: iv*100 + fracCents}, nil
}
