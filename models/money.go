package models

import (
	"errors"
	"fmt"
	"math"
)

// Money is an exact fixed-point currency amount expressed in minor units
// (cents for USD). Arithmetic never silently truncates: rate application
// rounds half-up to the nearest minor unit and nothing else rounds.
type Money struct {
	Amount   int64  `bson:"amount" json:"amount"`     // minor units, always >= 0
	Currency string `bson:"currency" json:"currency"` // ISO-4217 code, e.g. "USD"
}

var (
	ErrNegativeAmount   = errors.New("money: amount must not be negative")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrAmountOverflow   = errors.New("money: amount overflow")
	ErrMissingCurrency  = errors.New("money: currency code required")
)

// NewMoney builds a validated Money value.
func NewMoney(amount int64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, ErrNegativeAmount
	}
	if currency == "" {
		return Money{}, ErrMissingCurrency
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: 0, Currency: currency}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive reports whether the amount is strictly positive.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// Add returns m + other, failing on currency mismatch or overflow.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	if other.Amount > math.MaxInt64-m.Amount {
		return Money{}, ErrAmountOverflow
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub returns m - other, failing on currency mismatch or a negative result.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	if other.Amount > m.Amount {
		return Money{}, ErrNegativeAmount
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// MulBasisPoints applies a rate expressed in basis points (1000 = 10%)
// rounding half-up to the nearest minor unit.
func (m Money) MulBasisPoints(bps int64) (Money, error) {
	if bps < 0 {
		return Money{}, ErrNegativeAmount
	}
	if bps != 0 && m.Amount > math.MaxInt64/bps {
		return Money{}, ErrAmountOverflow
	}
	return Money{Amount: RoundHalfUp(m.Amount*bps, 10000), Currency: m.Currency}, nil
}

// RoundHalfUp divides num by den rounding half-up. den must be positive
// and num non-negative.
func RoundHalfUp(num, den int64) int64 {
	return (num + den/2) / den
}

// Equals reports amount and currency equality.
func (m Money) Equals(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}
