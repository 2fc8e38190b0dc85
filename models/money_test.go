package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(2500, "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), m.Amount)
	assert.Equal(t, "USD", m.Currency)

	_, err = NewMoney(-1, "USD")
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = NewMoney(100, "")
	assert.ErrorIs(t, err, ErrMissingCurrency)
}

func TestMoneyAdd(t *testing.T) {
	a := Money{Amount: 100, Currency: "USD"}
	b := Money{Amount: 250, Currency: "USD"}

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(350), sum.Amount)

	_, err = a.Add(Money{Amount: 10, Currency: "EUR"})
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = Money{Amount: math.MaxInt64, Currency: "USD"}.Add(Money{Amount: 1, Currency: "USD"})
	assert.ErrorIs(t, err, ErrAmountOverflow)
}

func TestMoneySub(t *testing.T) {
	a := Money{Amount: 100, Currency: "USD"}

	diff, err := a.Sub(Money{Amount: 40, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, int64(60), diff.Amount)

	_, err = a.Sub(Money{Amount: 101, Currency: "USD"})
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = a.Sub(Money{Amount: 10, Currency: "KES"})
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestRoundHalfUp(t *testing.T) {
	cases := []struct {
		num, den, want int64
	}{
		{10000000, 10000, 1000}, // 10% of 10000 exactly
		{9999000, 10000, 1000},  // 999.9 rounds up
		{9994000, 10000, 999},   // 999.4 rounds down
		{9995000, 10000, 1000},  // exactly .5 rounds up
		{0, 10000, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RoundHalfUp(tc.num, tc.den), "RoundHalfUp(%d, %d)", tc.num, tc.den)
	}
}

func TestMulBasisPoints(t *testing.T) {
	price := Money{Amount: 9999, Currency: "USD"}
	fee, err := price.MulBasisPoints(1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), fee.Amount)
	assert.Equal(t, "USD", fee.Currency)

	_, err = price.MulBasisPoints(-1)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = Money{Amount: math.MaxInt64, Currency: "USD"}.MulBasisPoints(2)
	assert.ErrorIs(t, err, ErrAmountOverflow)
}

func TestMoneyPredicates(t *testing.T) {
	assert.True(t, Zero("USD").IsZero())
	assert.False(t, Zero("USD").IsPositive())
	assert.True(t, Money{Amount: 1, Currency: "USD"}.IsPositive())
	assert.True(t, Money{Amount: 5, Currency: "USD"}.Equals(Money{Amount: 5, Currency: "USD"}))
	assert.False(t, Money{Amount: 5, Currency: "USD"}.Equals(Money{Amount: 5, Currency: "EUR"}))
	assert.Equal(t, "500 USD", Money{Amount: 500, Currency: "USD"}.String())
}
