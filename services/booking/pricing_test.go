package booking

import (
	"testing"

	"bookify/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateFeesRegistered(t *testing.T) {
	price := models.Money{Amount: 10000, Currency: "USD"}
	fees, err := CalculateFees(price, false)
	require.NoError(t, err)

	assert.Equal(t, int64(10000), fees.TotalAmount.Amount)
	assert.Equal(t, int64(1000), fees.PlatformFee.Amount)
	assert.Equal(t, int64(9000), fees.ProviderPayout.Amount)
}

func TestCalculateFeesRounding(t *testing.T) {
	price := models.Money{Amount: 9999, Currency: "USD"}
	fees, err := CalculateFees(price, false)
	require.NoError(t, err)

	// 999.9 rounds half-up to 1000; payout absorbs the difference.
	assert.Equal(t, int64(1000), fees.PlatformFee.Amount)
	assert.Equal(t, int64(8999), fees.ProviderPayout.Amount)
	assert.Equal(t, int64(9999), fees.TotalAmount.Amount)
}

func TestCalculateFeesGuest(t *testing.T) {
	price := models.Money{Amount: 10000, Currency: "USD"}
	fees, err := CalculateFees(price, true)
	require.NoError(t, err)

	// The surcharge lands on the customer total and the platform fee; the
	// provider payout is identical to the registered case.
	assert.Equal(t, int64(11000), fees.TotalAmount.Amount)
	assert.Equal(t, int64(2000), fees.PlatformFee.Amount)
	assert.Equal(t, int64(9000), fees.ProviderPayout.Amount)
}

func TestCalculateFeesSplitInvariant(t *testing.T) {
	amounts := []int64{1, 3, 7, 99, 101, 9999, 10000, 12345, 1000001, 999999999}
	for _, amount := range amounts {
		for _, guest := range []bool{false, true} {
			price := models.Money{Amount: amount, Currency: "USD"}
			fees, err := CalculateFees(price, guest)
			require.NoError(t, err, "amount=%d guest=%v", amount, guest)

			sum, err := fees.PlatformFee.Add(fees.ProviderPayout)
			require.NoError(t, err)
			assert.True(t, sum.Equals(fees.TotalAmount),
				"split broken for amount=%d guest=%v: %v + %v != %v",
				amount, guest, fees.PlatformFee, fees.ProviderPayout, fees.TotalAmount)
		}
	}
}

func TestCalculateFeesPreservesCurrency(t *testing.T) {
	price := models.Money{Amount: 5000, Currency: "KES"}
	fees, err := CalculateFees(price, true)
	require.NoError(t, err)
	assert.Equal(t, "KES", fees.TotalAmount.Currency)
	assert.Equal(t, "KES", fees.PlatformFee.Currency)
	assert.Equal(t, "KES", fees.ProviderPayout.Currency)
}
