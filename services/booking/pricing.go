package booking

import (
	"bookify/models"
)

// Platform economics, in basis points of the service price. Guests pay a
// surcharge on top of the price; the provider payout is guest-independent,
// so the customer bears the entire surcharge.
const (
	PlatformFeeBasisPoints    = 1000 // 10%
	GuestSurchargeBasisPoints = 1000 // 10%, guests only
)

// CalculateFees maps (service price, caller-is-guest) to the exact money
// split. Rounding is half-up on minor units and the split invariant
// providerPayout + platformFee == totalAmount holds for every input.
func CalculateFees(servicePrice models.Money, isGuest bool) (models.FeeBreakdown, error) {
	baseFee, err := servicePrice.MulBasisPoints(PlatformFeeBasisPoints)
	if err != nil {
		return models.FeeBreakdown{}, err
	}
	payout, err := servicePrice.Sub(baseFee)
	if err != nil {
		return models.FeeBreakdown{}, err
	}

	total := servicePrice
	platformFee := baseFee
	if isGuest {
		surcharge, err := servicePrice.MulBasisPoints(GuestSurchargeBasisPoints)
		if err != nil {
			return models.FeeBreakdown{}, err
		}
		if total, err = total.Add(surcharge); err != nil {
			return models.FeeBreakdown{}, err
		}
		if platformFee, err = platformFee.Add(surcharge); err != nil {
			return models.FeeBreakdown{}, err
		}
	}

	return models.FeeBreakdown{
		TotalAmount:    total,
		PlatformFee:    platformFee,
		ProviderPayout: payout,
	}, nil
}
