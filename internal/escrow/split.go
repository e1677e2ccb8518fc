package escrow

import "math"

// Split divides totalAmount between platform and seller at the given
// commission rate. The platform share rounds half-up to a whole minor unit
// and the seller share is computed by subtraction, so the two always sum
// exactly to totalAmount with no rounding leakage.
func Split(totalAmount int64, rate float64) (platformShare, sellerShare int64, err error) {
	if totalAmount <= 0 {
		return 0, 0, ErrInvalidAmount
	}
	if rate <= 0 || rate >= 1 {
		return 0, 0, ErrInvalidRate
	}
	platformShare = int64(math.Floor(float64(totalAmount)*rate + 0.5))
	sellerShare = totalAmount - platformShare
	return platformShare, sellerShare, nil
}
