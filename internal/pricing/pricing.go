// Package pricing holds the cart money math. Everything here is pure;
// persistence of the results belongs to the cart and order handlers.
package pricing

import (
	"math"
	"time"

	"storeapi/internal/models"
)

// Total is the cart invariant: the sum of quantity*price over all lines.
// It is always recomputed from scratch, never incrementally.
func Total(items []models.CartItem) float64 {
	total := 0.0
	for _, item := range items {
		total += float64(item.Quantity) * item.Price
	}
	return total
}

// Discount applies a percentage discount to a base total, rounded to
// two decimal places. The base total itself stays untouched.
func Discount(total, percent float64) float64 {
	discounted := total - total*percent/100
	return math.Round(discounted*100) / 100
}

// CouponValid reports whether a coupon is still usable at the given
// instant.
func CouponValid(coupon models.Coupon, now time.Time) bool {
	return coupon.Expire.After(now)
}
