package pricing

import (
	"testing"
	"time"

	"storeapi/internal/models"
)

func TestTotal(t *testing.T) {
	items := []models.CartItem{
		{Quantity: 2, Price: 10},
		{Quantity: 1, Price: 5},
	}
	if got := Total(items); got != 25 {
		t.Fatalf("expected total 25, got %v", got)
	}
}

func TestTotalEmptyCart(t *testing.T) {
	if got := Total(nil); got != 0 {
		t.Fatalf("expected 0 for empty cart, got %v", got)
	}
	if got := Total([]models.CartItem{}); got != 0 {
		t.Fatalf("expected 0 for cleared cart, got %v", got)
	}
}

func TestDiscount(t *testing.T) {
	tests := []struct {
		total   float64
		percent float64
		want    float64
	}{
		{100, 10, 90},
		{25, 0, 25},
		{99.99, 15, 84.99},
		{33.33, 33, 22.33},
	}
	for _, tt := range tests {
		if got := Discount(tt.total, tt.percent); got != tt.want {
			t.Fatalf("Discount(%v, %v) = %v, want %v", tt.total, tt.percent, got, tt.want)
		}
	}
}

func TestCouponValid(t *testing.T) {
	now := time.Now()

	active := models.Coupon{Expire: now.Add(time.Hour)}
	if !CouponValid(active, now) {
		t.Fatal("expected future coupon to be valid")
	}

	expired := models.Coupon{Expire: now.Add(-time.Minute)}
	if CouponValid(expired, now) {
		t.Fatal("expected past coupon to be invalid")
	}
}
