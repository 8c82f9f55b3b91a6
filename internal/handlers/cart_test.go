package handlers

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storeapi/internal/models"
)

func TestItemIndexMatchesProductAndColor(t *testing.T) {
	productA := primitive.NewObjectID()
	productB := primitive.NewObjectID()
	items := []models.CartItem{
		{ID: primitive.NewObjectID(), Product: productA, Color: "red", Quantity: 1, Price: 10},
		{ID: primitive.NewObjectID(), Product: productB, Color: "blue", Quantity: 2, Price: 5},
	}

	if got := itemIndex(items, productA, "red"); got != 0 {
		t.Fatalf("expected existing (product, color) line at 0, got %d", got)
	}
	if got := itemIndex(items, productA, "blue"); got != -1 {
		t.Fatalf("expected different color to miss, got %d", got)
	}
	if got := itemIndex(items, primitive.NewObjectID(), "red"); got != -1 {
		t.Fatalf("expected unknown product to miss, got %d", got)
	}
}

func TestRecalcCartClearsStaleDiscount(t *testing.T) {
	discounted := 18.0
	cart := models.Cart{
		Items: []models.CartItem{
			{Quantity: 2, Price: 10},
			{Quantity: 1, Price: 5},
		},
		TotalPrice:              20,
		TotalPriceAfterDiscount: &discounted,
	}

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	recalcCart(&cart, now)

	if cart.TotalPrice != 25 {
		t.Fatalf("expected total recomputed to 25, got %v", cart.TotalPrice)
	}
	if cart.TotalPriceAfterDiscount != nil {
		t.Fatalf("expected discounted total cleared, got %v", *cart.TotalPriceAfterDiscount)
	}
	if !cart.UpdatedAt.Equal(now) {
		t.Fatalf("expected updatedAt stamped, got %v", cart.UpdatedAt)
	}
}

func TestRecalcCartEmptyCart(t *testing.T) {
	discounted := 9.5
	cart := models.Cart{
		Items:                   []models.CartItem{},
		TotalPrice:              10,
		TotalPriceAfterDiscount: &discounted,
	}

	recalcCart(&cart, time.Now())

	if cart.TotalPrice != 0 {
		t.Fatalf("expected empty cart total 0, got %v", cart.TotalPrice)
	}
	if cart.TotalPriceAfterDiscount != nil {
		t.Fatalf("expected discounted total cleared, got %v", *cart.TotalPriceAfterDiscount)
	}
}

func TestItemIndexByID(t *testing.T) {
	target := primitive.NewObjectID()
	items := []models.CartItem{
		{ID: primitive.NewObjectID()},
		{ID: target},
	}

	if got := itemIndexByID(items, target); got != 1 {
		t.Fatalf("expected index 1, got %d", got)
	}
	if got := itemIndexByID(items, primitive.NewObjectID()); got != -1 {
		t.Fatalf("expected unknown id to miss, got %d", got)
	}
}
