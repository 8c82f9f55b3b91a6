package handlers

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storeapi/internal/models"
)

func TestOrderTotalWithoutDiscount(t *testing.T) {
	cart := models.Cart{
		Items: []models.CartItem{
			{Quantity: 2, Price: 10},
			{Quantity: 1, Price: 5},
		},
		TotalPrice: 25,
	}

	if got := orderTotal(cart); got != 25 {
		t.Fatalf("expected order total 25, got %v", got)
	}
}

func TestOrderTotalPrefersDiscountedPrice(t *testing.T) {
	discounted := 20.0
	cart := models.Cart{
		TotalPrice:              25,
		TotalPriceAfterDiscount: &discounted,
	}

	if got := orderTotal(cart); got != 20 {
		t.Fatalf("expected discounted total 20, got %v", got)
	}
}

func TestStockAdjustments(t *testing.T) {
	product := primitive.NewObjectID()
	items := []models.CartItem{{Product: product, Quantity: 3}}

	writes := stockAdjustments(items)
	if len(writes) != 1 {
		t.Fatalf("expected one write model, got %d", len(writes))
	}

	update, ok := writes[0].(*mongo.UpdateOneModel)
	if !ok {
		t.Fatalf("expected UpdateOneModel, got %T", writes[0])
	}

	filter := update.Filter.(bson.M)
	if filter["_id"] != product {
		t.Fatalf("expected filter on product id, got %#v", filter)
	}

	inc := update.Update.(bson.M)["$inc"].(bson.M)
	if inc["quantity"] != -3 {
		t.Fatalf("expected stock decrement of 3, got %#v", inc["quantity"])
	}
	if inc["sold"] != 3 {
		t.Fatalf("expected sold increment of 3, got %#v", inc["sold"])
	}
}

func TestStockAdjustmentsGuardAgainstUnderflow(t *testing.T) {
	items := []models.CartItem{
		{Product: primitive.NewObjectID(), Quantity: 2},
		{Product: primitive.NewObjectID(), Quantity: 5},
	}

	for i, write := range stockAdjustments(items) {
		filter := write.(*mongo.UpdateOneModel).Filter.(bson.M)
		guard, ok := filter["quantity"].(bson.M)
		if !ok {
			t.Fatalf("line %d: expected stock guard on quantity, got %#v", i, filter)
		}
		if guard["$gte"] != items[i].Quantity {
			t.Fatalf("line %d: expected $gte %d guard, got %#v", i, items[i].Quantity, guard)
		}
	}
}

func TestCheckoutAmountSmallestUnit(t *testing.T) {
	if got := checkoutAmount(25); got != 2500 {
		t.Fatalf("expected 2500, got %d", got)
	}
	if got := checkoutAmount(84.99); got != 8499 {
		t.Fatalf("expected 8499, got %d", got)
	}
}
