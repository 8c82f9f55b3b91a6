package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem is one line in a cart. Price is the unit price captured when
// the line was added; later product price changes do not touch it.
type CartItem struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Quantity int                `bson:"quantity" json:"quantity"`
	Color    string             `bson:"color,omitempty" json:"color,omitempty"`
	Price    float64            `bson:"price" json:"price"`
}

// Cart holds a user's pending items. TotalPrice is always the sum of
// quantity*price over Items; TotalPriceAfterDiscount is present only
// while a coupon result is valid and is cleared on any item mutation.
// Version backs the optimistic concurrency check on cart writes.
type Cart struct {
	ID                      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User                    primitive.ObjectID `bson:"user" json:"user"`
	Items                   []CartItem         `bson:"cartItems" json:"cartItems"`
	TotalPrice              float64            `bson:"totalCartPrice" json:"totalCartPrice"`
	TotalPriceAfterDiscount *float64           `bson:"totalCartPriceAfterDiscount,omitempty" json:"totalCartPriceAfterDiscount,omitempty"`
	Version                 int64              `bson:"version" json:"-"`
	CreatedAt               time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt               time.Time          `bson:"updatedAt" json:"updatedAt"`
}
