package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PaymentMethodCard = "card"
	PaymentMethodCash = "cash"
)

// Order is the realized form of a cart. Items is a copied snapshot, not
// a live reference; the order never reflects later product or cart
// changes. Paid and delivered are independent flag+timestamp pairs.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Reference       string             `bson:"reference" json:"reference"`
	User            primitive.ObjectID `bson:"user" json:"user"`
	Items           []CartItem         `bson:"cartItems" json:"cartItems"`
	TaxPrice        float64            `bson:"taxPrice" json:"taxPrice"`
	ShippingPrice   float64            `bson:"shippingPrice" json:"shippingPrice"`
	ShippingAddress primitive.ObjectID `bson:"shippingAddress" json:"shippingAddress"`
	TotalPrice      float64            `bson:"totalPrice" json:"totalPrice"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	IsPaid          bool               `bson:"isPaid" json:"isPaid"`
	PaidAt          *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	IsDelivered     bool               `bson:"isDelivered" json:"isDelivered"`
	DeliveredAt     *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
