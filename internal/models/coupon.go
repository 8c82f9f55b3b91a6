package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coupon is a named, time-bounded percentage discount. A coupon is
// usable while Expire is still in the future.
type Coupon struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name" binding:"required"`
	Expire    time.Time          `bson:"expire" json:"expire" binding:"required"`
	Discount  float64            `bson:"discount" json:"discount" binding:"required,gt=0,lte=100"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
