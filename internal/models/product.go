package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is the catalog product document. Quantity is the live stock
// counter and Sold the running sales counter; both are adjusted in bulk
// when a cart becomes an order.
type Product struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title           string               `bson:"title" json:"title" binding:"required,min=3,max=255"`
	Slug            string               `bson:"slug" json:"slug"`
	Description     string               `bson:"description" json:"description" binding:"required,min=20"`
	Quantity        int                  `bson:"quantity" json:"quantity" binding:"required,min=0"`
	Sold            int                  `bson:"sold" json:"sold"`
	Price           float64              `bson:"price" json:"price" binding:"required,gt=0"`
	Discount        float64              `bson:"discount" json:"discount"`
	Colors          []string             `bson:"colors,omitempty" json:"colors,omitempty"`
	ImageCover      string               `bson:"imageCover,omitempty" json:"imageCover,omitempty"`
	Images          []string             `bson:"images,omitempty" json:"images,omitempty"`
	Category        []primitive.ObjectID `bson:"category" json:"category" binding:"required"`
	Brand           *primitive.ObjectID  `bson:"brand,omitempty" json:"brand,omitempty"`
	RatingsAverage  float64              `bson:"ratingsAverage" json:"ratingsAverage"`
	RatingsQuantity int                  `bson:"ratingsQuantity" json:"ratingsQuantity"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt" json:"updatedAt"`
}
