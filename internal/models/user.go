package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Address is a shipping address embedded in the user document.
type Address struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Alias      string             `bson:"alias" json:"alias"`
	Details    string             `bson:"details" json:"details"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	City       string             `bson:"city,omitempty" json:"city,omitempty"`
	PostalCode string             `bson:"postalCode,omitempty" json:"postalCode,omitempty"`
}

// User is the account document. The password hash and the reset-code
// fields never leave the API.
type User struct {
	ID                    primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name                  string               `bson:"name" json:"name"`
	Email                 string               `bson:"email" json:"email"`
	Phone                 string               `bson:"phone,omitempty" json:"phone,omitempty"`
	ProfileImage          string               `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	Password              string               `bson:"password" json:"-"`
	Role                  string               `bson:"role" json:"role"`
	Active                bool                 `bson:"active" json:"active"`
	Wishlist              []primitive.ObjectID `bson:"wishlist,omitempty" json:"wishlist,omitempty"`
	Addresses             []Address            `bson:"addresses,omitempty" json:"addresses,omitempty"`
	PasswordChangedAt     *time.Time           `bson:"passwordChangedAt,omitempty" json:"-"`
	PasswordResetCode     string               `bson:"passwordResetCode,omitempty" json:"-"`
	PasswordResetExpires  *time.Time           `bson:"passwordResetExpires,omitempty" json:"-"`
	PasswordResetVerified *bool                `bson:"passwordResetVerified,omitempty" json:"-"`
	CreatedAt             time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time            `bson:"updatedAt" json:"updatedAt"`
}
