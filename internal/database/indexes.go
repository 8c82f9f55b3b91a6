package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the uniqueness and lookup indexes the handlers
// rely on. Cart lookup by user is indexed but deliberately not unique;
// one-cart-per-user is enforced by lookup, not by a constraint.
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{
			collection: "users",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("email_unique").SetUnique(true),
			},
		},
		{
			collection: "products",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "slug", Value: 1}},
				Options: options.Index().SetName("slug_unique").SetUnique(true),
			},
		},
		{
			collection: "coupons",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetName("name_unique").SetUnique(true),
			},
		},
		{
			collection: "reviews",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "user", Value: 1}, {Key: "product", Value: 1}},
				Options: options.Index().SetName("user_product_unique").SetUnique(true),
			},
		},
		{
			collection: "carts",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "user", Value: 1}},
				Options: options.Index().SetName("user_lookup"),
			},
		},
		{
			collection: "refresh_tokens",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "tokenHash", Value: 1}},
				Options: options.Index().SetName("token_hash_lookup"),
			},
		},
	}

	for _, index := range indexes {
		if _, err := db.Collection(index.collection).Indexes().CreateOne(ctx, index.model); err != nil {
			return err
		}
	}
	return nil
}
