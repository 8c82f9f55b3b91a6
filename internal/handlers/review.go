package handlers

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storeapi/internal/apperrors"
	"storeapi/internal/crud"
	"storeapi/internal/middleware"
	"storeapi/internal/models"
)

// NewReviewHandler stamps the author from the auth context and scopes
// nested listing by product. The (user, product) unique index keeps it
// to one review per product per user.
func NewReviewHandler(db *mongo.Database) *crud.Handler[models.Review] {
	h := crud.New[models.Review](db.Collection("reviews"))
	h.SearchFields = []string{"content"}
	// When mounted under /product/:id/review the :id param is the product.
	h.BaseFilter = func(c *gin.Context) bson.M {
		raw := c.Param("id")
		if raw == "" {
			return bson.M{}
		}
		productID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return bson.M{}
		}
		return bson.M{"product": productID}
	}
	h.BeforeCreate = func(c *gin.Context, doc bson.M) error {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			return apperrors.Unauthorized("unauthorized")
		}
		doc["user"] = user.ID

		if raw := c.Param("id"); raw != "" {
			productID, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				return apperrors.BadRequest("invalid product id")
			}
			doc["product"] = productID
		}
		if id, ok := doc["product"].(primitive.ObjectID); !ok || id.IsZero() {
			return apperrors.BadRequest("product is required")
		}
		return nil
	}
	// Only the author may change or delete their review.
	h.IDFilter = func(c *gin.Context) (bson.M, error) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			return nil, apperrors.BadRequest("invalid id %q", c.Param("id"))
		}
		user, ok := middleware.CurrentUser(c)
		if !ok || c.Request.Method == "GET" || user.Role == models.RoleAdmin {
			return bson.M{"_id": id}, nil
		}
		return bson.M{"_id": id, "user": user.ID}, nil
	}
	return h
}
