package handlers

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storeapi/internal/crud"
	"storeapi/internal/models"
)

func NewCategoryHandler(db *mongo.Database) *crud.Handler[models.Category] {
	h := crud.New[models.Category](db.Collection("categories"))
	h.SearchFields = []string{"name"}
	h.BeforeCreate = slugFromTitle("name")
	h.BeforeUpdate = slugFromTitle("name")
	return h
}

// NewSubCategoryHandler lists nested under a category when mounted at
// /category/:id/subcategory; :id is the parent category there.
func NewSubCategoryHandler(db *mongo.Database) *crud.Handler[models.SubCategory] {
	h := crud.New[models.SubCategory](db.Collection("subcategories"))
	h.SearchFields = []string{"name"}
	h.BeforeCreate = slugFromTitle("name")
	h.BeforeUpdate = slugFromTitle("name")
	h.BaseFilter = func(c *gin.Context) bson.M {
		raw := c.Param("id")
		if raw == "" {
			return bson.M{}
		}
		categoryID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return bson.M{}
		}
		return bson.M{"category": categoryID}
	}
	return h
}

func NewBrandHandler(db *mongo.Database) *crud.Handler[models.Brand] {
	h := crud.New[models.Brand](db.Collection("brands"))
	h.SearchFields = []string{"name"}
	h.BeforeCreate = slugFromTitle("name")
	h.BeforeUpdate = slugFromTitle("name")
	return h
}

func NewCouponHandler(db *mongo.Database) *crud.Handler[models.Coupon] {
	h := crud.New[models.Coupon](db.Collection("coupons"))
	h.SearchFields = []string{"name"}
	return h
}
