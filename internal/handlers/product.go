package handlers

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storeapi/internal/crud"
	"storeapi/internal/models"
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases the title and collapses everything else to dashes.
func slugify(title string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// slugFromTitle keeps the slug derived from the title on create and
// update, matching how catalog entities are addressed publicly.
func slugFromTitle(field string) func(c *gin.Context, doc bson.M) error {
	return func(c *gin.Context, doc bson.M) error {
		if title, ok := doc[field].(string); ok && title != "" {
			doc["slug"] = slugify(title)
		}
		return nil
	}
}

func NewProductHandler(db *mongo.Database) *crud.Handler[models.Product] {
	h := crud.New[models.Product](db.Collection("products"))
	h.SearchFields = []string{"title", "description"}
	h.BeforeCreate = slugFromTitle("title")
	h.BeforeUpdate = slugFromTitle("title")
	return h
}
