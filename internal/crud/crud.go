// Package crud provides the shared list/get/create/update/delete
// behavior every catalog entity is built on. Entity handlers customize
// it through the hook fields rather than reimplementing the endpoints.
package crud

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storeapi/internal/apperrors"
	"storeapi/internal/query"
)

const requestTimeout = 5 * time.Second

// listEmptyMessage answers a list over a collection holding nothing
// under the base filter; the read query is never composed in that case.
const listEmptyMessage = "no documents inserted yet"

// Handler implements generic CRUD over one collection. The zero hooks
// give the default behavior; entities override what they need (orders
// scope reads by owning user, reviews stamp the author, products slug
// their title).
type Handler[T any] struct {
	Coll *mongo.Collection

	// SearchFields are the text fields the search parameter matches.
	// Empty means the query package default (title, description).
	SearchFields []string

	// BaseFilter scopes List and its document count.
	BaseFilter func(c *gin.Context) bson.M

	// IDFilter scopes GetByID, UpdateByID and DeleteByID. The default
	// matches on _id alone.
	IDFilter func(c *gin.Context) (bson.M, error)

	// BeforeCreate and BeforeUpdate may mutate the document derived
	// from the request body before it is written.
	BeforeCreate func(c *gin.Context, doc bson.M) error
	BeforeUpdate func(c *gin.Context, doc bson.M) error
}

func New[T any](coll *mongo.Collection) *Handler[T] {
	return &Handler[T]{Coll: coll}
}

// List runs the composed query: count first, short-circuit when the
// collection (under the base filter) holds nothing, otherwise
// filter/search/sort/project/paginate in one read.
func (h *Handler[T]) List(c *gin.Context) {
	base := bson.M{}
	if h.BaseFilter != nil {
		base = h.BaseFilter(c)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	total, err := h.Coll.CountDocuments(ctx, base)
	if err != nil {
		apperrors.Abort(c, apperrors.Internal(err))
		return
	}

	filter, opts, pagination, ok := composeList(c.Request.URL.Query(), base, total, h.SearchFields...)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"message": listEmptyMessage})
		return
	}

	cursor, err := h.Coll.Find(ctx, filter, opts)
	if err != nil {
		apperrors.Abort(c, apperrors.Internal(err))
		return
	}
	defer cursor.Close(ctx)

	docs := make([]T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		apperrors.Abort(c, apperrors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pagination":     pagination,
		"countDocuments": total,
		"count":          len(docs),
		"data":           docs,
	})
}

func (h *Handler[T]) GetByID(c *gin.Context) {
	filter, err := h.idFilter(c)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	var doc T
	if err := h.Coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		apperrors.Abort(c, notFoundOr(err, c.Param("id")))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func (h *Handler[T]) Create(c *gin.Context) {
	var body T
	if err := c.ShouldBindJSON(&body); err != nil {
		apperrors.Abort(c, BindError(err))
		return
	}

	doc, err := ToDocument(body, time.Now())
	if err != nil {
		apperrors.Abort(c, apperrors.Internal(err))
		return
	}
	if h.BeforeCreate != nil {
		if err := h.BeforeCreate(c, doc); err != nil {
			apperrors.Abort(c, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := h.Coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			apperrors.Abort(c, apperrors.Conflict("document already exists"))
			return
		}
		apperrors.Abort(c, apperrors.Internal(err))
		return
	}

	var created T
	if err := h.Coll.FindOne(ctx, bson.M{"_id": result.InsertedID}).Decode(&created); err != nil {
		apperrors.Abort(c, apperrors.Internal(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

// UpdateByID patches only the fields present in the body and returns the
// updated document.
func (h *Handler[T]) UpdateByID(c *gin.Context) {
	filter, err := h.idFilter(c)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	doc := bson.M{}
	if err := c.ShouldBindJSON(&doc); err != nil {
		apperrors.Abort(c, apperrors.BadRequest("invalid request body"))
		return
	}
	delete(doc, "_id")
	delete(doc, "id")
	doc["updatedAt"] = time.Now()

	if h.BeforeUpdate != nil {
		if err := h.BeforeUpdate(c, doc); err != nil {
			apperrors.Abort(c, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	var updated T
	err = h.Coll.FindOneAndUpdate(
		ctx,
		filter,
		bson.M{"$set": doc},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		apperrors.Abort(c, notFoundOr(err, c.Param("id")))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (h *Handler[T]) DeleteByID(c *gin.Context) {
	filter, err := h.idFilter(c)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	var deleted T
	if err := h.Coll.FindOneAndDelete(ctx, filter).Decode(&deleted); err != nil {
		apperrors.Abort(c, notFoundOr(err, c.Param("id")))
		return
	}

	c.Status(http.StatusNoContent)
}

// composeList builds the list read from the pre-computed document
// count. ok is false when the collection holds nothing under the base
// filter; the caller answers with listEmptyMessage and runs no query.
func composeList(params url.Values, base bson.M, total int64, searchFields ...string) (bson.M, *options.FindOptions, query.Pagination, bool) {
	if total == 0 {
		return nil, nil, query.Pagination{}, false
	}
	filter, opts, pagination := query.New(params, base).Compose(total, searchFields...)
	return filter, opts, pagination, true
}

func (h *Handler[T]) idFilter(c *gin.Context) (bson.M, error) {
	if h.IDFilter != nil {
		return h.IDFilter(c)
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return nil, apperrors.BadRequest("invalid id %q", c.Param("id"))
	}
	return bson.M{"_id": id}, nil
}

func notFoundOr(err error, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperrors.NotFound("document with id %s not found", id)
	}
	return apperrors.Internal(err)
}

// ToDocument converts a typed value into a bson document with creation
// timestamps stamped and an unset _id removed so Mongo assigns one.
func ToDocument(value any, now time.Time) (bson.M, error) {
	raw, err := bson.Marshal(value)
	if err != nil {
		return nil, err
	}
	doc := bson.M{}
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if id, ok := doc["_id"].(primitive.ObjectID); ok && id.IsZero() {
		delete(doc, "_id")
	}
	doc["createdAt"] = now
	doc["updatedAt"] = now
	return doc, nil
}
