package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"storeapi/internal/apperrors"
	"storeapi/internal/crud"
	"storeapi/internal/middleware"
	"storeapi/internal/models"
)

type updateMeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

type wishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type addressRequest struct {
	Alias      string `json:"alias" binding:"required"`
	Details    string `json:"details" binding:"required"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

// NewUserHandler is the admin-facing user CRUD; create hashes the
// password before it is stored.
func NewUserHandler(db *mongo.Database) *crud.Handler[models.User] {
	h := crud.New[models.User](db.Collection("users"))
	h.SearchFields = []string{"name", "email"}
	h.BeforeCreate = func(c *gin.Context, doc bson.M) error {
		password, _ := doc["password"].(string)
		if password == "" {
			return apperrors.BadRequest("password is required")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return apperrors.Internal(err)
		}
		doc["password"] = string(hash)
		if role, _ := doc["role"].(string); role == "" {
			doc["role"] = models.RoleUser
		}
		doc["active"] = true
		return nil
	}
	h.BeforeUpdate = func(c *gin.Context, doc bson.M) error {
		// Password changes go through the dedicated endpoints.
		delete(doc, "password")
		return nil
	}
	return h
}

func GetMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		apperrors.Abort(c, apperrors.Unauthorized("unauthorized"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

func UpdateMe(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateMeRequest
		if err := crud.BindJSON(c, &req); err != nil {
			apperrors.Abort(c, err)
			return
		}

		user, _ := middleware.CurrentUser(c)

		set := bson.M{"updatedAt": time.Now()}
		if req.Name != "" {
			set["name"] = req.Name
		}
		if req.Email != "" {
			set["email"] = req.Email
		}
		if req.Phone != "" {
			set["phone"] = req.Phone
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		var updated models.User
		err := db.Collection("users").FindOneAndUpdate(
			ctx,
			bson.M{"_id": user.ID},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&updated)
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": updated})
	}
}

func ChangeMyPassword(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePasswordRequest
		if err := crud.BindJSON(c, &req); err != nil {
			apperrors.Abort(c, err)
			return
		}

		user, _ := middleware.CurrentUser(c)

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
			apperrors.Abort(c, apperrors.Unauthorized("current password is incorrect"))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		now := time.Now()
		_, err = db.Collection("users").UpdateOne(ctx,
			bson.M{"_id": user.ID},
			bson.M{"$set": bson.M{
				"password":          string(hash),
				"passwordChangedAt": now,
				"updatedAt":         now,
			}},
		)
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "password updated, please login again"})
	}
}

func DeactivateMe(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		_, err := db.Collection("users").UpdateOne(ctx,
			bson.M{"_id": user.ID},
			bson.M{"$set": bson.M{"active": false, "updatedAt": time.Now()}},
		)
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// AddToWishlist uses $addToSet so re-adding a product stays a no-op.
func AddToWishlist(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req wishlistRequest
		if err := crud.BindJSON(c, &req); err != nil {
			apperrors.Abort(c, err)
			return
		}

		productID, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			apperrors.Abort(c, apperrors.BadRequest("invalid product id %q", req.ProductID))
			return
		}

		user, _ := middleware.CurrentUser(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		var updated models.User
		err = db.Collection("users").FindOneAndUpdate(ctx,
			bson.M{"_id": user.ID},
			bson.M{"$addToSet": bson.M{"wishlist": productID}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&updated)
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": updated.Wishlist})
	}
}

func RemoveFromWishlist(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := primitive.ObjectIDFromHex(c.Param("productId"))
		if err != nil {
			apperrors.Abort(c, apperrors.BadRequest("invalid product id"))
			return
		}

		user, _ := middleware.CurrentUser(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		var updated models.User
		err = db.Collection("users").FindOneAndUpdate(ctx,
			bson.M{"_id": user.ID},
			bson.M{"$pull": bson.M{"wishlist": productID}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&updated)
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": updated.Wishlist})
	}
}

func GetWishlist(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		products := make([]models.Product, 0)
		if len(user.Wishlist) > 0 {
			cursor, err := db.Collection("products").Find(ctx, bson.M{"_id": bson.M{"$in": user.Wishlist}})
			if err != nil {
				apperrors.Abort(c, apperrors.Internal(err))
				return
			}
			defer cursor.Close(ctx)
			if err := cursor.All(ctx, &products); err != nil {
				apperrors.Abort(c, apperrors.Internal(err))
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"count": len(products), "data": products})
	}
}

func AddAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addressRequest
		if err := crud.BindJSON(c, &req); err != nil {
			apperrors.Abort(c, err)
			return
		}

		user, _ := middleware.CurrentUser(c)

		address := models.Address{
			ID:         primitive.NewObjectID(),
			Alias:      req.Alias,
			Details:    req.Details,
			Phone:      req.Phone,
			City:       req.City,
			PostalCode: req.PostalCode,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		var updated models.User
		err := db.Collection("users").FindOneAndUpdate(ctx,
			bson.M{"_id": user.ID},
			bson.M{"$addToSet": bson.M{"addresses": address}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&updated)
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": updated.Addresses})
	}
}

func RemoveAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		addressID, err := primitive.ObjectIDFromHex(c.Param("addressId"))
		if err != nil {
			apperrors.Abort(c, apperrors.BadRequest("invalid address id"))
			return
		}

		user, _ := middleware.CurrentUser(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		var updated models.User
		err = db.Collection("users").FindOneAndUpdate(ctx,
			bson.M{"_id": user.ID},
			bson.M{"$pull": bson.M{"addresses": bson.M{"_id": addressID}}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&updated)
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": updated.Addresses})
	}
}

func ListAddresses(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		apperrors.Abort(c, apperrors.Unauthorized("unauthorized"))
		return
	}
	if user.Addresses == nil {
		user.Addresses = []models.Address{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(user.Addresses), "data": user.Addresses})
}
