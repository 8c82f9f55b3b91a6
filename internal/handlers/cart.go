package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storeapi/internal/apperrors"
	"storeapi/internal/crud"
	"storeapi/internal/middleware"
	"storeapi/internal/models"
	"storeapi/internal/pricing"
)

// cartRetries bounds the optimistic-concurrency retry loop on cart
// writes. Conflicts only happen when the same user's cart is mutated
// concurrently.
const cartRetries = 3

type addCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Color     string `json:"color"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type applyCouponRequest struct {
	Coupon string `json:"coupon" binding:"required"`
}

func GetCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		var cart models.Cart
		err := db.Collection("carts").FindOne(ctx, bson.M{"user": user.ID}).Decode(&cart)
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusOK, gin.H{"items": 0, "data": nil})
			return
		}
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"items": len(cart.Items), "data": cart})
	}
}

// AddCartItem finds or lazily creates the user's cart. An existing
// (product, color) line gets its quantity bumped instead of a duplicate
// line; new lines snapshot the product's current price.
func AddCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addCartItemRequest
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

		for attempt := 0; attempt < cartRetries; attempt++ {
			var cart models.Cart
			err := db.Collection("carts").FindOne(ctx, bson.M{"user": user.ID}).Decode(&cart)

			if errors.Is(err, mongo.ErrNoDocuments) {
				item, err := makeCartItem(ctx, db, productID, req.Color)
				if err != nil {
					apperrors.Abort(c, err)
					return
				}
				now := time.Now()
				cart = models.Cart{
					User:       user.ID,
					Items:      []models.CartItem{item},
					TotalPrice: item.Price,
					Version:    1,
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				result, err := db.Collection("carts").InsertOne(ctx, cart)
				if err != nil {
					apperrors.Abort(c, apperrors.Internal(err))
					return
				}
				cart.ID = result.InsertedID.(primitive.ObjectID)
				c.JSON(http.StatusOK, gin.H{"items": len(cart.Items), "data": cart})
				return
			}
			if err != nil {
				apperrors.Abort(c, apperrors.Internal(err))
				return
			}

			if idx := itemIndex(cart.Items, productID, req.Color); idx >= 0 {
				cart.Items[idx].Quantity++
			} else {
				item, err := makeCartItem(ctx, db, productID, req.Color)
				if err != nil {
					apperrors.Abort(c, err)
					return
				}
				cart.Items = append(cart.Items, item)
			}

			saved, err := saveCartItems(ctx, db, &cart)
			if err != nil {
				apperrors.Abort(c, err)
				return
			}
			if saved {
				c.JSON(http.StatusOK, gin.H{"items": len(cart.Items), "data": cart})
				return
			}
		}

		apperrors.Abort(c, apperrors.Conflict("cart was modified concurrently, please retry"))
	}
}

func UpdateCartItemQuantity(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateCartItemRequest
		if err := crud.BindJSON(c, &req); err != nil {
			apperrors.Abort(c, err)
			return
		}

		itemID, err := primitive.ObjectIDFromHex(c.Param("cartItemId"))
		if err != nil {
			apperrors.Abort(c, apperrors.BadRequest("invalid cart item id"))
			return
		}

		user, _ := middleware.CurrentUser(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		for attempt := 0; attempt < cartRetries; attempt++ {
			var cart models.Cart
			err := db.Collection("carts").FindOne(ctx, bson.M{"user": user.ID}).Decode(&cart)
			if errors.Is(err, mongo.ErrNoDocuments) {
				apperrors.Abort(c, apperrors.NotFound("no cart found"))
				return
			}
			if err != nil {
				apperrors.Abort(c, apperrors.Internal(err))
				return
			}

			idx := itemIndexByID(cart.Items, itemID)
			if idx < 0 {
				apperrors.Abort(c, apperrors.NotFound("no item found"))
				return
			}
			cart.Items[idx].Quantity = req.Quantity

			saved, err := saveCartItems(ctx, db, &cart)
			if err != nil {
				apperrors.Abort(c, err)
				return
			}
			if saved {
				c.JSON(http.StatusOK, gin.H{"items": len(cart.Items), "data": cart})
				return
			}
		}

		apperrors.Abort(c, apperrors.Conflict("cart was modified concurrently, please retry"))
	}
}

// RemoveCartItem pulls the line and then repairs the totals. Removing an
// id the cart never held is a no-op that still recomputes.
func RemoveCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, err := primitive.ObjectIDFromHex(c.Param("cartItemId"))
		if err != nil {
			apperrors.Abort(c, apperrors.BadRequest("invalid cart item id"))
			return
		}

		user, _ := middleware.CurrentUser(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		for attempt := 0; attempt < cartRetries; attempt++ {
			var cart models.Cart
			err := db.Collection("carts").FindOneAndUpdate(
				ctx,
				bson.M{"user": user.ID},
				bson.M{
					"$pull": bson.M{"cartItems": bson.M{"_id": itemID}},
					"$inc":  bson.M{"version": 1},
				},
				options.FindOneAndUpdate().SetReturnDocument(options.After),
			).Decode(&cart)
			if errors.Is(err, mongo.ErrNoDocuments) {
				apperrors.Abort(c, apperrors.NotFound("no cart found"))
				return
			}
			if err != nil {
				apperrors.Abort(c, apperrors.Internal(err))
				return
			}

			saved, err := saveCartItems(ctx, db, &cart)
			if err != nil {
				apperrors.Abort(c, err)
				return
			}
			if saved {
				c.JSON(http.StatusOK, gin.H{"items": len(cart.Items), "data": cart})
				return
			}
		}

		apperrors.Abort(c, apperrors.Conflict("cart was modified concurrently, please retry"))
	}
}

func ClearCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if _, err := db.Collection("carts").DeleteOne(ctx, bson.M{"user": user.ID}); err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}

// ApplyCoupon validates an unexpired coupon by exact name and stores the
// discounted total next to the untouched base total.
func ApplyCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req applyCouponRequest
		if err := crud.BindJSON(c, &req); err != nil {
			apperrors.Abort(c, err)
			return
		}

		user, _ := middleware.CurrentUser(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		var coupon models.Coupon
		err := db.Collection("coupons").FindOne(ctx, bson.M{"name": req.Coupon}).Decode(&coupon)
		if errors.Is(err, mongo.ErrNoDocuments) {
			apperrors.Abort(c, apperrors.BadRequest("coupon is invalid or expired"))
			return
		}
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}
		if !pricing.CouponValid(coupon, time.Now()) {
			apperrors.Abort(c, apperrors.BadRequest("coupon is invalid or expired"))
			return
		}

		for attempt := 0; attempt < cartRetries; attempt++ {
			var cart models.Cart
			err := db.Collection("carts").FindOne(ctx, bson.M{"user": user.ID}).Decode(&cart)
			if errors.Is(err, mongo.ErrNoDocuments) {
				apperrors.Abort(c, apperrors.NotFound("no cart found"))
				return
			}
			if err != nil {
				apperrors.Abort(c, apperrors.Internal(err))
				return
			}

			discounted := pricing.Discount(cart.TotalPrice, coupon.Discount)
			cart.TotalPriceAfterDiscount = &discounted

			result, err := db.Collection("carts").UpdateOne(
				ctx,
				bson.M{"_id": cart.ID, "version": cart.Version},
				bson.M{
					"$set": bson.M{
						"totalCartPriceAfterDiscount": discounted,
						"updatedAt":                   time.Now(),
					},
					"$inc": bson.M{"version": 1},
				},
			)
			if err != nil {
				apperrors.Abort(c, apperrors.Internal(err))
				return
			}
			if result.ModifiedCount == 1 {
				c.JSON(http.StatusOK, gin.H{"items": len(cart.Items), "data": cart})
				return
			}
		}

		apperrors.Abort(c, apperrors.Conflict("cart was modified concurrently, please retry"))
	}
}

// makeCartItem snapshots the product's current price into a new line.
func makeCartItem(ctx context.Context, db *mongo.Database, productID primitive.ObjectID, color string) (models.CartItem, error) {
	var product models.Product
	err := db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.CartItem{}, apperrors.NotFound("product not found")
	}
	if err != nil {
		return models.CartItem{}, apperrors.Internal(err)
	}

	return models.CartItem{
		ID:       primitive.NewObjectID(),
		Product:  productID,
		Quantity: 1,
		Color:    color,
		Price:    product.Price,
	}, nil
}

// itemIndex locates a line by the (product, color) pair.
func itemIndex(items []models.CartItem, productID primitive.ObjectID, color string) int {
	for i, item := range items {
		if item.Product == productID && item.Color == color {
			return i
		}
	}
	return -1
}

func itemIndexByID(items []models.CartItem, itemID primitive.ObjectID) int {
	for i, item := range items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

// recalcCart restores the totals invariant after any item mutation: the
// total is recomputed from scratch over the current lines and a stale
// coupon result is cleared.
func recalcCart(cart *models.Cart, now time.Time) {
	cart.TotalPrice = pricing.Total(cart.Items)
	cart.TotalPriceAfterDiscount = nil
	cart.UpdatedAt = now
}

// saveCartItems persists the item list after any mutation: the total is
// recomputed from scratch, the stale discounted total cleared, and the
// write conditioned on the version the cart was read at. A false return
// means another writer got there first.
func saveCartItems(ctx context.Context, db *mongo.Database, cart *models.Cart) (bool, error) {
	recalcCart(cart, time.Now())

	result, err := db.Collection("carts").UpdateOne(
		ctx,
		bson.M{"_id": cart.ID, "version": cart.Version},
		bson.M{
			"$set": bson.M{
				"cartItems":      cart.Items,
				"totalCartPrice": cart.TotalPrice,
				"updatedAt":      cart.UpdatedAt,
			},
			"$unset": bson.M{"totalCartPriceAfterDiscount": ""},
			"$inc":   bson.M{"version": 1},
		},
	)
	if err != nil {
		return false, apperrors.Internal(err)
	}
	if result.ModifiedCount == 1 {
		cart.Version++
		return true, nil
	}
	return false, nil
}
