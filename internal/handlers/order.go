package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storeapi/internal/apperrors"
	"storeapi/internal/crud"
	"storeapi/internal/middleware"
	"storeapi/internal/models"
	"storeapi/internal/payment"
)

// Tax and shipping are modeled as first-class order fields but not yet
// charged.
const (
	taxPrice      = 0.0
	shippingPrice = 0.0
)

type createOrderRequest struct {
	ShippingAddress string `json:"shippingAddress" binding:"required"`
}

// NewOrderHandler scopes reads to the owning user unless the requester
// is an admin.
func NewOrderHandler(db *mongo.Database) *crud.Handler[models.Order] {
	h := crud.New[models.Order](db.Collection("orders"))
	h.SearchFields = []string{"reference"}
	h.BaseFilter = func(c *gin.Context) bson.M {
		user, _ := middleware.CurrentUser(c)
		if user.Role == models.RoleAdmin {
			return bson.M{}
		}
		return bson.M{"user": user.ID}
	}
	h.IDFilter = func(c *gin.Context) (bson.M, error) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			return nil, apperrors.BadRequest("invalid id %q", c.Param("id"))
		}
		user, _ := middleware.CurrentUser(c)
		if user.Role == models.RoleAdmin {
			return bson.M{"_id": id}, nil
		}
		return bson.M{"_id": id, "user": user.ID}, nil
	}
	return h
}

// CreateCashOrder realizes the cart into an order. Order insert, stock
// reconciliation and cart deletion run inside one transaction so a
// failure cannot leave an order without its inventory adjustment.
func CreateCashOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		cartID, err := primitive.ObjectIDFromHex(c.Param("cartId"))
		if err != nil {
			apperrors.Abort(c, apperrors.BadRequest("invalid cart id"))
			return
		}

		var req createOrderRequest
		if err := crud.BindJSON(c, &req); err != nil {
			apperrors.Abort(c, err)
			return
		}
		shippingAddress, err := primitive.ObjectIDFromHex(req.ShippingAddress)
		if err != nil {
			apperrors.Abort(c, apperrors.BadRequest("invalid shipping address"))
			return
		}

		user, _ := middleware.CurrentUser(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		cart, err := findCartByID(ctx, db, cartID)
		if err != nil {
			apperrors.Abort(c, err)
			return
		}

		now := time.Now()
		order := models.Order{
			Reference:       uuid.NewString(),
			User:            user.ID,
			Items:           append([]models.CartItem(nil), cart.Items...),
			TaxPrice:        taxPrice,
			ShippingPrice:   shippingPrice,
			ShippingAddress: shippingAddress,
			TotalPrice:      orderTotal(cart),
			PaymentMethod:   models.PaymentMethodCash,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		session, err := db.Client().StartSession()
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}
		defer session.EndSession(ctx)

		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			result, err := db.Collection("orders").InsertOne(sessCtx, order)
			if err != nil {
				return nil, err
			}
			order.ID = result.InsertedID.(primitive.ObjectID)

			bulk, err := db.Collection("products").BulkWrite(sessCtx, stockAdjustments(cart.Items))
			if err != nil {
				return nil, err
			}
			// A line whose guard filter matched nothing means the stock
			// ran out since the cart was built; abort the whole order.
			if bulk.MatchedCount != int64(len(cart.Items)) {
				return nil, apperrors.BadRequest("insufficient stock for one or more products")
			}

			if _, err := db.Collection("carts").DeleteOne(sessCtx, bson.M{"_id": cart.ID}); err != nil {
				return nil, err
			}
			return nil, nil
		})
		if err != nil {
			apperrors.Abort(c, apperrors.From(err))
			return
		}

		c.JSON(http.StatusCreated, gin.H{"data": order})
	}
}

// CheckoutSession asks the gateway for a hosted card-payment session
// over the cart's current total.
func CheckoutSession(db *mongo.Database, gateway payment.Gateway, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cartID, err := primitive.ObjectIDFromHex(c.Param("cartId"))
		if err != nil {
			apperrors.Abort(c, apperrors.BadRequest("invalid cart id"))
			return
		}

		user, _ := middleware.CurrentUser(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		cart, err := findCartByID(ctx, db, cartID)
		if err != nil {
			apperrors.Abort(c, err)
			return
		}

		session, err := gateway.CreateCheckoutSession(ctx, payment.CheckoutParams{
			Amount:            checkoutAmount(orderTotal(cart)),
			Currency:          "usd",
			Description:       "cart " + cart.ID.Hex(),
			CustomerEmail:     user.Email,
			SuccessURL:        baseURL + "/order",
			CancelURL:         baseURL + "/cart",
			ClientReferenceID: cart.ID.Hex(),
		})
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "session": session})
	}
}

func MarkOrderPaid(db *mongo.Database) gin.HandlerFunc {
	return markOrderFlag(db, "isPaid", "paidAt")
}

func MarkOrderDelivered(db *mongo.Database) gin.HandlerFunc {
	return markOrderFlag(db, "isDelivered", "deliveredAt")
}

func markOrderFlag(db *mongo.Database, flagField, timeField string) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			apperrors.Abort(c, apperrors.BadRequest("invalid order id"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		now := time.Now()
		var order models.Order
		err = db.Collection("orders").FindOneAndUpdate(
			ctx,
			bson.M{"_id": orderID},
			bson.M{"$set": bson.M{flagField: true, timeField: now, "updatedAt": now}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&order)
		if errors.Is(err, mongo.ErrNoDocuments) {
			apperrors.Abort(c, apperrors.NotFound("no order found"))
			return
		}
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "data": order})
	}
}

func findCartByID(ctx context.Context, db *mongo.Database, cartID primitive.ObjectID) (models.Cart, error) {
	var cart models.Cart
	err := db.Collection("carts").FindOne(ctx, bson.M{"_id": cartID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Cart{}, apperrors.NotFound("no cart found")
	}
	if err != nil {
		return models.Cart{}, apperrors.Internal(err)
	}
	return cart, nil
}

// orderTotal prefers the coupon-discounted total when one is still
// valid, then adds tax and shipping.
func orderTotal(cart models.Cart) float64 {
	price := cart.TotalPrice
	if cart.TotalPriceAfterDiscount != nil {
		price = *cart.TotalPriceAfterDiscount
	}
	return price + taxPrice + shippingPrice
}

// stockAdjustments builds one batched write decrementing stock and
// incrementing the sold counter per line. Each decrement is guarded by
// the remaining stock, so an underflowing line matches nothing and the
// caller can tell by the matched count.
func stockAdjustments(items []models.CartItem) []mongo.WriteModel {
	writes := make([]mongo.WriteModel, 0, len(items))
	for _, item := range items {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{
				"_id":      item.Product,
				"quantity": bson.M{"$gte": item.Quantity},
			}).
			SetUpdate(bson.M{"$inc": bson.M{
				"quantity": -item.Quantity,
				"sold":     item.Quantity,
			}}))
	}
	return writes
}

// checkoutAmount converts the order total to the gateway's smallest
// currency unit.
func checkoutAmount(total float64) int64 {
	return int64(math.Round(total * 100))
}
