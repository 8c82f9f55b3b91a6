// Package routes mounts the API surface onto the gin engine.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"storeapi/internal/config"
	"storeapi/internal/handlers"
	"storeapi/internal/mailer"
	"storeapi/internal/middleware"
	"storeapi/internal/models"
	"storeapi/internal/payment"
)

// Deps carries the process-wide dependencies into the handlers; nothing
// below reaches for globals.
type Deps struct {
	DB      *mongo.Database
	Config  config.Config
	Gateway payment.Gateway
	Mailer  *mailer.Mailer
	Logger  *logrus.Logger
}

func Register(r *gin.Engine, deps Deps) {
	api := r.Group("/api")

	authed := middleware.UserAuth(deps.DB, deps.Config.JWTSecret)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", handlers.Signup(deps.DB, deps.Config))
		auth.POST("/login", handlers.Login(deps.DB, deps.Config))
		auth.POST("/refresh", handlers.Refresh(deps.DB, deps.Config))
		auth.POST("/logout", handlers.Logout(deps.DB))
		auth.POST("/forgot-password", handlers.ForgotPassword(deps.DB, deps.Mailer, deps.Logger))
		auth.POST("/verify-reset-code", handlers.VerifyResetCode(deps.DB))
		auth.POST("/reset-password", handlers.ResetPassword(deps.DB, deps.Config))
	}

	// The signed-in user's own account.
	user := api.Group("/user", authed)
	{
		user.GET("/me", handlers.GetMe)
		user.PATCH("/me", handlers.UpdateMe(deps.DB))
		user.PATCH("/me/password", handlers.ChangeMyPassword(deps.DB))
		user.DELETE("/me", handlers.DeactivateMe(deps.DB))

		user.GET("/wishlist", handlers.GetWishlist(deps.DB))
		user.POST("/wishlist", handlers.AddToWishlist(deps.DB))
		user.DELETE("/wishlist/:productId", handlers.RemoveFromWishlist(deps.DB))

		user.GET("/addresses", handlers.ListAddresses)
		user.POST("/addresses", handlers.AddAddress(deps.DB))
		user.DELETE("/addresses/:addressId", handlers.RemoveAddress(deps.DB))
	}

	// Admin account management lives on its own prefix so /user/me and
	// /users/:id cannot collide in the route tree.
	users := handlers.NewUserHandler(deps.DB)
	userAdmin := api.Group("/users", authed, adminOnly)
	{
		userAdmin.GET("", users.List)
		userAdmin.GET("/:id", users.GetByID)
		userAdmin.POST("", users.Create)
		userAdmin.PUT("/:id", users.UpdateByID)
		userAdmin.DELETE("/:id", users.DeleteByID)
	}

	products := handlers.NewProductHandler(deps.DB)
	reviews := handlers.NewReviewHandler(deps.DB)
	product := api.Group("/product")
	{
		product.GET("", products.List)
		product.GET("/:id", products.GetByID)
		product.POST("", authed, adminOnly, products.Create)
		product.PUT("/:id", authed, adminOnly, products.UpdateByID)
		product.DELETE("/:id", authed, adminOnly, products.DeleteByID)

		// Nested reviews: :id is the product here.
		product.GET("/:id/review", reviews.List)
		product.POST("/:id/review", authed, reviews.Create)
	}

	categories := handlers.NewCategoryHandler(deps.DB)
	subcategories := handlers.NewSubCategoryHandler(deps.DB)
	category := api.Group("/category")
	{
		category.GET("", categories.List)
		category.GET("/:id", categories.GetByID)
		category.POST("", authed, adminOnly, categories.Create)
		category.PUT("/:id", authed, adminOnly, categories.UpdateByID)
		category.DELETE("/:id", authed, adminOnly, categories.DeleteByID)

		// Nested subcategories: :id is the category here.
		category.GET("/:id/subcategory", subcategories.List)
	}

	subcategory := api.Group("/subcategory")
	{
		subcategory.GET("", subcategories.List)
		subcategory.GET("/:id", subcategories.GetByID)
		subcategory.POST("", authed, adminOnly, subcategories.Create)
		subcategory.PUT("/:id", authed, adminOnly, subcategories.UpdateByID)
		subcategory.DELETE("/:id", authed, adminOnly, subcategories.DeleteByID)
	}

	brands := handlers.NewBrandHandler(deps.DB)
	brand := api.Group("/brand")
	{
		brand.GET("", brands.List)
		brand.GET("/:id", brands.GetByID)
		brand.POST("", authed, adminOnly, brands.Create)
		brand.PUT("/:id", authed, adminOnly, brands.UpdateByID)
		brand.DELETE("/:id", authed, adminOnly, brands.DeleteByID)
	}

	review := api.Group("/review")
	{
		review.GET("", reviews.List)
		review.GET("/:id", reviews.GetByID)
		review.POST("", authed, reviews.Create)
		review.PUT("/:id", authed, reviews.UpdateByID)
		review.DELETE("/:id", authed, reviews.DeleteByID)
	}

	coupons := handlers.NewCouponHandler(deps.DB)
	coupon := api.Group("/coupon", authed, adminOnly)
	{
		coupon.GET("", coupons.List)
		coupon.GET("/:id", coupons.GetByID)
		coupon.POST("", coupons.Create)
		coupon.PUT("/:id", coupons.UpdateByID)
		coupon.DELETE("/:id", coupons.DeleteByID)
	}

	cart := api.Group("/cart", authed)
	{
		cart.GET("", handlers.GetCart(deps.DB))
		cart.POST("", handlers.AddCartItem(deps.DB))
		cart.PATCH("/:cartItemId", handlers.UpdateCartItemQuantity(deps.DB))
		cart.DELETE("/:cartItemId", handlers.RemoveCartItem(deps.DB))
		cart.DELETE("", handlers.ClearCart(deps.DB))
		cart.POST("/apply-coupon", handlers.ApplyCoupon(deps.DB))
	}

	orders := handlers.NewOrderHandler(deps.DB)
	order := api.Group("/order", authed)
	{
		order.GET("", orders.List)
		order.GET("/:id", orders.GetByID)
		order.POST("/:cartId", handlers.CreateCashOrder(deps.DB))
		order.PATCH("/:id/pay", adminOnly, handlers.MarkOrderPaid(deps.DB))
		order.PATCH("/:id/deliver", adminOnly, handlers.MarkOrderDelivered(deps.DB))
	}
	api.GET("/checkout-session/:cartId", authed, handlers.CheckoutSession(deps.DB, deps.Gateway, deps.Config.BaseURL))
}
