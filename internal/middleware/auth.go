package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storeapi/internal/apperrors"
	"storeapi/internal/models"
)

const userContextKey = "currentUser"

// UserAuth validates the Bearer token, loads the account and rejects
// tokens minted before the last password change.
func UserAuth(db *mongo.Database, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			apperrors.Abort(c, apperrors.Unauthorized("missing token"))
			return
		}

		parts := strings.Split(raw, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			apperrors.Abort(c, apperrors.Unauthorized("invalid token"))
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			apperrors.Abort(c, apperrors.Unauthorized("unauthorized"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			apperrors.Abort(c, apperrors.Unauthorized("unauthorized"))
			return
		}

		userIDValue, _ := claims["userId"].(string)
		userID, err := primitive.ObjectIDFromHex(userIDValue)
		if err != nil {
			apperrors.Abort(c, apperrors.Unauthorized("unauthorized"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		err = db.Collection("users").FindOne(ctx, bson.M{"_id": userID, "active": true}).Decode(&user)
		if errors.Is(err, mongo.ErrNoDocuments) {
			apperrors.Abort(c, apperrors.Unauthorized("the user belonging to this token no longer exists"))
			return
		}
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		if user.PasswordChangedAt != nil {
			issuedAt, ok := claims["iat"].(float64)
			if !ok || int64(issuedAt) < user.PasswordChangedAt.Unix() {
				apperrors.Abort(c, apperrors.Unauthorized("password changed recently, please login again"))
				return
			}
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireRoles gates a route group to the listed roles. Must run after
// UserAuth.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			apperrors.Abort(c, apperrors.Unauthorized("unauthorized"))
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		apperrors.Abort(c, apperrors.Forbidden("you are not allowed to perform this action"))
	}
}

// CurrentUser returns the authenticated user placed by UserAuth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	value, ok := c.Get(userContextKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}
