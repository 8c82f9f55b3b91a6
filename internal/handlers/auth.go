package handlers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"storeapi/internal/apperrors"
	"storeapi/internal/config"
	"storeapi/internal/crud"
	"storeapi/internal/mailer"
	"storeapi/internal/models"
)

type signupRequest struct {
	Name     string `json:"name" binding:"required,min=2"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyResetCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

type resetPasswordRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type authTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func Signup(db *mongo.Database, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signupRequest
		if err := crud.BindJSON(c, &req); err != nil {
			apperrors.Abort(c, err)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		now := time.Now()
		user := models.User{
			Name:      req.Name,
			Email:     req.Email,
			Phone:     req.Phone,
			Password:  string(hash),
			Role:      models.RoleUser,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		result, err := db.Collection("users").InsertOne(ctx, user)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				apperrors.Abort(c, apperrors.Conflict("email already in use"))
				return
			}
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}
		user.ID = result.InsertedID.(primitive.ObjectID)

		tokens, err := issueTokens(ctx, db, user, cfg)
		if err != nil {
			apperrors.Abort(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"data": user, "token": tokens})
	}
}

func Login(db *mongo.Database, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := crud.BindJSON(c, &req); err != nil {
			apperrors.Abort(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{"email": req.Email, "active": true}).Decode(&user)
		if errors.Is(err, mongo.ErrNoDocuments) {
			apperrors.Abort(c, apperrors.Unauthorized("incorrect email or password"))
			return
		}
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			apperrors.Abort(c, apperrors.Unauthorized("incorrect email or password"))
			return
		}

		tokens, err := issueTokens(ctx, db, user, cfg)
		if err != nil {
			apperrors.Abort(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": user, "token": tokens})
	}
}

// Refresh rotates a refresh token: the presented token is looked up by
// hash, revoked, and a fresh pair is issued.
func Refresh(db *mongo.Database, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refreshRequest
		if err := crud.BindJSON(c, &req); err != nil {
			apperrors.Abort(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		hash := hashToken(req.RefreshToken)
		var stored models.RefreshToken
		err := db.Collection("refresh_tokens").FindOne(ctx, bson.M{
			"tokenHash": hash,
			"revoked":   false,
			"expiresAt": bson.M{"$gt": time.Now()},
		}).Decode(&stored)
		if errors.Is(err, mongo.ErrNoDocuments) {
			apperrors.Abort(c, apperrors.Unauthorized("invalid refresh token"))
			return
		}
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": stored.User, "active": true}).Decode(&user); err != nil {
			apperrors.Abort(c, apperrors.Unauthorized("invalid refresh token"))
			return
		}

		if _, err := db.Collection("refresh_tokens").UpdateOne(ctx,
			bson.M{"_id": stored.ID},
			bson.M{"$set": bson.M{"revoked": true}},
		); err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		tokens, err := issueTokens(ctx, db, user, cfg)
		if err != nil {
			apperrors.Abort(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": tokens})
	}
}

func Logout(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refreshRequest
		if err := crud.BindJSON(c, &req); err != nil {
			apperrors.Abort(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		_, err := db.Collection("refresh_tokens").UpdateOne(ctx,
			bson.M{"tokenHash": hashToken(req.RefreshToken)},
			bson.M{"$set": bson.M{"revoked": true}},
		)
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}

// ForgotPassword stores a hashed 6-digit reset code on the account and
// mails it. The account's absence is still a 404 so the flows stay
// aligned with the other account operations.
func ForgotPassword(db *mongo.Database, mail *mailer.Mailer, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req forgotPasswordRequest
		if err := crud.BindJSON(c, &req); err != nil {
			apperrors.Abort(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{"email": req.Email, "active": true}).Decode(&user)
		if errors.Is(err, mongo.ErrNoDocuments) {
			apperrors.Abort(c, apperrors.NotFound("no user found with email %s", req.Email))
			return
		}
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		code, err := generateResetCode()
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		expires := time.Now().Add(10 * time.Minute)
		verified := false
		update := bson.M{"$set": bson.M{
			"passwordResetCode":     hashToken(code),
			"passwordResetExpires":  expires,
			"passwordResetVerified": verified,
		}}
		if _, err := db.Collection("users").UpdateOne(ctx, bson.M{"_id": user.ID}, update); err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		if err := mail.SendResetCode(user.Email, user.Name, code); err != nil {
			logger.WithError(err).Error("reset code email failed")
			// Roll the code back so a stale code cannot linger.
			_, _ = db.Collection("users").UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$unset": bson.M{
				"passwordResetCode":     "",
				"passwordResetExpires":  "",
				"passwordResetVerified": "",
			}})
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "reset code sent to email"})
	}
}

func VerifyResetCode(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyResetCodeRequest
		if err := crud.BindJSON(c, &req); err != nil {
			apperrors.Abort(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		result, err := db.Collection("users").UpdateOne(ctx,
			bson.M{
				"email":                req.Email,
				"passwordResetCode":    hashToken(req.Code),
				"passwordResetExpires": bson.M{"$gt": time.Now()},
			},
			bson.M{"$set": bson.M{"passwordResetVerified": true}},
		)
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}
		if result.MatchedCount == 0 {
			apperrors.Abort(c, apperrors.BadRequest("reset code is invalid or expired"))
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}

func ResetPassword(db *mongo.Database, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resetPasswordRequest
		if err := crud.BindJSON(c, &req); err != nil {
			apperrors.Abort(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		var user models.User
		err := db.Collection("users").FindOne(ctx, bson.M{
			"email":                 req.Email,
			"passwordResetVerified": true,
		}).Decode(&user)
		if errors.Is(err, mongo.ErrNoDocuments) {
			apperrors.Abort(c, apperrors.BadRequest("reset code was not verified"))
			return
		}
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		now := time.Now()
		_, err = db.Collection("users").UpdateOne(ctx,
			bson.M{"_id": user.ID},
			bson.M{
				"$set": bson.M{
					"password":          string(hash),
					"passwordChangedAt": now,
					"updatedAt":         now,
				},
				"$unset": bson.M{
					"passwordResetCode":     "",
					"passwordResetExpires":  "",
					"passwordResetVerified": "",
				},
			},
		)
		if err != nil {
			apperrors.Abort(c, apperrors.Internal(err))
			return
		}

		tokens, err := issueTokens(ctx, db, user, cfg)
		if err != nil {
			apperrors.Abort(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": tokens})
	}
}

func issueTokens(ctx context.Context, db *mongo.Database, user models.User, cfg config.Config) (*authTokens, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"userId": user.ID.Hex(),
		"role":   user.Role,
		"iat":    now.Unix(),
		"exp":    now.Add(cfg.AccessTokenTTL).Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, apperrors.Internal(err)
	}
	refresh := hex.EncodeToString(raw)

	record := models.RefreshToken{
		User:      user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: now.Add(cfg.RefreshTokenTTL),
		CreatedAt: now,
	}
	if _, err := db.Collection("refresh_tokens").InsertOne(ctx, record); err != nil {
		return nil, apperrors.Internal(err)
	}

	return &authTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(cfg.AccessTokenTTL.Seconds()),
	}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateResetCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
