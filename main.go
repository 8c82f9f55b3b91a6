package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storeapi/internal/config"
	"storeapi/internal/database"
	"storeapi/internal/mailer"
	"storeapi/internal/middleware"
	"storeapi/internal/payment"
	"storeapi/internal/routes"
)

func main() {
	cfg := config.Load()
	logger := middleware.NewLogger(cfg.LogLevel, cfg.LogFormat)

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to MongoDB")
	}
	logger.Info("connected to MongoDB")

	db := client.Database(cfg.DBName)
	if err := database.EnsureIndexes(db); err != nil {
		logger.WithError(err).Warn("failed to ensure indexes")
	}

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.ErrorRenderer(logger, cfg.Development()))

	if cfg.RedisAddr != "" {
		rdb, err := database.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, rate limiting disabled")
		} else {
			r.Use(middleware.RateLimit(rdb, cfg.RateLimitPerMinute))
		}
	}

	routes.Register(r, routes.Deps{
		DB:      db,
		Config:  cfg,
		Gateway: payment.NewStripeGateway(cfg.StripeSecretKey),
		Mailer:  mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom),
		Logger:  logger,
	})

	logger.WithField("port", cfg.Port).Info("server listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
