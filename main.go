package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"linklet/internal/cache"
	"linklet/internal/config"
	"linklet/internal/controllers"
	"linklet/internal/database"
	"linklet/internal/jwt"
	"linklet/internal/logger"
	"linklet/internal/middleware"
	"linklet/internal/repository"
	"linklet/internal/service"
	"linklet/internal/store"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.Load()
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Connect to database
	db, err := database.NewConnection(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("database ready")

	// Redis is optional; the repository degrades to store-only reads
	var cacheClient cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.NewRedisCache(cfg.RedisURL, time.Duration(cfg.CacheTimeoutMS)*time.Millisecond)
		if err != nil {
			log.Warn("redis unavailable, continuing without cache", "error", err)
			cacheClient = nil
		} else {
			log.Info("connected to redis")
		}
	}

	recordStore := store.NewPostgresStore(db)
	repo := repository.NewShortLinkRepository(
		recordStore,
		cacheClient,
		time.Duration(cfg.CacheTTLSeconds)*time.Second,
		log.With("component", "repository"),
	)

	jwtService := jwt.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTTTL)*time.Hour)

	linkService := service.NewShortLinkService(repo, service.Config{
		BaseURL:           cfg.BaseURL,
		CodeLength:        cfg.CodeLength,
		MaxURLLength:      cfg.MaxURLLength,
		DefaultExpiryDays: cfg.DefaultExpiryDays,
		DedupByTarget:     cfg.DedupByTarget,
	}, log.With("component", "service"))

	linkController := controllers.NewShortLinkController(linkService)
	authController := controllers.NewAuthController(jwtService, cfg.AdminKeyHash)
	qrcodeController := controllers.NewQRCodeController(cfg.BaseURL)

	apiRateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	redirectLimiter := middleware.NewRedirectLimiter(
		cacheClient,
		int64(cfg.RedirectLimitRequests),
		time.Duration(cfg.RedirectLimitWindowSeconds)*time.Second,
		log.With("component", "ratelimit"),
	)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log.With("component", "http")))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Redirect endpoint with the shared fixed-window limiter
	router.GET("/:code", redirectLimiter.LimitMiddleware(), linkController.Redirect)

	api := router.Group("/api/v1")
	api.Use(apiRateLimiter.LimitMiddleware())
	{
		api.POST("/shorten", linkController.Create)
		api.GET("/redirect/:code", redirectLimiter.LimitMiddleware(), linkController.ResolveJSON)
		api.GET("/info/:code", linkController.Info)
		api.GET("/qrcode/:code", qrcodeController.Generate)

		api.POST("/auth/token", authController.Token)

		// Management routes require an admin bearer token
		admin := api.Group("")
		admin.Use(middleware.AuthMiddleware(jwtService))
		{
			admin.GET("/urls", linkController.List)
			admin.PATCH("/urls/:code/expiry", linkController.UpdateExpiry)
			admin.PATCH("/urls/:code/deactivate", linkController.Deactivate)
			admin.DELETE("/urls/:code", linkController.Delete)
			admin.POST("/admin/cleanup", linkController.Cleanup)
		}
	}

	// Background sweeper flips expired links inactive
	if cfg.CleanupIntervalMinutes > 0 {
		go runCleanup(linkService, time.Duration(cfg.CleanupIntervalMinutes)*time.Minute, log)
	}

	log.Info("server starting", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func runCleanup(svc service.ShortLinkService, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if _, err := svc.CleanupExpired(ctx); err != nil {
			log.Warn("expired link sweep failed", "error", err)
		}
		cancel()
	}
}
