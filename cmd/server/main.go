// Package main runs the loyalty platform HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/avaloyal/backend/config"
	"github.com/avaloyal/backend/internal/chain"
	"github.com/avaloyal/backend/internal/identity"
	"github.com/avaloyal/backend/internal/middleware"
	"github.com/avaloyal/backend/internal/notify"
	"github.com/avaloyal/backend/internal/orgs"
	"github.com/avaloyal/backend/internal/seeding"
	"github.com/avaloyal/backend/internal/store"
	"github.com/avaloyal/backend/internal/transfers"
	"github.com/avaloyal/backend/internal/users"
	"github.com/avaloyal/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	st, err := store.New(ctx, cfg.AWS, logger)
	if err != nil {
		logger.Fatal("store", zap.Error(err))
	}

	chainClient, err := chain.Dial(ctx, cfg.Chain, logger)
	if err != nil {
		logger.Fatal("chain", zap.Error(err))
	}
	defer chainClient.Close()

	sms, err := notify.NewSMS(ctx, cfg.SMS, cfg.AWS, logger)
	if err != nil {
		logger.Fatal("sms", zap.Error(err))
	}

	seeder, err := seeding.NewService(st, chainClient, cfg.Chain.SeedAmountWei, logger)
	if err != nil {
		logger.Fatal("seeding", zap.Error(err))
	}

	identityHandler := identity.NewHandler(st, cfg.Org.DefaultOrgID, cfg.Chain.AddressHRP)
	streamHandler := seeding.NewStreamHandler(seeder)
	userHandler := users.NewHandler(st, chainClient, logger)
	orgHandler := orgs.NewHandler(st, chainClient, seeder, logger)
	transferHandler := transfers.NewHandler(st, chainClient, sms, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Infrastructure hooks (shared secret, no user token)
	hooks := router.Group("/hooks")
	hooks.Use(middleware.RequireStreamSecret(cfg.Hooks.StreamSecret))
	{
		hooks.POST("/post-confirmation", identityHandler.PostConfirmation)
		hooks.POST("/user-stream", streamHandler.HandleStream)
	}

	// Protected API (bearer token required)
	api := router.Group("")
	api.Use(middleware.Auth(cfg.JWT.Secret))
	{
		api.GET("/users/:id", userHandler.Get)
		api.PATCH("/users/:id", userHandler.Patch)
		api.GET("/users/:id/transactions", userHandler.Transactions)

		api.GET("/orgs/:id", orgHandler.Get)
		api.GET("/orgs/:id/nfts", orgHandler.ListNFTs)
		api.POST("/orgs/:id/join", orgHandler.Join)
		api.POST("/orgs/:id/seed", orgHandler.Seed)
		api.POST("/orgs/:id/burn", orgHandler.Burn)
		api.POST("/orgs/:id/mint", orgHandler.Mint)
		api.POST("/orgs/:id/transfers", transferHandler.Create)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
