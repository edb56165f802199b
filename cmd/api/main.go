package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-brokerage-backend/config"
	_ "go-brokerage-backend/docs" // Important for Swagger
	v1 "go-brokerage-backend/internal/delivery/http/v1"
	"go-brokerage-backend/internal/repository/postgres"
	"go-brokerage-backend/internal/usecase"
	"go-brokerage-backend/pkg/alpaca"
	"go-brokerage-backend/pkg/auth"
	"go-brokerage-backend/pkg/database"
	"go-brokerage-backend/pkg/logger"
	"go-brokerage-backend/pkg/redis"

	"github.com/go-playground/validator/v10"
)

// @title           Brokerage Onboarding Backend API
// @version         1.0
// @description     Onboarding, account linking and trading-dashboard relay using Clean Architecture.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init()
	logger.Log.Info("Starting brokerage backend", "port", cfg.Port, "demo_mode", cfg.DemoMode())

	// 3. Setup Database
	dbPool, err := database.NewPostgresConnection(cfg.DBUrl)
	if err != nil {
		logger.Log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 4. Setup Redis (optional; rate limiting falls back to in-memory)
	redisClient, err := redis.NewClient(redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword})
	if err != nil {
		logger.Log.Warn("Redis unavailable, rate limiting uses in-memory fallback", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// 5. Setup Repositories and Brokerage Client
	profileRepo := postgres.NewProfileRepository(dbPool)
	broker := alpaca.NewClient(alpaca.Config{
		APIKey:    cfg.AlpacaAPIKey,
		APISecret: cfg.AlpacaAPISecret,
		BaseURL:   cfg.AlpacaBaseURL,
		DataURL:   cfg.AlpacaDataURL,
	})
	if broker.Demo() {
		logger.Log.Warn("Brokerage client running in DEMO mode - no credentials configured")
	}

	// 6. Setup UseCases
	validate := validator.New()
	tokens := auth.NewTokenService(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	profileUC := usecase.NewProfileUsecase(profileRepo, validate)
	authUC := usecase.NewAuthUsecase(profileRepo, tokens)
	linkingUC := usecase.NewLinkingUsecase(profileRepo, broker)
	tradingUC := usecase.NewTradingUsecase(broker)
	healthUC := usecase.NewHealthUsecase(dbPool, broker.Demo())

	// 7. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		ProfileUC: profileUC,
		AuthUC:    authUC,
		LinkingUC: linkingUC,
		TradingUC: tradingUC,
		HealthUC:  healthUC,
		Tokens:    tokens,
		Redis:     redisClient,
		Config:    cfg,
	})

	// 8. Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
