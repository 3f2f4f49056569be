package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "gymsync/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gymsync/internal/auth"
	"gymsync/internal/cache"
	"gymsync/internal/config"
	"gymsync/internal/db"
	"gymsync/internal/handler"
	"gymsync/internal/logging"
	"gymsync/internal/middleware"
	"gymsync/internal/realtime"
	"gymsync/internal/repository"
	"gymsync/internal/router"
	"gymsync/internal/service"
)

// @title GymSync API
// @version 1.0
// @description Multi-tenant gym management backend: accounts, gym owner approval, notifications and realtime delivery.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, err := db.Open(cfg)
	if err != nil {
		logger.Fatal("database init", zap.Error(err))
	}
	if cfg.ResetDB {
		logger.Warn("RESET_DB=true detected, dropping all tables")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, logger)
	defer func() { _ = cacheClient.Close() }()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		logger.Warn("redis unavailable, logout revocation disabled until it recovers", zap.Error(err))
	}
	cancelPing()

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)
	notificationRepo := repository.NewNotificationRepository(gormDB)

	// Auth components
	tokenService := auth.NewTokenService(cfg.JWTSecret, auth.WithTokenTTL(cfg.TokenTTL))
	tokenStore := auth.NewTokenStore(cacheClient)
	verifier := auth.NewVerifier(tokenService, tokenStore)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost, cfg.HashConcurrency)

	// Realtime
	registry := realtime.NewMemoryRegistry()
	wsServer := realtime.NewServer(verifier, registry, logger.Named("realtime"),
		realtime.WithAuthTimeout(cfg.WSAuthTimeout),
		realtime.WithAllowedOrigins(cfg.CORSOrigins),
	)

	// Services
	authService := service.NewAuthService(userRepo, hasher, tokenService, tokenStore, service.BootstrapConfig{
		Email:    cfg.SuperAdminEmail,
		Password: cfg.SuperAdminPassword,
		Name:     cfg.SuperAdminName,
	}, logger.Named("auth"))
	notificationService := service.NewNotificationService(notificationRepo, registry, logger.Named("notifications"))
	approvalService := service.NewApprovalService(userRepo, notificationService, logger.Named("approval"))
	userService := service.NewUserService(userRepo, logger.Named("users"))

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	if err := authService.Bootstrap(bootCtx); err != nil {
		logger.Fatal("bootstrap super admin", zap.Error(err))
	}
	cancelBoot()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, logger, middleware.NewGuard(verifier, userService), router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Approval:     handler.NewApprovalHandler(approvalService),
		Notification: handler.NewNotificationHandler(notificationService),
		User:         handler.NewUserHandler(userService),
		Realtime:     wsServer,
	})

	logger.Info("swagger documentation available", zap.String("url", swaggerURL(cfg)))

	addr := ":" + cfg.ServerPort
	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("db_driver", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown", zap.Error(err))
	}
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
