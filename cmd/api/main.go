package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/barberbook/internal/auth"
	"github.com/BradenHooton/barberbook/internal/background"
	"github.com/BradenHooton/barberbook/internal/config"
	"github.com/BradenHooton/barberbook/internal/database"
	"github.com/BradenHooton/barberbook/internal/handlers"
	"github.com/BradenHooton/barberbook/internal/metrics"
	"github.com/BradenHooton/barberbook/internal/middleware"
	"github.com/BradenHooton/barberbook/internal/models"
	"github.com/BradenHooton/barberbook/internal/repositories"
	"github.com/BradenHooton/barberbook/internal/routes"
	"github.com/BradenHooton/barberbook/internal/services"
	pkgauth "github.com/BradenHooton/barberbook/pkg/auth"
	pkghttp "github.com/BradenHooton/barberbook/pkg/http"
	pkglogger "github.com/BradenHooton/barberbook/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, cfg.Database.DSN(), logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	accountRepo := repositories.NewAccountRepository(db)
	revokeRepo := repositories.NewTokenRevocationRepository(db)

	// IP attempt store
	var (
		ipStore     services.IPAttemptStore
		memoryStore *repositories.MemoryIPAttemptStore
	)
	switch cfg.IPGuard.Backend {
	case config.IPGuardBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		ipStore = repositories.NewRedisIPAttemptStore(client)
		logger.Info("ip guard using redis", slog.String("addr", cfg.Redis.Addr))
	default:
		memoryStore = repositories.NewMemoryIPAttemptStore()
		ipStore = memoryStore
	}

	// Email
	var emailSender services.EmailSender
	if cfg.Email.Provider == "ses" {
		sesSender, err := services.NewSESEmailSender(ctx, cfg.Email.AWSRegion, cfg.Email.From, cfg.Email.FrontendURL, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize email service: %w", err)
		}
		emailSender = sesSender
	} else {
		emailSender = services.NewLogEmailSender(cfg.Email.FrontendURL, cfg.Server.Env, logger)
	}

	// Auth primitives
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.JWTIssuer,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	totpManager, err := auth.NewTOTPManager(cfg.TOTP.EncryptionKey, cfg.TOTP.Issuer, cfg.TOTP.Skew)
	if err != nil {
		return fmt.Errorf("failed to initialize TOTP: %w", err)
	}

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingBaseDelayMs,
		RandomDelayMs: cfg.Auth.TimingRandomMs,
	})

	ipConfig, err := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	if err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}

	auditLogger := pkglogger.NewAuditLogger(logger)
	appMetrics := metrics.New("barberbook")

	// Services
	authService, err := services.NewAuthService(services.AuthServiceDeps{
		Accounts:    accountRepo,
		Revocations: revokeRepo,
		Tokens:      tokenManager,
		TOTP:        totpManager,
		Hasher:      pkgauth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Email:       emailSender,
		Timing:      timingDelay,
		Metrics:     appMetrics,
	}, models.LockoutPolicy{
		Threshold: cfg.Lockout.Threshold,
		Duration:  cfg.Lockout.Duration,
	}, logger, auditLogger)
	if err != nil {
		return err
	}

	twoFactorService := services.NewTwoFactorService(accountRepo, totpManager, logger, auditLogger)

	ipGuard := services.NewIPGuard(ipStore, services.IPGuardConfig{
		MaxFailures:   cfg.IPGuard.MaxFailures,
		BlockDuration: cfg.IPGuard.BlockDuration,
	}, appMetrics, logger, auditLogger)

	// HTTP
	router := routes.NewRouter(
		routes.Options{
			Env:            cfg.Server.Env,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RequestTimeout: 60 * time.Second,
			APIRateLimit:   middleware.DefaultAPIRateLimit(),
			AuthRateLimit:  middleware.DefaultAuthRateLimit(),
			IPConfig:       ipConfig,
			Metrics:        appMetrics,
		},
		routes.Handlers{
			Auth:      handlers.NewAuthHandler(authService, ipGuard, ipConfig, logger),
			TwoFactor: handlers.NewTwoFactorHandler(twoFactorService, logger),
			Health:    handlers.NewHealthHandler(db, logger),
		},
		tokenManager,
		revokeRepo,
		logger,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Background cleanup
	var pruner background.IPAttemptPruner
	if memoryStore != nil {
		pruner = memoryStore
	}
	cleanupManager := background.NewCleanupManager(revokeRepo, pruner, logger, cfg.Auth.CleanupInterval)
	go cleanupManager.Start(ctx)
	defer cleanupManager.Stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
