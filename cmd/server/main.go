package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-partners/auth"
	"github.com/diewo77/go-partners/internal/config"
	"github.com/diewo77/go-partners/internal/db"
	"github.com/diewo77/go-partners/internal/handlers"
	"github.com/diewo77/go-partners/internal/logger"
	"github.com/diewo77/go-partners/internal/ratelimit"
	"github.com/diewo77/go-partners/internal/storage"
	"github.com/diewo77/go-partners/internal/store"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	dbConn, err := db.Open(cfg.Database, log.Named("db"), cfg.App.Dev)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if *migrateOnlyFlag {
		if err := db.Migrate(dbConn, cfg.Database, true); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations completed")
		return nil
	}

	if *seedOnlyFlag {
		if err := seed(cfg, dbConn); err != nil {
			return err
		}
		log.Info("seeding completed")
		return nil
	}

	if err := db.Migrate(dbConn, cfg.Database, cfg.App.Migrations); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := seed(cfg, dbConn); err != nil {
		return err
	}

	deps := handlers.Deps{
		Store:               store.New(dbConn),
		Issuer:              auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		Logger:              log,
		Location:            cfg.App.LoadLocation(),
		OverviewConcurrency: cfg.App.OverviewConcurrency,
	}

	// Redis backs token revocation and the public rate limit when configured.
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		deps.Revoker = auth.NewRedisRevoker(rdb)
		deps.Limiter = ratelimit.NewRedis(rdb, cfg.Redis.PublicRateLimit, time.Minute)
		log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		deps.Limiter = ratelimit.NewMemory(cfg.Redis.PublicRateLimit, time.Minute)
		log.Warn("redis not configured, logout revocation disabled")
	}

	// The PDF archive is optional; the PDF endpoint still renders without it.
	if cfg.Storage.Endpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		archive, err := storage.NewMinIOArchive(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey,
			cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL, log.Named("storage"))
		cancel()
		if err != nil {
			log.Warn("proposal archive unavailable", zap.Error(err))
		} else {
			deps.Archive = archive
		}
	}

	routerCfg := handlers.NewRouterConfig(deps)
	appHandler := NewApp(dbConn, routerCfg, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      appHandler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ErrorLog:     zap.NewStdLog(log.Named("http")),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("env", cfg.App.Env),
			zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server stopped gracefully")
	return nil
}

// seed creates the first admin and, when enabled, the demo tenant.
func seed(cfg *config.Config, dbConn *gorm.DB) error {
	if err := db.SeedAdmin(dbConn, cfg.App.AdminEmail, cfg.App.AdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if cfg.App.Seed {
		if err := db.SeedDemo(dbConn, time.Now()); err != nil {
			return fmt.Errorf("seed demo: %w", err)
		}
	}
	return nil
}
