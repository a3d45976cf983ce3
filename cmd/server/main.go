package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/darkodi/shorturl/internal/config"
	"github.com/darkodi/shorturl/internal/handler"
	"github.com/darkodi/shorturl/internal/idgen"
	"github.com/darkodi/shorturl/internal/logger"
	"github.com/darkodi/shorturl/internal/middleware"
	"github.com/darkodi/shorturl/internal/repository"
	"github.com/darkodi/shorturl/internal/service"
)

const connectTimeout = 10 * time.Second

func main() {
	// ============================================================
	// LOAD CONFIGURATION
	// ============================================================
	fmt.Println("📋 Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if cfg.IsDevelopment() {
		fmt.Printf("   Environment: %s\n", cfg.App.Environment)
		fmt.Printf("   Port: %s\n", cfg.Server.Port)
		fmt.Printf("   Store: %s\n", cfg.Database.Driver)
		fmt.Printf("   Base URL: %s\n", cfg.App.BaseURL)
	}

	log := logger.New(cfg.Log)
	log.Info("starting shorturl",
		"level", cfg.Log.Level,
		"format", cfg.Log.Format,
		"environment", cfg.App.Environment,
		"store", cfg.Database.Driver)

	// ============================================================
	// INITIALIZE LAYERS
	// ============================================================
	fmt.Println("🗄️  Connecting to store...")
	store, err := openStore(cfg, log)
	if err != nil {
		log.Error("failed to initialize store", "driver", cfg.Database.Driver, "error", err.Error())
		os.Exit(1)
	}

	gen, err := idgen.New()
	if err != nil {
		log.Error("failed to initialize id generator", "error", err.Error())
		os.Exit(1)
	}
	gen.WithReserved(handler.ReservedIDs...)

	svc := service.NewURLService(store, gen, cfg.App.BaseURL, log)
	h := handler.NewURLHandler(svc, log)

	wrappedRouter := middleware.Chain(h.SetupRoutes(),
		middleware.RequestID,
		middleware.RecoveryWithLogger(log),
		middleware.LoggingWithLogger(log),
	)

	// ============================================================
	// CREATE SERVER WITH CONFIG TIMEOUTS
	// ============================================================
	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      wrappedRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)

	go func() {
		if cfg.IsDevelopment() {
			fmt.Printf("🚀 Server starting on http://localhost%s\n", addr)
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Endpoints:")
			fmt.Println("  POST /getShortUrl  - Create short URL")
			fmt.Println("  GET  /{id}         - Redirect to original")
			fmt.Println("  GET  /{id}/stats   - View visit count")
			fmt.Println("  GET  /health       - Health check")
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Press Ctrl+C to shutdown gracefully")
		}
		log.Info("server starting", "addr", addr)
		serverErr <- server.ListenAndServe()
	}()

	// ============================================================
	// WAIT FOR SHUTDOWN OR ERROR
	// ============================================================
	select {
	case err := <-serverErr:
		log.Error("server error", "error", err.Error())
		store.Close()
		os.Exit(1)

	case sig := <-shutdown:
		log.Warn("shutdown signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "error", err.Error())
			if err := server.Close(); err != nil {
				log.Error("forced shutdown failed", "error", err.Error())
			}
		}

		if err := store.Close(); err != nil {
			log.Error("failed to close store", "error", err.Error())
		}

		log.Info("server stopped")
	}
}

// openStore connects to the configured mapping store and prepares its schema
func openStore(cfg *config.Config, log *logger.Logger) (service.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		repo, err := repository.NewPostgresRepository(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns, log)
		if err != nil {
			return nil, err
		}
		return repo, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Database.MaxOpenConns,
		})
		repo, err := repository.NewRedisRepository(ctx, client)
		if err != nil {
			client.Close()
			return nil, err
		}
		return repo, nil

	default:
		if cfg.Database.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		repo, err := repository.NewSQLiteRepository(cfg.Database.Path, log)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}
