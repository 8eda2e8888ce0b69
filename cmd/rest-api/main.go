package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/paxoscn/avalon-sub003/internal/api"
	"github.com/paxoscn/avalon-sub003/internal/services"
	"github.com/paxoscn/avalon-sub003/pkg/common/cache"
	"github.com/paxoscn/avalon-sub003/pkg/common/config"
	"github.com/paxoscn/avalon-sub003/pkg/database"
	"github.com/paxoscn/avalon-sub003/pkg/observability"
	"github.com/paxoscn/avalon-sub003/pkg/repository"
)

var (
	skipMigration = flag.Bool("skip-migration", false, "Skip database migration on startup")
	migrateOnly   = flag.Bool("migrate", false, "Run database migrations and exit")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := observability.NewLoggerWithLevel("server", observability.ParseLogLevel(cfg.Logging.Level))

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		logger.Warn("Tracing initialization failed, continuing without tracing", map[string]interface{}{
			"error": err.Error(),
		})
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Failed to shut down tracing", map[string]interface{}{"error": err.Error()})
		}
	}()

	metricsClient := observability.NewMetricsClient()
	defer func() {
		if err := metricsClient.Close(); err != nil {
			logger.Warn("Failed to close metrics client", map[string]interface{}{"error": err.Error()})
		}
	}()

	db, err := database.New(ctx, database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.Database,
		Username:        cfg.Database.Username,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		AutoMigrate:     cfg.Database.AutoMigrate && !*skipMigration,
		MigrationsPath:  cfg.Database.MigrationsPath,
	}, logger.WithPrefix("database"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
	}()

	if *migrateOnly {
		logger.Info("Migrations completed, exiting (--migrate flag)", nil)
		os.Exit(0)
	}

	// Cache degrades to a no-op when Redis is unreachable
	var cacheClient cache.Cache
	if cfg.Cache.Enabled {
		cacheClient, err = cache.NewRedisCache(cache.RedisConfig{
			Address:      cfg.Cache.Address,
			Password:     cfg.Cache.Password,
			Database:     cfg.Cache.Database,
			MaxRetries:   cfg.Cache.MaxRetries,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			PoolSize:     cfg.Cache.PoolSize,
		})
		if err != nil {
			logger.Warn("Cache initialization failed, running without cache", map[string]interface{}{
				"error": err.Error(),
			})
			cacheClient = cache.NewNoOpCache()
		}
	} else {
		cacheClient = cache.NewNoOpCache()
	}
	defer func() {
		if err := cacheClient.Close(); err != nil {
			logger.Warn("Failed to close cache client", map[string]interface{}{"error": err.Error()})
		}
	}()

	pool := db.GetDB()
	toolService, err := services.NewToolsService(
		repository.NewToolRepository(pool),
		repository.NewToolVersionRepository(pool),
		repository.NewAuditLogRepository(pool),
		cacheClient,
		time.Duration(cfg.Cache.TTLSeconds)*time.Second,
		logger.WithPrefix("tools-service"),
		metricsClient,
	)
	if err != nil {
		log.Fatalf("Failed to initialize tools service: %v", err)
	}

	server := api.NewServer(api.Config{
		ListenAddress: cfg.API.ListenAddress,
		ReadTimeout:   cfg.API.ReadTimeout,
		WriteTimeout:  cfg.API.WriteTimeout,
		IdleTimeout:   cfg.API.IdleTimeout,
		EnableCORS:    cfg.API.EnableCORS,
		Auth: api.AuthConfig{
			JWTSecret: cfg.API.JWTSecret,
			APIKeys:   cfg.API.APIKeys,
		},
		RateLimit: api.RateLimitConfig{
			Enabled: cfg.API.RateLimit.Enabled,
			RPS:     cfg.API.RateLimit.RPS,
			Burst:   cfg.API.RateLimit.Burst,
		},
	}, toolService, logger, metricsClient)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Received shutdown signal", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", map[string]interface{}{
			"error": err.Error(),
		})
	}
	logger.Info("Server stopped gracefully", nil)
}
