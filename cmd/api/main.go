package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"openkits-api/internal/cache"
	"openkits-api/internal/config"
	"openkits-api/internal/handler"
	"openkits-api/internal/middleware"
	"openkits-api/internal/repository"
	"openkits-api/internal/router"
	"openkits-api/internal/service"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting OpenKits API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize kit store based on config
	var store repository.Store
	switch cfg.Storage.Type {
	case "mysql":
		mysqlStore, err := repository.NewMySQLStore(cfg.Storage.DSN(), cfg.Storage.TablePrefix)
		if err != nil {
			log.Fatalf("Failed to initialize MySQL: %v", err)
		}
		store = mysqlStore
		log.Println("MySQL kit store initialized")
	default: // sqlite
		sqliteStore, err := repository.NewSQLiteStore(cfg.Storage.Path, cfg.Storage.TablePrefix)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		store = sqliteStore
		log.Println("SQLite kit store initialized")
	}
	defer store.Close()

	// Initialize cooldown cache based on config
	var cooldownCache cache.Cache
	if cfg.Cache.Type == "redis" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Warning: Redis connection failed, falling back to memory cache: %v", err)
			redisClient.Close()
		} else {
			cooldownCache = cache.NewRedisCache(redisClient, cfg.App.Name)
			log.Println("Redis cooldown cache initialized")
		}
		cancel()
	}
	if cooldownCache == nil {
		cooldownCache = cache.NewMemoryCache(cfg.Cache.MaxEntries)
		log.Println("Memory cooldown cache initialized")
	}
	defer cooldownCache.Close()

	// Kit index is always in-process
	kitCache := cache.NewKitCache(cfg.Cache.MaxEntries, cfg.Cache.KitTTL)
	defer kitCache.Close()

	// Initialize services
	kitService := service.NewKitService(store, kitCache, cooldownCache, cfg.Cache.CooldownTTL)

	purgeScheduler := service.NewPurgeScheduler(store, service.PurgeConfig{
		Interval:  cfg.Purge.Interval,
		Retention: cfg.Purge.Retention,
	})
	purgeScheduler.Start()
	defer purgeScheduler.Stop()

	// Initialize handlers
	healthHandler := handler.New(store)
	kitHandler := handler.NewKitHandler(kitService)
	cooldownHandler := handler.NewCooldownHandler(kitService)

	// Create auth middleware with injected dependencies (NO GLOBALS!)
	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		APIKey: cfg.App.APIKey,
	})

	// Create router
	r := router.New(router.Config{
		Handler:         healthHandler,
		KitHandler:      kitHandler,
		CooldownHandler: cooldownHandler,
		AuthMiddleware:  authMiddleware,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
