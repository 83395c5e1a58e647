package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pokopini/storefront/internal/backend"
	h "github.com/pokopini/storefront/internal/http"
	"github.com/pokopini/storefront/internal/platform/logger"
	"github.com/pokopini/storefront/internal/service"
	"github.com/pokopini/storefront/internal/storage"
)

type Config struct {
	HTTPPort        string
	APIBaseURL      string
	StateStore      string // "memory" or "redis"
	RedisAddr       string
	RedisPassword   string
	LogMode         string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:8000/api"),
		StateStore:      getEnv("STATE_STORE", "memory"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		LogMode:         getEnv("LOG_MODE", "dev"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var store storage.Store
	switch cfg.StateStore {
	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
		store = storage.NewRedisStore(redisClient)
		log.Info("client state persisted in redis", "addr", cfg.RedisAddr)
	default:
		store = storage.NewMemoryStore()
		log.Info("client state kept in memory")
	}

	api := backend.New(backend.Config{BaseURL: cfg.APIBaseURL}, store, log)

	sessions := service.NewSessionManager(api, store, log)
	cart := service.NewCartSynchronizer(api, sessions, store, log)
	sessions.AttachCart(cart)
	api.SetAuthFailureHandler(sessions.ForceLogout)
	checkout := service.NewCheckoutOrchestrator(api, api, cart, sessions, log)

	startCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	sessions.Restore(startCtx)
	if err := cart.Refresh(startCtx); err != nil {
		log.Warn("initial cart load failed", "error", err)
	}
	cancel()

	router := h.NewRouter(
		h.NewSessionHandler(sessions),
		h.NewCartHandler(cart),
		h.NewCheckoutHandler(checkout),
		cfg.RequestTimeout,
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Info("storefront listening", "port", cfg.HTTPPort, "backend", cfg.APIBaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
