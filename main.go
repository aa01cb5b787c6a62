package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional — deployed environments set real env vars.
	_ = godotenv.Load()

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	legacyURL := os.Getenv("LEGACY_API_URL")
	if legacyURL == "" {
		logger.Fatal("LEGACY_API_URL is required")
	}

	db := getDBPool()
	defer db.Close()

	var cache mealCache = noopMealCache{}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cache = newRedisMealCache(addr, os.Getenv("REDIS_PASSWORD"), 0, logger)
	} else {
		logger.Warn("REDIS_ADDR not set — meal caching disabled")
	}

	legacy := newLegacyClient(legacyURL, logger)
	engine := newMinutaEngine(legacy, legacy, newPGAssignmentStore(db), legacy, cache, logger)

	h := &Handler{db: db, engine: engine, log: logger}

	router := gin.Default()
	_ = router.SetTrustedProxies(nil)
	h.registerRoutes(router)

	addr := env("ADDR", ":3000")
	logger.Info("listening", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

// newLogger builds a production zap logger, or a human-readable development
// one when APP_ENV=dev.
func newLogger() *zap.Logger {
	if os.Getenv("APP_ENV") == "dev" {
		l, _ := zap.NewDevelopment()
		return l
	}
	l, _ := zap.NewProduction()
	return l
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
