package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/drawclub/draw-promo-service/internal/cache"
	"github.com/drawclub/draw-promo-service/internal/config"
	"github.com/drawclub/draw-promo-service/internal/handler"
	"github.com/drawclub/draw-promo-service/internal/repository"
	"github.com/drawclub/draw-promo-service/internal/service"
	"github.com/drawclub/draw-promo-service/internal/validator"
	"github.com/drawclub/draw-promo-service/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), cfg.DB.MaxRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to prepare database schema")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Draw Promo Service",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())

	validate := validator.New()
	healthHandler := handler.NewHealthHandler(pool)

	// Draw cache is optional; an empty REDIS_ADDR runs without it.
	var drawCache service.DrawCache
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rc := cache.NewDrawCache(redisClient, cfg.Redis.DrawTTL)
		drawCache = rc
		healthHandler.WithCache(rc)
		log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.DrawTTL).Msg("draw cache enabled")
	} else {
		log.Info().Msg("draw cache disabled")
	}

	drawRepo := repository.NewDrawRepository(pool)
	drawService := service.NewDrawService(pool, drawRepo, drawCache, cfg.Promo.DefaultTimezone)
	drawHandler := handler.NewDrawHandler(drawService, validate)

	app.Get("/health", healthHandler.Check)

	app.Post("/api/draws", drawHandler.CreateDraw)
	app.Get("/api/draws/:id", drawHandler.GetDraw)
	app.Put("/api/draws/:id/promo-periods", drawHandler.UpdatePromoPeriods)
	app.Get("/api/draws/:id/multiplier", drawHandler.PreviewMultiplier)
	app.Post("/api/promo-periods/validate", drawHandler.ValidatePromoPeriods)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close stores AFTER server shutdown (even if shutdown timed out)
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis client")
		}
	}
	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
