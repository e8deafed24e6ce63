package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	db    Pinger
	cache Pinger
}

// NewHealthHandler creates a new HealthHandler with the given database pool.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// WithCache adds the draw cache to the health check. A cache outage degrades
// the service but does not make it unhealthy.
func (h *HealthHandler) WithCache(cache Pinger) *HealthHandler {
	h.cache = cache
	return h
}

// Check performs a health check by pinging the database and, if configured, the cache.
// Returns 200 OK with {"status": "healthy"} when the database is reachable,
// {"status": "degraded"} when only the cache is down.
// Returns 503 Service Unavailable when the database is unreachable.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.db.Ping(c.Context()); err != nil {
		log.Error().Err(err).Msg("health check failed: database unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
	}

	if h.cache != nil {
		if err := h.cache.Ping(c.Context()); err != nil {
			log.Warn().Err(err).Msg("health check: cache unreachable")
			return c.JSON(fiber.Map{
				"status": "degraded",
				"cache":  "unreachable",
			})
		}
	}

	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}
