package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/drawclub/draw-promo-service/internal/model"
	"github.com/drawclub/draw-promo-service/internal/promo"
	"github.com/drawclub/draw-promo-service/internal/service"
)

// DrawServiceInterface defines the interface for draw business logic.
type DrawServiceInterface interface {
	Create(ctx context.Context, req *model.CreateDrawRequest) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Draw, error)
	UpdatePromoPeriods(ctx context.Context, id uuid.UUID, req *model.UpdatePromoPeriodsRequest) error
	PreviewMultiplier(ctx context.Context, id uuid.UUID, at string, tickets int) (*model.MultiplierPreviewResponse, error)
	ValidatePromoPeriods(req *model.ValidatePromoPeriodsRequest) promo.Result
}

// DrawHandler handles HTTP requests for draws and their promotional periods.
type DrawHandler struct {
	service   DrawServiceInterface
	validator *validator.Validate
}

// NewDrawHandler creates a new DrawHandler with the given service and validator.
func NewDrawHandler(svc DrawServiceInterface, v *validator.Validate) *DrawHandler {
	return &DrawHandler{service: svc, validator: v}
}

// timestampFields maps struct fields holding promo.Layout values to their JSON names.
var timestampFields = map[string]string{
	"RunAt":    "run_at",
	"DrawDate": "draw_date",
	"Start":    "start",
	"End":      "end",
}

// formatValidationError converts validator errors to client-facing messages.
// Only the first failing field is reported.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}

	fe := ve[0]
	field, tag := fe.Field(), fe.Tag()

	switch field {
	case "Title":
		switch tag {
		case "required":
			return "invalid request: title is required"
		case "notblank":
			return "invalid request: title cannot be whitespace only"
		case "max":
			return "invalid request: title exceeds maximum length of 255"
		}
		return "invalid request: title is invalid"
	case "EntryCostCents":
		if tag == "required" {
			return "invalid request: entry_cost_cents is required"
		}
		if tag == "lte" {
			return "invalid request: entry_cost_cents exceeds maximum value"
		}
		return "invalid request: entry_cost_cents cannot be negative"
	case "Multiplier":
		return fmt.Sprintf("invalid request: multiplier cannot exceed %d", model.MaxMultiplier)
	case "Currency":
		if tag == "required" {
			return "invalid request: currency is required"
		}
		return "invalid request: currency must be a 3-letter code"
	case "RunAt", "DrawDate", "Start", "End":
		name := timestampFields[field]
		if tag == "required" {
			return "invalid request: " + name + " is required"
		}
		return "invalid request: " + name + " must use format YYYY-MM-DDTHH:mm"
	case "Timezone":
		return "invalid request: timezone must be an IANA zone name"
	case "PromoPeriods":
		return "invalid request: too many promo periods"
	default:
		if tag == "required" {
			return "invalid request: " + field + " is required"
		}
		return "invalid request: " + field + " is invalid"
	}
}

// writeServiceError maps service errors to HTTP responses.
func writeServiceError(c *fiber.Ctx, err error, op string) error {
	var ppErr *service.PromoPeriodsError
	switch {
	case errors.As(err, &ppErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ppErr.Reason})
	case errors.Is(err, service.ErrDrawNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "draw not found"})
	case errors.Is(err, service.ErrDrawExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "draw already exists"})
	case errors.Is(err, service.ErrRunAtInPast):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: run_at must be in the future"})
	case errors.Is(err, service.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	log.Error().Err(err).Str("op", op).Msg("draw request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func parseDrawID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// CreateDraw handles POST /api/draws requests.
func (h *DrawHandler) CreateDraw(c *fiber.Ctx) error {
	var req model.CreateDrawRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	id, err := h.service.Create(c.Context(), &req)
	if err != nil {
		return writeServiceError(c, err, "create_draw")
	}

	return c.Status(fiber.StatusCreated).JSON(model.CreateDrawResponse{ID: id})
}

// GetDraw handles GET /api/draws/:id requests.
func (h *DrawHandler) GetDraw(c *fiber.Ctx) error {
	id, ok := parseDrawID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id must be a UUID"})
	}

	draw, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return writeServiceError(c, err, "get_draw")
	}

	return c.JSON(draw)
}

// UpdatePromoPeriods handles PUT /api/draws/:id/promo-periods requests.
func (h *DrawHandler) UpdatePromoPeriods(c *fiber.Ctx) error {
	id, ok := parseDrawID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id must be a UUID"})
	}

	var req model.UpdatePromoPeriodsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if err := h.service.UpdatePromoPeriods(c.Context(), id, &req); err != nil {
		return writeServiceError(c, err, "update_promo_periods")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// PreviewMultiplier handles GET /api/draws/:id/multiplier?at=&tickets= requests.
// The result is advisory and must not be used to settle a purchase.
func (h *DrawHandler) PreviewMultiplier(c *fiber.Ctx) error {
	id, ok := parseDrawID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: id must be a UUID"})
	}

	at := c.Query("at")
	if at != "" {
		if _, err := promo.ParseLocal(at); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: at must use format YYYY-MM-DDTHH:mm"})
		}
	}

	tickets, err := strconv.Atoi(c.Query("tickets", "1"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: tickets must be an integer"})
	}
	if tickets < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: tickets cannot be negative"})
	}
	if tickets > model.MaxPreviewTickets {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("invalid request: tickets cannot exceed %d", model.MaxPreviewTickets)})
	}

	preview, err := h.service.PreviewMultiplier(c.Context(), id, at, tickets)
	if err != nil {
		return writeServiceError(c, err, "preview_multiplier")
	}

	return c.JSON(preview)
}

// ValidatePromoPeriods handles POST /api/promo-periods/validate requests.
// A rejected period set is a normal 200 response carrying isValid=false.
func (h *DrawHandler) ValidatePromoPeriods(c *fiber.Ctx) error {
	var req model.ValidatePromoPeriodsRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	res := h.service.ValidatePromoPeriods(&req)
	if !res.Valid {
		log.Debug().Str("reason", res.ErrorMessage).Int("promo_periods", len(req.PromoPeriods)).Msg("promo periods rejected")
	}
	return c.JSON(res)
}
