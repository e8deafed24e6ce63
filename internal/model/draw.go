package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/drawclub/draw-promo-service/internal/promo"
)

// DrawStatus is derived from the run date on read; it is never stored.
type DrawStatus string

const (
	DrawStatusUpcoming DrawStatus = "upcoming"
	DrawStatusDrawn    DrawStatus = "drawn"
)

// Draw is a time-boxed lottery event with its promotional periods.
// RunAt and the period bounds are local times in Timezone.
type Draw struct {
	ID             uuid.UUID      `json:"id"`
	Title          string         `json:"title"`
	EntryCostCents int            `json:"entry_cost_cents"`
	Currency       string         `json:"currency"`
	RunAt          string         `json:"run_at"`
	Timezone       string         `json:"timezone"`
	PromoPeriods   []promo.Period `json:"promo_periods"`
	Status         DrawStatus     `json:"status,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Input bounds. Multiplier and cost columns are INTEGER, and the preview's
// entries count must not overflow.
const (
	MaxMultiplier     = 1000
	MaxPreviewTickets = 10000
)

// CreateDrawRequest is the DTO for POST /api/draws
type CreateDrawRequest struct {
	Title          string             `json:"title" validate:"required,notblank,max=255"`
	EntryCostCents *int               `json:"entry_cost_cents" validate:"required,gte=0,lte=2147483647"`
	Currency       string             `json:"currency" validate:"required,len=3,alpha"`
	RunAt          string             `json:"run_at" validate:"required,localminute"`
	Timezone       string             `json:"timezone" validate:"omitempty,timezone"`
	PromoPeriods   []PromoPeriodInput `json:"promo_periods" validate:"omitempty,max=50,dive"`
}

// PromoPeriodInput carries a period from a client form. Bounds may be blank
// while the form is being edited; the rules in package promo decide the rest.
type PromoPeriodInput struct {
	Start      string `json:"start" validate:"omitempty,localminute"`
	End        string `json:"end" validate:"omitempty,localminute"`
	Multiplier int    `json:"multiplier" validate:"max=1000"`
}

// UpdatePromoPeriodsRequest is the DTO for PUT /api/draws/:id/promo-periods
type UpdatePromoPeriodsRequest struct {
	PromoPeriods []PromoPeriodInput `json:"promo_periods" validate:"max=50,dive"`
}

// ValidatePromoPeriodsRequest is the DTO for POST /api/promo-periods/validate
type ValidatePromoPeriodsRequest struct {
	PromoPeriods      []PromoPeriodInput `json:"promo_periods" validate:"max=50,dive"`
	DrawDate          string             `json:"draw_date" validate:"omitempty,localminute"`
	RunAt             string             `json:"run_at" validate:"omitempty,localminute"`
	Timezone          string             `json:"timezone" validate:"omitempty,timezone"`
	IsUpdateMode      bool               `json:"is_update_mode"`
	ValidateNotInPast bool               `json:"validate_not_in_past"`
}

// MultiplierPreviewResponse is the API response for GET /api/draws/:id/multiplier
type MultiplierPreviewResponse struct {
	DrawID        uuid.UUID     `json:"draw_id"`
	At            string        `json:"at"`
	Multiplier    int           `json:"multiplier"`
	MatchedPeriod *promo.Period `json:"matched_period,omitempty"`
	Tickets       int           `json:"tickets"`
	Entries       int           `json:"entries"`
}

// CreateDrawResponse is the API response for POST /api/draws
type CreateDrawResponse struct {
	ID uuid.UUID `json:"id"`
}

// ToPeriods converts form input into promo periods, keeping input order.
func ToPeriods(in []PromoPeriodInput) []promo.Period {
	out := make([]promo.Period, len(in))
	for i, p := range in {
		out[i] = promo.Period{Start: p.Start, End: p.End, Multiplier: p.Multiplier}
	}
	return out
}
