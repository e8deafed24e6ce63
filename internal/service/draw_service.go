package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/drawclub/draw-promo-service/internal/model"
	"github.com/drawclub/draw-promo-service/internal/promo"
	"github.com/drawclub/draw-promo-service/pkg/database"
)

// DrawRepositoryInterface defines the interface for draw data access.
type DrawRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, draw *model.Draw) error
	ReplacePeriods(ctx context.Context, tx database.TxQuerier, drawID uuid.UUID, periods []promo.Period) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Draw, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Draw, error)
}

// DrawCache defines the interface for the draw read cache.
// Get returns nil, nil on a miss.
type DrawCache interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Draw, error)
	Set(ctx context.Context, draw *model.Draw) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// DrawService provides business logic for draws and their promotional periods.
type DrawService struct {
	pool            database.TxBeginner
	repo            DrawRepositoryInterface
	cache           DrawCache
	clock           promo.Clock
	defaultTimezone string
}

// NewDrawService creates a new DrawService. A nil cache disables caching.
// defaultTimezone is applied to draws created without a timezone.
func NewDrawService(pool database.TxBeginner, repo DrawRepositoryInterface, cache DrawCache, defaultTimezone string) *DrawService {
	if cache == nil {
		cache = nopCache{}
	}
	return &DrawService{
		pool:            pool,
		repo:            repo,
		cache:           cache,
		clock:           promo.SystemClock{},
		defaultTimezone: defaultTimezone,
	}
}

// WithClock replaces the clock used for "now". Primarily used for testing.
func (s *DrawService) WithClock(c promo.Clock) *DrawService {
	s.clock = c
	return s
}

// Create validates and stores a new draw with its promotional periods.
// Past-date checks are enforced since this is an explicit submission.
func (s *DrawService) Create(ctx context.Context, req *model.CreateDrawRequest) (uuid.UUID, error) {
	// Defense-in-depth: check for nil pointer even though handler validates
	if req == nil || req.EntryCostCents == nil {
		return uuid.Nil, ErrInvalidRequest
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = s.defaultTimezone
	}

	if req.RunAt <= promo.NowInZone(s.clock, timezone) {
		return uuid.Nil, ErrRunAtInPast
	}

	periods := model.ToPeriods(req.PromoPeriods)
	res := promo.Validate(periods, promo.Options{
		RunAt:             req.RunAt,
		Timezone:          timezone,
		ValidateNotInPast: true,
		Clock:             s.clock,
	})
	if !res.Valid {
		return uuid.Nil, &PromoPeriodsError{Reason: res.ErrorMessage}
	}

	draw := &model.Draw{
		ID:             uuid.New(),
		Title:          req.Title,
		EntryCostCents: *req.EntryCostCents,
		Currency:       req.Currency,
		RunAt:          req.RunAt,
		Timezone:       timezone,
		PromoPeriods:   periods,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	if err := s.repo.Insert(ctx, tx, draw); err != nil {
		return uuid.Nil, err
	}
	if err := s.repo.ReplacePeriods(ctx, tx, draw.ID, periods); err != nil {
		return uuid.Nil, fmt.Errorf("store promo periods: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit draw: %w", err)
	}

	log.Info().
		Str("draw_id", draw.ID.String()).
		Str("run_at", draw.RunAt).
		Str("timezone", draw.Timezone).
		Int("promo_periods", len(periods)).
		Msg("draw created")

	return draw.ID, nil
}

// GetByID retrieves a draw, reading through the cache.
// Returns ErrDrawNotFound if the draw doesn't exist.
func (s *DrawService) GetByID(ctx context.Context, id uuid.UUID) (*model.Draw, error) {
	draw, err := s.cache.Get(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("draw_id", id.String()).Msg("draw cache read failed")
	}

	if draw == nil {
		draw, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get draw: %w", err)
		}
		if draw == nil {
			return nil, ErrDrawNotFound
		}
		if err := s.cache.Set(ctx, draw); err != nil {
			log.Warn().Err(err).Str("draw_id", id.String()).Msg("draw cache write failed")
		}
	}

	draw.Status = s.status(draw)
	return draw, nil
}

// UpdatePromoPeriods replaces the promotional periods of an existing draw.
// Periods that already started are tolerated, so past-date checks are skipped.
func (s *DrawService) UpdatePromoPeriods(ctx context.Context, id uuid.UUID, req *model.UpdatePromoPeriodsRequest) error {
	if req == nil {
		return ErrInvalidRequest
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// 1. Lock the draw row so run_at cannot change under the check
	draw, err := s.repo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}

	// 2. Validate against the stored run date
	periods := model.ToPeriods(req.PromoPeriods)
	res := promo.Validate(periods, promo.Options{
		RunAt:        draw.RunAt,
		Timezone:     draw.Timezone,
		IsUpdateMode: true,
		Clock:        s.clock,
	})
	if !res.Valid {
		return &PromoPeriodsError{Reason: res.ErrorMessage}
	}

	// 3. Replace
	if err := s.repo.ReplacePeriods(ctx, tx, id, periods); err != nil {
		return fmt.Errorf("replace promo periods: %w", err)
	}

	// Invalidate on both sides of the commit. A reader that misses the cache
	// and loads the old rows mid-transaction can still repopulate it after the
	// second delete; that entry stays stale for at most REDIS_DRAW_TTL, which
	// the advisory preview tolerates.
	s.invalidate(ctx, id)
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit promo periods: %w", err)
	}
	s.invalidate(ctx, id)

	log.Info().
		Str("draw_id", id.String()).
		Int("promo_periods", len(periods)).
		Msg("promo periods updated")
	return nil
}

// ValidatePromoPeriods runs the period rules without touching storage.
// It backs form pre-checks; an invalid set is a normal result, not an error.
func (s *DrawService) ValidatePromoPeriods(req *model.ValidatePromoPeriodsRequest) promo.Result {
	return promo.Validate(model.ToPeriods(req.PromoPeriods), promo.Options{
		DrawDate:          req.DrawDate,
		RunAt:             req.RunAt,
		Timezone:          req.Timezone,
		IsUpdateMode:      req.IsUpdateMode,
		ValidateNotInPast: req.ValidateNotInPast,
		Clock:             s.clock,
	})
}

// PreviewMultiplier reports the multiplier active at `at` for a draw and the
// entries a purchase of `tickets` would yield. A blank `at` means now in the
// draw's timezone.
func (s *DrawService) PreviewMultiplier(ctx context.Context, id uuid.UUID, at string, tickets int) (*model.MultiplierPreviewResponse, error) {
	if tickets < 0 || tickets > model.MaxPreviewTickets {
		return nil, ErrInvalidRequest
	}

	draw, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if at == "" {
		at = promo.NowInZone(s.clock, draw.Timezone)
	}
	preview := promo.ActiveMultiplier(draw.PromoPeriods, at)

	return &model.MultiplierPreviewResponse{
		DrawID:        draw.ID,
		At:            at,
		Multiplier:    preview.Multiplier,
		MatchedPeriod: preview.Matched,
		Tickets:       tickets,
		Entries:       promo.Entries(tickets, preview),
	}, nil
}

func (s *DrawService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		log.Warn().Err(err).Str("draw_id", id.String()).Msg("draw cache invalidation failed")
	}
}

func (s *DrawService) status(d *model.Draw) model.DrawStatus {
	if promo.NowInZone(s.clock, d.Timezone) < d.RunAt {
		return model.DrawStatusUpcoming
	}
	return model.DrawStatusDrawn
}

type nopCache struct{}

func (nopCache) Get(context.Context, uuid.UUID) (*model.Draw, error) { return nil, nil }
func (nopCache) Set(context.Context, *model.Draw) error              { return nil }
func (nopCache) Invalidate(context.Context, uuid.UUID) error         { return nil }
