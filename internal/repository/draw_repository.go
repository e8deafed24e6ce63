package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drawclub/draw-promo-service/internal/model"
	"github.com/drawclub/draw-promo-service/internal/promo"
	"github.com/drawclub/draw-promo-service/internal/service"
	"github.com/drawclub/draw-promo-service/pkg/database"
)

const drawColumns = `id, title, entry_cost_cents, currency, run_at, timezone, created_at`

// DrawRepository provides data access for draws and their promo periods using pgx.
type DrawRepository struct {
	pool database.TxQuerier
}

// NewDrawRepository creates a new DrawRepository with the given pool.
func NewDrawRepository(pool *pgxpool.Pool) *DrawRepository {
	return &DrawRepository{pool: pool}
}

// NewDrawRepositoryWithPool creates a new DrawRepository with a custom querier.
// This is primarily used for testing.
func NewDrawRepositoryWithPool(pool database.TxQuerier) *DrawRepository {
	return &DrawRepository{pool: pool}
}

// Insert inserts the draw row within a transaction.
// Returns service.ErrDrawExists on a primary key conflict.
func (r *DrawRepository) Insert(ctx context.Context, tx database.TxQuerier, draw *model.Draw) error {
	runAt, err := promo.ParseLocal(draw.RunAt)
	if err != nil {
		return fmt.Errorf("insert draw: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO draws (id, title, entry_cost_cents, currency, run_at, timezone) VALUES ($1, $2, $3, $4, $5, $6)`,
		draw.ID, draw.Title, draw.EntryCostCents, draw.Currency, runAt, draw.Timezone)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrDrawExists
		}
		return fmt.Errorf("insert draw: %w", err)
	}
	return nil
}

// ReplacePeriods deletes the stored periods of a draw and inserts the given
// ones, keeping their input order in the position column.
// Must be called within a transaction.
func (r *DrawRepository) ReplacePeriods(ctx context.Context, tx database.TxQuerier, drawID uuid.UUID, periods []promo.Period) error {
	if _, err := tx.Exec(ctx, `DELETE FROM draw_promo_periods WHERE draw_id = $1`, drawID); err != nil {
		return fmt.Errorf("delete promo periods for %s: %w", drawID, err)
	}

	for i, p := range periods {
		start, err := nullableLocal(p.Start)
		if err != nil {
			return fmt.Errorf("insert promo period %d: %w", i, err)
		}
		end, err := nullableLocal(p.End)
		if err != nil {
			return fmt.Errorf("insert promo period %d: %w", i, err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO draw_promo_periods (draw_id, position, start_at, end_at, multiplier) VALUES ($1, $2, $3, $4, $5)`,
			drawID, i, start, end, p.Multiplier)
		if err != nil {
			return fmt.Errorf("insert promo period %d for %s: %w", i, drawID, err)
		}
	}
	return nil
}

// GetByID retrieves a draw with its periods.
// Returns nil, nil if the draw is not found (service layer handles this).
func (r *DrawRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Draw, error) {
	draw, err := scanDraw(r.pool.QueryRow(ctx, `SELECT `+drawColumns+` FROM draws WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get draw by id %s: %w", id, err)
	}

	periods, err := r.periods(ctx, id)
	if err != nil {
		return nil, err
	}
	draw.PromoPeriods = periods
	return draw, nil
}

// GetForUpdate retrieves a draw row with a row lock (SELECT FOR UPDATE),
// without its periods. Returns service.ErrDrawNotFound if the draw doesn't exist.
func (r *DrawRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Draw, error) {
	draw, err := scanDraw(tx.QueryRow(ctx, `SELECT `+drawColumns+` FROM draws WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrDrawNotFound
		}
		return nil, fmt.Errorf("get draw for update %s: %w", id, err)
	}
	return draw, nil
}

func (r *DrawRepository) periods(ctx context.Context, drawID uuid.UUID) ([]promo.Period, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT start_at, end_at, multiplier FROM draw_promo_periods WHERE draw_id = $1 ORDER BY position`,
		drawID)
	if err != nil {
		return nil, fmt.Errorf("get promo periods for %s: %w", drawID, err)
	}
	defer rows.Close()

	periods := []promo.Period{}
	for rows.Next() {
		var (
			start, end *time.Time
			p          promo.Period
		)
		if err := rows.Scan(&start, &end, &p.Multiplier); err != nil {
			return nil, fmt.Errorf("scan promo period: %w", err)
		}
		if start != nil {
			p.Start = promo.FormatLocal(*start)
		}
		if end != nil {
			p.End = promo.FormatLocal(*end)
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promo period rows: %w", err)
	}
	return periods, nil
}

func scanDraw(row pgx.Row) (*model.Draw, error) {
	var (
		draw  model.Draw
		runAt time.Time
	)
	err := row.Scan(
		&draw.ID,
		&draw.Title,
		&draw.EntryCostCents,
		&draw.Currency,
		&runAt,
		&draw.Timezone,
		&draw.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	draw.RunAt = promo.FormatLocal(runAt)
	return &draw, nil
}

// nullableLocal maps a blank bound to SQL NULL.
func nullableLocal(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := promo.ParseLocal(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
