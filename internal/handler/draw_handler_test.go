package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drawclub/draw-promo-service/internal/model"
	"github.com/drawclub/draw-promo-service/internal/promo"
	"github.com/drawclub/draw-promo-service/internal/service"
	"github.com/drawclub/draw-promo-service/internal/validator"
)

// mockDrawService is a mock implementation of DrawServiceInterface.
type mockDrawService struct {
	createFn             func(ctx context.Context, req *model.CreateDrawRequest) (uuid.UUID, error)
	getByIDFn            func(ctx context.Context, id uuid.UUID) (*model.Draw, error)
	updatePromoPeriodsFn func(ctx context.Context, id uuid.UUID, req *model.UpdatePromoPeriodsRequest) error
	previewFn            func(ctx context.Context, id uuid.UUID, at string, tickets int) (*model.MultiplierPreviewResponse, error)
	validateFn           func(req *model.ValidatePromoPeriodsRequest) promo.Result
}

func (m *mockDrawService) Create(ctx context.Context, req *model.CreateDrawRequest) (uuid.UUID, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return uuid.New(), nil
}

func (m *mockDrawService) GetByID(ctx context.Context, id uuid.UUID) (*model.Draw, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, service.ErrDrawNotFound
}

func (m *mockDrawService) UpdatePromoPeriods(ctx context.Context, id uuid.UUID, req *model.UpdatePromoPeriodsRequest) error {
	if m.updatePromoPeriodsFn != nil {
		return m.updatePromoPeriodsFn(ctx, id, req)
	}
	return nil
}

func (m *mockDrawService) PreviewMultiplier(ctx context.Context, id uuid.UUID, at string, tickets int) (*model.MultiplierPreviewResponse, error) {
	if m.previewFn != nil {
		return m.previewFn(ctx, id, at, tickets)
	}
	return &model.MultiplierPreviewResponse{DrawID: id, At: at, Multiplier: 1, Tickets: tickets, Entries: tickets}, nil
}

func (m *mockDrawService) ValidatePromoPeriods(req *model.ValidatePromoPeriodsRequest) promo.Result {
	if m.validateFn != nil {
		return m.validateFn(req)
	}
	return promo.Result{Valid: true}
}

func setupTestApp(mockSvc *mockDrawService) *fiber.App {
	app := fiber.New()
	h := NewDrawHandler(mockSvc, validator.New())
	app.Post("/api/draws", h.CreateDraw)
	app.Get("/api/draws/:id", h.GetDraw)
	app.Put("/api/draws/:id/promo-periods", h.UpdatePromoPeriods)
	app.Get("/api/draws/:id/multiplier", h.PreviewMultiplier)
	app.Post("/api/promo-periods/validate", h.ValidatePromoPeriods)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result["error"]
}

const validDrawBody = `{
	"title": "Spring Jackpot",
	"entry_cost_cents": 500,
	"currency": "USD",
	"run_at": "2030-04-01T20:00",
	"timezone": "Europe/London",
	"promo_periods": [
		{"start": "2030-03-10T10:00", "end": "2030-03-10T11:00", "multiplier": 2}
	]
}`

func TestCreateDraw_Success(t *testing.T) {
	id := uuid.New()
	var captured *model.CreateDrawRequest
	mockSvc := &mockDrawService{
		createFn: func(ctx context.Context, req *model.CreateDrawRequest) (uuid.UUID, error) {
			captured = req
			return id, nil
		},
	}
	app := setupTestApp(mockSvc)

	resp := doJSON(t, app, http.MethodPost, "/api/draws", validDrawBody)

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var result model.CreateDrawResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, id, result.ID)

	require.NotNil(t, captured)
	require.Len(t, captured.PromoPeriods, 1)
	assert.Equal(t, "2030-03-10T10:00", captured.PromoPeriods[0].Start)
	assert.Equal(t, 2, captured.PromoPeriods[0].Multiplier)
}

func TestCreateDraw_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing_title",
			body:    `{"entry_cost_cents": 1, "currency": "USD", "run_at": "2030-01-01T00:00"}`,
			wantErr: "invalid request: title is required",
		},
		{
			name:    "blank_title",
			body:    `{"title": "   ", "entry_cost_cents": 1, "currency": "USD", "run_at": "2030-01-01T00:00"}`,
			wantErr: "invalid request: title cannot be whitespace only",
		},
		{
			name:    "missing_cost",
			body:    `{"title": "x", "currency": "USD", "run_at": "2030-01-01T00:00"}`,
			wantErr: "invalid request: entry_cost_cents is required",
		},
		{
			name:    "bad_currency",
			body:    `{"title": "x", "entry_cost_cents": 1, "currency": "US", "run_at": "2030-01-01T00:00"}`,
			wantErr: "invalid request: currency must be a 3-letter code",
		},
		{
			name:    "run_at_with_zone",
			body:    `{"title": "x", "entry_cost_cents": 1, "currency": "USD", "run_at": "2030-01-01T00:00Z"}`,
			wantErr: "invalid request: run_at must use format YYYY-MM-DDTHH:mm",
		},
		{
			name:    "bad_timezone",
			body:    `{"title": "x", "entry_cost_cents": 1, "currency": "USD", "run_at": "2030-01-01T00:00", "timezone": "Mars/Base"}`,
			wantErr: "invalid request: timezone must be an IANA zone name",
		},
		{
			name:    "period_with_seconds",
			body:    `{"title": "x", "entry_cost_cents": 1, "currency": "USD", "run_at": "2030-01-01T00:00", "promo_periods": [{"start": "2029-01-01T00:00:00", "end": "", "multiplier": 1}]}`,
			wantErr: "invalid request: start must use format YYYY-MM-DDTHH:mm",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockSvc := &mockDrawService{
				createFn: func(ctx context.Context, req *model.CreateDrawRequest) (uuid.UUID, error) {
					t.Fatal("service must not be called for invalid input")
					return uuid.Nil, nil
				},
			}
			app := setupTestApp(mockSvc)

			resp := doJSON(t, app, http.MethodPost, "/api/draws", tc.body)

			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tc.wantErr, decodeError(t, resp))
		})
	}
}

func TestCreateDraw_MalformedJSON(t *testing.T) {
	app := setupTestApp(&mockDrawService{})

	resp := doJSON(t, app, http.MethodPost, "/api/draws", `{not valid json}`)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request body", decodeError(t, resp))
}

func TestCreateDraw_ServiceErrors(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantErr    string
	}{
		{"promo_rejected", &service.PromoPeriodsError{Reason: promo.MsgOverlap}, fiber.StatusBadRequest, promo.MsgOverlap},
		{"run_at_past", service.ErrRunAtInPast, fiber.StatusBadRequest, "invalid request: run_at must be in the future"},
		{"exists", service.ErrDrawExists, fiber.StatusConflict, "draw already exists"},
		{"invalid", service.ErrInvalidRequest, fiber.StatusBadRequest, "invalid request"},
		{"internal", errors.New("database connection failed"), fiber.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockSvc := &mockDrawService{
				createFn: func(ctx context.Context, req *model.CreateDrawRequest) (uuid.UUID, error) {
					return uuid.Nil, tc.err
				},
			}
			app := setupTestApp(mockSvc)

			resp := doJSON(t, app, http.MethodPost, "/api/draws", validDrawBody)

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			assert.Equal(t, tc.wantErr, decodeError(t, resp))
		})
	}
}

func TestGetDraw_Success(t *testing.T) {
	id := uuid.New()
	mockSvc := &mockDrawService{
		getByIDFn: func(ctx context.Context, got uuid.UUID) (*model.Draw, error) {
			return &model.Draw{
				ID:       got,
				Title:    "Spring Jackpot",
				RunAt:    "2030-04-01T20:00",
				Timezone: "UTC",
				PromoPeriods: []promo.Period{
					{Start: "2030-03-10T10:00", End: "2030-03-10T11:00", Multiplier: 2},
				},
				Status: model.DrawStatusUpcoming,
			}, nil
		},
	}
	app := setupTestApp(mockSvc)

	resp := doJSON(t, app, http.MethodGet, "/api/draws/"+id.String(), "")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"status":"upcoming"`)
	assert.Contains(t, string(body), `{"start":"2030-03-10T10:00","end":"2030-03-10T11:00","multiplier":2}`)
}

func TestGetDraw_NotFound(t *testing.T) {
	app := setupTestApp(&mockDrawService{})

	resp := doJSON(t, app, http.MethodGet, "/api/draws/"+uuid.New().String(), "")

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "draw not found", decodeError(t, resp))
}

func TestGetDraw_InvalidID(t *testing.T) {
	app := setupTestApp(&mockDrawService{})

	resp := doJSON(t, app, http.MethodGet, "/api/draws/not-a-uuid", "")

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request: id must be a UUID", decodeError(t, resp))
}

func TestUpdatePromoPeriods_Success(t *testing.T) {
	id := uuid.New()
	var capturedID uuid.UUID
	mockSvc := &mockDrawService{
		updatePromoPeriodsFn: func(ctx context.Context, got uuid.UUID, req *model.UpdatePromoPeriodsRequest) error {
			capturedID = got
			return nil
		},
	}
	app := setupTestApp(mockSvc)

	body := `{"promo_periods": [{"start": "2030-03-10T10:00", "end": "2030-03-10T11:00", "multiplier": 3}]}`
	resp := doJSON(t, app, http.MethodPut, "/api/draws/"+id.String()+"/promo-periods", body)

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, id, capturedID)
}

func TestUpdatePromoPeriods_Rejected(t *testing.T) {
	mockSvc := &mockDrawService{
		updatePromoPeriodsFn: func(ctx context.Context, id uuid.UUID, req *model.UpdatePromoPeriodsRequest) error {
			return &service.PromoPeriodsError{Reason: promo.MsgMultiplierMin}
		},
	}
	app := setupTestApp(mockSvc)

	body := `{"promo_periods": [{"start": "2030-03-10T10:00", "end": "2030-03-10T11:00", "multiplier": 0}]}`
	resp := doJSON(t, app, http.MethodPut, "/api/draws/"+uuid.New().String()+"/promo-periods", body)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, promo.MsgMultiplierMin, decodeError(t, resp))
}

func TestPreviewMultiplier_Success(t *testing.T) {
	var capturedAt string
	var capturedTickets int
	mockSvc := &mockDrawService{
		previewFn: func(ctx context.Context, id uuid.UUID, at string, tickets int) (*model.MultiplierPreviewResponse, error) {
			capturedAt, capturedTickets = at, tickets
			return &model.MultiplierPreviewResponse{DrawID: id, At: at, Multiplier: 2, Tickets: tickets, Entries: tickets * 2}, nil
		},
	}
	app := setupTestApp(mockSvc)

	resp := doJSON(t, app, http.MethodGet, "/api/draws/"+uuid.New().String()+"/multiplier?at=2030-03-10T10:30&tickets=3", "")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "2030-03-10T10:30", capturedAt)
	assert.Equal(t, 3, capturedTickets)

	var result model.MultiplierPreviewResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 6, result.Entries)
}

func TestPreviewMultiplier_DefaultsTicketsToOne(t *testing.T) {
	var capturedTickets int
	mockSvc := &mockDrawService{
		previewFn: func(ctx context.Context, id uuid.UUID, at string, tickets int) (*model.MultiplierPreviewResponse, error) {
			capturedTickets = tickets
			return &model.MultiplierPreviewResponse{Multiplier: 1}, nil
		},
	}
	app := setupTestApp(mockSvc)

	resp := doJSON(t, app, http.MethodGet, "/api/draws/"+uuid.New().String()+"/multiplier", "")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, capturedTickets)
}

func TestPreviewMultiplier_BadQuery(t *testing.T) {
	app := setupTestApp(&mockDrawService{})
	base := "/api/draws/" + uuid.New().String() + "/multiplier"

	resp := doJSON(t, app, http.MethodGet, base+"?at=2030-03-10T10:30:00", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request: at must use format YYYY-MM-DDTHH:mm", decodeError(t, resp))

	resp = doJSON(t, app, http.MethodGet, base+"?tickets=-2", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request: tickets cannot be negative", decodeError(t, resp))
}

func TestValidatePromoPeriods_Invalid(t *testing.T) {
	var captured *model.ValidatePromoPeriodsRequest
	mockSvc := &mockDrawService{
		validateFn: func(req *model.ValidatePromoPeriodsRequest) promo.Result {
			captured = req
			return promo.Result{ErrorMessage: promo.MsgOverlap}
		},
	}
	app := setupTestApp(mockSvc)

	body := `{
		"promo_periods": [
			{"start": "2025-06-01T10:00", "end": "2025-06-01T11:00", "multiplier": 1},
			{"start": "2025-06-01T10:30", "end": "2025-06-01T11:30", "multiplier": 2}
		],
		"draw_date": "2025-12-01T00:00",
		"timezone": "Asia/Jakarta",
		"validate_not_in_past": true
	}`
	resp := doJSON(t, app, http.MethodPost, "/api/promo-periods/validate", body)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"isValid": false, "errorMessage": "Promotional periods cannot overlap."}`, string(respBody))

	require.NotNil(t, captured)
	assert.True(t, captured.ValidateNotInPast)
	assert.False(t, captured.IsUpdateMode)
	assert.Equal(t, "Asia/Jakarta", captured.Timezone)
	assert.Len(t, captured.PromoPeriods, 2)
}

func TestValidatePromoPeriods_ValidOmitsMessage(t *testing.T) {
	app := setupTestApp(&mockDrawService{})

	resp := doJSON(t, app, http.MethodPost, "/api/promo-periods/validate", `{"promo_periods": []}`)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"isValid": true}`, string(respBody))
}

func TestValidatePromoPeriods_AcceptsBlankBounds(t *testing.T) {
	app := setupTestApp(&mockDrawService{})

	body := `{"promo_periods": [{"start": "", "end": "2025-06-01T11:00", "multiplier": 1}]}`
	resp := doJSON(t, app, http.MethodPost, "/api/promo-periods/validate", body)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestValidatePromoPeriods_BadDrawDate(t *testing.T) {
	app := setupTestApp(&mockDrawService{})

	resp := doJSON(t, app, http.MethodPost, "/api/promo-periods/validate", `{"draw_date": "01/12/2025"}`)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request: draw_date must use format YYYY-MM-DDTHH:mm", decodeError(t, resp))
}

func TestCreateDraw_InputBounds(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "entry_cost_exceeds_int4",
			body:    `{"title": "x", "entry_cost_cents": 3000000000, "currency": "USD", "run_at": "2030-01-01T00:00"}`,
			wantErr: "invalid request: entry_cost_cents exceeds maximum value",
		},
		{
			name:    "multiplier_exceeds_cap",
			body:    `{"title": "x", "entry_cost_cents": 1, "currency": "USD", "run_at": "2030-01-01T00:00", "promo_periods": [{"start": "2029-01-01T00:00", "end": "2029-01-02T00:00", "multiplier": 3000000000}]}`,
			wantErr: "invalid request: multiplier cannot exceed 1000",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockSvc := &mockDrawService{
				createFn: func(ctx context.Context, req *model.CreateDrawRequest) (uuid.UUID, error) {
					t.Fatal("service must not be called for out-of-range input")
					return uuid.Nil, nil
				},
			}
			app := setupTestApp(mockSvc)

			resp := doJSON(t, app, http.MethodPost, "/api/draws", tc.body)

			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tc.wantErr, decodeError(t, resp))
		})
	}
}

func TestCreateDraw_MultiplierAtCapAccepted(t *testing.T) {
	app := setupTestApp(&mockDrawService{})

	body := `{"title": "x", "entry_cost_cents": 2147483647, "currency": "USD", "run_at": "2030-01-01T00:00", "promo_periods": [{"start": "2029-01-01T00:00", "end": "2029-01-02T00:00", "multiplier": 1000}]}`
	resp := doJSON(t, app, http.MethodPost, "/api/draws", body)

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestUpdatePromoPeriods_MultiplierExceedsCap(t *testing.T) {
	mockSvc := &mockDrawService{
		updatePromoPeriodsFn: func(ctx context.Context, id uuid.UUID, req *model.UpdatePromoPeriodsRequest) error {
			t.Fatal("service must not be called for out-of-range input")
			return nil
		},
	}
	app := setupTestApp(mockSvc)

	body := `{"promo_periods": [{"start": "2030-03-10T10:00", "end": "2030-03-10T11:00", "multiplier": 1001}]}`
	resp := doJSON(t, app, http.MethodPut, "/api/draws/"+uuid.New().String()+"/promo-periods", body)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request: multiplier cannot exceed 1000", decodeError(t, resp))
}

func TestPreviewMultiplier_TicketsBounds(t *testing.T) {
	testCases := []struct {
		name    string
		query   string
		wantErr string
	}{
		{"not_a_number", "?tickets=abc", "invalid request: tickets must be an integer"},
		{"over_cap", "?tickets=10001", "invalid request: tickets cannot exceed 10000"},
		{"overflowing", "?tickets=4611686018427387903", "invalid request: tickets cannot exceed 10000"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockSvc := &mockDrawService{
				previewFn: func(ctx context.Context, id uuid.UUID, at string, tickets int) (*model.MultiplierPreviewResponse, error) {
					t.Fatal("service must not be called for invalid tickets")
					return nil, nil
				},
			}
			app := setupTestApp(mockSvc)

			resp := doJSON(t, app, http.MethodGet, "/api/draws/"+uuid.New().String()+"/multiplier"+tc.query, "")

			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tc.wantErr, decodeError(t, resp))
		})
	}
}

func TestPreviewMultiplier_TicketsAtCapAccepted(t *testing.T) {
	var capturedTickets int
	mockSvc := &mockDrawService{
		previewFn: func(ctx context.Context, id uuid.UUID, at string, tickets int) (*model.MultiplierPreviewResponse, error) {
			capturedTickets = tickets
			return &model.MultiplierPreviewResponse{Multiplier: 1, Tickets: tickets, Entries: tickets}, nil
		},
	}
	app := setupTestApp(mockSvc)

	resp := doJSON(t, app, http.MethodGet, "/api/draws/"+uuid.New().String()+"/multiplier?tickets=10000", "")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 10000, capturedTickets)
}
