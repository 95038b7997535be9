package records

import (
	"context"
	"errors"
	"time"

	"agroedge/internal/domain/record"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Ingester сохраняет запись локально и публикует ее подписчикам
type Ingester interface {
	Ingest(ctx context.Context, p record.Payload) (record.Record, error)
}

type Handler struct {
	ingester   Ingester
	log        *slog.Logger
	middleware huma.Middlewares
	now        func() time.Time
}

func NewHandler(ingester Ingester, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		ingester:   ingester,
		log:        log,
		middleware: mws,
		now:        time.Now,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.readingOp(), h.createReading)
	huma.Register(api, h.alertOp(), h.createAlert)
	huma.Register(api, h.farmOp(), h.createFarm)
}

func (h *Handler) createReading(ctx context.Context, input *readingInput) (*createdOutput, error) {
	return h.ingest(ctx, &record.SensorReading{
		FarmID:     input.Body.FarmID,
		SensorID:   input.Body.SensorID,
		Metric:     input.Body.Metric,
		Value:      input.Body.Value,
		Unit:       input.Body.Unit,
		RecordedAt: h.timeOrNow(input.Body.RecordedAt),
	})
}

func (h *Handler) createAlert(ctx context.Context, input *alertInput) (*createdOutput, error) {
	return h.ingest(ctx, &record.Alert{
		FarmID:   input.Body.FarmID,
		SensorID: input.Body.SensorID,
		Severity: input.Body.Severity,
		Message:  input.Body.Message,
		RaisedAt: h.timeOrNow(input.Body.RaisedAt),
	})
}

func (h *Handler) createFarm(ctx context.Context, input *farmInput) (*createdOutput, error) {
	return h.ingest(ctx, &record.Farm{
		FarmID:       input.Body.FarmID,
		Name:         input.Body.Name,
		Location:     input.Body.Location,
		Crop:         input.Body.Crop,
		AreaHectares: input.Body.AreaHectares,
	})
}

func (h *Handler) ingest(ctx context.Context, p record.Payload) (*createdOutput, error) {
	if err := p.Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	rec, err := h.ingester.Ingest(ctx, p)
	if err != nil {
		if errors.Is(err, record.ErrInvalidData) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		h.log.Error("ingest failed", "kind", p.Kind().String(), "error", err)
		return nil, huma.Error500InternalServerError("failed to store record")
	}
	return &createdOutput{Body: createdResponse{
		ID:        rec.ID,
		Kind:      rec.Kind,
		Synced:    rec.Synced,
		CreatedAt: rec.CreatedAt,
	}}, nil
}

func (h *Handler) timeOrNow(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return h.now().UTC()
	}
	return t.UTC()
}
