package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Pinger проверяет доступность базы данных
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db         Pinger
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(db Pinger, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		db:         db,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

// healthCheck отвечает 503, если база недоступна: узел считает облако offline
func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("health check: database is down", "error", err)
		return nil, huma.Error503ServiceUnavailable("database is unavailable")
	}

	return &Output{
		Body: Response{
			Status:   "OK",
			Database: "up",
		},
	}, nil
}
