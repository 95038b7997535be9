package records

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) readingOp() huma.Operation {
	return huma.Operation{
		OperationID:   "create-reading",
		Method:        http.MethodPost,
		Path:          "/api/v1/readings",
		Summary:       "Принять показание датчика",
		Description:   "Сохраняет показание локально до выгрузки и рассылает его подписчикам фермы и датчика",
		Tags:          []string{"records"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) alertOp() huma.Operation {
	return huma.Operation{
		OperationID:   "create-alert",
		Method:        http.MethodPost,
		Path:          "/api/v1/alerts",
		Summary:       "Поднять тревогу",
		Tags:          []string{"records"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) farmOp() huma.Operation {
	return huma.Operation{
		OperationID:   "create-farm",
		Method:        http.MethodPost,
		Path:          "/api/v1/farms",
		Summary:       "Сохранить метаданные фермы",
		Tags:          []string{"records"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   h.middleware,
	}
}
