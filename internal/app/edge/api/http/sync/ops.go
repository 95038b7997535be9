package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) healthOp() huma.Operation {
	return huma.Operation{
		OperationID: "edge-health",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Состояние узла",
		Tags:        []string{"health"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) statusOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/status",
		Summary:     "Статус синхронизации",
		Description: "Возвращает статус последнего завершенного цикла",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) forceSyncOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-force",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/force",
		Summary:     "Принудительная синхронизация",
		Description: "Выполняет один цикл синхронно. 409, если цикл уже идет; 503 без связи с облаком",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.adminMiddleware,
	}
}

func (h *Handler) configOp() huma.Operation {
	return huma.Operation{
		OperationID: "local-config",
		Method:      http.MethodGet,
		Path:        "/api/v1/config",
		Summary:     "Локальная конфигурация",
		Tags:        []string{"config"},
		Middlewares: h.middleware,
	}
}
