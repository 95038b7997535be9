package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) ingestOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-ingest",
		Method:      http.MethodPost,
		Path:        "/sync/{type}",
		Summary:     "Принять пакет записей узла",
		Description: "Сохраняет пакет идемпотентно по (kind, source, id): повторная выгрузка перезаписывает записи",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.nodeMiddleware,
	}
}

func (h *Handler) configurationsOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-configurations",
		Method:      http.MethodGet,
		Path:        "/configurations",
		Summary:     "Получить измененные параметры",
		Description: "Возвращает параметры конфигурации, измененные после lastSync",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.nodeMiddleware,
	}
}

func (h *Handler) updatesOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-updates",
		Method:      http.MethodGet,
		Path:        "/updates",
		Summary:     "Получить новые обновления",
		Description: "Возвращает обновления прошивки, конфигурации и команды, созданные после lastSync",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.nodeMiddleware,
	}
}

func (h *Handler) putConfigurationOp() huma.Operation {
	return huma.Operation{
		OperationID: "admin-put-configuration",
		Method:      http.MethodPut,
		Path:        "/admin/configurations/{key}",
		Summary:     "Изменить параметр конфигурации",
		Tags:        []string{"admin"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.adminMiddleware,
	}
}

func (h *Handler) publishUpdateOp() huma.Operation {
	return huma.Operation{
		OperationID:   "admin-publish-update",
		Method:        http.MethodPost,
		Path:          "/admin/updates",
		Summary:       "Опубликовать обновление для узлов",
		Tags:          []string{"admin"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
		Middlewares:   h.adminMiddleware,
	}
}
