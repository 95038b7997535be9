package sync

import (
	"time"

	"agroedge/internal/domain/sync"
)

type ingestInput struct {
	Type string `path:"type" enum:"sensor-data,alerts,farms" doc:"Тип пакета"`
	Body sync.Envelope
}

type ingestOutput struct {
	Body sync.BatchResponse
}

type deltaInput struct {
	LastSync time.Time `query:"lastSync" format:"date-time" doc:"Время последней синхронизации узла"`
	Source   string    `query:"source" example:"edge-hub"`
}

type configurationsOutput struct {
	Body sync.ConfigurationsResponse
}

type updatesOutput struct {
	Body sync.UpdatesResponse
}

type putConfigurationInput struct {
	Key  string `path:"key" minLength:"1"`
	Body struct {
		Value any `json:"value" doc:"Произвольное JSON-значение"`
	}
}

type publishUpdateInput struct {
	Body struct {
		Type  string         `json:"type" minLength:"1" example:"firmware"`
		Key   string         `json:"key,omitempty"`
		Value any            `json:"value,omitempty"`
		Extra map[string]any `json:"extra,omitempty" doc:"Дополнительные поля обновления"`
	}
}

type statusOutput struct {
	Body statusResponse
}

type statusResponse struct {
	Status string `json:"status"`
}
