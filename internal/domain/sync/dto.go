package sync

import (
	"time"
)

// BatchResponse - ответ облака на выгрузку пакета
type BatchResponse struct {
	Success   bool   `json:"success"`
	Processed int    `json:"processed"`
	Error     string `json:"error,omitempty"`
}

// ConfigurationsResponse - ответ GET /configurations
type ConfigurationsResponse struct {
	Configurations []ConfigEntry `json:"configurations"`
}

// UpdatesResponse - ответ GET /updates
type UpdatesResponse struct {
	Updates []UpdateDelta `json:"updates"`
}

// DeltaQuery - параметры запросов загрузки
type DeltaQuery struct {
	Since  *time.Time
	Source string
}
