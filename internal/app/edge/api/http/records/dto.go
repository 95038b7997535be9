package records

import (
	"time"

	"agroedge/internal/domain/record"
)

type readingInput struct {
	Body struct {
		FarmID     string     `json:"farmId" minLength:"1"`
		SensorID   string     `json:"sensorId" minLength:"1"`
		Metric     string     `json:"metric" minLength:"1" example:"soil_moisture"`
		Value      float64    `json:"value"`
		Unit       string     `json:"unit,omitempty" example:"%"`
		RecordedAt *time.Time `json:"recordedAt,omitempty" doc:"По умолчанию время приема"`
	}
}

type alertInput struct {
	Body struct {
		FarmID   string          `json:"farmId" minLength:"1"`
		SensorID string          `json:"sensorId,omitempty"`
		Severity record.Severity `json:"severity" enum:"info,warning,critical"`
		Message  string          `json:"message" minLength:"1"`
		RaisedAt *time.Time      `json:"raisedAt,omitempty"`
	}
}

type farmInput struct {
	Body struct {
		FarmID       string  `json:"farmId" minLength:"1"`
		Name         string  `json:"name" minLength:"1"`
		Location     string  `json:"location,omitempty"`
		Crop         string  `json:"crop,omitempty"`
		AreaHectares float64 `json:"areaHectares,omitempty" minimum:"0"`
	}
}

type createdOutput struct {
	Body createdResponse
}

type createdResponse struct {
	ID        int64       `json:"id" doc:"Локальный идентификатор записи"`
	Kind      record.Kind `json:"kind"`
	Synced    bool        `json:"synced"`
	CreatedAt time.Time   `json:"createdAt"`
}
