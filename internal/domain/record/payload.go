package record

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Payload - данные записи конкретного вида (tagged union по Kind)
type Payload interface {
	Kind() Kind
	Validate() error
	// FarmRef возвращает идентификатор фермы, к которой относится запись
	FarmRef() string
	// SensorRef возвращает идентификатор датчика или пустую строку
	SensorRef() string
}

// SensorReading - показание датчика
type SensorReading struct {
	FarmID     string    `json:"farmId"`
	SensorID   string    `json:"sensorId"`
	Metric     string    `json:"metric"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

func (r *SensorReading) Kind() Kind        { return KindSensorData }
func (r *SensorReading) FarmRef() string   { return r.FarmID }
func (r *SensorReading) SensorRef() string { return r.SensorID }

func (r *SensorReading) Validate() error {
	if strings.TrimSpace(r.FarmID) == "" {
		return fmt.Errorf("%w: farmId is required", ErrInvalidData)
	}
	if strings.TrimSpace(r.SensorID) == "" {
		return fmt.Errorf("%w: sensorId is required", ErrInvalidData)
	}
	if strings.TrimSpace(r.Metric) == "" {
		return fmt.Errorf("%w: metric is required", ErrInvalidData)
	}
	return nil
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert - тревога, поднятая правилами или устройством
type Alert struct {
	FarmID   string    `json:"farmId"`
	SensorID string    `json:"sensorId,omitempty"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	RaisedAt time.Time `json:"raisedAt"`
}

func (a *Alert) Kind() Kind        { return KindAlert }
func (a *Alert) FarmRef() string   { return a.FarmID }
func (a *Alert) SensorRef() string { return a.SensorID }

func (a *Alert) Validate() error {
	if strings.TrimSpace(a.FarmID) == "" {
		return fmt.Errorf("%w: farmId is required", ErrInvalidData)
	}
	switch a.Severity {
	case SeverityInfo, SeverityWarning, SeverityCritical:
	default:
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidData, a.Severity)
	}
	if strings.TrimSpace(a.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidData)
	}
	return nil
}

// Farm - метаданные фермы
type Farm struct {
	FarmID       string  `json:"farmId"`
	Name         string  `json:"name"`
	Location     string  `json:"location,omitempty"`
	Crop         string  `json:"crop,omitempty"`
	AreaHectares float64 `json:"areaHectares,omitempty"`
}

func (f *Farm) Kind() Kind        { return KindFarm }
func (f *Farm) FarmRef() string   { return f.FarmID }
func (f *Farm) SensorRef() string { return "" }

func (f *Farm) Validate() error {
	if strings.TrimSpace(f.FarmID) == "" {
		return fmt.Errorf("%w: farmId is required", ErrInvalidData)
	}
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidData)
	}
	if f.AreaHectares < 0 {
		return fmt.Errorf("%w: areaHectares must not be negative", ErrInvalidData)
	}
	return nil
}

// NewPayload создает пустую структуру данных для указанного вида
func NewPayload(kind Kind) (Payload, error) {
	switch kind {
	case KindSensorData:
		return &SensorReading{}, nil
	case KindAlert:
		return &Alert{}, nil
	case KindFarm:
		return &Farm{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
}

// DecodePayload парсит данные записи из JSON
func DecodePayload(kind Kind, data []byte) (Payload, error) {
	p, err := NewPayload(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse %s payload: %w", kind, err)
	}
	return p, nil
}
