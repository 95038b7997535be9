package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"agroedge/internal/domain/record"

	"github.com/danielgtaylor/huma/v2"
)

// SourceEdgeHub - значение параметра source в запросах узла
const SourceEdgeHub = "edge-hub"

// Status - состояние синхронизации узла. Хранится одной строкой в sync_status.
type Status struct {
	LastSync     *time.Time `json:"lastSync"`
	IsSyncing    bool       `json:"isSyncing"`
	PendingItems int        `json:"pendingItems"`
	FailedItems  int        `json:"failedItems"`
	TotalSynced  int        `json:"totalSynced"`
	LastError    *string    `json:"lastError"`
	// Online - последний результат проверки связи, не сохраняется
	Online bool `json:"online"`
}

// Clone возвращает копию статуса, не разделяющую указатели с оригиналом
func (s Status) Clone() Status {
	c := s
	if s.LastSync != nil {
		t := *s.LastSync
		c.LastSync = &t
	}
	if s.LastError != nil {
		e := *s.LastError
		c.LastError = &e
	}
	return c
}

// Batch - группа записей одного вида, выгружаемая одним запросом
type Batch struct {
	Kind      record.Kind
	Records   []record.Record
	Timestamp time.Time
}

// Envelope формирует тело запроса выгрузки
func (b Batch) Envelope(source string) Envelope {
	return Envelope{
		Type:      b.Kind.EnvelopeType(),
		Data:      b.Records,
		Timestamp: b.Timestamp.UTC(),
		Source:    source,
	}
}

// Envelope - тело POST /sync/{type}
type Envelope struct {
	Type      string          `json:"type" enum:"sensor-data,alerts,farms" doc:"Тип пакета"`
	Data      []record.Record `json:"data" doc:"Записи пакета"`
	Timestamp time.Time       `json:"timestamp" format:"date-time"`
	Source    string          `json:"source" doc:"Идентификатор узла-источника"`
}

// Partition разбивает записи на пакеты по size штук, последний может быть меньше.
// При size <= 0 возвращает nil.
func Partition(kind record.Kind, records []record.Record, size int, now time.Time) []Batch {
	if size <= 0 || len(records) == 0 {
		return nil
	}
	batches := make([]Batch, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batches = append(batches, Batch{
			Kind:      kind,
			Records:   records[start:end],
			Timestamp: now,
		})
	}
	return batches
}

// DeltaKind - вид обновления, пришедшего из облака
type DeltaKind string

const (
	DeltaFirmware      DeltaKind = "firmware"
	DeltaConfiguration DeltaKind = "configuration"
	DeltaDeviceCommand DeltaKind = "device-command"
)

// UpdateDelta - обновление из облака. Применяется идемпотентно.
type UpdateDelta struct {
	Kind  DeltaKind
	Key   string
	Value json.RawMessage
	// Extra - остальные поля обновления без разбора
	Extra map[string]json.RawMessage
}

func (d UpdateDelta) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Extra)+3)
	for k, v := range d.Extra {
		out[k] = v
	}
	out["type"] = d.Kind
	out["key"] = d.Key
	if len(d.Value) > 0 {
		out["value"] = d.Value
	} else {
		out["value"] = nil
	}
	return json.Marshal(out)
}

func (d *UpdateDelta) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var kind, key string
	if raw, ok := fields["type"]; ok {
		if err := json.Unmarshal(raw, &kind); err != nil {
			return fmt.Errorf("update type: %w", err)
		}
	}
	if raw, ok := fields["key"]; ok {
		if err := json.Unmarshal(raw, &key); err != nil {
			return fmt.Errorf("update key: %w", err)
		}
	}
	d.Kind = DeltaKind(kind)
	d.Key = key
	d.Value = fields["value"]
	delete(fields, "type")
	delete(fields, "key")
	delete(fields, "value")
	d.Extra = nil
	if len(fields) > 0 {
		d.Extra = fields
	}
	return nil
}

// Schema описывает обновление для huma: известные поля и произвольные дополнительные
func (UpdateDelta) Schema(_ huma.Registry) *huma.Schema {
	s := &huma.Schema{
		Type: huma.TypeObject,
		Properties: map[string]*huma.Schema{
			"type": {
				Type: huma.TypeString,
				Enum: []any{string(DeltaFirmware), string(DeltaConfiguration), string(DeltaDeviceCommand)},
			},
			"key":   {Type: huma.TypeString},
			"value": {},
		},
		AdditionalProperties: true,
		Required:             []string{"type"},
	}
	s.PrecomputeMessages()
	return s
}

// ConfigEntry - параметр конфигурации, управляемый облаком
type ConfigEntry struct {
	Key       string          `json:"key" minLength:"1"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updatedAt,omitempty" format:"date-time"`
}

// UploadResult - итог фазы выгрузки одного цикла
type UploadResult struct {
	Synced int
	Failed int
	// LastErr - последняя ошибка выгрузки пакета за цикл
	LastErr error
}

// ReconcileResult - итог фазы загрузки одного цикла
type ReconcileResult struct {
	Configurations int
	Updates        int
	Ignored        int
}
