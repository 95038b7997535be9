package record

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Record - синхронизируемая запись. Synced меняется false -> true ровно один раз.
type Record struct {
	ID        int64
	Kind      Kind
	Payload   Payload
	Synced    bool
	CreatedAt time.Time
}

type wireRecord struct {
	ID        int64           `json:"id"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// MarshalJSON сериализует запись в формат пакета выгрузки
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Payload == nil {
		return nil, fmt.Errorf("%w: record %d has no payload", ErrInvalidData, r.ID)
	}
	if r.Payload.Kind() != r.Kind {
		return nil, fmt.Errorf("%w: record %d is %s, payload is %s", ErrKindMismatch, r.ID, r.Kind, r.Payload.Kind())
	}
	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireRecord{
		ID:        r.ID,
		Kind:      r.Kind,
		Payload:   payload,
		CreatedAt: r.CreatedAt.UTC(),
	})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if err := w.Kind.Validate(); err != nil {
		return err
	}
	payload, err := DecodePayload(w.Kind, w.Payload)
	if err != nil {
		return err
	}
	r.ID = w.ID
	r.Kind = w.Kind
	r.Payload = payload
	r.CreatedAt = w.CreatedAt
	return nil
}

// Schema описывает запись в формате пакета выгрузки для huma
func (Record) Schema(r huma.Registry) *huma.Schema {
	s := &huma.Schema{
		Type: huma.TypeObject,
		Properties: map[string]*huma.Schema{
			"id":        {Type: huma.TypeInteger, Format: "int64", Description: "Локальный идентификатор записи на узле"},
			"kind":      Kind("").Schema(r),
			"payload":   {Type: huma.TypeObject, Description: "Данные записи, структура зависит от kind"},
			"createdAt": {Type: huma.TypeString, Format: "date-time"},
		},
		Required: []string{"id", "kind", "payload"},
	}
	s.PrecomputeMessages()
	return s
}

// IDs возвращает идентификаторы записей в исходном порядке
func IDs(records []Record) []int64 {
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
