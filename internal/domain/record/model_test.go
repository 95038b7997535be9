package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	tests := []struct {
		kind     Kind
		table    string
		envelope string
		path     string
	}{
		{KindSensorData, "sensor_data", "sensor-data", "/sync/sensor-data"},
		{KindAlert, "alerts", "alerts", "/sync/alerts"},
		{KindFarm, "farms", "farms", "/sync/farms"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.NoError(t, tt.kind.Validate())
			assert.Equal(t, tt.table, tt.kind.Table())
			assert.Equal(t, tt.envelope, tt.kind.EnvelopeType())
			assert.Equal(t, tt.path, tt.kind.SyncPath())

			back, err := KindFromEnvelope(tt.envelope)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, back)
		})
	}

	assert.ErrorIs(t, Kind("camera").Validate(), ErrUnknownKind)
	assert.Empty(t, Kind("camera").SyncPath())
	_, err := KindFromEnvelope("alert")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Equal(t, []Kind{KindSensorData, KindAlert, KindFarm}, Kinds())
}

func TestPayload_Validate(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		wantErr bool
	}{
		{"valid reading", &SensorReading{FarmID: "f", SensorID: "s", Metric: "temp"}, false},
		{"reading without sensor", &SensorReading{FarmID: "f", Metric: "temp"}, true},
		{"valid alert", &Alert{FarmID: "f", Severity: SeverityCritical, Message: "frost"}, false},
		{"alert with bad severity", &Alert{FarmID: "f", Severity: "loud", Message: "x"}, true},
		{"valid farm", &Farm{FarmID: "f", Name: "North field"}, false},
		{"farm with negative area", &Farm{FarmID: "f", Name: "n", AreaHectares: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidData)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC)
	r := Record{
		ID:   42,
		Kind: KindAlert,
		Payload: &Alert{
			FarmID:   "farm_1",
			SensorID: "s-9",
			Severity: SeverityWarning,
			Message:  "low moisture",
			RaisedAt: created,
		},
		CreatedAt: created,
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, r.ID, back.ID)
	assert.Equal(t, r.Kind, back.Kind)
	assert.Equal(t, r.Payload, back.Payload)
	assert.True(t, created.Equal(back.CreatedAt))
}

func TestRecord_MarshalRejectsMismatch(t *testing.T) {
	_, err := json.Marshal(Record{ID: 1, Kind: KindFarm, Payload: &Alert{}})
	assert.ErrorIs(t, err, ErrKindMismatch)

	_, err = json.Marshal(Record{ID: 2, Kind: KindFarm})
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload(KindFarm, []byte(`{"farmId":"f1","name":"Vineyard","areaHectares":12.5}`))
	require.NoError(t, err)
	farm, ok := p.(*Farm)
	require.True(t, ok)
	assert.Equal(t, 12.5, farm.AreaHectares)
	assert.Equal(t, "f1", p.FarmRef())

	_, err = DecodePayload("drone", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = DecodePayload(KindSensorData, []byte(`{`))
	assert.Error(t, err)
}
