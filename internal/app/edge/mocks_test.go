package edge

import (
	"context"
	"encoding/json"
	"time"

	"agroedge/internal/domain/record"
	domainsync "agroedge/internal/domain/sync"

	"github.com/stretchr/testify/mock"
)

type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) GetUnsynced(ctx context.Context, kind record.Kind, limit int) ([]record.Record, error) {
	args := m.Called(ctx, kind, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]record.Record), args.Error(1)
}

func (m *MockRecordStore) MarkSynced(ctx context.Context, kind record.Kind, ids []int64) error {
	args := m.Called(ctx, kind, ids)
	return args.Error(0)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) UploadBatch(ctx context.Context, kind record.Kind, env domainsync.Envelope) (*domainsync.BatchResponse, error) {
	args := m.Called(ctx, kind, env)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainsync.BatchResponse), args.Error(1)
}

type MockDeltaSource struct {
	mock.Mock
}

func (m *MockDeltaSource) Configurations(ctx context.Context, since *time.Time) ([]domainsync.ConfigEntry, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domainsync.ConfigEntry), args.Error(1)
}

func (m *MockDeltaSource) Updates(ctx context.Context, since *time.Time) ([]domainsync.UpdateDelta, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domainsync.UpdateDelta), args.Error(1)
}

type MockConfigStore struct {
	mock.Mock
}

func (m *MockConfigStore) UpsertConfig(ctx context.Context, key string, value json.RawMessage) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

type MockDeltaSink struct {
	mock.Mock
}

func (m *MockDeltaSink) Firmware(ctx context.Context, delta domainsync.UpdateDelta) error {
	args := m.Called(ctx, delta)
	return args.Error(0)
}

func (m *MockDeltaSink) DeviceCommand(ctx context.Context, delta domainsync.UpdateDelta) error {
	args := m.Called(ctx, delta)
	return args.Error(0)
}

func readings(n int) []record.Record {
	out := make([]record.Record, n)
	for i := range out {
		out[i] = record.Record{
			ID:   int64(i + 1),
			Kind: record.KindSensorData,
			Payload: &record.SensorReading{
				FarmID:   "farm_1",
				SensorID: "s1",
				Metric:   "soil_moisture",
				Value:    float64(i),
			},
		}
	}
	return out
}
