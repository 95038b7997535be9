package sync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"agroedge/internal/domain/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) UpsertRecords(ctx context.Context, source string, kind record.Kind, records []record.Record) (int, error) {
	args := m.Called(ctx, source, kind, records)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) ConfigurationsSince(ctx context.Context, since *time.Time) ([]ConfigEntry, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ConfigEntry), args.Error(1)
}

func (m *MockRepository) SaveConfiguration(ctx context.Context, entry ConfigEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRepository) UpdatesSince(ctx context.Context, since *time.Time) ([]UpdateDelta, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]UpdateDelta), args.Error(1)
}

func (m *MockRepository) SaveUpdate(ctx context.Context, delta UpdateDelta) error {
	args := m.Called(ctx, delta)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

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

func TestService_IngestBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts records", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, testLogger())
		data := readings(3)
		repo.On("UpsertRecords", ctx, "node-1", record.KindSensorData, data).Return(3, nil)

		resp, err := svc.IngestBatch(ctx, record.KindSensorData, Envelope{
			Type: "sensor-data", Data: data, Source: "node-1",
		})

		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, 3, resp.Processed)
		repo.AssertExpectations(t)
	})

	t.Run("rejects envelope type mismatch", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, testLogger())

		_, err := svc.IngestBatch(ctx, record.KindAlert, Envelope{Type: "sensor-data", Source: "node-1"})

		assert.ErrorIs(t, err, record.ErrKindMismatch)
		repo.AssertNotCalled(t, "UpsertRecords", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("requires source", func(t *testing.T) {
		svc := NewService(new(MockRepository), testLogger())

		_, err := svc.IngestBatch(ctx, record.KindSensorData, Envelope{Type: "sensor-data", Data: readings(1)})

		assert.ErrorIs(t, err, ErrEmptySource)
	})

	t.Run("rejects invalid payload", func(t *testing.T) {
		svc := NewService(new(MockRepository), testLogger())
		data := readings(1)
		data[0].Payload = &record.SensorReading{FarmID: "farm_1"}

		_, err := svc.IngestBatch(ctx, record.KindSensorData, Envelope{Type: "sensor-data", Data: data, Source: "n"})

		assert.ErrorIs(t, err, record.ErrInvalidData)
	})

	t.Run("empty batch succeeds without storage", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, testLogger())

		resp, err := svc.IngestBatch(ctx, record.KindFarm, Envelope{Type: "farms", Source: "n"})

		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Zero(t, resp.Processed)
		repo.AssertNotCalled(t, "UpsertRecords", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, testLogger())
		repo.On("UpsertRecords", ctx, "n", record.KindSensorData, mock.Anything).Return(0, errors.New("db down"))

		_, err := svc.IngestBatch(ctx, record.KindSensorData, Envelope{Type: "sensor-data", Data: readings(2), Source: "n"})

		assert.ErrorContains(t, err, "db down")
	})
}

func TestService_ConfigurationsAndUpdates(t *testing.T) {
	ctx := context.Background()
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	repo := new(MockRepository)
	svc := NewService(repo, testLogger())
	repo.On("ConfigurationsSince", ctx, &since).Return(nil, nil)
	repo.On("UpdatesSince", ctx, &since).Return([]UpdateDelta{
		{Kind: DeltaFirmware, Key: "v2", Value: json.RawMessage(`"2.0.1"`)},
	}, nil)

	cfg, err := svc.Configurations(ctx, DeltaQuery{Since: &since, Source: SourceEdgeHub})
	require.NoError(t, err)
	assert.NotNil(t, cfg.Configurations)
	assert.Empty(t, cfg.Configurations)

	upd, err := svc.Updates(ctx, DeltaQuery{Since: &since, Source: SourceEdgeHub})
	require.NoError(t, err)
	require.Len(t, upd.Updates, 1)
	assert.Equal(t, DeltaFirmware, upd.Updates[0].Kind)
}

func TestService_PutConfiguration(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, testLogger())
	entry := ConfigEntry{Key: "irrigation.threshold", Value: json.RawMessage(`35`)}
	repo.On("SaveConfiguration", ctx, entry).Return(nil)

	require.NoError(t, svc.PutConfiguration(ctx, entry))
	assert.ErrorIs(t, svc.PutConfiguration(ctx, ConfigEntry{Key: " ", Value: json.RawMessage(`1`)}), ErrInvalidInput)
	assert.Error(t, svc.PutConfiguration(ctx, ConfigEntry{Key: "k", Value: json.RawMessage(`{`)}))
	repo.AssertNumberOfCalls(t, "SaveConfiguration", 1)
}

func TestService_PublishUpdate(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, testLogger())
	delta := UpdateDelta{Kind: DeltaDeviceCommand, Key: "pump-1", Value: json.RawMessage(`{"action":"stop"}`)}
	repo.On("SaveUpdate", ctx, delta).Return(nil)

	require.NoError(t, svc.PublishUpdate(ctx, delta))
	assert.ErrorIs(t, svc.PublishUpdate(ctx, UpdateDelta{Key: "x"}), ErrInvalidInput)
}
