package sync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"agroedge/internal/domain/node"
	"agroedge/internal/domain/record"
	"agroedge/internal/domain/sync"
	"agroedge/internal/handler/middleware/auth"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) IngestBatch(ctx context.Context, kind record.Kind, env sync.Envelope) (*sync.BatchResponse, error) {
	args := m.Called(ctx, kind, env)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.BatchResponse), args.Error(1)
}

func (m *MockService) Configurations(ctx context.Context, q sync.DeltaQuery) (*sync.ConfigurationsResponse, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.ConfigurationsResponse), args.Error(1)
}

func (m *MockService) Updates(ctx context.Context, q sync.DeltaQuery) (*sync.UpdatesResponse, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.UpdatesResponse), args.Error(1)
}

func (m *MockService) PutConfiguration(ctx context.Context, entry sync.ConfigEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockService) PublishUpdate(ctx context.Context, delta sync.UpdateDelta) error {
	return m.Called(ctx, delta).Error(0)
}

func newHandler(svc sync.Servicer) *Handler {
	return NewHandler(svc, slog.Default(), huma.Middlewares{}, huma.Middlewares{})
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	return se.GetStatus()
}

func readingEnvelope(source string) sync.Envelope {
	return sync.Envelope{
		Type: "sensor-data",
		Data: []record.Record{{
			ID:   1,
			Kind: record.KindSensorData,
			Payload: &record.SensorReading{
				FarmID: "farm_a", SensorID: "s1", Metric: "moisture", Value: 31.5,
			},
		}},
		Timestamp: time.Now().UTC(),
		Source:    source,
	}
}

func TestHandler_ingest(t *testing.T) {
	tests := []struct {
		name           string
		pathType       string
		node           *node.Node
		wantSource     string
		serviceErr     error
		expectedStatus int
	}{
		{
			name:       "node key overrides source",
			pathType:   "sensor-data",
			node:       &node.Node{ID: "edge-01"},
			wantSource: "edge-01",
		},
		{
			name:       "shared key keeps body source",
			pathType:   "sensor-data",
			node:       &node.Node{ID: node.SharedNodeID},
			wantSource: "edge-hub",
		},
		{
			name:           "unknown type",
			pathType:       "weather",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "kind mismatch",
			pathType:       "sensor-data",
			wantSource:     "edge-hub",
			serviceErr:     record.ErrKindMismatch,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "storage failure",
			pathType:       "sensor-data",
			wantSource:     "edge-hub",
			serviceErr:     errors.New("connection reset"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			svc := new(MockService)
			ctx := context.Background()
			if tt.node != nil {
				ctx = auth.WithNode(ctx, *tt.node)
			}
			if tt.wantSource != "" {
				matcher := mock.MatchedBy(func(env sync.Envelope) bool { return env.Source == tt.wantSource })
				if tt.serviceErr != nil {
					svc.On("IngestBatch", mock.Anything, record.KindSensorData, matcher).Return(nil, tt.serviceErr)
				} else {
					svc.On("IngestBatch", mock.Anything, record.KindSensorData, matcher).
						Return(&sync.BatchResponse{Success: true, Processed: 1}, nil)
				}
			}

			// Act
			out, err := newHandler(svc).ingest(ctx, &ingestInput{Type: tt.pathType, Body: readingEnvelope("edge-hub")})

			// Assert
			if tt.expectedStatus != 0 {
				assert.Equal(t, tt.expectedStatus, statusOf(t, err))
			} else {
				require.NoError(t, err)
				assert.True(t, out.Body.Success)
				assert.Equal(t, 1, out.Body.Processed)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_configurations(t *testing.T) {
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("passes lastSync", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Configurations", mock.Anything, sync.DeltaQuery{Since: &since, Source: "edge-hub"}).
			Return(&sync.ConfigurationsResponse{Configurations: []sync.ConfigEntry{{Key: "interval", Value: json.RawMessage(`60`)}}}, nil)

		out, err := newHandler(svc).configurations(context.Background(), &deltaInput{LastSync: since, Source: "edge-hub"})

		require.NoError(t, err)
		require.Len(t, out.Body.Configurations, 1)
		assert.Equal(t, "interval", out.Body.Configurations[0].Key)
		svc.AssertExpectations(t)
	})

	t.Run("first sync has no since", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Configurations", mock.Anything, sync.DeltaQuery{}).
			Return(&sync.ConfigurationsResponse{Configurations: []sync.ConfigEntry{}}, nil)

		_, err := newHandler(svc).configurations(context.Background(), &deltaInput{})

		require.NoError(t, err)
		svc.AssertExpectations(t)
	})

	t.Run("storage failure", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Configurations", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		_, err := newHandler(svc).configurations(context.Background(), &deltaInput{})

		assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	})
}

func TestHandler_updates(t *testing.T) {
	svc := new(MockService)
	svc.On("Updates", mock.Anything, sync.DeltaQuery{Source: "edge-hub"}).
		Return(&sync.UpdatesResponse{Updates: []sync.UpdateDelta{{Kind: sync.DeltaFirmware, Key: "v2"}}}, nil)

	out, err := newHandler(svc).updates(context.Background(), &deltaInput{Source: "edge-hub"})

	require.NoError(t, err)
	require.Len(t, out.Body.Updates, 1)
	assert.Equal(t, sync.DeltaFirmware, out.Body.Updates[0].Kind)
}

func TestHandler_putConfiguration(t *testing.T) {
	t.Run("stores marshalled value", func(t *testing.T) {
		svc := new(MockService)
		svc.On("PutConfiguration", mock.Anything, sync.ConfigEntry{Key: "interval", Value: json.RawMessage(`{"seconds":30}`)}).Return(nil)

		input := &putConfigurationInput{Key: "interval"}
		input.Body.Value = map[string]any{"seconds": 30}
		out, err := newHandler(svc).putConfiguration(context.Background(), input)

		require.NoError(t, err)
		assert.Equal(t, "Ok", out.Body.Status)
		svc.AssertExpectations(t)
	})

	t.Run("invalid input", func(t *testing.T) {
		svc := new(MockService)
		svc.On("PutConfiguration", mock.Anything, mock.Anything).Return(sync.ErrInvalidInput)

		_, err := newHandler(svc).putConfiguration(context.Background(), &putConfigurationInput{Key: " "})

		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	})
}

func TestHandler_publishUpdate(t *testing.T) {
	t.Run("carries extra fields", func(t *testing.T) {
		svc := new(MockService)
		svc.On("PublishUpdate", mock.Anything, mock.MatchedBy(func(d sync.UpdateDelta) bool {
			return d.Kind == sync.DeltaFirmware &&
				d.Key == "gateway" &&
				string(d.Value) == `"1.4.2"` &&
				string(d.Extra["checksum"]) == `"abc"`
		})).Return(nil)

		input := &publishUpdateInput{}
		input.Body.Type = "firmware"
		input.Body.Key = "gateway"
		input.Body.Value = "1.4.2"
		input.Body.Extra = map[string]any{"checksum": "abc"}
		_, err := newHandler(svc).publishUpdate(context.Background(), input)

		require.NoError(t, err)
		svc.AssertExpectations(t)
	})

	t.Run("storage failure", func(t *testing.T) {
		svc := new(MockService)
		svc.On("PublishUpdate", mock.Anything, mock.Anything).Return(errors.New("db down"))

		input := &publishUpdateInput{}
		input.Body.Type = "firmware"
		_, err := newHandler(svc).publishUpdate(context.Background(), input)

		assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	})
}
