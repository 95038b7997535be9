package sync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	domainsync "agroedge/internal/domain/sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) Status() domainsync.Status {
	return m.Called().Get(0).(domainsync.Status)
}

func (m *MockSyncer) IsSyncing() bool {
	return m.Called().Bool(0)
}

func (m *MockSyncer) ForceSync(ctx context.Context) (domainsync.Status, error) {
	args := m.Called(ctx)
	return args.Get(0).(domainsync.Status), args.Error(1)
}

type MockConfigLister struct {
	mock.Mock
}

func (m *MockConfigLister) ListConfig(ctx context.Context) ([]domainsync.ConfigEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domainsync.ConfigEntry), args.Error(1)
}

func newHandler(s Syncer, c ConfigLister) *Handler {
	return NewHandler(s, c, "edge-01", "test", slog.Default(), huma.Middlewares{}, huma.Middlewares{})
}

func TestHandler_health(t *testing.T) {
	syncer := new(MockSyncer)
	syncer.On("Status").Return(domainsync.Status{Online: true})
	syncer.On("IsSyncing").Return(false)

	out, err := newHandler(syncer, new(MockConfigLister)).health(context.Background(), &struct{}{})

	require.NoError(t, err)
	assert.Equal(t, "OK", out.Body.Status)
	assert.True(t, out.Body.Online)
	assert.Equal(t, "edge-01", out.Body.NodeID)
}

func TestHandler_status(t *testing.T) {
	last := time.Now().UTC()
	syncer := new(MockSyncer)
	syncer.On("Status").Return(domainsync.Status{LastSync: &last, PendingItems: 50, TotalSynced: 200})
	syncer.On("IsSyncing").Return(true)

	out, err := newHandler(syncer, new(MockConfigLister)).status(context.Background(), &struct{}{})

	require.NoError(t, err)
	assert.Equal(t, 50, out.Body.PendingItems)
	assert.Equal(t, 200, out.Body.TotalSynced)
	assert.True(t, out.Body.IsSyncing)
}

func TestHandler_forceSync(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{name: "completed"},
		{name: "already running", err: domainsync.ErrSyncInProgress, expectedCode: http.StatusConflict},
		{name: "offline", err: domainsync.ErrOffline, expectedCode: http.StatusServiceUnavailable},
		{name: "stopped", err: context.Canceled, expectedCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			syncer := new(MockSyncer)
			syncer.On("ForceSync", mock.Anything).Return(domainsync.Status{TotalSynced: 3}, tt.err)

			// Act
			out, err := newHandler(syncer, new(MockConfigLister)).forceSync(context.Background(), &struct{}{})

			// Assert
			if tt.expectedCode != 0 {
				var se huma.StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, tt.expectedCode, se.GetStatus())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 3, out.Body.TotalSynced)
		})
	}
}

func TestHandler_listConfig(t *testing.T) {
	t.Run("entries", func(t *testing.T) {
		lister := new(MockConfigLister)
		lister.On("ListConfig", mock.Anything).
			Return([]domainsync.ConfigEntry{{Key: "interval", Value: json.RawMessage(`60`)}}, nil)

		out, err := newHandler(new(MockSyncer), lister).listConfig(context.Background(), &struct{}{})

		require.NoError(t, err)
		require.Len(t, out.Body.Configurations, 1)
		assert.JSONEq(t, `60`, string(out.Body.Configurations[0].Value))
	})

	t.Run("empty is not null", func(t *testing.T) {
		lister := new(MockConfigLister)
		lister.On("ListConfig", mock.Anything).Return(nil, nil)

		out, err := newHandler(new(MockSyncer), lister).listConfig(context.Background(), &struct{}{})

		require.NoError(t, err)
		assert.NotNil(t, out.Body.Configurations)
	})

	t.Run("storage failure", func(t *testing.T) {
		lister := new(MockConfigLister)
		lister.On("ListConfig", mock.Anything).Return(nil, errors.New("disk I/O error"))

		_, err := newHandler(new(MockSyncer), lister).listConfig(context.Background(), &struct{}{})

		var se huma.StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusInternalServerError, se.GetStatus())
	})
}
