package bus

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func getTestBus(t *testing.T) *Bus {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}
	b, err := New(context.Background(), url, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err, "Failed to connect to test Redis")
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBus_PublishSubscribe(t *testing.T) {
	b := getTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := b.Subscribe(ctx, ChannelAlerts)
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, ChannelAlerts, map[string]string{"farmId": "farm_1"}))

	select {
	case raw := <-msgs:
		var got map[string]string
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "farm_1", got["farmId"])
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-msgs
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), "://bad", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestBus_PublishUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	b := NewWithClient(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer b.Close()

	err := b.Publish(context.Background(), ChannelDeviceCommands, map[string]string{"action": "open"})
	assert.Error(t, err)
}
