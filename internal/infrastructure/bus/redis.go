package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/exp/slog"
)

// Каналы шины
const (
	ChannelAlerts         = "alerts"
	ChannelDeviceStatus   = "device-status"
	ChannelDeviceCommands = "device-commands"
	ChannelFirmware       = "firmware-updates"
)

// subscriptionBuffer - емкость канала входящих сообщений подписки
const subscriptionBuffer = 64

// Bus - шина сообщений поверх Redis pub/sub
type Bus struct {
	client *redis.Client
	log    *slog.Logger
}

// New подключается к Redis по URL вида redis://host:port/db
func New(ctx context.Context, redisURL string, log *slog.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("error pinging redis: %w", err)
	}

	return NewWithClient(client, log), nil
}

func NewWithClient(client *redis.Client, log *slog.Logger) *Bus {
	return &Bus{
		client: client,
		log:    log.With("component", "bus"),
	}
}

// Publish сериализует v в JSON и публикует в канал
func (b *Bus) Publish(ctx context.Context, channel string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", channel, err)
	}
	receivers, err := b.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	b.log.Debug("message published", "channel", channel, "receivers", receivers)
	return nil
}

// Subscribe возвращает канал сообщений, закрывающийся при отмене ctx.
// Медленный потребитель не блокирует чтение из Redis: лишние сообщения отбрасываются.
func (b *Bus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	sub := b.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	out := make(chan []byte, subscriptionBuffer)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
					b.log.Warn("subscriber is slow, message dropped", "channel", channel)
				}
			}
		}
	}()

	return out, nil
}

func (b *Bus) Close() error {
	return b.client.Close()
}
