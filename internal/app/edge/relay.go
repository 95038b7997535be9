package edge

import (
	"context"
	"errors"

	"agroedge/internal/app/fanout"
	domainsync "agroedge/internal/domain/sync"
	"agroedge/internal/infrastructure/bus"

	"golang.org/x/exp/slog"
)

// ErrRelayUnavailable возвращается клиенту, если команду некуда передать
var ErrRelayUnavailable = errors.New("device command relay is not configured")

type publisher interface {
	Publish(ctx context.Context, channel string, v any) error
}

// BusRelay передает устройствам команды клиентов и обновления из облака
// через шину сообщений
type BusRelay struct {
	bus publisher
	log *slog.Logger
}

func NewBusRelay(b publisher, log *slog.Logger) *BusRelay {
	return &BusRelay{
		bus: b,
		log: log.With("component", "relay"),
	}
}

func (r *BusRelay) RelayCommand(ctx context.Context, cmd fanout.IssuedCommand) error {
	return r.bus.Publish(ctx, bus.ChannelDeviceCommands, cmd)
}

func (r *BusRelay) Firmware(ctx context.Context, delta domainsync.UpdateDelta) error {
	return r.bus.Publish(ctx, bus.ChannelFirmware, delta)
}

func (r *BusRelay) DeviceCommand(ctx context.Context, delta domainsync.UpdateDelta) error {
	return r.bus.Publish(ctx, bus.ChannelDeviceCommands, delta)
}

// LogRelay используется без шины: обновления из облака только логируются,
// команды клиентов отклоняются с ErrRelayUnavailable
type LogRelay struct {
	log *slog.Logger
}

func NewLogRelay(log *slog.Logger) *LogRelay {
	return &LogRelay{log: log.With("component", "relay")}
}

func (r *LogRelay) RelayCommand(_ context.Context, cmd fanout.IssuedCommand) error {
	r.log.Warn("Шина не настроена, команда не доставлена",
		"command_id", cmd.ID,
		"device_id", cmd.DeviceID,
		"action", cmd.Action,
	)
	return ErrRelayUnavailable
}

func (r *LogRelay) Firmware(_ context.Context, delta domainsync.UpdateDelta) error {
	r.log.Info("Получено обновление прошивки", "key", delta.Key)
	return nil
}

func (r *LogRelay) DeviceCommand(_ context.Context, delta domainsync.UpdateDelta) error {
	r.log.Info("Получена команда устройству из облака", "key", delta.Key)
	return nil
}
