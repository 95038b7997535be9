package fanout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CommandRelay передает команды устройствам
type CommandRelay interface {
	RelayCommand(ctx context.Context, cmd IssuedCommand) error
}

// DeviceCommand проверяет разрешение device-control и доступ к ферме команды,
// затем передает команду. Отказ возвращается явной ошибкой.
func (h *Hub) DeviceCommand(ctx context.Context, connID string, cmd Command) (IssuedCommand, error) {
	client, err := h.client(connID)
	if err != nil {
		return IssuedCommand{}, err
	}
	if !client.HasPermission(PermDeviceControl) {
		h.log.Info("Команда отклонена: нет разрешения", "conn_id", connID, "user_id", client.UserID)
		return IssuedCommand{}, fmt.Errorf("%w: %s permission required", ErrAccessDenied, PermDeviceControl)
	}
	if cmd.FarmID != "" && !client.CanAccessFarm(cmd.FarmID) {
		return IssuedCommand{}, fmt.Errorf("%w: farm %q", ErrAccessDenied, cmd.FarmID)
	}
	if strings.TrimSpace(cmd.DeviceID) == "" || strings.TrimSpace(cmd.Action) == "" {
		return IssuedCommand{}, fmt.Errorf("%w: deviceId and action are required", ErrInvalidCommand)
	}

	issued := IssuedCommand{
		ID:       uuid.NewString(),
		Command:  cmd,
		IssuedBy: client.UserID,
		IssuedAt: h.now().UTC(),
	}
	if err := h.relay.RelayCommand(ctx, issued); err != nil {
		return IssuedCommand{}, fmt.Errorf("relay command: %w", err)
	}

	h.log.Info("Команда передана устройству",
		"command_id", issued.ID,
		"device_id", cmd.DeviceID,
		"action", cmd.Action,
		"user_id", client.UserID,
	)
	return issued, nil
}
