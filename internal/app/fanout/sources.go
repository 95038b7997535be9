package fanout

import (
	"context"
	"encoding/json"
	"time"

	"agroedge/internal/domain/record"
	domainsync "agroedge/internal/domain/sync"
)

// RunTelemetry публикует события локального потока до отмены ctx или закрытия in
func (h *Hub) RunTelemetry(ctx context.Context, in <-chan Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-in:
			if !ok {
				return nil
			}
			h.Publish(u)
		}
	}
}

// RunAlerts публикует тревоги из шины сообщений. Сообщение - JSON record.Alert.
func (h *Hub) RunAlerts(ctx context.Context, msgs <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-msgs:
			if !ok {
				return nil
			}
			var alert record.Alert
			if err := json.Unmarshal(raw, &alert); err != nil {
				h.log.Warn("Некорректная тревога из шины", "error", err)
				continue
			}
			if err := alert.Validate(); err != nil {
				h.log.Warn("Некорректная тревога из шины", "error", err)
				continue
			}
			h.Publish(AlertUpdate(&alert))
		}
	}
}

// RunDeviceStatus публикует состояния устройств из шины сообщений
func (h *Hub) RunDeviceStatus(ctx context.Context, msgs <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-msgs:
			if !ok {
				return nil
			}
			var st DeviceStatus
			if err := json.Unmarshal(raw, &st); err != nil || st.DeviceID == "" || st.FarmID == "" {
				h.log.Warn("Некорректное состояние устройства из шины", "error", err)
				continue
			}
			h.Publish(Update{
				Type:      UpdateDeviceStatus,
				Data:      st,
				Timestamp: st.ReportedAt,
				FarmID:    st.FarmID,
				SensorID:  st.SensorID,
			})
		}
	}
}

// RunHealth периодически рассылает system-health всем клиентам
func (h *Hub) RunHealth(ctx context.Context, interval time.Duration, status func() domainsync.Status) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.Publish(Update{
				Type: UpdateSystemHealth,
				Data: newHealth(status(), h.ClientCount()),
			})
		}
	}
}

// RecordUpdate строит событие для только что сохраненной записи.
// Метаданные ферм клиентам не рассылаются.
func RecordUpdate(rec record.Record) (Update, bool) {
	u := Update{
		Data:      rec,
		Timestamp: rec.CreatedAt,
		FarmID:    rec.Payload.FarmRef(),
		SensorID:  rec.Payload.SensorRef(),
	}
	switch rec.Kind {
	case record.KindSensorData:
		u.Type = UpdateSensorData
	case record.KindAlert:
		u.Type = UpdateAlert
	default:
		return Update{}, false
	}
	return u, true
}

// DeviceStatus - состояние устройства из шины сообщений
type DeviceStatus struct {
	DeviceID   string    `json:"deviceId"`
	FarmID     string    `json:"farmId"`
	SensorID   string    `json:"sensorId,omitempty"`
	Status     string    `json:"status"`
	Battery    *float64  `json:"battery,omitempty"`
	ReportedAt time.Time `json:"reportedAt"`
}

// AlertUpdate строит событие для тревоги из шины
func AlertUpdate(a *record.Alert) Update {
	ts := a.RaisedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return Update{
		Type:      UpdateAlert,
		Data:      a,
		Timestamp: ts,
		FarmID:    a.FarmID,
		SensorID:  a.SensorID,
	}
}
