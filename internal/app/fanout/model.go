package fanout

import (
	"encoding/json"
	"errors"
	"time"

	domainsync "agroedge/internal/domain/sync"
)

var (
	ErrUnknownClient    = errors.New("unknown client")
	ErrNotAuthenticated = errors.New("client is not authenticated")
	ErrAccessDenied     = errors.New("access denied")
	ErrUnknownQuery     = errors.New("unknown query kind")
	ErrInvalidCommand   = errors.New("invalid device command")
)

// Разрешения клиентов
const (
	PermAdmin         = "admin"
	PermDeviceControl = "device-control"
)

// UpdateType - вид события для клиентов
type UpdateType string

const (
	UpdateSensorData   UpdateType = "sensor-data"
	UpdateAlert        UpdateType = "alert"
	UpdateDeviceStatus UpdateType = "device-status"
	UpdateSystemHealth UpdateType = "system-health"
)

// Update - событие реального времени. FarmID и SensorID задают маршрутизацию.
type Update struct {
	Type      UpdateType `json:"type"`
	Data      any        `json:"data"`
	Timestamp time.Time  `json:"timestamp"`
	FarmID    string     `json:"farmId,omitempty"`
	SensorID  string     `json:"sensorId,omitempty"`
}

// Типы кадров протокола
const (
	FrameAuth             = "auth"
	FrameSubscribeFarms   = "subscribeFarms"
	FrameSubscribeSensors = "subscribeSensors"
	FrameQuery            = "query"
	FrameDeviceCommand    = "deviceCommand"

	FrameAuthResult    = "authResult"
	FrameSubscribed    = "subscribed"
	FrameUpdate        = "update"
	FrameQueryResult   = "queryResult"
	FrameCommandResult = "commandResult"
	FrameError         = "error"
)

// Message - кадр, отправляемый клиенту
type Message struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Data any    `json:"data,omitempty"`
}

// Sender доставляет кадры одному соединению
type Sender interface {
	// Send не блокируется; false означает, что кадр отброшен
	Send(msg Message) bool
	// Close закрывает соединение
	Close()
}

// Client - аутентифицированный клиент панели мониторинга
type Client struct {
	ID          string
	UserID      string
	FarmIDs     map[string]struct{}
	Permissions map[string]struct{}
	ConnectedAt time.Time
}

func (c *Client) HasPermission(p string) bool {
	_, ok := c.Permissions[p]
	return ok
}

// CanAccessFarm - ферма клиента или разрешение admin
func (c *Client) CanAccessFarm(farmID string) bool {
	if c.HasPermission(PermAdmin) {
		return true
	}
	_, ok := c.FarmIDs[farmID]
	return ok
}

// AuthResult - данные кадра authResult
type AuthResult struct {
	OK          bool     `json:"ok"`
	Permissions []string `json:"permissions,omitempty"`
	FarmIDs     []string `json:"farmIds,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Command - команда управления устройством от клиента
type Command struct {
	FarmID   string          `json:"farmId,omitempty"`
	DeviceID string          `json:"deviceId"`
	Action   string          `json:"action"`
	Params   json.RawMessage `json:"params,omitempty"`
}

// IssuedCommand - команда, прошедшая проверку и переданная устройствам
type IssuedCommand struct {
	ID string `json:"id"`
	Command
	IssuedBy string    `json:"issuedBy"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Health - данные события system-health
type Health struct {
	Online       bool       `json:"online"`
	IsSyncing    bool       `json:"isSyncing"`
	LastSync     *time.Time `json:"lastSync"`
	PendingItems int        `json:"pendingItems"`
	FailedItems  int        `json:"failedItems"`
	LastError    *string    `json:"lastError"`
	Clients      int        `json:"clients"`
}

func newHealth(st domainsync.Status, clients int) Health {
	return Health{
		Online:       st.Online,
		IsSyncing:    st.IsSyncing,
		LastSync:     st.LastSync,
		PendingItems: st.PendingItems,
		FailedItems:  st.FailedItems,
		LastError:    st.LastError,
		Clients:      clients,
	}
}

func FarmRoom(farmID string) string {
	return "farm:" + farmID
}

func SensorRoom(sensorID string) string {
	return "sensor:" + sensorID
}
