package fanout

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"agroedge/internal/domain/session"

	"golang.org/x/exp/slog"
)

// TokenValidator проверяет токен клиента
type TokenValidator interface {
	Validate(token string) (*session.Claims, error)
}

type conn struct {
	sender Sender
	client *Client
	rooms  map[string]struct{}
}

// Hub - реестр клиентов и комнат. Не разделяет состояние с синхронизацией.
type Hub struct {
	auth  TokenValidator
	store QueryStore
	relay CommandRelay
	log   *slog.Logger
	now   func() time.Time

	mu    sync.RWMutex
	conns map[string]*conn
	rooms map[string]map[string]struct{}
}

func NewHub(auth TokenValidator, store QueryStore, relay CommandRelay, log *slog.Logger) *Hub {
	return &Hub{
		auth:  auth,
		store: store,
		relay: relay,
		log:   log.With("component", "fanout"),
		now:   time.Now,
		conns: make(map[string]*conn),
		rooms: make(map[string]map[string]struct{}),
	}
}

// Register добавляет неаутентифицированное соединение
func (h *Hub) Register(connID string, sender Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.conns[connID]; ok {
		h.dropLocked(connID, old)
	}
	h.conns[connID] = &conn{sender: sender, rooms: make(map[string]struct{})}
	h.log.Debug("Клиент подключен", "conn_id", connID)
}

// Authenticate проверяет токен. Запрошенные фермы и разрешения сужаются
// до выданных в токене, если токен их содержит. При отказе клиент
// получает authResult(false) и отключается.
func (h *Hub) Authenticate(ctx context.Context, connID, token string, farmIDs, permissions []string) bool {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	claims, err := h.auth.Validate(token)
	if err != nil {
		h.log.Info("Аутентификация отклонена", "conn_id", connID, "error", err)
		c.sender.Send(Message{Type: FrameAuthResult, Data: AuthResult{OK: false, Error: err.Error()}})
		h.Unregister(connID)
		c.sender.Close()
		return false
	}

	client := &Client{
		ID:          connID,
		UserID:      claims.UserID,
		FarmIDs:     narrow(farmIDs, claims.Farms),
		Permissions: narrowPermissions(permissions, claims.Permissions),
		ConnectedAt: h.now(),
	}

	h.mu.Lock()
	c, ok = h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	// повторная аутентификация сбрасывает подписки
	h.leaveAllLocked(connID, c)
	c.client = client
	h.mu.Unlock()

	c.sender.Send(Message{Type: FrameAuthResult, Data: AuthResult{
		OK:          true,
		Permissions: keys(client.Permissions),
		FarmIDs:     keys(client.FarmIDs),
	}})
	h.log.Info("Клиент аутентифицирован",
		"conn_id", connID,
		"user_id", client.UserID,
		"farms", len(client.FarmIDs),
	)
	return true
}

// Subscribe добавляет клиента в комнату. В комнату фермы допускаются
// только клиенты с доступом к ферме.
func (h *Hub) Subscribe(connID, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, err := h.authenticatedLocked(connID)
	if err != nil {
		return err
	}
	if farmID, ok := strings.CutPrefix(room, "farm:"); ok {
		if farmID == "" || !c.client.CanAccessFarm(farmID) {
			return fmt.Errorf("%w: %s", ErrAccessDenied, room)
		}
	} else if sensorID, ok := strings.CutPrefix(room, "sensor:"); !ok || sensorID == "" {
		return fmt.Errorf("unknown room %q", room)
	}

	h.joinLocked(connID, c, room)
	return nil
}

// SubscribeFarms подписывает на комнаты ферм. Если к одной из ферм нет
// доступа, ни одна подписка не создается.
func (h *Hub) SubscribeFarms(connID string, farmIDs []string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, err := h.authenticatedLocked(connID)
	if err != nil {
		return nil, err
	}
	rooms := make([]string, 0, len(farmIDs))
	for _, id := range farmIDs {
		if id == "" || !c.client.CanAccessFarm(id) {
			return nil, fmt.Errorf("%w: farm %q", ErrAccessDenied, id)
		}
		rooms = append(rooms, FarmRoom(id))
	}
	for _, room := range rooms {
		h.joinLocked(connID, c, room)
	}
	return rooms, nil
}

// SubscribeSensors подписывает на комнаты датчиков. Доступ проверяется при доставке.
func (h *Hub) SubscribeSensors(connID string, sensorIDs []string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, err := h.authenticatedLocked(connID)
	if err != nil {
		return nil, err
	}
	rooms := make([]string, 0, len(sensorIDs))
	for _, id := range sensorIDs {
		if id == "" {
			continue
		}
		room := SensorRoom(id)
		h.joinLocked(connID, c, room)
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// Publish рассылает событие в комнаты датчика и фермы. Каждый клиент получает
// событие не больше одного раза и только при доступе к ферме события.
// system-health без идентификаторов получают все аутентифицированные клиенты.
// Возвращает число клиентов, которым кадр поставлен в очередь.
func (h *Hub) Publish(u Update) int {
	if u.Timestamp.IsZero() {
		u.Timestamp = h.now()
	}

	h.mu.RLock()
	targets := make(map[string]*conn)
	if u.SensorID == "" && u.FarmID == "" {
		if u.Type == UpdateSystemHealth {
			for id, c := range h.conns {
				if c.client != nil {
					targets[id] = c
				}
			}
		}
	} else {
		if u.SensorID != "" {
			h.collectLocked(SensorRoom(u.SensorID), targets)
		}
		if u.FarmID != "" {
			h.collectLocked(FarmRoom(u.FarmID), targets)
		}
	}

	senders := make([]Sender, 0, len(targets))
	for _, c := range targets {
		if c.client == nil {
			continue
		}
		if u.FarmID != "" && !c.client.CanAccessFarm(u.FarmID) {
			continue
		}
		senders = append(senders, c.sender)
	}
	h.mu.RUnlock()

	msg := Message{Type: FrameUpdate, Data: u}
	delivered := 0
	for _, s := range senders {
		if s.Send(msg) {
			delivered++
		}
	}
	if dropped := len(senders) - delivered; dropped > 0 {
		h.log.Warn("Событие отброшено для медленных клиентов", "type", string(u.Type), "dropped", dropped)
	}
	return delivered
}

// Unregister удаляет клиента из всех комнат
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.conns[connID]; ok {
		h.dropLocked(connID, c)
		h.log.Debug("Клиент отключен", "conn_id", connID)
	}
}

// ClientCount возвращает число аутентифицированных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, c := range h.conns {
		if c.client != nil {
			n++
		}
	}
	return n
}

// Rooms возвращает комнаты соединения
func (h *Hub) Rooms(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.conns[connID]
	if !ok {
		return nil
	}
	return keys(c.rooms)
}

func (h *Hub) client(connID string) (*Client, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, err := h.authenticatedLocked(connID)
	if err != nil {
		return nil, err
	}
	return c.client, nil
}

func (h *Hub) authenticatedLocked(connID string) (*conn, error) {
	c, ok := h.conns[connID]
	if !ok {
		return nil, ErrUnknownClient
	}
	if c.client == nil {
		return nil, ErrNotAuthenticated
	}
	return c, nil
}

func (h *Hub) collectLocked(room string, into map[string]*conn) {
	for id := range h.rooms[room] {
		if c, ok := h.conns[id]; ok {
			into[id] = c
		}
	}
}

func (h *Hub) joinLocked(connID string, c *conn, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[room] = members
	}
	members[connID] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leaveAllLocked(connID string, c *conn) {
	for room := range c.rooms {
		members := h.rooms[room]
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	c.rooms = make(map[string]struct{})
}

func (h *Hub) dropLocked(connID string, c *conn) {
	h.leaveAllLocked(connID, c)
	delete(h.conns, connID)
}

// narrow возвращает requested, ограниченный granted. Пустой granted не ограничивает,
// пустой requested означает все выданное.
func narrow(requested, granted []string) map[string]struct{} {
	out := make(map[string]struct{}, len(requested))
	if len(requested) == 0 {
		requested = granted
	}
	if len(granted) == 0 {
		for _, v := range requested {
			if v != "" {
				out[v] = struct{}{}
			}
		}
		return out
	}
	allowed := make(map[string]struct{}, len(granted))
	for _, v := range granted {
		allowed[v] = struct{}{}
	}
	for _, v := range requested {
		if _, ok := allowed[v]; ok {
			out[v] = struct{}{}
		}
	}
	return out
}

// narrowPermissions работает как narrow, но admin выдается только
// по явному разрешению в токене
func narrowPermissions(requested, granted []string) map[string]struct{} {
	out := narrow(requested, granted)
	if !slices.Contains(granted, PermAdmin) {
		delete(out, PermAdmin)
	}
	return out
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
