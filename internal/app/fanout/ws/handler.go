package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"agroedge/internal/app/fanout"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"
)

// authTimeout - время на аутентификацию после подключения
const authTimeout = 10 * time.Second

type inbound struct {
	Type string          `json:"type"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

type authData struct {
	Token       string   `json:"token"`
	FarmIDs     []string `json:"farmIds"`
	Permissions []string `json:"permissions"`
}

type subscribeData struct {
	FarmIDs   []string `json:"farmIds"`
	SensorIDs []string `json:"sensorIds"`
}

type queryData struct {
	Kind   fanout.QueryKind  `json:"kind"`
	Params map[string]string `json:"params"`
}

type subscribedData struct {
	Rooms []string `json:"rooms"`
}

type commandResult struct {
	OK        bool   `json:"ok"`
	CommandID string `json:"commandId,omitempty"`
	Error     string `json:"error,omitempty"`
}

type errorData struct {
	Error string `json:"error"`
}

// Handler - транспорт RealtimeFanout поверх websocket
type Handler struct {
	hub         *fanout.Hub
	upgrader    websocket.Upgrader
	log         *slog.Logger
	authTimeout time.Duration
}

func NewHandler(hub *fanout.Hub, log *slog.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:         log.With("component", "ws"),
		authTimeout: authTimeout,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	connID := uuid.NewString()
	c := newConn(wsConn, h.log.With("conn_id", connID))
	h.hub.Register(connID, c)
	go c.writePump()

	var authed atomic.Bool
	timer := time.AfterFunc(h.authTimeout, func() {
		if !authed.Load() {
			h.log.Info("Клиент не прошел аутентификацию вовремя", "conn_id", connID)
			c.Send(fanout.Message{Type: fanout.FrameAuthResult, Data: fanout.AuthResult{OK: false, Error: "authentication timeout"}})
			h.hub.Unregister(connID)
			c.Close()
		}
	})
	defer timer.Stop()

	h.readPump(r.Context(), connID, c, &authed)

	h.hub.Unregister(connID)
	c.Close()
}

func (h *Handler) readPump(ctx context.Context, connID string, c *Conn, authed *atomic.Bool) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read failed", "conn_id", connID, "error", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		var frame inbound
		if err := json.Unmarshal(raw, &frame); err != nil {
			sendError(c, "", "invalid message format")
			continue
		}
		if !h.handle(ctx, connID, c, frame, authed) {
			return
		}
	}
}

// handle возвращает false, если соединение нужно закрыть
func (h *Handler) handle(ctx context.Context, connID string, c *Conn, frame inbound, authed *atomic.Bool) bool {
	switch frame.Type {
	case fanout.FrameAuth:
		var d authData
		if err := json.Unmarshal(frame.Data, &d); err != nil {
			d = authData{}
		}
		if !h.hub.Authenticate(ctx, connID, d.Token, d.FarmIDs, d.Permissions) {
			return false
		}
		authed.Store(true)

	case fanout.FrameSubscribeFarms, fanout.FrameSubscribeSensors:
		var d subscribeData
		if err := json.Unmarshal(frame.Data, &d); err != nil {
			sendError(c, frame.ID, "invalid subscribe payload")
			return true
		}
		var (
			rooms []string
			err   error
		)
		if frame.Type == fanout.FrameSubscribeFarms {
			rooms, err = h.hub.SubscribeFarms(connID, d.FarmIDs)
		} else {
			rooms, err = h.hub.SubscribeSensors(connID, d.SensorIDs)
		}
		if err != nil {
			sendError(c, frame.ID, err.Error())
			return !errors.Is(err, fanout.ErrUnknownClient)
		}
		c.Send(fanout.Message{Type: fanout.FrameSubscribed, ID: frame.ID, Data: subscribedData{Rooms: rooms}})

	case fanout.FrameQuery:
		var d queryData
		if err := json.Unmarshal(frame.Data, &d); err != nil {
			sendError(c, frame.ID, "invalid query payload")
			return true
		}
		res := h.hub.Query(ctx, connID, d.Kind, d.Params)
		c.Send(fanout.Message{Type: fanout.FrameQueryResult, ID: frame.ID, Data: res})

	case fanout.FrameDeviceCommand:
		var cmd fanout.Command
		if err := json.Unmarshal(frame.Data, &cmd); err != nil {
			sendError(c, frame.ID, "invalid command payload")
			return true
		}
		issued, err := h.hub.DeviceCommand(ctx, connID, cmd)
		if err != nil {
			c.Send(fanout.Message{Type: fanout.FrameCommandResult, ID: frame.ID, Data: commandResult{Error: err.Error()}})
			return true
		}
		c.Send(fanout.Message{Type: fanout.FrameCommandResult, ID: frame.ID, Data: commandResult{OK: true, CommandID: issued.ID}})

	default:
		sendError(c, frame.ID, "unknown message type: "+frame.Type)
	}
	return true
}

func sendError(c *Conn, id, msg string) {
	c.Send(fanout.Message{Type: fanout.FrameError, ID: id, Data: errorData{Error: msg}})
}
