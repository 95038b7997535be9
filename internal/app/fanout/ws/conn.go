package ws

import (
	"sync"
	"time"

	"agroedge/internal/app/fanout"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Conn - соединение клиента. Send не блокируется: при полной очереди кадр отбрасывается.
type Conn struct {
	ws   *websocket.Conn
	send chan fanout.Message
	log  *slog.Logger

	mu     sync.Mutex
	closed bool
}

func newConn(ws *websocket.Conn, log *slog.Logger) *Conn {
	return &Conn{
		ws:   ws,
		send: make(chan fanout.Message, sendBuffer),
		log:  log,
	}
}

func (c *Conn) Send(msg fanout.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close закрывает очередь; кадры, уже стоящие в ней, будут отправлены
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteJSON(msg); err != nil {
				c.log.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
