// Package websocket delivers ledger events to connected market
// watchers: traders polling order state can instead subscribe and see
// listings, settlements, and sweeps as they commit.
package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/notifications"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Hub manages websocket subscribers and broadcasts ledger messages to
// all of them.
type Hub struct {
	logger      *zap.Logger
	upgrader    websocket.Upgrader
	broadcast   chan notifications.Message
	register    chan *connection
	unregister  chan *connection
	stop        chan struct{}
	stopped     sync.Once
	connections map[*connection]bool
}

type connection struct {
	id     uuid.UUID
	conn   *websocket.Conn
	send   chan notifications.Message
	remote string
}

// NewHub creates a hub and starts its broadcast loop.
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		logger:      logger,
		broadcast:   make(chan notifications.Message, 256),
		register:    make(chan *connection),
		unregister:  make(chan *connection),
		stop:        make(chan struct{}),
		connections: make(map[*connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// TODO: restrict origins once the portal frontend's host is fixed.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	go h.run()
	return h
}

// Broadcast queues a message for every subscriber. Messages are
// dropped when the hub's buffer is full rather than blocking the
// ledger's commit path.
func (h *Hub) Broadcast(msg notifications.Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast buffer full, dropping message", zap.String("type", msg.Type))
	}
}

// HandleConnection upgrades the request and registers the subscriber.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &connection{
		id:     uuid.New(),
		conn:   ws,
		send:   make(chan notifications.Message, 64),
		remote: r.RemoteAddr,
	}
	select {
	case h.register <- c:
	case <-h.stop:
		ws.Close()
		return nil
	}

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// Stop closes every subscriber connection and halts the loop.
func (h *Hub) Stop() {
	h.stopped.Do(func() { close(h.stop) })
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.connections[c] = true
			h.logger.Debug("subscriber connected", zap.String("remote", c.remote))
		case c := <-h.unregister:
			if h.connections[c] {
				delete(h.connections, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.connections {
				select {
				case c.send <- msg:
				default:
					delete(h.connections, c)
					close(c.send)
				}
			}
		case <-h.stop:
			for c := range h.connections {
				delete(h.connections, c)
				close(c.send)
				c.conn.Close()
			}
			return
		}
	}
}

func (h *Hub) readPump(c *connection) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.stop:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Subscribers are read-only; drain until the peer goes away.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
