package server

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eriantys/eriantys-server-go/internal/game"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

// eventClient is one open /ws/events connection.
type eventClient struct {
	id     string
	userID int
	conn   *websocket.Conn
	send   chan []byte
}

// delivery is a push waiting for the hub loop.
type delivery struct {
	recipients []int
	payload    []byte
}

// Hub fans pushes out to event connections. Each user has at most one
// event connection; a newer one replaces the old.
type Hub struct {
	logger       *zap.Logger
	writeTimeout time.Duration
	queueSize    int

	clients    map[int]*eventClient
	register   chan *eventClient
	unregister chan *eventClient
	outbound   chan delivery
	done       chan struct{}
}

// NewHub creates a hub. queueSize bounds each client's send queue; a client
// that falls that far behind is dropped.
func NewHub(queueSize int, writeTimeout time.Duration, logger *zap.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Hub{
		logger:       logger,
		writeTimeout: writeTimeout,
		queueSize:    queueSize,
		clients:      make(map[int]*eventClient),
		register:     make(chan *eventClient),
		unregister:   make(chan *eventClient),
		outbound:     make(chan delivery, 256),
		done:         make(chan struct{}),
	}
}

// Run processes registrations and deliveries until Stop.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			if old, ok := h.clients[c.userID]; ok {
				close(old.send)
			}
			h.clients[c.userID] = c
			h.logger.Debug("event client registered", zap.Int("user_id", c.userID), zap.String("conn_id", c.id))

		case c := <-h.unregister:
			if cur, ok := h.clients[c.userID]; ok && cur == c {
				delete(h.clients, c.userID)
				close(c.send)
				h.logger.Debug("event client unregistered", zap.Int("user_id", c.userID), zap.String("conn_id", c.id))
			}

		case d := <-h.outbound:
			for _, id := range d.recipients {
				c, ok := h.clients[id]
				if !ok {
					continue
				}
				select {
				case c.send <- d.payload:
				default:
					h.logger.Warn("event client too slow, dropping", zap.Int("user_id", id))
					delete(h.clients, id)
					close(c.send)
				}
			}

		case <-h.done:
			for id, c := range h.clients {
				delete(h.clients, id)
				close(c.send)
			}
			return
		}
	}
}

// Stop ends Run and closes every client queue.
func (h *Hub) Stop() {
	close(h.done)
}

// Notify queues an engine notification. It runs under the match lock and
// never calls back into the engine.
func (h *Hub) Notify(n game.Notification) {
	payload, err := json.Marshal(n.Push)
	if err != nil {
		h.logger.Error("failed to encode push", zap.String("kind", string(n.Push.Kind)), zap.Error(err))
		return
	}
	h.enqueue(delivery{recipients: n.Targets(), payload: payload})
}

// Send queues a push for explicit recipients.
func (h *Hub) Send(recipients []int, push any) {
	if len(recipients) == 0 {
		return
	}
	payload, err := json.Marshal(push)
	if err != nil {
		h.logger.Error("failed to encode push", zap.Error(err))
		return
	}
	h.enqueue(delivery{recipients: recipients, payload: payload})
}

func (h *Hub) enqueue(d delivery) {
	select {
	case h.outbound <- d:
	case <-h.done:
	}
}

// Attach serves an upgraded event connection for a user until it closes.
func (h *Hub) Attach(userID int, conn *websocket.Conn) {
	c := &eventClient{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, h.queueSize),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	h.Send([]int{userID}, protocol.Push{Kind: protocol.PushConnected, UserID: userID})

	go h.writePump(c)
	h.readPump(c)
}

// readPump only watches for the peer going away.
func (h *Hub) readPump(c *eventClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *eventClient) {
	defer c.conn.Close()

	for message := range c.send {
		if h.writeTimeout > 0 {
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Debug("event write failed", zap.Int("user_id", c.userID), zap.Error(err))
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
