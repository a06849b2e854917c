package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/qualitysquare/fieldops-backend/pkg/logger"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
	defaultSendBuffer   = 32
	maxInboundMessage   = 512
)

// Message is the frame pushed to subscribers.
type Message struct {
	Topic   string    `json:"topic"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

// Options tunes connection keepalive and buffering.
type Options struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	SendBuffer   int
}

type client struct {
	id         string
	employeeID string
	topics     map[string]struct{}
	send       chan []byte
	conn       *websocket.Conn
}

func (c *client) wants(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	_, ok := c.topics[topic]
	return ok
}

// Hub fans change notifications out to connected websocket clients. A client
// that cannot keep up is disconnected rather than slowing the publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	upgrader websocket.Upgrader
	opts     Options
	logg     *logger.Logger
}

func NewHub(opts Options, logg *logger.Logger) *Hub {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	return &Hub{
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		opts: opts,
		logg: logg,
	}
}

// Notify queues payload for every client subscribed to topic.
func (h *Hub) Notify(topic string, payload any) {
	frame, err := json.Marshal(Message{Topic: topic, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		h.logg.Error(context.Background(), "failed to encode realtime message", err)
		return
	}

	h.mu.RLock()
	var slow []*client
	for _, c := range h.clients {
		if !c.wants(topic) {
			continue
		}
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logg.Warn(h.logg.WithEmployeeID(context.Background(), c.employeeID), "realtime client too slow, disconnecting")
		h.unregister(c)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and pumps messages until the client goes away.
// An empty topic list subscribes to everything.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, employeeID string, topics []string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{
		id:         uuid.NewString(),
		employeeID: employeeID,
		topics:     make(map[string]struct{}, len(topics)),
		send:       make(chan []byte, h.opts.SendBuffer),
		conn:       conn,
	}
	for _, topic := range topics {
		if topic != "" {
			c.topics[topic] = struct{}{}
		}
	}
	h.register(c)

	ctx := h.logg.WithEmployeeID(r.Context(), employeeID)
	h.logg.Info(ctx, "realtime.connected")
	go h.writePump(c)
	h.readPump(c)
	h.logg.Info(ctx, "realtime.disconnected")
	return nil
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

// readPump only tracks liveness; clients do not send commands.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	pongWait := h.opts.PingInterval * 2
	c.conn.SetReadLimit(maxInboundMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logg.Warn(h.logg.WithEmployeeID(context.Background(), c.employeeID), "realtime connection closed unexpectedly")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
