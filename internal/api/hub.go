package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"neo-tracker/internal/observability"
)

// Alert is the message broadcast to stream subscribers when a hazardous
// object receives a fresh risk assessment.
type Alert struct {
	Type        string    `json:"type"` // always "hazard_alert"
	NeoID       string    `json:"neo_id"`
	Name        string    `json:"name"`
	RiskScore   float64   `json:"risk_score"`
	RiskLevel   string    `json:"risk_level"`
	PublishedAt time.Time `json:"published_at"`
}

// HubConfig configures stream hub behavior.
type HubConfig struct {
	// SendBuffer is the per-client outbound queue size. Clients that fall
	// this far behind are disconnected.
	SendBuffer int
	// WriteTimeout is timeout for writing a frame to a client.
	WriteTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// PongTimeout is how long to wait for a pong before dropping a client.
	PongTimeout time.Duration
}

// DefaultHubConfig returns default stream hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SendBuffer:   16,
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		PongTimeout:  60 * time.Second,
	}
}

// Hub fans hazard alerts out to connected WebSocket clients. It
// implements the alert sink consumed by the sync runner.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.RWMutex
	clients map[*hubClient]struct{}

	now func() time.Time
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a stream hub. A nil config uses defaults.
func NewHub(config *HubConfig, logger *log.Logger) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
		now:     time.Now,
	}
}

// PublishAlert broadcasts a hazard alert to all connected clients.
// Clients whose outbound queue is full are dropped rather than blocking
// the caller.
func (h *Hub) PublishAlert(neoID, name string, score float64, level string) {
	msg, err := json.Marshal(Alert{
		Type:        "hazard_alert",
		NeoID:       neoID,
		Name:        name,
		RiskScore:   score,
		RiskLevel:   level,
		PublishedAt: h.now().UTC(),
	})
	if err != nil {
		h.logger.Printf("marshal alert for %s: %v", neoID, err)
		return
	}

	h.mu.RLock()
	var slow []*hubClient
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Printf("dropping slow stream client %s", c.conn.RemoteAddr())
		h.remove(c)
	}
}

// ClientCount returns the number of connected stream clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket connection and registers
// the client for alert broadcasts.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		h.logger.Printf("websocket upgrade: %v", err)
		return
	}

	c := &hubClient{
		conn: conn,
		send: make(chan []byte, h.config.SendBuffer),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	observability.StreamClientConnected(1)

	go h.writeLoop(c)
	h.readLoop(c)
}

// writeLoop delivers queued alerts and pings to a single client.
func (h *Hub) writeLoop(c *hubClient) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(h.config.WriteTimeout))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readLoop discards inbound frames; the stream is one-way. It exists to
// process control frames and notice client disconnects.
func (h *Hub) readLoop(c *hubClient) {
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

// remove unregisters a client and closes its connection. Safe to call
// more than once for the same client.
func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()

	if ok {
		close(c.send)
		c.conn.Close()
		observability.StreamClientConnected(-1)
	}
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}
