package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// HubConfig tunes websocket connections
type HubConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	ClientBuffer    int
	AllowedOrigins  []string

	// UserID resolves the authenticated caller. Per-user topics are only
	// served to their owner; nil means no request is authenticated.
	UserID func(r *http.Request) (int64, bool)
}

// Message is the frame written to websocket clients
type Message struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// Hub fans topic messages out to websocket clients
type Hub struct {
	mu       sync.RWMutex
	topics   map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	config   HubConfig
	logger   *zap.Logger
}

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	topics    []string
	closeOnce sync.Once
}

// NewHub creates a websocket hub
func NewHub(config HubConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 30 * time.Second
	}
	if config.ClientBuffer <= 0 {
		config.ClientBuffer = 32
	}

	h := &Hub{
		topics: make(map[string]map[*client]struct{}),
		config: config,
		logger: logger.With(zap.String("component", "realtime_hub")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.config.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.config.AllowedOrigins, "*") || slices.Contains(h.config.AllowedOrigins, origin)
}

// Authorize reports whether the request may subscribe to topic
func (h *Hub) Authorize(r *http.Request, topic string) error {
	owner, perUser, err := TopicOwner(topic)
	if err != nil {
		return err
	}
	if !perUser {
		return nil
	}
	if h.config.UserID == nil {
		return fmt.Errorf("topic %s requires authentication", topic)
	}
	userID, ok := h.config.UserID(r)
	if !ok {
		return fmt.Errorf("topic %s requires authentication", topic)
	}
	if userID != owner {
		return fmt.Errorf("topic %s belongs to another user", topic)
	}
	return nil
}

// ServeHTTP upgrades the request and subscribes it to every ?topic= value
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topics := r.URL.Query()["topic"]
	if len(topics) == 0 {
		http.Error(w, "at least one topic is required", http.StatusBadRequest)
		return
	}
	for _, topic := range topics {
		if err := h.Authorize(r, topic); err != nil {
			h.logger.Debug("Websocket subscription rejected", zap.String("topic", topic), zap.Error(err))
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.config.ClientBuffer),
		topics: topics,
	}
	h.register(c)

	go c.writePump()
	c.readPump()
}

// Publish implements Publisher. Clients that cannot keep up are disconnected.
func (h *Hub) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(Message{Topic: topic, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal message for %s: %w", topic, err)
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.topics[topic] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow websocket client", zap.String("topic", topic))
		c.close()
	}
	return nil
}

// Subscribers returns the number of clients subscribed to topic
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*client
	for _, clients := range h.topics {
		for c := range clients {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.close()
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range c.topics {
		if h.topics[topic] == nil {
			h.topics[topic] = make(map[*client]struct{})
		}
		h.topics[topic][c] = struct{}{}
	}
	h.logger.Debug("Websocket client connected", zap.Strings("topics", c.topics))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range c.topics {
		delete(h.topics[topic], c)
		if len(h.topics[topic]) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		c.hub.unregister(c)
		close(c.send)
	})
}

// readPump discards inbound frames; it exists to notice disconnects and pongs
func (c *client) readPump() {
	defer func() {
		c.close()
		c.conn.Close()
	}()

	wait := 2 * c.hub.config.PingInterval
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
