// Package catalog — WebSocket hub for broadcasting price-feed events.
package catalog

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grocerybuddies/price-engine/internal/metrics"
)

// FeedMessage is a JSON event sent to price-feed clients whenever a price is
// reported or a vote lands.
type FeedMessage struct {
	Type      string `json:"type"` // "price_reported" or "vote_applied"
	UPC       string `json:"upc"`
	Store     string `json:"store"`
	Lat       string `json:"lat"`
	Long      string `json:"long"`
	Price     string `json:"price,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// feedConn wraps a WebSocket connection with a write lock. gorilla/websocket
// allows at most one concurrent writer per connection, and both the hub loop
// and the ping ticker write to it.
type feedConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *feedConn) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// FeedHub manages WebSocket connections and fans price-feed events out to
// every connected client.
type FeedHub struct {
	clients    map[*feedConn]bool
	broadcast  chan []byte
	register   chan *feedConn
	unregister chan *feedConn
	mu         sync.RWMutex
}

// NewFeedHub creates a new price-feed hub.
func NewFeedHub() *FeedHub {
	return &FeedHub{
		clients:    make(map[*feedConn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *feedConn),
		unregister: make(chan *feedConn),
	}
}

// Run starts the hub's main event loop. Must be called in a goroutine.
func (h *FeedHub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.FeedClients.Set(float64(total))
			slog.Info("feed client connected", "total", total)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.conn.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.FeedClients.Set(float64(total))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if err := c.write(websocket.TextMessage, msg); err != nil {
					c.conn.Close()
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to all connected clients.
func (h *FeedHub) Broadcast(msg FeedMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		// Drop if buffer full to avoid blocking mutation handlers.
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins during development.
	},
}

// HandleWS handles WebSocket upgrade requests at GET /ws.
func (h *FeedHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	c := &feedConn{conn: conn}
	h.register <- c

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer func() { h.unregister <- c }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping ticker to keep connection alive through proxies.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, ok := h.clients[c]
			h.mu.RUnlock()
			if !ok {
				return
			}
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()
}
