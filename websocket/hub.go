package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"scribe/models"
	"scribe/observability"

	"github.com/gorilla/websocket"
)

// Event types pushed to connected clients.
const (
	EventConnected     = "connected"
	EventPostCreated   = "post_created"
	EventPostUpdated   = "post_updated"
	EventPostLiked     = "post_liked"
	EventPostCommented = "post_commented"
	EventPostDeleted   = "post_deleted"
	EventAuthState     = "auth_state"
	EventPong          = "pong"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
	sendBuffer     = 256
)

// Event is one message on the stream. A non-empty UserID limits delivery to
// that user's connections.
type Event struct {
	Type    string      `json:"type"`
	UserID  string      `json:"-"`
	Payload interface{} `json:"payload"`
}

// TokenVerifier resolves the ?token= query parameter to a session.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.Session, error)
}

type outbound struct {
	userID string
	client *Client
	data   []byte
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

type Client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
	hub    *Hub
}

// NewHub creates a hub. With no origins every Origin header is accepted.
func NewHub(origins ...string) *Hub {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Run processes registrations and deliveries until ctx is cancelled, then
// closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			observability.WebSocketClients.Set(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			observability.WebSocketClients.Set(float64(total))
			log.Printf("✅ WebSocket client registered. Total clients: %d", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			observability.WebSocketClients.Set(float64(total))
			log.Printf("❌ WebSocket client unregistered. Total clients: %d", total)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if msg.client != nil && client != msg.client {
					continue
				}
				if msg.userID != "" && client.userID != msg.userID {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// slow consumer
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues ev for delivery. It never blocks the caller; when the queue
// is full the event is dropped.
func (h *Hub) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("❌ Error marshaling WebSocket event %s: %v", ev.Type, err)
		return
	}
	select {
	case h.broadcast <- outbound{userID: ev.UserID, data: data}:
	default:
		log.Printf("⚠️ WebSocket queue full, dropping %s event", ev.Type)
	}
}

func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler upgrades /ws requests. A token is optional; an invalid one is
// rejected before the upgrade.
func Handler(hub *Hub, verifier TokenVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var userID string
		if token := r.URL.Query().Get("token"); token != "" {
			session, err := verifier.Verify(r.Context(), token)
			if err != nil {
				log.Printf("❌ WebSocket connection rejected: %v", err)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}
			userID = session.UID
		}

		conn, err := hub.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("❌ WebSocket upgrade failed: %v", err)
			return
		}

		client := &Client{
			conn:   conn,
			userID: userID,
			send:   make(chan []byte, sendBuffer),
			hub:    hub,
		}

		welcome, _ := json.Marshal(Event{
			Type: EventConnected,
			Payload: map[string]interface{}{
				"userId":  userID,
				"message": "WebSocket connected successfully",
				"time":    time.Now().Unix(),
			},
		})
		client.send <- welcome

		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket read error: %v", err)
			}
			break
		}

		var data struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &data); err != nil {
			continue
		}
		if data.Type == "ping" {
			c.sendPong()
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
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

func (c *Client) sendPong() {
	msg, err := json.Marshal(Event{
		Type:    EventPong,
		Payload: map[string]interface{}{"time": time.Now().Unix()},
	})
	if err != nil {
		return
	}
	select {
	case c.hub.broadcast <- outbound{client: c, data: msg}:
	default:
	}
}
