package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin is enforced by the CORS middleware
	},
}

// Client is one connected WebSocket session.
type Client struct {
	conn      *websocket.Conn
	sessionID string
	userID    int64
	gameID    int64 // nonzero for game-scope connections
	player    bool  // participant of gameID, as opposed to a spectator
	send      chan []byte
}

// Hub maintains the set of active sessions and spectator rooms for this
// process. Cross-process delivery happens over the event bus; the hub only
// fans out to the sockets it owns.
type Hub struct {
	sessions   map[string]*Client           // sessionID -> Client
	rooms      map[int64]map[string]*Client // gameID -> sessionID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]*Client),
		rooms:      make(map[int64]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run owns the session and room maps. One goroutine per hub.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.sessions[client.sessionID] = client
			if client.gameID != 0 && !client.player {
				if _, exists := h.rooms[client.gameID]; !exists {
					h.rooms[client.gameID] = make(map[string]*Client)
				}
				h.rooms[client.gameID][client.sessionID] = client
			}
			h.mu.Unlock()
			log.Printf("[WS] session %s connected (user %d)", client.sessionID, client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.sessions[client.sessionID]; ok && cur == client {
				delete(h.sessions, client.sessionID)
				if room, exists := h.rooms[client.gameID]; exists {
					delete(room, client.sessionID)
					if len(room) == 0 {
						delete(h.rooms, client.gameID)
					}
				}
				select {
				case <-client.send:
				default:
					close(client.send)
				}
				log.Printf("[WS] session %s disconnected (user %d)", client.sessionID, client.userID)
			}
			h.mu.Unlock()
		}
	}
}

// SendToSession delivers a frame to one session, if this process owns it.
func (h *Hub) SendToSession(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, exists := h.sessions[sessionID]; exists {
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] send buffer full for session %s, dropping message", sessionID)
		}
	}
}

// BroadcastToRoom delivers a frame to every spectator of a game.
func (h *Hub) BroadcastToRoom(gameID int64, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, exists := h.rooms[gameID]; exists {
		for _, client := range room {
			select {
			case client.send <- data:
			default:
				log.Printf("[WS] send buffer full for session %s in game %d, dropping message", client.sessionID, gameID)
			}
		}
	}
}

// Message is the frame format in both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// writePump writes messages to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Channel closed: connection replaced or cleaned up.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for session %s: %v", c.sessionID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] ping error for session %s: %v", c.sessionID, err)
				return
			}
		}
	}
}
