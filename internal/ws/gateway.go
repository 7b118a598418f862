package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hydrachess/backend/internal/game"
	"github.com/hydrachess/backend/internal/middleware"
	"github.com/hydrachess/backend/internal/models"
	"github.com/hydrachess/backend/internal/store"
	"github.com/hydrachess/backend/internal/tasks"
)

// sessionRouter is the slice of session.Router the gateway needs.
type sessionRouter interface {
	Bind(ctx context.Context, userID int64, sessionID string) error
	Unbind(ctx context.Context, userID int64, sessionID string) error
	CurrentSession(ctx context.Context, userID int64) string
	ToSession(sessionID, event string, data interface{})
}

// gatewayStore is the slice of the live store the gateway needs.
type gatewayStore interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetGame(ctx context.Context, id int64) (*models.Game, error)
}

// Inbound message data types. search_game takes either a minute count or a
// finished game id whose time control is reused.
type SearchGameData struct {
	Minutes int   `json:"minutes"`
	GameID  int64 `json:"game_id"`
}

type MakeMoveData struct {
	San string `json:"san"`
}

// Gateway authenticates WebSocket connections and turns inbound frames into
// engine tasks. One instance serves both the lobby and game scopes.
type Gateway struct {
	hub    *Hub
	engine *game.Engine
	router sessionRouter
	store  gatewayStore
	queue  game.Submitter
	secret string
}

func NewGateway(hub *Hub, engine *game.Engine, router sessionRouter, st gatewayStore, queue game.Submitter, secret string) *Gateway {
	return &Gateway{
		hub:    hub,
		engine: engine,
		router: router,
		store:  st,
		queue:  queue,
		secret: secret,
	}
}

// HandleWebSocket upgrades a connection. The scope comes from request_type:
// "lobby" for matchmaking, "game" (with game_id) for playing or spectating.
func (gw *Gateway) HandleWebSocket(c *gin.Context) {
	userID, err := middleware.ParseToken(gw.secret, c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	scope := c.Query("request_type")
	if scope == "" {
		scope = "lobby"
	}

	var (
		gameID int64
		player bool
	)
	if scope == "game" {
		gameID, err = strconv.ParseInt(c.Query("game_id"), 10, 64)
		if err != nil || gameID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "game_id required"})
			return
		}
		g, err := gw.store.GetGame(c.Request.Context(), gameID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		player = g.IsParticipant(userID)
	} else if scope != "lobby" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown request_type"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v", err)
		return
	}

	client := &Client{
		conn:      conn,
		sessionID: uuid.NewString(),
		userID:    userID,
		gameID:    gameID,
		player:    player,
		send:      make(chan []byte, 256),
	}
	gw.hub.register <- client

	go client.writePump()
	go gw.readPump(client)

	ctx := context.Background()
	if err := gw.router.Bind(ctx, userID, client.sessionID); err != nil {
		log.Printf("[WS] bind session %s: %v", client.sessionID, err)
	}

	if gameID == 0 {
		if u, err := gw.store.GetUser(ctx, userID); err == nil {
			gw.router.ToSession(client.sessionID, "set_data", map[string]interface{}{
				"nickname": u.Login,
				"rating":   u.Rating,
			})
		}
	} else {
		if player {
			gw.queue.Submit(tasks.High, "on_reconnect", func(ctx context.Context) error {
				return gw.engine.OnReconnect(ctx, userID, gameID)
			})
		} else {
			sid := client.sessionID
			gw.queue.Submit(tasks.High, "send_game_info", func(ctx context.Context) error {
				return gw.engine.SendGameInfo(ctx, gameID, sid, userID)
			})
		}
	}
}

// readPump reads frames until the connection drops, then releases the
// session and, for a participant, arms the disconnect timeout.
func (gw *Gateway) readPump(c *Client) {
	defer func() {
		gw.hub.unregister <- c
		c.conn.Close()
		gw.onClose(c)
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] read error for session %s: %v", c.sessionID, err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		gw.handleMessage(c, msg)
	}
}

func (gw *Gateway) onClose(c *Client) {
	ctx := context.Background()
	// A newer session may already be bound; only the current one counts.
	if gw.router.CurrentSession(ctx, c.userID) != c.sessionID {
		return
	}
	if err := gw.router.Unbind(ctx, c.userID, c.sessionID); err != nil {
		log.Printf("[WS] unbind session %s: %v", c.sessionID, err)
	}
	if c.player {
		userID, gameID := c.userID, c.gameID
		gw.queue.Submit(tasks.Low, "on_disconnect", func(ctx context.Context) error {
			return gw.engine.OnDisconnect(ctx, userID, gameID)
		})
		return
	}
	if c.gameID == 0 {
		// A lobby tab closing mid-search leaves the queue.
		u, err := gw.store.GetUser(ctx, c.userID)
		if err != nil || !u.InSearch {
			return
		}
		userID := c.userID
		gw.queue.Submit(tasks.Search, "cancel_search", func(ctx context.Context) error {
			return gw.engine.CancelSearch(ctx, userID)
		})
	}
}

// handleMessage dispatches one inbound frame onto the right pool. Malformed
// or out-of-place frames are dropped with a server-side log line; nothing
// goes back to the client.
func (gw *Gateway) handleMessage(c *Client, msg Message) {
	userID := c.userID

	switch msg.Type {
	case "search_game":
		var data SearchGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			log.Printf("[WS] invalid search_game data from session %s", c.sessionID)
			return
		}
		seconds := data.Minutes * 60
		if data.GameID != 0 {
			g, err := gw.store.GetGame(context.Background(), data.GameID)
			if err != nil {
				log.Printf("[WS] search_game for unknown game %d from session %s", data.GameID, c.sessionID)
				return
			}
			seconds = int(g.TotalClock / time.Second)
		}
		if !game.AllowedTimeControls[seconds] {
			log.Printf("[WS] unsupported time control %ds from session %s", seconds, c.sessionID)
			return
		}
		gw.queue.Submit(tasks.Search, "search_game", func(ctx context.Context) error {
			return gw.engine.SearchGame(ctx, userID, seconds)
		})

	case "cancel_search":
		gw.queue.Submit(tasks.Search, "cancel_search", func(ctx context.Context) error {
			return gw.engine.CancelSearch(ctx, userID)
		})

	case "make_move":
		if !c.player {
			return
		}
		var data MakeMoveData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.San == "" {
			log.Printf("[WS] invalid make_move data from session %s", c.sessionID)
			return
		}
		gameID := c.gameID
		gw.queue.Submit(tasks.High, "make_move", func(ctx context.Context) error {
			return gw.engine.MakeMove(ctx, userID, gameID, data.San)
		})

	case "resign":
		if !c.player {
			return
		}
		gameID := c.gameID
		gw.queue.Submit(tasks.High, "resign", func(ctx context.Context) error {
			return gw.engine.Resign(ctx, userID, gameID)
		})

	case "make_draw_offer":
		if !c.player {
			return
		}
		gameID := c.gameID
		gw.queue.Submit(tasks.Low, "make_draw_offer", func(ctx context.Context) error {
			return gw.engine.MakeDrawOffer(ctx, userID, gameID)
		})

	case "accept_draw_offer":
		if !c.player {
			return
		}
		gameID := c.gameID
		gw.queue.Submit(tasks.High, "accept_draw_offer", func(ctx context.Context) error {
			return gw.engine.AcceptDrawOffer(ctx, userID, gameID)
		})

	case "decline_draw_offer":
		if !c.player {
			return
		}
		gameID := c.gameID
		gw.queue.Submit(tasks.High, "decline_draw_offer", func(ctx context.Context) error {
			return gw.engine.DeclineDrawOffer(ctx, userID, gameID)
		})

	default:
		log.Printf("[WS] unknown message type %q from session %s", msg.Type, c.sessionID)
	}
}
