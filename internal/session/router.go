// Package session binds authenticated users to their current transport
// session and routes outbound events. Emissions go over a Redis pub/sub
// channel so every process's WebSocket hub can deliver to the sessions it
// owns; emitting is fire-and-forget and never blocks an engine lock.
package session

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hydrachess/backend/internal/store"
)

// Channel is the pub/sub channel the hubs subscribe to.
const Channel = "ws_events"

type TargetKind string

const (
	TargetSession TargetKind = "session"
	TargetUser    TargetKind = "user"
	TargetRoom    TargetKind = "room"
)

// Envelope is one outbound event on the bus.
type Envelope struct {
	Target    TargetKind  `json:"target"`
	SessionID string      `json:"session_id,omitempty"`
	UserID    int64       `json:"user_id,omitempty"`
	GameID    int64       `json:"game_id,omitempty"`
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
}

type Router struct {
	rdb   *redis.Client
	store *store.Store
}

func NewRouter(rdb *redis.Client, st *store.Store) *Router {
	return &Router{rdb: rdb, store: st}
}

// Bind makes sessionID the user's current session. If an older session is
// still bound, it gets logged_twice before being replaced.
func (r *Router) Bind(ctx context.Context, userID int64, sessionID string) error {
	return r.store.WithUserLock(ctx, userID, func() error {
		user, err := r.store.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.SessionID != "" && user.SessionID != sessionID {
			r.ToSession(user.SessionID, "logged_twice", nil)
		}
		user.SessionID = sessionID
		user.LastSessionSet = time.Now().UTC()
		return r.store.SaveUser(ctx, user)
	})
}

// Unbind clears the binding, but only if sessionID is still the current
// one — a newer login must not be unbound by the old connection closing.
func (r *Router) Unbind(ctx context.Context, userID int64, sessionID string) error {
	return r.store.WithUserLock(ctx, userID, func() error {
		user, err := r.store.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.SessionID != sessionID {
			return nil
		}
		user.SessionID = ""
		return r.store.SaveUser(ctx, user)
	})
}

// CurrentSession resolves a user's live session id, "" when offline.
func (r *Router) CurrentSession(ctx context.Context, userID int64) string {
	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return ""
	}
	return user.SessionID
}

func (r *Router) publish(env Envelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		log.Printf("[SESSION] encode event %s: %v", env.Event, err)
		return
	}
	if err := r.rdb.Publish(context.Background(), Channel, raw).Err(); err != nil {
		log.Printf("[SESSION] publish event %s: %v", env.Event, err)
	}
}

// ToSession emits an event to one session.
func (r *Router) ToSession(sessionID, event string, data interface{}) {
	if sessionID == "" {
		return
	}
	r.publish(Envelope{Target: TargetSession, SessionID: sessionID, Event: event, Data: data})
}

// ToUser emits to the user's current session; dropped if the user is
// offline.
func (r *Router) ToUser(userID int64, event string, data interface{}) {
	sid := r.CurrentSession(context.Background(), userID)
	if sid == "" {
		return
	}
	r.publish(Envelope{Target: TargetSession, SessionID: sid, UserID: userID, Event: event, Data: data})
}

// ToRoom emits to every spectator session joined to the game's room.
func (r *Router) ToRoom(gameID int64, event string, data interface{}) {
	r.publish(Envelope{Target: TargetRoom, GameID: gameID, Event: event, Data: data})
}
