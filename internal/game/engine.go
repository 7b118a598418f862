// Package game holds the core of the service: the per-game state machine
// and the matchmaker. Every operation re-reads its entities under the store
// lock, commits state before anything observable is emitted, and no-ops when
// it finds the game already finished, so timer callbacks racing their cancel
// and re-enqueued tasks are harmless.
package game

import (
	"context"
	"time"

	"github.com/hydrachess/backend/internal/models"
	"github.com/hydrachess/backend/internal/tasks"
	"github.com/hydrachess/backend/internal/timers"
)

const (
	// FirstMoveTimeout is how long each player has for their first move.
	FirstMoveTimeout = 15 * time.Second
	// DisconnectTimeout is how long a disconnected player may stay away.
	DisconnectTimeout = 60 * time.Second
	// MaxRatingGap is the widest Elo distance the matchmaker will pair.
	MaxRatingGap = 200
)

// Timer payload kinds dispatched back into the engine.
const (
	KindFirstMoveTimedOut  = "first_move_timed_out"
	KindDisconnectTimedOut = "disconnect_timed_out"
	KindTimeIsUp           = "time_is_up"
)

// Store is the slice of the durable store the engine and matchmaker use.
// Implemented by internal/store; tests substitute an in-memory fake.
type Store interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error

	GetGame(ctx context.Context, id int64) (*models.Game, error)
	SaveGame(ctx context.Context, g *models.Game) error
	NextGameID(ctx context.Context) (int64, error)

	CreateGameRequest(ctx context.Context, r *models.GameRequest) error
	DeleteGameRequest(ctx context.Context, r *models.GameRequest) error
	GameRequestsByControl(ctx context.Context, seconds int) ([]*models.GameRequest, error)
	GameRequestByUser(ctx context.Context, userID int64) (*models.GameRequest, error)

	WithUserLock(ctx context.Context, id int64, fn func() error) error
	WithGameLock(ctx context.Context, id int64, fn func() error) error
}

// Scheduler is the durable timer service contract. Cancellation is
// best-effort; the engine re-checks state when a callback fires anyway.
type Scheduler interface {
	Schedule(ctx context.Context, p timers.Payload, eta time.Time) (string, error)
	Cancel(ctx context.Context, handle string) error
}

// Emitter fans events out to sessions and spectator rooms. Fire-and-forget:
// it must never block, and the engine never calls it while holding a lock.
type Emitter interface {
	ToSession(sessionID, event string, data interface{})
	ToUser(userID int64, event string, data interface{})
	ToRoom(gameID int64, event string, data interface{})
}

// Archive persists results and player stats to the durable database. May be
// nil (tests, Redis-only deployments).
type Archive interface {
	RecordGame(ctx context.Context, g *models.Game, whiteLogin, blackLogin string) error
	SaveUserStats(ctx context.Context, userID int64, rating, gamesPlayed, kFactor int) error
}

// Submitter enqueues follow-up engine work. Usually *tasks.Queue; tests run
// jobs inline.
type Submitter interface {
	Submit(class tasks.Class, name string, run func(context.Context) error)
}

type Engine struct {
	store   Store
	timers  Scheduler
	emit    Emitter
	queue   Submitter
	archive Archive

	now func() time.Time
}

func NewEngine(st Store, sched Scheduler, emit Emitter, queue Submitter, archive Archive) *Engine {
	return &Engine{
		store:   st,
		timers:  sched,
		emit:    emit,
		queue:   queue,
		archive: archive,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RegisterTimerHandlers binds the engine's timeout callbacks to the timer
// service.
func (e *Engine) RegisterTimerHandlers(svc *timers.Service) {
	svc.Register(KindFirstMoveTimedOut, func(ctx context.Context, p timers.Payload) error {
		return e.OnFirstMoveTimedOut(ctx, p.GameID)
	})
	svc.Register(KindDisconnectTimedOut, func(ctx context.Context, p timers.Payload) error {
		return e.OnDisconnectTimedOut(ctx, p.UserID, p.GameID)
	})
	svc.Register(KindTimeIsUp, func(ctx context.Context, p timers.Payload) error {
		return e.OnTimeIsUp(ctx, p.UserID, p.GameID)
	})
}

// cancelTimer revokes a handle, tolerating failure: a fired-anyway callback
// re-checks state and no-ops.
func (e *Engine) cancelTimer(ctx context.Context, t *models.TimerTask) {
	if t.IsSet() {
		e.timers.Cancel(ctx, t.ID)
		*t = models.TimerTask{}
	}
}

// lockUsersInOrder takes both user locks in ascending id order so two
// engines finishing games that share players cannot deadlock.
func (e *Engine) lockUsersInOrder(ctx context.Context, a, b int64, fn func() error) error {
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	return e.store.WithUserLock(ctx, first, func() error {
		return e.store.WithUserLock(ctx, second, fn)
	})
}
