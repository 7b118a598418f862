package game

import (
	"context"
	"errors"
	"time"

	"github.com/hydrachess/backend/internal/models"
	"github.com/hydrachess/backend/internal/store"
	"github.com/hydrachess/backend/internal/tasks"
	"github.com/hydrachess/backend/internal/timers"
)

// StartGame flips a freshly created game to STARTED, arms white's first-move
// timer and sends both players their opening snapshots. Safe to re-run: a
// second call finds the game no longer CREATED and does nothing.
func (e *Engine) StartGame(ctx context.Context, gameID int64) error {
	var g *models.Game
	err := e.store.WithGameLock(ctx, gameID, func() error {
		g = nil
		cur, err := e.store.GetGame(ctx, gameID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if cur.State != models.StateCreated {
			return nil
		}

		cur.State = models.StateStarted
		eta := e.now().Add(FirstMoveTimeout)
		handle, err := e.timers.Schedule(ctx, timers.Payload{
			Kind:   KindFirstMoveTimedOut,
			GameID: gameID,
		}, eta)
		if err != nil {
			return err
		}
		cur.FirstMoveTimeout = models.TimerTask{ID: handle, ETA: eta}

		g = cur
		return e.store.SaveGame(ctx, cur)
	})
	if err != nil || g == nil {
		return err
	}

	white, err := e.store.GetUser(ctx, g.WhiteUserID)
	if err != nil {
		return err
	}
	black, err := e.store.GetUser(ctx, g.BlackUserID)
	if err != nil {
		return err
	}

	// Snapshots go out before anything that depends on them.
	e.emit.ToUser(white.ID, "game_started", e.playerSnapshot(g, white, black))
	e.emit.ToUser(black.ID, "game_started", e.playerSnapshot(g, black, white))
	e.emit.ToUser(white.ID, "first_move_waiting", map[string]interface{}{
		"wait_time": int(FirstMoveTimeout / time.Second),
	})
	return nil
}

func (e *Engine) enqueueEndGame(gameID int64, result, reason string, updateRatings bool) {
	e.queue.Submit(tasks.High, "end_game", func(ctx context.Context) error {
		return e.EndGame(ctx, gameID, result, reason, updateRatings)
	})
}

// Resign ends the game in the opponent's favor. Resigning before the first
// ply cancels the game instead, with no rating consequences.
func (e *Engine) Resign(ctx context.Context, userID, gameID int64) error {
	g, err := e.store.GetGame(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if g.State != models.StateStarted || !g.IsParticipant(userID) {
		return nil
	}

	if g.MovesCount() < 1 {
		e.enqueueEndGame(gameID, models.ResultCancelled, "Game canceled.", false)
		return nil
	}
	if userID == g.WhiteUserID {
		e.enqueueEndGame(gameID, models.ResultBlackWon, "White resigned. Black won.", true)
	} else {
		e.enqueueEndGame(gameID, models.ResultWhiteWon, "Black resigned. White won.", true)
	}
	return nil
}
