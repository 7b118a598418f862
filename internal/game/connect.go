package game

import (
	"context"
	"errors"
	"time"

	"github.com/hydrachess/backend/internal/clock"
	"github.com/hydrachess/backend/internal/models"
	"github.com/hydrachess/backend/internal/store"
	"github.com/hydrachess/backend/internal/tasks"
	"github.com/hydrachess/backend/internal/timers"
)

// OnDisconnect arms the absent player's forfeit timer and warns the
// opponent. Before the first ply the first-move timer already bounds the
// game, so nothing extra is scheduled. An offer waiting on the leaving
// player is declined on their behalf.
func (e *Engine) OnDisconnect(ctx context.Context, userID, gameID int64) error {
	pre, err := e.store.GetGame(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if pre.State != models.StateStarted || !pre.IsParticipant(userID) {
		return nil
	}

	// A recipient who leaves declines the offer waiting on them.
	if pre.DrawOfferSender != 0 && pre.DrawOfferSender != userID {
		e.queue.Submit(tasks.Low, "decline_draw_offer", func(ctx context.Context) error {
			return e.DeclineDrawOffer(ctx, userID, gameID)
		})
	}
	if pre.MovesCount() == 0 {
		return nil
	}

	var (
		opp       int64
		scheduled bool
	)
	err = e.store.WithGameLock(ctx, gameID, func() error {
		g, err := e.store.GetGame(ctx, gameID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if g.State != models.StateStarted || g.MovesCount() == 0 {
			return nil
		}
		t := g.DisconnectTimeoutOf(userID)
		if t.IsSet() {
			return nil
		}

		eta := e.now().Add(DisconnectTimeout)
		handle, err := e.timers.Schedule(ctx, timers.Payload{
			Kind:   KindDisconnectTimedOut,
			GameID: gameID,
			UserID: userID,
		}, eta)
		if err != nil {
			return err
		}
		*t = models.TimerTask{ID: handle, ETA: eta}

		opp = g.OpponentOf(userID)
		scheduled = true
		return e.store.SaveGame(ctx, g)
	})
	if err != nil || !scheduled {
		return err
	}

	e.emit.ToUser(opp, "opp_disconnected", map[string]interface{}{
		"wait_time": int(DisconnectTimeout / time.Second),
	})
	return nil
}

// OnReconnect resynchronizes a returning player: full snapshot first, then
// whatever pending timers and offers they need to know about, then the
// forfeit timer armed against them is disarmed.
func (e *Engine) OnReconnect(ctx context.Context, userID, gameID int64) error {
	g, err := e.store.GetGame(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !g.IsParticipant(userID) {
		return nil
	}

	white, err := e.store.GetUser(ctx, g.WhiteUserID)
	if err != nil {
		return err
	}
	black, err := e.store.GetUser(ctx, g.BlackUserID)
	if err != nil {
		return err
	}
	viewer, opp := white, black
	if userID == g.BlackUserID {
		viewer, opp = black, white
	}
	e.emit.ToUser(userID, "game_started", e.playerSnapshot(g, viewer, opp))

	if g.State != models.StateStarted {
		return nil
	}

	now := e.now()
	viewerToMove := g.WhiteToMove() == (userID == g.WhiteUserID)
	if g.FirstMoveTimeout.IsSet() && viewerToMove {
		e.emit.ToUser(userID, "first_move_waiting", map[string]interface{}{
			"wait_time": clock.WaitSeconds(g.FirstMoveTimeout.ETA, now),
		})
	}
	if t := g.DisconnectTimeoutOf(opp.ID); t.IsSet() {
		e.emit.ToUser(userID, "opp_disconnected", map[string]interface{}{
			"wait_time": clock.WaitSeconds(t.ETA, now),
		})
	}
	if g.DrawOfferSender == opp.ID {
		e.emit.ToUser(userID, "draw_offer", nil)
	}

	if g.DisconnectTimeoutOf(userID).IsSet() {
		err = e.store.WithGameLock(ctx, gameID, func() error {
			g, err := e.store.GetGame(ctx, gameID)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if g.State != models.StateStarted {
				return nil
			}
			t := g.DisconnectTimeoutOf(userID)
			if !t.IsSet() {
				return nil
			}

			e.cancelTimer(ctx, t)
			return e.store.SaveGame(ctx, g)
		})
		if err != nil {
			return err
		}
	}

	e.emit.ToUser(opp.ID, "opp_reconnected", nil)
	return nil
}
