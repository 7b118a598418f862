package game

import (
	"context"
	"errors"

	"github.com/hydrachess/backend/internal/clock"
	"github.com/hydrachess/backend/internal/models"
	"github.com/hydrachess/backend/internal/rules"
	"github.com/hydrachess/backend/internal/store"
)

// OnFirstMoveTimedOut cancels a game whose side to move never moved. A
// cleared handle means a move landed after this timer was claimed; the
// callback then does nothing.
func (e *Engine) OnFirstMoveTimedOut(ctx context.Context, gameID int64) error {
	g, err := e.store.GetGame(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if g.State != models.StateStarted || !g.FirstMoveTimeout.IsSet() {
		return nil
	}

	e.enqueueEndGame(gameID, models.ResultCancelled, "Game cancelled.", false)
	return nil
}

// OnDisconnectTimedOut forfeits a player who stayed away past the grace
// period. No-ops if they reconnected (handle cleared) or the game ended.
func (e *Engine) OnDisconnectTimedOut(ctx context.Context, userID, gameID int64) error {
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
	if !g.DisconnectTimeoutOf(userID).IsSet() {
		return nil
	}

	if userID == g.WhiteUserID {
		e.enqueueEndGame(gameID, models.ResultBlackWon, "White player disconnected. Black won.", true)
	} else {
		e.enqueueEndGame(gameID, models.ResultWhiteWon, "Black player disconnected. White won.", true)
	}
	return nil
}

// OnTimeIsUp settles a flag fall. A stale or early callback, where the
// player actually still has time, is dropped. A side whose opponent cannot
// mate with any sequence of legal moves gets a draw instead of a loss.
func (e *Engine) OnTimeIsUp(ctx context.Context, userID, gameID int64) error {
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

	remaining := g.ClockOf(userID)
	userToMove := g.WhiteToMove() == (userID == g.WhiteUserID)
	if userToMove && !g.LastMoveTime.IsZero() {
		remaining = clock.Deduct(remaining, g.LastMoveTime, e.now())
	}
	if remaining > 0 {
		return nil
	}

	pos, err := rules.Replay(g.Moves())
	if err != nil {
		return err
	}

	userWhite := userID == g.WhiteUserID
	if pos.HasInsufficientMaterial(!userWhite) {
		reason := "Black's time is up. Draw due to insufficient material."
		if userWhite {
			reason = "White's time is up. Draw due to insufficient material."
		}
		e.enqueueEndGame(gameID, models.ResultDraw, reason, true)
		return nil
	}

	if userWhite {
		e.enqueueEndGame(gameID, models.ResultBlackWon, "White's time is up.", true)
	} else {
		e.enqueueEndGame(gameID, models.ResultWhiteWon, "Black's time is up.", true)
	}
	return nil
}
