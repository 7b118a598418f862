package game

import (
	"context"
	"errors"

	"github.com/hydrachess/backend/internal/models"
	"github.com/hydrachess/backend/internal/store"
	"github.com/hydrachess/backend/internal/tasks"
)

// MakeDrawOffer records a pending offer and notifies the opponent. Offering
// while the opponent's offer is pending accepts it instead. At most one
// offer exists per game; duplicates from the same sender are dropped.
func (e *Engine) MakeDrawOffer(ctx context.Context, userID, gameID int64) error {
	var (
		offeredTo int64
		crossed   bool
	)
	err := e.store.WithGameLock(ctx, gameID, func() error {
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
		if g.MovesCount() == 0 {
			return nil
		}
		if g.DrawOfferSender == userID {
			return nil
		}
		if g.DrawOfferSender != 0 {
			crossed = true
			return nil
		}

		g.DrawOfferSender = userID
		offeredTo = g.OpponentOf(userID)
		return e.store.SaveGame(ctx, g)
	})
	if err != nil {
		return err
	}

	if crossed {
		e.queue.Submit(tasks.High, "accept_draw_offer", func(ctx context.Context) error {
			return e.AcceptDrawOffer(ctx, userID, gameID)
		})
		return nil
	}
	if offeredTo != 0 {
		e.emit.ToUser(offeredTo, "draw_offer", nil)
	}
	return nil
}

// AcceptDrawOffer consumes the opponent's pending offer and ends the game as
// a draw. No pending offer, or accepting one's own, is a no-op.
func (e *Engine) AcceptDrawOffer(ctx context.Context, userID, gameID int64) error {
	var accepted bool
	err := e.store.WithGameLock(ctx, gameID, func() error {
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
		if g.DrawOfferSender == 0 || g.DrawOfferSender == userID {
			return nil
		}

		g.DrawOfferSender = 0
		accepted = true
		return e.store.SaveGame(ctx, g)
	})
	if err != nil {
		return err
	}

	if accepted {
		e.enqueueEndGame(gameID, models.ResultDraw, "Draw.", true)
	}
	return nil
}

// DeclineDrawOffer clears the opponent's pending offer and tells the sender.
// Runs both for an explicit decline and when the recipient disconnects.
func (e *Engine) DeclineDrawOffer(ctx context.Context, userID, gameID int64) error {
	var declinedTo int64
	err := e.store.WithGameLock(ctx, gameID, func() error {
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
		if g.DrawOfferSender == 0 || g.DrawOfferSender == userID {
			return nil
		}

		declinedTo = g.DrawOfferSender
		g.DrawOfferSender = 0
		return e.store.SaveGame(ctx, g)
	})
	if err != nil {
		return err
	}

	if declinedTo != 0 {
		e.emit.ToUser(declinedTo, "draw_offer_declined", nil)
	}
	return nil
}
