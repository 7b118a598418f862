package game

import (
	"context"
	"errors"
	"time"

	"github.com/hydrachess/backend/internal/clock"
	"github.com/hydrachess/backend/internal/models"
	"github.com/hydrachess/backend/internal/rules"
	"github.com/hydrachess/backend/internal/store"
	"github.com/hydrachess/backend/internal/tasks"
	"github.com/hydrachess/backend/internal/timers"
)

// MakeMove validates and applies one SAN move. Malformed, illegal and
// out-of-turn moves are dropped without a reply; a well-behaved client never
// sends them. The updated game is committed before any event goes out.
func (e *Engine) MakeMove(ctx context.Context, userID, gameID int64, san string) error {
	var (
		g              *models.Game
		flagFell       bool
		declinedOffer  int64
		waitingForMove int64
		result, reason string
		over           bool
	)

	err := e.store.WithGameLock(ctx, gameID, func() error {
		g = nil
		cur, err := e.store.GetGame(ctx, gameID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if cur.State != models.StateStarted || !cur.IsParticipant(userID) {
			return nil
		}

		pos, err := rules.Replay(cur.Moves())
		if err != nil {
			return err
		}
		if pos.WhiteToMove() != (userID == cur.WhiteUserID) {
			return nil
		}
		if err := pos.Push(san); err != nil {
			return nil
		}

		now := e.now()
		cur.AppendMove(san)
		e.cancelTimer(ctx, &cur.FirstMoveTimeout)
		e.cancelTimer(ctx, cur.TimeIsUpOf(userID))

		// A move is an implicit decline of the opponent's pending offer.
		if cur.DrawOfferSender != 0 && cur.DrawOfferSender != userID {
			declinedOffer = cur.DrawOfferSender
			cur.DrawOfferSender = 0
		}

		// White's first ply is free: the clock only runs between moves.
		if !cur.LastMoveTime.IsZero() {
			remaining := clock.Deduct(cur.ClockOf(userID), cur.LastMoveTime, now)
			if remaining <= 0 {
				cur.SetClockOf(userID, 0)
				flagFell = true
			} else {
				cur.SetClockOf(userID, remaining)
			}
		}

		if !flagFell {
			opp := cur.OpponentOf(userID)
			eta := now.Add(cur.ClockOf(opp))
			handle, err := e.timers.Schedule(ctx, timers.Payload{
				Kind:   KindTimeIsUp,
				GameID: gameID,
				UserID: opp,
			}, eta)
			if err != nil {
				return err
			}
			*cur.TimeIsUpOf(opp) = models.TimerTask{ID: handle, ETA: eta}
			cur.LastMoveTime = now

			if cur.MovesCount() == 1 {
				feta := now.Add(FirstMoveTimeout)
				fh, err := e.timers.Schedule(ctx, timers.Payload{
					Kind:   KindFirstMoveTimedOut,
					GameID: gameID,
				}, feta)
				if err != nil {
					return err
				}
				cur.FirstMoveTimeout = models.TimerTask{ID: fh, ETA: feta}
				waitingForMove = opp
			}
		}

		result, reason, over = pos.Terminal()
		g = cur
		return e.store.SaveGame(ctx, cur)
	})
	if err != nil || g == nil {
		return err
	}

	wc := clock.Seconds(g.WhiteClock)
	bc := clock.Seconds(g.BlackClock)
	e.emit.ToUser(g.WhiteUserID, "game_updated", map[string]interface{}{
		"san": san, "own_clock": wc, "opp_clock": bc,
	})
	e.emit.ToUser(g.BlackUserID, "game_updated", map[string]interface{}{
		"san": san, "own_clock": bc, "opp_clock": wc,
	})
	e.emit.ToRoom(g.ID, "game_updated", map[string]interface{}{
		"san": san, "white_clock": wc, "black_clock": bc,
	})

	if declinedOffer != 0 {
		e.emit.ToUser(declinedOffer, "draw_offer_declined", nil)
	}
	if waitingForMove != 0 {
		e.emit.ToUser(waitingForMove, "first_move_waiting", map[string]interface{}{
			"wait_time": int(FirstMoveTimeout / time.Second),
		})
	}

	switch {
	case flagFell:
		// The mover's own flag fell while thinking. time_is_up settles it,
		// including the insufficient-material draw.
		mover := userID
		e.queue.Submit(tasks.Normal, "time_is_up", func(ctx context.Context) error {
			return e.OnTimeIsUp(ctx, mover, gameID)
		})
	case over:
		e.enqueueEndGame(gameID, result, reason, true)
	}
	return nil
}
