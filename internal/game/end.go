package game

import (
	"context"
	"errors"

	"github.com/hydrachess/backend/internal/models"
	"github.com/hydrachess/backend/internal/rating"
	"github.com/hydrachess/backend/internal/store"
	"github.com/hydrachess/backend/internal/tasks"
)

// EndGame is the single sink every terminal path funnels into: checkmate,
// draws, resignation, flag fall, forfeit and cancellation. It revokes every
// pending timer, releases both players and settles ratings. Idempotent: the
// first caller wins, every later call finds FINISHED and does nothing.
func (e *Engine) EndGame(ctx context.Context, gameID int64, result, reason string, updateRatings bool) error {
	var (
		g                      *models.Game
		white, black           *models.User
		deltaWhite, deltaBlack int
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
		if cur.State == models.StateFinished {
			return nil
		}

		e.cancelTimer(ctx, &cur.FirstMoveTimeout)
		e.cancelTimer(ctx, &cur.WhiteTimeIsUp)
		e.cancelTimer(ctx, &cur.BlackTimeIsUp)
		e.cancelTimer(ctx, &cur.WhiteDisconnectTimeout)
		e.cancelTimer(ctx, &cur.BlackDisconnectTimeout)

		cur.State = models.StateFinished
		cur.Result = result
		cur.DrawOfferSender = 0
		if err := e.store.SaveGame(ctx, cur); err != nil {
			return err
		}

		return e.lockUsersInOrder(ctx, cur.WhiteUserID, cur.BlackUserID, func() error {
			w, err := e.store.GetUser(ctx, cur.WhiteUserID)
			if err != nil {
				return err
			}
			b, err := e.store.GetUser(ctx, cur.BlackUserID)
			if err != nil {
				return err
			}

			w.CurGameID = 0
			b.CurGameID = 0
			if updateRatings {
				// Deltas come from the ratings snapshotted at creation, so
				// they match what the players were shown all game.
				wc, bc := rating.Changes(cur.WhiteRating, w.KFactor, cur.BlackRating, b.KFactor)
				switch result {
				case models.ResultWhiteWon:
					deltaWhite, deltaBlack = wc.Win, bc.Lose
				case models.ResultBlackWon:
					deltaWhite, deltaBlack = wc.Lose, bc.Win
				case models.ResultDraw:
					deltaWhite, deltaBlack = wc.Draw, bc.Draw
				}
				w.GamesPlayed++
				b.GamesPlayed++
				w.PrependGameID(cur.ID)
				b.PrependGameID(cur.ID)
			}

			if err := e.store.SaveUser(ctx, w); err != nil {
				return err
			}
			if err := e.store.SaveUser(ctx, b); err != nil {
				return err
			}
			white, black = w, b
			g = cur
			return nil
		})
	})
	if err != nil || g == nil {
		return err
	}

	deltas := map[string]int{"w": deltaWhite, "b": deltaBlack}
	e.emit.ToUser(g.WhiteUserID, "game_ended", map[string]interface{}{
		"result":        outcomeFor(result, true),
		"reason":        reason,
		"rating_deltas": deltas,
	})
	e.emit.ToUser(g.BlackUserID, "game_ended", map[string]interface{}{
		"result":        outcomeFor(result, false),
		"reason":        reason,
		"rating_deltas": deltas,
	})
	e.emit.ToRoom(g.ID, "game_ended", map[string]interface{}{
		"result":        result,
		"rating_deltas": deltas,
	})

	if updateRatings {
		e.submitRatingUpdate(g.WhiteUserID, deltaWhite)
		e.submitRatingUpdate(g.BlackUserID, deltaBlack)
	}
	if e.archive != nil {
		finished, wl, bl := g, white.Login, black.Login
		e.queue.Submit(tasks.Low, "archive_game", func(ctx context.Context) error {
			return e.archive.RecordGame(ctx, finished, wl, bl)
		})
	}
	return nil
}

// outcomeFor maps the stored result to the word one player sees.
func outcomeFor(result string, white bool) string {
	switch result {
	case models.ResultWhiteWon:
		if white {
			return "won"
		}
		return "lost"
	case models.ResultBlackWon:
		if white {
			return "lost"
		}
		return "won"
	case models.ResultDraw:
		return "draw"
	default:
		return "interrupted"
	}
}

func (e *Engine) submitRatingUpdate(userID int64, delta int) {
	e.queue.Submit(tasks.Low, "update_rating", func(ctx context.Context) error {
		return e.UpdateRating(ctx, userID, delta)
	})
	e.queue.Submit(tasks.Low, "update_k_factor", func(ctx context.Context) error {
		return e.UpdateKFactor(ctx, userID)
	})
}

// UpdateRating applies a settled delta and mirrors the stats to the archive.
func (e *Engine) UpdateRating(ctx context.Context, userID int64, delta int) error {
	return e.store.WithUserLock(ctx, userID, func() error {
		u, err := e.store.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		u.Rating += delta
		if err := e.store.SaveUser(ctx, u); err != nil {
			return err
		}
		if e.archive != nil {
			return e.archive.SaveUserStats(ctx, userID, u.Rating, u.GamesPlayed, u.KFactor)
		}
		return nil
	})
}

// UpdateKFactor steps the K-factor down when the player crosses the FIDE
// thresholds.
func (e *Engine) UpdateKFactor(ctx context.Context, userID int64) error {
	return e.store.WithUserLock(ctx, userID, func() error {
		u, err := e.store.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		next := rating.NextKFactor(u.KFactor, u.GamesPlayed, u.Rating)
		if next == u.KFactor {
			return nil
		}
		u.KFactor = next
		if err := e.store.SaveUser(ctx, u); err != nil {
			return err
		}
		if e.archive != nil {
			return e.archive.SaveUserStats(ctx, userID, u.Rating, u.GamesPlayed, u.KFactor)
		}
		return nil
	})
}
