package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hydrachess/backend/internal/models"
	"github.com/hydrachess/backend/internal/store"
	"github.com/hydrachess/backend/internal/tasks"
)

// AllowedTimeControls are the selectable per-player clocks, in seconds.
var AllowedTimeControls = map[int]bool{
	60:   true,
	120:  true,
	180:  true,
	300:  true,
	600:  true,
	1200: true,
	1800: true,
	3600: true,
}

// SearchGame pairs the searcher with the closest-rated queued opponent on
// the same time control, or queues them if nobody within MaxRatingGap is
// waiting. On a rating tie the older request wins. The searcher plays white.
func (e *Engine) SearchGame(ctx context.Context, userID int64, seconds int) error {
	if !AllowedTimeControls[seconds] {
		return fmt.Errorf("search: unsupported time control %ds", seconds)
	}

	var (
		gameID int64
		oppID  int64
	)
	err := e.store.WithUserLock(ctx, userID, func() error {
		u, err := e.store.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if u.CurGameID != 0 || u.InSearch {
			return nil
		}

		requests, err := e.store.GameRequestsByControl(ctx, seconds)
		if err != nil {
			return err
		}

		// Requests scan in creation order, so a strict comparison keeps the
		// earliest request on equal gaps.
		var best *models.GameRequest
		bestGap := MaxRatingGap + 1
		for _, r := range requests {
			if r.UserID == userID {
				continue
			}
			candidate, err := e.store.GetUser(ctx, r.UserID)
			if err != nil {
				continue
			}
			gap := candidate.Rating - u.Rating
			if gap < 0 {
				gap = -gap
			}
			if gap < bestGap {
				bestGap = gap
				best = r
			}
		}

		if best == nil {
			u.InSearch = true
			if err := e.store.SaveUser(ctx, u); err != nil {
				return err
			}
			return e.store.CreateGameRequest(ctx, &models.GameRequest{
				UserID:             userID,
				TimeControlSeconds: seconds,
			})
		}

		if err := e.store.DeleteGameRequest(ctx, best); err != nil {
			return err
		}
		return e.store.WithUserLock(ctx, best.UserID, func() error {
			opp, err := e.store.GetUser(ctx, best.UserID)
			if err != nil {
				return err
			}

			id, err := e.store.NextGameID(ctx)
			if err != nil {
				return err
			}
			total := time.Duration(seconds) * time.Second
			g := &models.Game{
				ID:          id,
				WhiteUserID: u.ID,
				BlackUserID: opp.ID,
				WhiteRating: u.Rating,
				BlackRating: opp.Rating,
				State:       models.StateCreated,
				Result:      models.ResultUnknown,
				TotalClock:  total,
				WhiteClock:  total,
				BlackClock:  total,
			}
			if err := e.store.SaveGame(ctx, g); err != nil {
				return err
			}

			u.CurGameID = id
			opp.CurGameID = id
			opp.InSearch = false
			if err := e.store.SaveUser(ctx, u); err != nil {
				return err
			}
			if err := e.store.SaveUser(ctx, opp); err != nil {
				return err
			}
			gameID, oppID = id, opp.ID
			return nil
		})
	})
	if err != nil || gameID == 0 {
		return err
	}

	url := fmt.Sprintf("/game/%d", gameID)
	e.emit.ToUser(userID, "redirect", map[string]interface{}{"url": url})
	e.emit.ToUser(oppID, "redirect", map[string]interface{}{"url": url})

	id := gameID
	e.queue.Submit(tasks.High, "start_game", func(ctx context.Context) error {
		return e.StartGame(ctx, id)
	})
	return nil
}

// CancelSearch pulls the user out of the queue. Harmless if they were
// already paired: the request is gone and InSearch is false.
func (e *Engine) CancelSearch(ctx context.Context, userID int64) error {
	return e.store.WithUserLock(ctx, userID, func() error {
		u, err := e.store.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if !u.InSearch {
			return nil
		}

		u.InSearch = false
		if err := e.store.SaveUser(ctx, u); err != nil {
			return err
		}

		r, err := e.store.GameRequestByUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return e.store.DeleteGameRequest(ctx, r)
	})
}
