package game

import (
	"context"

	"github.com/hydrachess/backend/internal/clock"
	"github.com/hydrachess/backend/internal/models"
	"github.com/hydrachess/backend/internal/rating"
)

// wallClocks returns both clocks as they stand right now: the stored values,
// minus the time the side to move has already spent on the pending ply.
func (e *Engine) wallClocks(g *models.Game) (white, black int) {
	wc, bc := g.WhiteClock, g.BlackClock
	if g.State == models.StateStarted && !g.LastMoveTime.IsZero() {
		now := e.now()
		if g.WhiteToMove() {
			wc = clock.Deduct(wc, g.LastMoveTime, now)
		} else {
			bc = clock.Deduct(bc, g.LastMoveTime, now)
		}
	}
	return clock.Seconds(wc), clock.Seconds(bc)
}

// playerSnapshot is the game_started payload for one of the participants.
func (e *Engine) playerSnapshot(g *models.Game, viewer, opp *models.User) map[string]interface{} {
	viewerWhite := viewer.ID == g.WhiteUserID
	whiteChange, blackChange := rating.Changes(g.WhiteRating, whiteKFactor(g, viewer, opp),
		g.BlackRating, blackKFactor(g, viewer, opp))

	change := whiteChange
	color := "w"
	wc, bc := e.wallClocks(g)
	own, oppClock := wc, bc
	if !viewerWhite {
		change = blackChange
		color = "b"
		own, oppClock = bc, wc
	}

	data := map[string]interface{}{
		"moves":               g.Moves(),
		"is_player":           true,
		"color":               color,
		"opp_nickname":        opp.Login,
		"opp_rating":          opp.Rating,
		"own_clock":           own,
		"opp_clock":           oppClock,
		"rating_changes":      change,
		"can_send_draw_offer": g.State == models.StateStarted && g.DrawOfferSender == 0,
	}
	if g.State == models.StateFinished {
		data["result"] = g.Result
	}
	return data
}

// spectatorSnapshot is the game_started payload for a spectator room member.
func (e *Engine) spectatorSnapshot(g *models.Game, white, black *models.User) map[string]interface{} {
	wc, bc := e.wallClocks(g)
	data := map[string]interface{}{
		"moves":     g.Moves(),
		"is_player": false,
		"white_user": map[string]interface{}{
			"nickname": white.Login,
			"rating":   white.Rating,
		},
		"black_user": map[string]interface{}{
			"nickname": black.Login,
			"rating":   black.Rating,
		},
		"white_clock": wc,
		"black_clock": bc,
	}
	if g.State == models.StateFinished {
		data["result"] = g.Result
	}
	return data
}

func whiteKFactor(g *models.Game, viewer, opp *models.User) int {
	if viewer.ID == g.WhiteUserID {
		return viewer.KFactor
	}
	return opp.KFactor
}

func blackKFactor(g *models.Game, viewer, opp *models.User) int {
	if viewer.ID == g.BlackUserID {
		return viewer.KFactor
	}
	return opp.KFactor
}

// SendGameInfo delivers a full state snapshot to one session: the reconnect
// and spectator-join entry point. viewerID is zero for spectators.
func (e *Engine) SendGameInfo(ctx context.Context, gameID int64, sessionID string, viewerID int64) error {
	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
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

	if g.IsParticipant(viewerID) {
		viewer, opp := white, black
		if viewerID == g.BlackUserID {
			viewer, opp = black, white
		}
		e.emit.ToSession(sessionID, "game_started", e.playerSnapshot(g, viewer, opp))
		return nil
	}
	e.emit.ToSession(sessionID, "game_started", e.spectatorSnapshot(g, white, black))
	return nil
}
