package store

import (
	"context"
	"fmt"

	"github.com/hydrachess/backend/internal/clock"
	"github.com/hydrachess/backend/internal/models"
)

func gameKey(id int64) string { return fmt.Sprintf("game:%d", id) }

func (s *Store) NextGameID(ctx context.Context) (int64, error) {
	return s.nextID(ctx, "next_game_id")
}

func (s *Store) SaveGame(ctx context.Context, g *models.Game) error {
	fields := map[string]interface{}{
		"white_user_id":  g.WhiteUserID,
		"black_user_id":  g.BlackUserID,
		"white_rating":   g.WhiteRating,
		"black_rating":   g.BlackRating,
		"state":          string(g.State),
		"result":         g.Result,
		"moves":          g.RawMoves,
		"last_move_time": timeMicro(g.LastMoveTime),
		"total_clock":    clock.FormatMicros(g.TotalClock),
		"white_clock":    clock.FormatMicros(g.WhiteClock),
		"black_clock":    clock.FormatMicros(g.BlackClock),

		"first_move_timeout_id":  g.FirstMoveTimeout.ID,
		"first_move_timeout_eta": timeMicro(g.FirstMoveTimeout.ETA),
		"white_time_is_up_id":    g.WhiteTimeIsUp.ID,
		"white_time_is_up_eta":   timeMicro(g.WhiteTimeIsUp.ETA),
		"black_time_is_up_id":    g.BlackTimeIsUp.ID,
		"black_time_is_up_eta":   timeMicro(g.BlackTimeIsUp.ETA),
		"white_disconnect_id":    g.WhiteDisconnectTimeout.ID,
		"white_disconnect_eta":   timeMicro(g.WhiteDisconnectTimeout.ETA),
		"black_disconnect_id":    g.BlackDisconnectTimeout.ID,
		"black_disconnect_eta":   timeMicro(g.BlackDisconnectTimeout.ETA),

		"draw_offer_sender": g.DrawOfferSender,
	}
	if err := s.rdb.HSet(ctx, gameKey(g.ID), fields).Err(); err != nil {
		return fmt.Errorf("save game %d: %w", g.ID, err)
	}
	return nil
}

func (s *Store) GetGame(ctx context.Context, id int64) (*models.Game, error) {
	vals, err := s.rdb.HGetAll(ctx, gameKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get game %d: %w", id, err)
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}

	g := &models.Game{
		ID:           id,
		WhiteUserID:  atoi64(vals["white_user_id"]),
		BlackUserID:  atoi64(vals["black_user_id"]),
		WhiteRating:  atoi(vals["white_rating"]),
		BlackRating:  atoi(vals["black_rating"]),
		State:        models.GameState(vals["state"]),
		Result:       vals["result"],
		RawMoves:     vals["moves"],
		LastMoveTime: timeField(vals["last_move_time"]),
		TotalClock:   clock.ParseMicros(vals["total_clock"]),
		WhiteClock:   clock.ParseMicros(vals["white_clock"]),
		BlackClock:   clock.ParseMicros(vals["black_clock"]),

		FirstMoveTimeout: models.TimerTask{
			ID:  vals["first_move_timeout_id"],
			ETA: timeField(vals["first_move_timeout_eta"]),
		},
		WhiteTimeIsUp: models.TimerTask{
			ID:  vals["white_time_is_up_id"],
			ETA: timeField(vals["white_time_is_up_eta"]),
		},
		BlackTimeIsUp: models.TimerTask{
			ID:  vals["black_time_is_up_id"],
			ETA: timeField(vals["black_time_is_up_eta"]),
		},
		WhiteDisconnectTimeout: models.TimerTask{
			ID:  vals["white_disconnect_id"],
			ETA: timeField(vals["white_disconnect_eta"]),
		},
		BlackDisconnectTimeout: models.TimerTask{
			ID:  vals["black_disconnect_id"],
			ETA: timeField(vals["black_disconnect_eta"]),
		},

		DrawOfferSender: atoi64(vals["draw_offer_sender"]),
	}
	return g, nil
}
