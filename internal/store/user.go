package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hydrachess/backend/internal/models"
)

func userKey(id int64) string      { return fmt.Sprintf("user:%d", id) }
func loginKey(login string) string { return "user_id_by_login:" + login }

// CreateUser allocates an id, claims the unique login index and persists the
// record. Returns ErrLoginTaken if the login index is already claimed.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	id, err := s.nextID(ctx, "next_user_id")
	if err != nil {
		return err
	}
	u.ID = id

	ok, err := s.rdb.SetNX(ctx, loginKey(u.Login), strconv.FormatInt(id, 10), 0).Result()
	if err != nil {
		return fmt.Errorf("index login %q: %w", u.Login, err)
	}
	if !ok {
		return fmt.Errorf("create user %q: %w", u.Login, ErrLoginTaken)
	}
	return s.SaveUser(ctx, u)
}

func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	fields := map[string]interface{}{
		"login":            u.Login,
		"rating":           u.Rating,
		"games_played":     u.GamesPlayed,
		"k_factor":         u.KFactor,
		"cur_game_id":      u.CurGameID,
		"in_search":        boolField(u.InSearch),
		"session_id":       u.SessionID,
		"last_session_set": timeMicro(u.LastSessionSet),
		"game_ids":         u.RawGameIDs,
		"avatar_hash":      u.AvatarHash,
	}
	if err := s.rdb.HSet(ctx, userKey(u.ID), fields).Err(); err != nil {
		return fmt.Errorf("save user %d: %w", u.ID, err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	vals, err := s.rdb.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}

	u := &models.User{
		ID:             id,
		Login:          vals["login"],
		Rating:         atoi(vals["rating"]),
		GamesPlayed:    atoi(vals["games_played"]),
		KFactor:        atoi(vals["k_factor"]),
		CurGameID:      atoi64(vals["cur_game_id"]),
		InSearch:       vals["in_search"] == "1",
		SessionID:      vals["session_id"],
		LastSessionSet: timeField(vals["last_session_set"]),
		RawGameIDs:     vals["game_ids"],
		AvatarHash:     vals["avatar_hash"],
	}
	return u, nil
}

// UserIDByLogin resolves the unique login index.
func (s *Store) UserIDByLogin(ctx context.Context, login string) (int64, error) {
	val, err := s.rdb.Get(ctx, loginKey(login)).Result()
	if err == redis.Nil {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup login %q: %w", login, err)
	}
	return atoi64(val), nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoi64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func timeField(s string) time.Time {
	us := atoi64(s)
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us)
}

func timeMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}
