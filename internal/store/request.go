package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hydrachess/backend/internal/models"
)

func requestKey(id int64) string { return fmt.Sprintf("request:%d", id) }

func requestBucketKey(seconds int) string {
	return fmt.Sprintf("requests_by_control:%d", seconds)
}

func requestByUserKey(userID int64) string {
	return fmt.Sprintf("request_by_user:%d", userID)
}

// CreateGameRequest persists a queue entry and both of its indices: the
// per-bucket sorted set (scored by request id, so range scans come back in
// creation order — the matchmaking tiebreak) and the one-per-user pointer.
func (s *Store) CreateGameRequest(ctx context.Context, r *models.GameRequest) error {
	id, err := s.nextID(ctx, "next_request_id")
	if err != nil {
		return err
	}
	r.ID = id

	fields := map[string]interface{}{
		"user_id":      r.UserID,
		"time_control": r.TimeControlSeconds,
	}
	if err := s.rdb.HSet(ctx, requestKey(id), fields).Err(); err != nil {
		return fmt.Errorf("save request %d: %w", id, err)
	}
	if err := s.rdb.ZAdd(ctx, requestBucketKey(r.TimeControlSeconds), redis.Z{
		Score:  float64(id),
		Member: id,
	}).Err(); err != nil {
		return fmt.Errorf("index request %d: %w", id, err)
	}
	if err := s.rdb.Set(ctx, requestByUserKey(r.UserID), id, 0).Err(); err != nil {
		return fmt.Errorf("index request %d by user: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteGameRequest(ctx context.Context, r *models.GameRequest) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, requestKey(r.ID))
	pipe.ZRem(ctx, requestBucketKey(r.TimeControlSeconds), r.ID)
	pipe.Del(ctx, requestByUserKey(r.UserID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete request %d: %w", r.ID, err)
	}
	return nil
}

func (s *Store) getGameRequest(ctx context.Context, id int64) (*models.GameRequest, error) {
	vals, err := s.rdb.HGetAll(ctx, requestKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get request %d: %w", id, err)
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}
	return &models.GameRequest{
		ID:                 id,
		UserID:             atoi64(vals["user_id"]),
		TimeControlSeconds: atoi(vals["time_control"]),
	}, nil
}

// GameRequestsByControl returns the bucket's live requests in ascending
// request-id order. Entries whose record vanished mid-scan are skipped.
func (s *Store) GameRequestsByControl(ctx context.Context, seconds int) ([]*models.GameRequest, error) {
	ids, err := s.rdb.ZRange(ctx, requestBucketKey(seconds), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("scan bucket %d: %w", seconds, err)
	}

	requests := make([]*models.GameRequest, 0, len(ids))
	for _, raw := range ids {
		r, err := s.getGameRequest(ctx, atoi64(raw))
		if err != nil {
			continue
		}
		requests = append(requests, r)
	}
	return requests, nil
}

// GameRequestByUser returns the user's live request, or ErrNotFound.
func (s *Store) GameRequestByUser(ctx context.Context, userID int64) (*models.GameRequest, error) {
	val, err := s.rdb.Get(ctx, requestByUserKey(userID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup request by user %d: %w", userID, err)
	}
	return s.getGameRequest(ctx, atoi64(val))
}
