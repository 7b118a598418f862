// Package timers is the durable one-shot timer service. Pending timers live
// in a Redis sorted set scored by wake time, with the payload in a plain key
// per handle, so a process restart loses nothing. Cancellation is
// best-effort: a cancelled handle may still fire, and every callback is
// expected to re-check the invariant it depends on.
package timers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hydrachess/backend/internal/tasks"
)

const (
	queueKey   = "timers"
	payloadKey = "timer_payload:"

	// DefaultPollInterval bounds how late a callback fires past its ETA.
	DefaultPollInterval = time.Second
)

// Payload identifies what a timer callback should do when it fires.
type Payload struct {
	Kind   string `json:"kind"`
	GameID int64  `json:"game_id"`
	UserID int64  `json:"user_id,omitempty"`
}

// Handler runs a fired timer. Handlers execute on the normal-priority pool,
// never inside a store lock held by the scheduler.
type Handler func(ctx context.Context, p Payload) error

type Service struct {
	rdb   *redis.Client
	queue *tasks.Queue
	poll  time.Duration

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewService(rdb *redis.Client, queue *tasks.Queue, poll time.Duration) *Service {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Service{
		rdb:      rdb,
		queue:    queue,
		poll:     poll,
		handlers: make(map[string]Handler),
	}
}

// Register binds a payload kind to its callback. Must be called before
// Start.
func (s *Service) Register(kind string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
}

// Schedule enqueues a callback to run at eta and returns its opaque handle.
func (s *Service) Schedule(ctx context.Context, p Payload, eta time.Time) (string, error) {
	handle := uuid.NewString()

	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode timer payload: %w", err)
	}
	if err := s.rdb.Set(ctx, payloadKey+handle, raw, 0).Err(); err != nil {
		return "", fmt.Errorf("store timer payload: %w", err)
	}
	if err := s.rdb.ZAdd(ctx, queueKey, redis.Z{
		Score:  float64(eta.UnixMilli()),
		Member: handle,
	}).Err(); err != nil {
		return "", fmt.Errorf("enqueue timer: %w", err)
	}
	return handle, nil
}

// Cancel revokes a pending timer. Best-effort: if the poller already claimed
// the handle, the callback still runs.
func (s *Service) Cancel(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	pipe := s.rdb.TxPipeline()
	pipe.ZRem(ctx, queueKey, handle)
	pipe.Del(ctx, payloadKey+handle)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cancel timer %s: %w", handle, err)
	}
	return nil
}

// Start runs the poller until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	go func() {
		log.Printf("[TIMER] poller started (every %v)", s.poll)
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Printf("[TIMER] poller stopped")
				return
			case <-ticker.C:
				s.fireDue(ctx)
			}
		}
	}()
}

func (s *Service) fireDue(ctx context.Context) {
	now := time.Now().UnixMilli()
	handles, err := s.rdb.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now),
	}).Result()
	if err != nil {
		log.Printf("[TIMER] fetch due timers: %v", err)
		return
	}

	for _, handle := range handles {
		// ZRem is the claim: only one poller wins a handle.
		removed, err := s.rdb.ZRem(ctx, queueKey, handle).Result()
		if err != nil || removed == 0 {
			continue
		}

		raw, err := s.rdb.Get(ctx, payloadKey+handle).Result()
		if err != nil {
			continue
		}
		s.rdb.Del(ctx, payloadKey+handle)

		var p Payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			log.Printf("[TIMER] bad payload for %s: %v", handle, err)
			continue
		}

		s.mu.RLock()
		h, ok := s.handlers[p.Kind]
		s.mu.RUnlock()
		if !ok {
			log.Printf("[TIMER] no handler for kind %q", p.Kind)
			continue
		}

		payload := p
		s.queue.Submit(tasks.Normal, "timer:"+p.Kind, func(ctx context.Context) error {
			return h(ctx, payload)
		})
	}
}
