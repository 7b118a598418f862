package tasks

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hydrachess/backend/internal/store"
)

func TestSubmitRuns(t *testing.T) {
	q := NewQueue(context.Background())
	defer q.Stop()

	done := make(chan struct{})
	q.Submit(High, "noop", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("job never ran")
	}
}

func TestRetryOnLockContention(t *testing.T) {
	q := NewQueue(context.Background())
	defer q.Stop()

	var attempts int32
	done := make(chan struct{})
	q.Submit(Normal, "contended", func(ctx context.Context) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return fmt.Errorf("wrapped: %w", store.ErrLockWait)
		}
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("job was not retried")
	}
	if n := atomic.LoadInt32(&attempts); n != 2 {
		t.Fatalf("attempts = %d, want 2", n)
	}
}

func TestRetryOnlyOnce(t *testing.T) {
	q := NewQueue(context.Background())
	defer q.Stop()

	var attempts int32
	q.Submit(Normal, "always-contended", func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return store.ErrLockLost
	})

	time.Sleep(200 * time.Millisecond)
	if n := atomic.LoadInt32(&attempts); n != 2 {
		t.Fatalf("attempts = %d, want 2 (one retry)", n)
	}
}

func TestNoRetryOnPlainError(t *testing.T) {
	q := NewQueue(context.Background())
	defer q.Stop()

	var attempts int32
	q.Submit(Low, "broken", func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return fmt.Errorf("boom")
	})

	time.Sleep(200 * time.Millisecond)
	if n := atomic.LoadInt32(&attempts); n != 1 {
		t.Fatalf("attempts = %d, want 1", n)
	}
}

func TestClassesRunIndependently(t *testing.T) {
	q := NewQueue(context.Background())
	defer q.Stop()

	release := make(chan struct{})
	for i := 0; i < poolSizes[Low]; i++ {
		q.Submit(Low, "blocker", func(ctx context.Context) error {
			<-release
			return nil
		})
	}

	done := make(chan struct{})
	q.Submit(High, "urgent", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("high-priority job starved by low pool")
	}
	close(release)
}
