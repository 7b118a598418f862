// Package tasks runs engine operations on fixed worker pools split by
// priority class, so move handling is never starved by bookkeeping work.
package tasks

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/hydrachess/backend/internal/store"
)

// Class selects which pool a job runs on.
type Class string

const (
	// High runs moves, game start/end, reconnects, resignations and draw
	// accept/decline.
	High Class = "high"
	// Normal runs timer callbacks.
	Normal Class = "normal"
	// Low runs disconnect handling, rating and k-factor updates and draw
	// offers.
	Low Class = "low"
	// Search runs matchmaking and search cancellation.
	Search Class = "search"
)

type job struct {
	name    string
	run     func(context.Context) error
	retried bool
}

// Queue is the set of per-class worker pools.
type Queue struct {
	ctx     context.Context
	cancel  context.CancelFunc
	classes map[Class]chan job
	wg      sync.WaitGroup
}

var poolSizes = map[Class]int{
	High:   8,
	Normal: 4,
	Low:    4,
	Search: 2,
}

func NewQueue(parent context.Context) *Queue {
	ctx, cancel := context.WithCancel(parent)
	q := &Queue{
		ctx:     ctx,
		cancel:  cancel,
		classes: make(map[Class]chan job, len(poolSizes)),
	}
	for class, workers := range poolSizes {
		ch := make(chan job, 1024)
		q.classes[class] = ch
		for i := 0; i < workers; i++ {
			q.wg.Add(1)
			go q.worker(class, ch)
		}
	}
	return q
}

// Submit enqueues a named job on the class's pool. Jobs that fail with a
// lock-contention error are re-enqueued once; engine operations are
// idempotent under re-entry because they re-check state.
func (q *Queue) Submit(class Class, name string, run func(context.Context) error) {
	q.submit(class, job{name: name, run: run})
}

func (q *Queue) submit(class Class, j job) {
	ch, ok := q.classes[class]
	if !ok {
		log.Printf("[TASKS] unknown class %q for job %s", class, j.name)
		return
	}
	select {
	case ch <- j:
	case <-q.ctx.Done():
	}
}

func (q *Queue) worker(class Class, ch chan job) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case j := <-ch:
			err := j.run(q.ctx)
			if err == nil {
				continue
			}
			if !j.retried && retryable(err) {
				log.Printf("[TASKS] %s (%s) retrying: %v", j.name, class, err)
				j.retried = true
				q.submit(class, j)
				continue
			}
			// A failed task is fatal for itself only.
			log.Printf("[TASKS] %s (%s) failed: %v", j.name, class, err)
		}
	}
}

func retryable(err error) bool {
	return errors.Is(err, store.ErrLockLost) || errors.Is(err, store.ErrLockWait)
}

// Stop cancels the pools and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	q.cancel()
	q.wg.Wait()
}
