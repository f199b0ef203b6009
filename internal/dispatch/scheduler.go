package dispatch

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"telegram-mirror-bot/internal/logutils"
	"telegram-mirror-bot/internal/timeutil"
)

const queueCapacity = 256

// Spawn is one deferred follow-up submission.
type Spawn struct {
	Request Request
	Delay   time.Duration
}

// Submitter is the dispatch entry point the scheduler feeds.
type Submitter interface {
	Dispatch(ctx context.Context, req Request) error
}

// Scheduler consumes the spawn queue. The semaphore caps how many chain
// links may be in their delay-then-dispatch window at once, keeping
// multi/bulk chains paced instead of thundering in together.
type Scheduler struct {
	clock  timeutil.Provider
	window *semaphore.Weighted
	queue  chan Spawn
}

func NewScheduler(clock timeutil.Provider, window int64) *Scheduler {
	if window < 1 {
		window = 1
	}
	return &Scheduler{
		clock:  clock,
		window: semaphore.NewWeighted(window),
		queue:  make(chan Spawn, queueCapacity),
	}
}

// Enqueue hands one follow-up to the scheduler. It blocks while the queue is
// full rather than dropping: a dropped chain link would leave its same-dir
// group short of the expected member total, so the group would never
// finalize.
func (s *Scheduler) Enqueue(sp Spawn) {
	s.queue <- sp
}

// Run consumes spawns until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, submitter Submitter) {
	for {
		select {
		case <-ctx.Done():
			return
		case sp := <-s.queue:
			if err := s.window.Acquire(ctx, 1); err != nil {
				return
			}
			go func() {
				defer s.window.Release(1)
				if sp.Delay > 0 {
					s.clock.Sleep(sp.Delay)
				}
				if err := submitter.Dispatch(ctx, sp.Request); err != nil {
					logutils.Log.WithError(err).Debug("Chained submission rejected")
				}
			}()
		}
	}
}
