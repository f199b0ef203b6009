package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/semaphore"
)

type fakeClock struct {
	mu     sync.Mutex
	slept  []time.Duration
	sleeps chan struct{}
}

func newFakeClock() *fakeClock {
	return &fakeClock{sleeps: make(chan struct{}, 16)}
}

func (c *fakeClock) Now() time.Time { return time.Unix(0, 0) }

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.slept = append(c.slept, d)
	c.mu.Unlock()
	c.sleeps <- struct{}{}
}

func (c *fakeClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Unix(0, 0)
	return ch
}

type recordingSubmitter struct {
	mu       sync.Mutex
	requests []Request
	done     chan struct{}
}

func newRecordingSubmitter() *recordingSubmitter {
	return &recordingSubmitter{done: make(chan struct{}, 16)}
}

func (r *recordingSubmitter) Dispatch(_ context.Context, req Request) error {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func TestSchedulerDispatchesAfterDelay(t *testing.T) {
	clock := newFakeClock()
	sched := NewScheduler(clock, 1)
	submitter := newRecordingSubmitter()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx, submitter)

	sched.Enqueue(Spawn{Request: Request{UserID: 1}, Delay: 5 * time.Second})

	select {
	case <-submitter.done:
	case <-time.After(2 * time.Second):
		t.Fatal("spawn was not dispatched")
	}

	clock.mu.Lock()
	defer clock.mu.Unlock()
	if len(clock.slept) != 1 || clock.slept[0] != 5*time.Second {
		t.Errorf("sleeps = %v, want one 5s sleep", clock.slept)
	}
}

func TestSchedulerPreservesSubmissionOrder(t *testing.T) {
	clock := newFakeClock()
	// Window of one serializes chain links.
	sched := NewScheduler(clock, 1)
	submitter := newRecordingSubmitter()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx, submitter)

	for i := int64(1); i <= 3; i++ {
		sched.Enqueue(Spawn{Request: Request{UserID: i}, Delay: time.Second})
	}

	for range 3 {
		select {
		case <-submitter.done:
		case <-time.After(2 * time.Second):
			t.Fatal("spawn was not dispatched")
		}
	}

	submitter.mu.Lock()
	defer submitter.mu.Unlock()
	for i, req := range submitter.requests {
		if req.UserID != int64(i+1) {
			t.Fatalf("submission order broken: %v", submitter.requests)
		}
	}
}

func TestSchedulerEnqueueBlocksWhenQueueFull(t *testing.T) {
	clock := newFakeClock()
	// A one-slot queue forces Enqueue to wait for the consumer instead of
	// dropping chain links.
	sched := &Scheduler{clock: clock, window: semaphore.NewWeighted(1), queue: make(chan Spawn, 1)}
	submitter := newRecordingSubmitter()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx, submitter)

	for i := int64(1); i <= 5; i++ {
		sched.Enqueue(Spawn{Request: Request{UserID: i}})
	}

	for range 5 {
		select {
		case <-submitter.done:
		case <-time.After(2 * time.Second):
			t.Fatal("a spawn was dropped")
		}
	}
	submitter.mu.Lock()
	defer submitter.mu.Unlock()
	if len(submitter.requests) != 5 {
		t.Fatalf("dispatched %d of 5 spawns", len(submitter.requests))
	}
}

func TestSchedulerZeroDelaySkipsSleep(t *testing.T) {
	clock := newFakeClock()
	sched := NewScheduler(clock, 2)
	submitter := newRecordingSubmitter()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx, submitter)

	sched.Enqueue(Spawn{Request: Request{UserID: 9}})

	select {
	case <-submitter.done:
	case <-time.After(2 * time.Second):
		t.Fatal("spawn was not dispatched")
	}

	clock.mu.Lock()
	defer clock.mu.Unlock()
	if len(clock.slept) != 0 {
		t.Errorf("unexpected sleeps: %v", clock.slept)
	}
}
