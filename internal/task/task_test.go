package task

import (
	"context"
	"sync"

	"telegram-mirror-bot/internal/database"
)

// memUsage is an in-memory database.Store for tests.
type memUsage struct {
	mu      sync.Mutex
	tasks   map[int64]int
	leech   map[int64]int64
	mirror  map[int64]int64
	dailyFn func(userID int64) database.DailyUsage
}

func newMemUsage() *memUsage {
	return &memUsage{
		tasks:  make(map[int64]int),
		leech:  make(map[int64]int64),
		mirror: make(map[int64]int64),
	}
}

func (m *memUsage) DailyUsage(_ context.Context, userID int64) (database.DailyUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dailyFn != nil {
		return m.dailyFn(userID), nil
	}
	return database.DailyUsage{
		UserID:      userID,
		TaskCount:   m.tasks[userID],
		LeechBytes:  m.leech[userID],
		MirrorBytes: m.mirror[userID],
	}, nil
}

func (m *memUsage) AddDailyTask(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[userID]++
	return nil
}

func (m *memUsage) AddDailyLeech(_ context.Context, userID, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leech[userID] += size
	return nil
}

func (m *memUsage) AddDailyMirror(_ context.Context, userID, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mirror[userID] += size
	return nil
}

// recordingNotifier counts terminal notifications.
type recordingNotifier struct {
	mu        sync.Mutex
	succeeded int
	failed    int
	cancelled int
	lastSize  int64
}

func (n *recordingNotifier) TaskSucceeded(_ *Listener, size int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.succeeded++
	n.lastSize = size
}

func (n *recordingNotifier) TaskFailed(*Listener, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed++
}

func (n *recordingNotifier) TaskCancelled(*Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled++
}

func (n *recordingNotifier) terminals() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.succeeded + n.failed + n.cancelled
}

// countingFinalizer counts FinalizeGroup invocations.
type countingFinalizer struct {
	mu    sync.Mutex
	calls []string
	leech []bool
}

func (f *countingFinalizer) FinalizeGroup(_ context.Context, name string, leech bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	f.leech = append(f.leech, leech)
}

func (f *countingFinalizer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
