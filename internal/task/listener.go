package task

import (
	"context"
	"sync"

	"telegram-mirror-bot/internal/database"
	"telegram-mirror-bot/internal/logutils"
)

// Status is the listener lifecycle state. A listener leaves Running exactly
// once, into exactly one terminal state.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Notifier renders terminal outcomes back to the requesting chat.
type Notifier interface {
	TaskSucceeded(l *Listener, size int64)
	TaskFailed(l *Listener, err error)
	TaskCancelled(l *Listener)
}

// GroupFinalizer performs the combined-destination action once the last
// member of a same-dir group finishes. All members of a group share one
// delivery mode, so the last one's leech flag speaks for the cohort.
type GroupFinalizer interface {
	FinalizeGroup(ctx context.Context, name string, leech bool)
}

// Listener tracks one admitted task from dispatch to terminal outcome. It is
// handed to exactly one engine, which fires exactly one terminal callback.
type Listener struct {
	UserID    int64
	ChatID    int64
	MessageID int
	Tag       string
	Source    string
	Name      string
	Upload    string
	RcFlags   string
	IsLeech   bool
	IsQbit    bool
	Select    bool
	Seed      bool
	Compress  bool
	Extract   bool
	Join      bool
	GroupID   string

	gid    string
	ctx    context.Context
	cancel context.CancelFunc

	registry  *Registry
	usage     database.UsageWriter
	notifier  Notifier
	finalizer GroupFinalizer

	mu     sync.Mutex
	status Status
}

// ListenerDeps are the collaborators every listener shares.
type ListenerDeps struct {
	Registry  *Registry
	Usage     database.UsageWriter
	Notifier  Notifier
	Finalizer GroupFinalizer
}

func NewListener(gid string, deps ListenerDeps) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		gid:       gid,
		ctx:       ctx,
		cancel:    cancel,
		registry:  deps.Registry,
		usage:     deps.Usage,
		notifier:  deps.Notifier,
		finalizer: deps.Finalizer,
	}
}

func (l *Listener) GID() string { return l.gid }

// Context is cancelled when the task is cancelled; engines must watch it.
func (l *Listener) Context() context.Context { return l.ctx }

func (l *Listener) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Start marks the listener Running. Called by the dispatcher immediately
// before the engine invocation.
func (l *Listener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == StatusPending {
		l.status = StatusRunning
	}
}

// Cancel signals the engine through the context. The terminal Cancelled
// callback still comes from the engine; cancelling a finished task is a
// no-op.
func (l *Listener) Cancel() {
	l.cancel()
}

// terminal moves to a terminal state at most once. Callers run the
// state-specific side effects only when it returns true.
func (l *Listener) terminal(to Status) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == StatusSucceeded || l.status == StatusFailed || l.status == StatusCancelled {
		return false
	}
	l.status = to
	return true
}

// cleanup runs the bookkeeping shared by every terminal state: deregister,
// charge the daily task counter, and settle group membership.
func (l *Listener) cleanup() {
	l.cancel()
	l.registry.Remove(l.gid)

	if err := l.usage.AddDailyTask(context.Background(), l.UserID); err != nil {
		logutils.Log.WithError(err).WithField("gid", l.gid).Error("Failed to record daily task")
	}

	if l.GroupID != "" {
		if finalize, name := l.registry.LeaveGroup(l.GroupID, l.gid); finalize {
			logutils.Log.WithField("group", name).Info("Same-dir group complete, finalizing")
			l.finalizer.FinalizeGroup(context.Background(), name, l.IsLeech)
		}
	}
}

func (l *Listener) Succeeded(size int64) {
	if !l.terminal(StatusSucceeded) {
		return
	}
	logutils.Log.WithField("gid", l.gid).Infof("Task succeeded (%d bytes)", size)

	record := l.usage.AddDailyMirror
	if l.IsLeech {
		record = l.usage.AddDailyLeech
	}
	if err := record(context.Background(), l.UserID, size); err != nil {
		logutils.Log.WithError(err).WithField("gid", l.gid).Error("Failed to record daily volume")
	}

	l.cleanup()
	l.notifier.TaskSucceeded(l, size)
}

func (l *Listener) Failed(err error) {
	if !l.terminal(StatusFailed) {
		return
	}
	logutils.Log.WithError(err).WithField("gid", l.gid).Error("Task failed")
	l.cleanup()
	l.notifier.TaskFailed(l, err)
}

func (l *Listener) Cancelled() {
	if !l.terminal(StatusCancelled) {
		return
	}
	logutils.Log.WithField("gid", l.gid).Info("Task cancelled")
	l.cleanup()
	l.notifier.TaskCancelled(l)
}
