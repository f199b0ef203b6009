package database

import (
	"context"

	"telegram-mirror-bot/internal/logutils"
	"telegram-mirror-bot/internal/timeutil"
)

// UsageReader is the read-only subset of daily usage data. Use where limits
// are checked without recording anything.
type UsageReader interface {
	DailyUsage(ctx context.Context, userID int64) (DailyUsage, error)
}

// UsageWriter records consumption. Every write rolls stale counters over to
// the current day before applying the delta.
type UsageWriter interface {
	AddDailyTask(ctx context.Context, userID int64) error
	AddDailyLeech(ctx context.Context, userID int64, size int64) error
	AddDailyMirror(ctx context.Context, userID int64, size int64) error
}

// Store is the full storage interface.
type Store interface {
	UsageReader
	UsageWriter
}

func NewStore(dbPath string, clock timeutil.Provider) (Store, error) {
	store := NewSQLiteStore(clock)
	if err := store.Init(dbPath); err != nil {
		logutils.Log.WithError(err).Error("Failed to initialize the database")
		return nil, err
	}

	logutils.Log.Info("Database initialized successfully")
	return store, nil
}
