package database

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time                       { return c.now }
func (c *fixedClock) Sleep(time.Duration)                  {}
func (c *fixedClock) After(time.Duration) <-chan time.Time { return nil }

func newTestStore(t *testing.T, clock *fixedClock) *SQLiteStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if migErr := db.AutoMigrate(&DailyUsage{}); migErr != nil {
		t.Fatalf("Failed to migrate: %v", migErr)
	}
	return &SQLiteStore{db: db, clock: clock}
}

func TestDailyUsageAccumulatesSameDay(t *testing.T) {
	clock := &fixedClock{now: time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)}
	s := newTestStore(t, clock)
	ctx := context.Background()

	if err := s.AddDailyTask(ctx, 1); err != nil {
		t.Fatalf("AddDailyTask: %v", err)
	}
	if err := s.AddDailyLeech(ctx, 1, 100); err != nil {
		t.Fatalf("AddDailyLeech: %v", err)
	}

	clock.now = clock.now.Add(5 * time.Hour)
	if err := s.AddDailyTask(ctx, 1); err != nil {
		t.Fatalf("AddDailyTask: %v", err)
	}
	if err := s.AddDailyLeech(ctx, 1, 50); err != nil {
		t.Fatalf("AddDailyLeech: %v", err)
	}

	usage, err := s.DailyUsage(ctx, 1)
	if err != nil {
		t.Fatalf("DailyUsage: %v", err)
	}
	if usage.TaskCount != 2 {
		t.Errorf("TaskCount: want 2, got %d", usage.TaskCount)
	}
	if usage.LeechBytes != 150 {
		t.Errorf("LeechBytes: want 150, got %d", usage.LeechBytes)
	}
}

func TestDailyUsageRollsOverAtMidnight(t *testing.T) {
	clock := &fixedClock{now: time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC)}
	s := newTestStore(t, clock)
	ctx := context.Background()

	if err := s.AddDailyTask(ctx, 1); err != nil {
		t.Fatalf("AddDailyTask: %v", err)
	}
	if err := s.AddDailyMirror(ctx, 1, 2048); err != nil {
		t.Fatalf("AddDailyMirror: %v", err)
	}

	// Month boundary: 2024-01-31 to 2024-02-01.
	clock.now = time.Date(2024, 2, 1, 0, 30, 0, 0, time.UTC)

	if err := s.AddDailyTask(ctx, 1); err != nil {
		t.Fatalf("AddDailyTask: %v", err)
	}

	usage, err := s.DailyUsage(ctx, 1)
	if err != nil {
		t.Fatalf("DailyUsage: %v", err)
	}
	if usage.TaskCount != 1 {
		t.Errorf("TaskCount after rollover: want 1, got %d", usage.TaskCount)
	}
	if usage.MirrorBytes != 0 {
		t.Errorf("MirrorBytes after rollover: want 0, got %d", usage.MirrorBytes)
	}
}

func TestDailyUsageReadIgnoresStaleRow(t *testing.T) {
	clock := &fixedClock{now: time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, clock)
	ctx := context.Background()

	if err := s.AddDailyLeech(ctx, 7, 500); err != nil {
		t.Fatalf("AddDailyLeech: %v", err)
	}

	clock.now = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	usage, err := s.DailyUsage(ctx, 7)
	if err != nil {
		t.Fatalf("DailyUsage: %v", err)
	}
	if usage.LeechBytes != 0 || usage.TaskCount != 0 {
		t.Errorf("stale row must read as zero, got %+v", usage)
	}
}

func TestDailyUsageUnknownUser(t *testing.T) {
	clock := &fixedClock{now: time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, clock)

	usage, err := s.DailyUsage(context.Background(), 99)
	if err != nil {
		t.Fatalf("DailyUsage: %v", err)
	}
	if usage.TaskCount != 0 || usage.LeechBytes != 0 || usage.MirrorBytes != 0 {
		t.Errorf("unknown user must read as zero, got %+v", usage)
	}
}
