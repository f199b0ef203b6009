package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"telegram-mirror-bot/internal/timeutil"
)

type SQLiteStore struct {
	db    *gorm.DB
	clock timeutil.Provider
}

func NewSQLiteStore(clock timeutil.Provider) *SQLiteStore {
	return &SQLiteStore{clock: clock}
}

func (s *SQLiteStore) Init(dbPath string) error {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	s.db = db

	if err := s.db.AutoMigrate(&DailyUsage{}); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	return nil
}

// sameDay compares calendar days, not instants, so an entry written at
// 23:59 is stale one minute later.
func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func (s *SQLiteStore) DailyUsage(ctx context.Context, userID int64) (DailyUsage, error) {
	var usage DailyUsage
	err := s.db.WithContext(ctx).First(&usage, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DailyUsage{UserID: userID, Date: s.clock.Now()}, nil
	}
	if err != nil {
		return DailyUsage{}, fmt.Errorf("failed to load daily usage: %w", err)
	}
	if !sameDay(usage.Date, s.clock.Now()) {
		return DailyUsage{UserID: userID, Date: s.clock.Now()}, nil
	}
	return usage, nil
}

// update loads the row, rolls counters over if the stored day is not today,
// applies fn and saves.
func (s *SQLiteStore) update(ctx context.Context, userID int64, fn func(*DailyUsage)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()

		var usage DailyUsage
		err := tx.First(&usage, "user_id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			usage = DailyUsage{UserID: userID, Date: now}
		} else if err != nil {
			return fmt.Errorf("failed to load daily usage: %w", err)
		}

		if !sameDay(usage.Date, now) {
			usage.TaskCount = 0
			usage.LeechBytes = 0
			usage.MirrorBytes = 0
		}
		usage.Date = now

		fn(&usage)
		if err := tx.Save(&usage).Error; err != nil {
			return fmt.Errorf("failed to save daily usage: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) AddDailyTask(ctx context.Context, userID int64) error {
	return s.update(ctx, userID, func(u *DailyUsage) {
		u.TaskCount++
	})
}

func (s *SQLiteStore) AddDailyLeech(ctx context.Context, userID int64, size int64) error {
	return s.update(ctx, userID, func(u *DailyUsage) {
		u.LeechBytes += size
	})
}

func (s *SQLiteStore) AddDailyMirror(ctx context.Context, userID int64, size int64) error {
	return s.update(ctx, userID, func(u *DailyUsage) {
		u.MirrorBytes += size
	})
}
