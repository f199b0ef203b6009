package database

import "time"

// DailyUsage tracks per-user consumption for the current day. Counters are
// reset lazily on the first update after midnight.
type DailyUsage struct {
	UserID      int64 `gorm:"primaryKey"`
	Date        time.Time
	TaskCount   int
	LeechBytes  int64
	MirrorBytes int64
}
