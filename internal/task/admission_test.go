package task

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"telegram-mirror-bot/internal/config"
	"telegram-mirror-bot/internal/database"
)

func TestAdmissionAtExactUserLimit(t *testing.T) {
	const users = 8
	const limit = 3

	reg := NewRegistry()
	usage := newMemUsage()
	notifier := &recordingNotifier{}
	finalizer := &countingFinalizer{}

	for u := int64(1); u <= users; u++ {
		for i := range limit {
			l := newTestListener(fmt.Sprintf("u%d-t%d", u, i), u, reg, usage, notifier, finalizer)
			reg.Add(l)
		}
	}

	ctrl := NewAdmissionController(reg, usage, config.QuotaConfig{MaxUserTasks: limit})

	var wg sync.WaitGroup
	admitted := make([]bool, users+1)
	for u := int64(1); u <= users; u++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			admitted[u] = len(ctrl.Check(context.Background(), u, false)) == 0
		}()
	}
	wg.Wait()

	for u := int64(1); u <= users; u++ {
		if admitted[u] {
			t.Errorf("user %d at exact limit was admitted", u)
		}
	}

	// One more slot per user admits everyone again.
	relaxed := NewAdmissionController(reg, usage, config.QuotaConfig{MaxUserTasks: limit + 1})
	for u := int64(1); u <= users; u++ {
		if reasons := relaxed.Check(context.Background(), u, false); len(reasons) != 0 {
			t.Errorf("user %d below raised limit was rejected: %v", u, reasons)
		}
	}
}

func TestAdmissionGlobalLimit(t *testing.T) {
	reg := NewRegistry()
	usage := newMemUsage()
	notifier := &recordingNotifier{}
	finalizer := &countingFinalizer{}

	for i := range 5 {
		reg.Add(newTestListener(fmt.Sprintf("t%d", i), int64(i), reg, usage, notifier, finalizer))
	}

	ctrl := NewAdmissionController(reg, usage, config.QuotaConfig{MaxGlobalTasks: 5, MaxUserTasks: 10})
	reasons := ctrl.Check(context.Background(), 99, false)
	if len(reasons) != 1 {
		t.Fatalf("want 1 violation, got %v", reasons)
	}
}

func TestAdmissionReportsAllViolationsTogether(t *testing.T) {
	reg := NewRegistry()
	usage := newMemUsage()
	notifier := &recordingNotifier{}
	finalizer := &countingFinalizer{}

	for i := range 2 {
		reg.Add(newTestListener(fmt.Sprintf("t%d", i), 1, reg, usage, notifier, finalizer))
	}
	usage.dailyFn = func(userID int64) database.DailyUsage {
		return database.DailyUsage{UserID: userID, TaskCount: 10, LeechBytes: 1 << 30}
	}

	ctrl := NewAdmissionController(reg, usage, config.QuotaConfig{
		MaxGlobalTasks:  2,
		MaxUserTasks:    2,
		DailyTaskLimit:  10,
		DailyLeechLimit: 1 << 30,
	})

	reasons := ctrl.Check(context.Background(), 1, true)
	if len(reasons) != 4 {
		t.Fatalf("want 4 simultaneous violations, got %d: %v", len(reasons), reasons)
	}
}

func TestAdmissionZeroLimitsAreUnlimited(t *testing.T) {
	reg := NewRegistry()
	usage := newMemUsage()
	notifier := &recordingNotifier{}
	finalizer := &countingFinalizer{}

	for i := range 100 {
		reg.Add(newTestListener(fmt.Sprintf("t%d", i), 1, reg, usage, notifier, finalizer))
	}

	ctrl := NewAdmissionController(reg, usage, config.QuotaConfig{})
	if reasons := ctrl.Check(context.Background(), 1, true); len(reasons) != 0 {
		t.Errorf("zero limits must admit everything, got %v", reasons)
	}
}

func TestAdmissionDailyVolumeByMode(t *testing.T) {
	reg := NewRegistry()
	usage := newMemUsage()
	usage.dailyFn = func(userID int64) database.DailyUsage {
		return database.DailyUsage{UserID: userID, LeechBytes: 2048}
	}

	ctrl := NewAdmissionController(reg, usage, config.QuotaConfig{DailyLeechLimit: 1024, DailyMirrorLimit: 1024})

	if reasons := ctrl.Check(context.Background(), 1, true); len(reasons) != 1 {
		t.Errorf("leech over volume must be rejected, got %v", reasons)
	}
	// Mirror volume is untouched, so a mirror task is still admitted.
	if reasons := ctrl.Check(context.Background(), 1, false); len(reasons) != 0 {
		t.Errorf("mirror task wrongly rejected: %v", reasons)
	}
}
