package task

import (
	"context"
	"fmt"

	"telegram-mirror-bot/internal/config"
	"telegram-mirror-bot/internal/database"
	"telegram-mirror-bot/internal/logutils"
)

// AdmissionController answers whether a user may start one more task. Checks
// are read-only; counters are consumed by the Listener once an outcome is
// known.
type AdmissionController struct {
	registry *Registry
	usage    database.UsageReader
	quota    config.QuotaConfig
}

func NewAdmissionController(registry *Registry, usage database.UsageReader, quota config.QuotaConfig) *AdmissionController {
	return &AdmissionController{registry: registry, usage: usage, quota: quota}
}

// Check returns every violated quota dimension as a human-readable reason.
// An empty slice means the task is admitted. A zero limit disables that
// dimension.
func (a *AdmissionController) Check(ctx context.Context, userID int64, leech bool) []string {
	var reasons []string

	global, user := a.registry.Counts(userID)
	if a.quota.MaxGlobalTasks > 0 && global >= a.quota.MaxGlobalTasks {
		reasons = append(reasons, fmt.Sprintf("global task limit reached (%d running, limit %d)", global, a.quota.MaxGlobalTasks))
	}
	if a.quota.MaxUserTasks > 0 && user >= a.quota.MaxUserTasks {
		reasons = append(reasons, fmt.Sprintf("you already have %d running tasks (limit %d)", user, a.quota.MaxUserTasks))
	}

	if a.quota.DailyTaskLimit <= 0 && a.quota.DailyLeechLimit <= 0 && a.quota.DailyMirrorLimit <= 0 {
		return reasons
	}

	usage, err := a.usage.DailyUsage(ctx, userID)
	if err != nil {
		logutils.Log.WithError(err).Error("Failed to load daily usage, admitting without daily checks")
		return reasons
	}

	if a.quota.DailyTaskLimit > 0 && usage.TaskCount >= a.quota.DailyTaskLimit {
		reasons = append(reasons, fmt.Sprintf("daily task limit reached (%d of %d)", usage.TaskCount, a.quota.DailyTaskLimit))
	}
	if leech {
		if a.quota.DailyLeechLimit > 0 && usage.LeechBytes >= a.quota.DailyLeechLimit {
			reasons = append(reasons, fmt.Sprintf("daily leech volume exhausted (%d of %d bytes)", usage.LeechBytes, a.quota.DailyLeechLimit))
		}
	} else {
		if a.quota.DailyMirrorLimit > 0 && usage.MirrorBytes >= a.quota.DailyMirrorLimit {
			reasons = append(reasons, fmt.Sprintf("daily mirror volume exhausted (%d of %d bytes)", usage.MirrorBytes, a.quota.DailyMirrorLimit))
		}
	}
	return reasons
}

// Register re-checks the in-flight limits and inserts l under the registry
// lock in one step, closing the window the advisory Check leaves open while
// the later dispatch gates run. A non-empty result means l was not
// registered.
func (a *AdmissionController) Register(l *Listener) []string {
	ok, global, user := a.registry.AddWithin(l, a.quota.MaxGlobalTasks, a.quota.MaxUserTasks)
	if ok {
		return nil
	}
	var reasons []string
	if a.quota.MaxGlobalTasks > 0 && global >= a.quota.MaxGlobalTasks {
		reasons = append(reasons, fmt.Sprintf("global task limit reached (%d running, limit %d)", global, a.quota.MaxGlobalTasks))
	}
	if a.quota.MaxUserTasks > 0 && user >= a.quota.MaxUserTasks {
		reasons = append(reasons, fmt.Sprintf("you already have %d running tasks (limit %d)", user, a.quota.MaxUserTasks))
	}
	return reasons
}
