// Package rcbrowse picks remote-storage paths for the "rcl" sentinel.
package rcbrowse

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"telegram-mirror-bot/internal/config"
	"telegram-mirror-bot/internal/logutils"
)

// Browser resolves the browse sentinel to a concrete remote root. It lists
// the remotes in the requesting user's credential file (falling back to the
// shared one) and picks the first; per the collaborator contract a returned
// value that is not a path is the error message to show.
type Browser struct {
	cfg *config.Config
}

func NewBrowser(cfg *config.Config) *Browser {
	return &Browser{cfg: cfg}
}

func (b *Browser) Browse(ctx context.Context, userID int64) (string, error) {
	conf := b.cfg.UserRcloneConf(userID)
	if _, err := os.Stat(conf); err != nil {
		conf = b.cfg.RcloneConf
	}
	if _, err := os.Stat(conf); err != nil {
		return "No remote-storage credentials configured", nil
	}

	out, err := exec.CommandContext(ctx, "rclone", "listremotes", "--config", conf).Output()
	if err != nil {
		return "", fmt.Errorf("failed to list remotes: %w", err)
	}

	remotes := strings.Fields(string(out))
	if len(remotes) == 0 {
		return "Your credential file has no remotes", nil
	}
	logutils.Log.Debugf("Browse picked remote %s for user %d", remotes[0], userID)
	return remotes[0], nil
}
