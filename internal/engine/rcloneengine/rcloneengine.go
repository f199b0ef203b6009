// Package rcloneengine syncs remote-storage paths to disk by shelling out to
// the rclone binary.
package rcloneengine

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"

	"telegram-mirror-bot/internal/engine"
	"telegram-mirror-bot/internal/logutils"
)

type Engine struct{}

func New() *Engine {
	return &Engine{}
}

func (e *Engine) AddDownload(ctx context.Context, dl *engine.Download, listener engine.Listener) {
	args := []string{"copy", "--config", dl.ConfigPath, dl.Link, dl.Path}

	cmd := exec.CommandContext(ctx, "rclone", args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		listener.Failed(fmt.Errorf("failed to capture rclone stderr: %w", err))
		return
	}
	if err := cmd.Start(); err != nil {
		listener.Failed(fmt.Errorf("failed to start rclone: %w", err))
		return
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			logutils.Log.Debugf("rclone: %s", scanner.Text())
		}
	}()

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		listener.Cancelled()
		return
	}
	if waitErr != nil {
		listener.Failed(fmt.Errorf("rclone copy failed: %w", waitErr))
		return
	}

	size, err := dirSize(dl.Path)
	if err != nil {
		logutils.Log.WithError(err).Warn("Failed to measure downloaded size")
	}
	listener.Succeeded(size)
}
