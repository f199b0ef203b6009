// Package megaengine fetches mega.nz links by shelling out to the megadl
// binary from megatools.
package megaengine

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"

	"telegram-mirror-bot/internal/engine"
	"telegram-mirror-bot/internal/logutils"
)

type Engine struct{}

func New() *Engine {
	return &Engine{}
}

func (e *Engine) AddDownload(ctx context.Context, dl *engine.Download, listener engine.Listener) {
	cmd := exec.CommandContext(ctx, "megadl", "--path", dl.Path, dl.Link)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		listener.Failed(fmt.Errorf("failed to capture megadl stderr: %w", err))
		return
	}
	if err := cmd.Start(); err != nil {
		listener.Failed(fmt.Errorf("failed to start megadl: %w", err))
		return
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			logutils.Log.Debugf("megadl: %s", scanner.Text())
		}
	}()

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		listener.Cancelled()
		return
	}
	if waitErr != nil {
		listener.Failed(fmt.Errorf("megadl failed: %w", waitErr))
		return
	}

	var size int64
	walkErr := filepath.WalkDir(dl.Path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			size += info.Size()
		}
		return nil
	})
	if walkErr != nil {
		logutils.Log.WithError(walkErr).Warn("Failed to measure downloaded size")
	}
	listener.Succeeded(size)
}
