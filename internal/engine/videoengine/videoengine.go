// Package videoengine downloads YouTube videos natively.
package videoengine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kkdai/youtube/v2"

	"telegram-mirror-bot/internal/engine"
	"telegram-mirror-bot/internal/logutils"
)

var hostRe = regexp.MustCompile(`(?:^|\.)(youtube\.com|youtu\.be)`)

// IsVideoLink reports whether link points at a supported video host.
func IsVideoLink(link string) bool {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(link, "https://"), "http://")
	host, _, found := strings.Cut(trimmed, "/")
	if !found {
		host = trimmed
	}
	return hostRe.MatchString(host)
}

type Engine struct {
	client youtube.Client
}

func New() *Engine {
	return &Engine{}
}

func (e *Engine) AddDownload(ctx context.Context, dl *engine.Download, listener engine.Listener) {
	size, err := e.fetch(ctx, dl)
	switch {
	case ctx.Err() != nil:
		listener.Cancelled()
	case err != nil:
		listener.Failed(err)
	default:
		listener.Succeeded(size)
	}
}

func (e *Engine) fetch(ctx context.Context, dl *engine.Download) (int64, error) {
	video, err := e.client.GetVideoContext(ctx, dl.Link)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve video: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return 0, fmt.Errorf("video %q has no downloadable format", video.Title)
	}
	formats.Sort()
	format := &formats[0]

	stream, _, err := e.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return 0, fmt.Errorf("failed to open video stream: %w", err)
	}
	defer stream.Close()

	name := dl.Name
	if name == "" {
		name = sanitize(video.Title) + ".mp4"
	}

	if err := os.MkdirAll(dl.Path, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create download dir: %w", err)
	}
	out, err := os.Create(filepath.Join(dl.Path, name))
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	size, err := io.Copy(out, stream)
	if err != nil {
		return 0, fmt.Errorf("video download interrupted: %w", err)
	}

	logutils.Log.WithField("gid", dl.GID).Debugf("Downloaded video %s (%d bytes)", video.Title, size)
	return size, nil
}

var unsafeChars = regexp.MustCompile(`[/\\:*?"<>|]`)

func sanitize(name string) string {
	return strings.TrimSpace(unsafeChars.ReplaceAllString(name, "_"))
}
