// Package directengine fetches plain HTTP(S) links to disk.
package directengine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"telegram-mirror-bot/internal/engine"
	"telegram-mirror-bot/internal/logutils"
)

type Engine struct {
	client *http.Client
}

func New(client *http.Client) *Engine {
	if client == nil {
		client = http.DefaultClient
	}
	return &Engine{client: client}
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
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dl.Link, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("invalid download link: %w", err)
	}
	if dl.AuthHeader != "" {
		req.Header.Set("Authorization", dl.AuthHeader)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	name := dl.Name
	if name == "" {
		name = fileNameFromURL(resp.Request.URL)
	}

	if err := os.MkdirAll(dl.Path, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create download dir: %w", err)
	}
	out, err := os.Create(filepath.Join(dl.Path, name))
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	size, err := io.Copy(out, resp.Body)
	if err != nil {
		return 0, fmt.Errorf("download interrupted: %w", err)
	}

	logutils.Log.WithField("gid", dl.GID).Debugf("Downloaded %s (%d bytes)", name, size)
	return size, nil
}

// fileNameFromURL falls back to "download" when the final URL has no usable
// path segment.
func fileNameFromURL(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "download"
	}
	return name
}
