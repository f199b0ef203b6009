// Package torrentengine downloads magnet links and .torrent files with an
// embedded BitTorrent client.
package torrentengine

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/anacrolix/torrent/storage"

	"telegram-mirror-bot/internal/engine"
	"telegram-mirror-bot/internal/logutils"
)

const pollInterval = 2 * time.Second

type Engine struct {
	client *torrent.Client
}

func New() (*Engine, error) {
	cfg := torrent.NewDefaultClientConfig()
	cfg.ListenPort = 42000 + rand.Intn(100)
	// Storage is supplied per download, the client default is unused.
	cfg.DefaultStorage = storage.NewFile("")

	client, err := torrent.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create torrent client: %w", err)
	}
	return &Engine{client: client}, nil
}

func (e *Engine) Close() {
	e.client.Close()
}

func (e *Engine) AddDownload(ctx context.Context, dl *engine.Download, listener engine.Listener) {
	t, err := e.add(dl)
	if err != nil {
		listener.Failed(err)
		return
	}
	defer t.Drop()

	select {
	case <-t.GotInfo():
	case <-ctx.Done():
		listener.Cancelled()
		return
	}

	t.DownloadAll()
	logutils.Log.WithField("gid", dl.GID).Infof("Torrent %s started", t.Name())

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if t.Complete.Bool() {
				size := t.Length()
				if dl.Ratio > 0 || dl.SeedTime > 0 {
					e.seed(ctx, t, dl)
				}
				listener.Succeeded(size)
				return
			}
		case <-ctx.Done():
			listener.Cancelled()
			return
		}
	}
}

func (e *Engine) add(dl *engine.Download) (*torrent.Torrent, error) {
	var spec *torrent.TorrentSpec
	if strings.HasPrefix(dl.Link, "magnet:") {
		var err error
		spec, err = torrent.TorrentSpecFromMagnetUri(dl.Link)
		if err != nil {
			return nil, fmt.Errorf("invalid magnet link: %w", err)
		}
	} else {
		mi, err := metainfo.LoadFromFile(dl.Link)
		if err != nil {
			return nil, fmt.Errorf("failed to read torrent file: %w", err)
		}
		spec = torrent.TorrentSpecFromMetaInfo(mi)
	}
	spec.Storage = storage.NewFile(dl.Path)

	t, _, err := e.client.AddTorrentSpec(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to add torrent: %w", err)
	}
	return t, nil
}

// seed keeps the torrent alive until the requested ratio or seed time is
// reached, whichever comes first. Cancellation ends seeding early without
// failing the task.
func (e *Engine) seed(ctx context.Context, t *torrent.Torrent, dl *engine.Download) {
	deadline := time.Time{}
	if dl.SeedTime > 0 {
		deadline = time.Now().Add(time.Duration(dl.SeedTime) * time.Minute)
	}
	logutils.Log.WithField("gid", dl.GID).Infof("Seeding %s (ratio %.2f, time %d min)", t.Name(), dl.Ratio, dl.SeedTime)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !deadline.IsZero() && time.Now().After(deadline) {
				return
			}
			if dl.Ratio > 0 {
				stats := t.Stats()
				if ratioReached(stats.BytesWrittenData.Int64(), t.Length(), dl.Ratio) {
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// ratioReached reports whether the uploaded volume has met the requested
// seed ratio. A zero-length torrent never reaches a ratio.
func ratioReached(uploaded, length int64, ratio float64) bool {
	return length > 0 && float64(uploaded)/float64(length) >= ratio
}
