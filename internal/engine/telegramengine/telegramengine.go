// Package telegramengine fetches media attached to Telegram messages.
package telegramengine

import (
	"context"
	"os"
	"path/filepath"

	"telegram-mirror-bot/internal/bot"
	"telegram-mirror-bot/internal/engine"
	"telegram-mirror-bot/internal/logutils"
)

type Engine struct {
	bot bot.Service
}

func New(b bot.Service) *Engine {
	return &Engine{bot: b}
}

func (e *Engine) AddDownload(ctx context.Context, dl *engine.Download, listener engine.Listener) {
	name := dl.Name
	if name == "" {
		name = dl.FileName
	}

	path, err := e.bot.DownloadDocument(ctx, dl.FileID, dl.Path, name)
	if ctx.Err() != nil {
		listener.Cancelled()
		return
	}
	if err != nil {
		listener.Failed(err)
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		listener.Failed(err)
		return
	}

	logutils.Log.WithField("gid", dl.GID).Debugf("Fetched %s from Telegram", filepath.Base(path))
	listener.Succeeded(info.Size())
}
