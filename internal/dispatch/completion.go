package dispatch

import (
	"context"
	"fmt"
	"path/filepath"

	"telegram-mirror-bot/internal/bot"
	"telegram-mirror-bot/internal/logutils"
	"telegram-mirror-bot/internal/task"
	"telegram-mirror-bot/internal/upload"
)

// CompletionHandler renders terminal task outcomes to the chat and runs the
// combined upload for finished same-dir groups. It implements both
// task.Notifier and task.GroupFinalizer.
type CompletionHandler struct {
	bot         bot.Service
	uploader    upload.Service
	downloadDir string
}

func NewCompletionHandler(b bot.Service, uploader upload.Service, downloadDir string) *CompletionHandler {
	return &CompletionHandler{bot: b, uploader: uploader, downloadDir: downloadDir}
}

func (h *CompletionHandler) TaskSucceeded(l *task.Listener, size int64) {
	mode := "Mirrored"
	if l.IsLeech {
		mode = "Leeched"
	}
	text := fmt.Sprintf("%s: %s\nSize: %s\ncc: %s", mode, l.Source, formatBytes(size), l.Tag)
	if _, err := h.bot.SendMessage(l.ChatID, text); err != nil {
		logutils.Log.WithError(err).Warn("Failed to send completion message")
	}

	// Grouped tasks upload once, at finalization.
	if l.Upload == "ddl" && l.GroupID == "" && h.uploader != nil {
		go h.uploadResult(l)
	}
}

func (h *CompletionHandler) uploadResult(l *task.Listener) {
	location, err := h.uploader.UploadDirectory(context.Background(), filepath.Join(h.downloadDir, l.GID()), l.GID())
	if err != nil {
		logutils.Log.WithError(err).Error("Upload failed")
		if _, sendErr := h.bot.SendMessage(l.ChatID, "Upload failed: "+err.Error()); sendErr != nil {
			logutils.Log.WithError(sendErr).Warn("Failed to report upload failure")
		}
		return
	}
	if _, err := h.bot.SendMessage(l.ChatID, "Uploaded to "+location); err != nil {
		logutils.Log.WithError(err).Warn("Failed to send upload location")
	}
}

func (h *CompletionHandler) TaskFailed(l *task.Listener, err error) {
	text := fmt.Sprintf("Download failed: %s\n%s\ncc: %s", l.Source, err, l.Tag)
	if _, sendErr := h.bot.SendMessage(l.ChatID, text); sendErr != nil {
		logutils.Log.WithError(sendErr).Warn("Failed to send failure message")
	}
}

func (h *CompletionHandler) TaskCancelled(l *task.Listener) {
	text := fmt.Sprintf("Download cancelled: %s\ncc: %s", l.Source, l.Tag)
	if _, err := h.bot.SendMessage(l.ChatID, text); err != nil {
		logutils.Log.WithError(err).Warn("Failed to send cancellation message")
	}
}

// FinalizeGroup uploads the shared folder once the last group member
// finishes. Leech groups deliver through the chat, so only mirror groups
// reach the uploader.
func (h *CompletionHandler) FinalizeGroup(ctx context.Context, name string, leech bool) {
	if leech || h.uploader == nil {
		logutils.Log.Infof("Group %s complete", name)
		return
	}
	location, err := h.uploader.UploadDirectory(ctx, filepath.Join(h.downloadDir, name), name)
	if err != nil {
		logutils.Log.WithError(err).Errorf("Failed to upload group %s", name)
		return
	}
	logutils.Log.Infof("Group %s uploaded to %s", name, location)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
