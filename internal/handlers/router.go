// Package handlers maps incoming Telegram updates onto dispatcher requests.
package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-mirror-bot/internal/bot"
	"telegram-mirror-bot/internal/dispatch"
	"telegram-mirror-bot/internal/logutils"
	"telegram-mirror-bot/internal/task"
)

type Router struct {
	bot        bot.Service
	dispatcher *dispatch.Dispatcher
	registry   *task.Registry
}

func NewRouter(b bot.Service, dispatcher *dispatch.Dispatcher, registry *task.Registry) *Router {
	return &Router{bot: b, dispatcher: dispatcher, registry: registry}
}

func (r *Router) Route(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}

	command := strings.ToLower(msg.Command())
	switch command {
	case "mirror", "leech", "qbmirror", "qbleech":
		req := requestFromMessage(msg)
		req.IsLeech = command == "leech" || command == "qbleech"
		req.IsQbit = strings.HasPrefix(command, "qb")
		if err := r.dispatcher.Dispatch(ctx, req); err != nil {
			logutils.Log.WithError(err).Debugf("Command /%s rejected", command)
		}
	case "cancel":
		r.handleCancel(msg)
	case "status":
		r.handleStatus(msg)
	default:
		logutils.Log.Warnf("Unknown command: %s", command)
	}
}

func (r *Router) handleCancel(msg *tgbotapi.Message) {
	gid := strings.TrimSpace(msg.CommandArguments())
	if gid != "" {
		if !r.registry.Cancel(gid) {
			r.reply(msg, fmt.Sprintf("No running task with id %s", gid))
			return
		}
		r.reply(msg, "Cancellation requested")
		return
	}

	if msg.From == nil {
		return
	}
	n := r.registry.CancelByUser(msg.From.ID)
	r.reply(msg, fmt.Sprintf("Cancellation requested for %d tasks", n))
}

func (r *Router) handleStatus(msg *tgbotapi.Message) {
	tasks := r.registry.All()
	if len(tasks) == 0 {
		r.reply(msg, "No tasks running")
		return
	}

	var b strings.Builder
	for _, l := range tasks {
		fmt.Fprintf(&b, "%s - %s (%s)\ncc: %s\n\n", l.GID(), l.Source, l.Status(), l.Tag)
	}
	r.reply(msg, strings.TrimSpace(b.String()))
}

func (r *Router) reply(msg *tgbotapi.Message, text string) {
	if _, err := r.bot.ReplyMessage(msg.Chat.ID, msg.MessageID, text); err != nil {
		logutils.Log.WithError(err).Warn("Failed to send reply")
	}
}

// requestFromMessage extracts the dispatch request from a bot command,
// including any replied-to message content.
func requestFromMessage(msg *tgbotapi.Message) dispatch.Request {
	req := dispatch.Request{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Tokens:    strings.Fields(msg.CommandArguments()),
	}

	if msg.From != nil {
		req.UserID = msg.From.ID
		req.Username = msg.From.UserName
		req.Mention = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	}
	if msg.SenderChat != nil {
		req.SenderChatTitle = msg.SenderChat.Title
	}
	if msg.ForwardFromChat != nil && msg.ForwardFromChat.Title != "" {
		req.TagOverride = msg.ForwardFromChat.Title
	}

	if reply := msg.ReplyToMessage; reply != nil {
		info := &dispatch.ReplyInfo{Text: reply.Text}
		if info.Text == "" {
			info.Text = reply.Caption
		}
		if doc := reply.Document; doc != nil {
			info.Document = &dispatch.Document{
				FileID:   doc.FileID,
				FileName: doc.FileName,
				MimeType: doc.MimeType,
			}
		}
		req.Reply = info
	}
	return req
}
