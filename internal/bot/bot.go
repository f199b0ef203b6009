package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Service is the transport surface the dispatcher and listeners talk to.
// Implemented by Bot in production and by testutils.MockBot in tests.
type Service interface {
	SendMessage(chatID int64, text string) (int, error)
	ReplyMessage(chatID int64, replyTo int, text string) (int, error)
	EditMessage(chatID int64, messageID int, text string) error
	DeleteMessage(chatID int64, messageID int) error
	DownloadDocument(ctx context.Context, fileID, destDir, fileName string) (string, error)
}

type Bot struct {
	Api *tgbotapi.BotAPI
}

func InitBot(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logrus.WithError(err).Error("Error creating bot")
		return nil, fmt.Errorf("error creating bot: %w", err)
	}
	logrus.Infof("Authorized on account %s", api.Self.UserName)
	return &Bot{Api: api}, nil
}

func (b *Bot) SendMessage(chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	sent, err := b.Api.Send(msg)
	if err != nil {
		logrus.WithError(err).Errorf("Message to chat %d not sent", chatID)
		return 0, err
	}
	return sent.MessageID, nil
}

func (b *Bot) ReplyMessage(chatID int64, replyTo int, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyToMessageID = replyTo
	sent, err := b.Api.Send(msg)
	if err != nil {
		logrus.WithError(err).Errorf("Reply to chat %d not sent", chatID)
		return 0, err
	}
	return sent.MessageID, nil
}

func (b *Bot) EditMessage(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.Api.Send(edit); err != nil {
		logrus.WithError(err).Errorf("Message %d in chat %d not edited", messageID, chatID)
		return err
	}
	return nil
}

func (b *Bot) DeleteMessage(chatID int64, messageID int) error {
	if _, err := b.Api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		logrus.WithError(err).Errorf("Message %d in chat %d not deleted", messageID, chatID)
		return err
	}
	return nil
}

// DownloadDocument fetches a Telegram file into destDir and returns the
// local path.
func (b *Bot) DownloadDocument(ctx context.Context, fileID, destDir, fileName string) (string, error) {
	file, err := b.Api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		logrus.WithError(err).Error("Failed to get file")
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.Api.Token), http.NoBody)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logrus.WithError(err).Error("Failed to download file")
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s downloading file", resp.Status)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	destPath := filepath.Join(destDir, fileName)
	out, err := os.Create(destPath)
	if err != nil {
		logrus.WithError(err).Error("Failed to create file")
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		logrus.WithError(err).Error("Failed to save file")
		return "", err
	}

	logrus.Debugf("File %s downloaded successfully", fileName)
	return destPath, nil
}
