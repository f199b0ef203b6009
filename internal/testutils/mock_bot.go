// Package testutils holds shared fakes for package level tests.
package testutils

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// SentMessage captures one message sent through MockBot.
type SentMessage struct {
	ChatID  int64
	ReplyTo int
	Text    string
}

// MockBot implements bot.Service for testing. Document content served by
// DownloadDocument is configured through Files, keyed by file id.
type MockBot struct {
	mu       sync.Mutex
	Sent     []SentMessage
	Edited   []SentMessage
	Deleted  []int
	Files    map[string]string
	nextID   int
	SendErr  error
	FetchErr error
}

func NewMockBot() *MockBot {
	return &MockBot{Files: make(map[string]string)}
}

func (m *MockBot) SendMessage(chatID int64, text string) (int, error) {
	return m.record(chatID, 0, text)
}

func (m *MockBot) ReplyMessage(chatID int64, replyTo int, text string) (int, error) {
	return m.record(chatID, replyTo, text)
}

func (m *MockBot) record(chatID int64, replyTo int, text string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return 0, m.SendErr
	}
	m.nextID++
	m.Sent = append(m.Sent, SentMessage{ChatID: chatID, ReplyTo: replyTo, Text: text})
	return m.nextID, nil
}

func (m *MockBot) EditMessage(chatID int64, messageID int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Edited = append(m.Edited, SentMessage{ChatID: chatID, ReplyTo: messageID, Text: text})
	return nil
}

func (m *MockBot) DeleteMessage(_ int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, messageID)
	return nil
}

func (m *MockBot) DownloadDocument(_ context.Context, fileID, destDir, fileName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return "", m.FetchErr
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(destDir, fileName)
	if err := os.WriteFile(path, []byte(m.Files[fileID]), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// LastMessage returns the most recently sent message, or nil if none.
func (m *MockBot) LastMessage() *SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	return &m.Sent[len(m.Sent)-1]
}

// Messages returns a copy of every sent message.
func (m *MockBot) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage{}, m.Sent...)
}
