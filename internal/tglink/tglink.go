// Package tglink parses t.me message links and resolves them to message
// content where the bot API allows it.
package tglink

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"telegram-mirror-bot/internal/dispatch"
)

var linkRe = regexp.MustCompile(`^https://t\.me/(c/)?([\w]+)/(\d+)`)

// Ref is a parsed message reference.
type Ref struct {
	Chat    string
	Message int
	Private bool
}

// Parse extracts the chat and message id from a t.me link.
func Parse(link string) (Ref, error) {
	m := linkRe.FindStringSubmatch(link)
	if m == nil {
		return Ref{}, fmt.Errorf("not a telegram message link: %q", link)
	}
	id, err := strconv.Atoi(m[3])
	if err != nil {
		return Ref{}, fmt.Errorf("invalid message id in %q", link)
	}
	return Ref{Chat: m[2], Message: id, Private: m[1] != ""}, nil
}

// Resolver implements the dispatch.TelegramResolver collaborator. Bot
// accounts cannot read arbitrary chat history, so resolution only validates
// the reference and steers the user toward replying with the message
// directly.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

func (*Resolver) ResolveMessage(_ context.Context, link string) (string, *dispatch.Document, error) {
	ref, err := Parse(link)
	if err != nil {
		return "", nil, err
	}
	if ref.Private {
		return "", nil, errors.New("private chat links are not accessible; forward the message to the bot instead")
	}
	return "", nil, fmt.Errorf("cannot read t.me/%s/%d directly; reply to the forwarded message instead", ref.Chat, ref.Message)
}
