package bot

import (
	"context"
	"time"
)

type Kind int

const (
	KindMessage Kind = iota
	KindCommand
	KindCallback
)

type ChatType string

const (
	ChatPrivate    ChatType = "private"
	ChatGroup      ChatType = "group"
	ChatSuperGroup ChatType = "supergroup"
	ChatChannel    ChatType = "channel"
)

// Event is one inbound platform event, already stripped of transport details.
type Event struct {
	Kind Kind
	// Command is the command name without the leading slash or bot mention.
	Command string
	// Data is the opaque callback token of a button press.
	Data       string
	CallbackID string

	User      string
	ChatID    int64
	ChatType  ChatType
	MessageID int
	At        time.Time
}

func (e Event) InGroup() bool {
	return e.ChatType == ChatGroup || e.ChatType == ChatSuperGroup
}

// Button is a single actionable control attached to a reply.
type Button struct {
	Label string
	Data  string
}

type Reply struct {
	Text     string
	Markdown bool
	Button   *Button
}

// Responder delivers handler output back to the platform.
type Responder interface {
	Send(ctx context.Context, chatID int64, r Reply) error
	// Edit replaces the text of a previously sent message.
	Edit(ctx context.Context, chatID int64, messageID int, r Reply) error
	AnswerCallback(ctx context.Context, callbackID string) error
}
