package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// EventKind tells the three inbound event shapes apart.
type EventKind int

const (
	EventCommand EventKind = iota
	EventCallback
	EventText
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventCallback:
		return "callback"
	case EventText:
		return "text"
	}
	return "unknown"
}

// Sender is the profile of whoever produced an event.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Event is an inbound update reduced to what the bot acts on.
type Event struct {
	Kind    EventKind
	ChatID  int64
	From    Sender
	TraceID string

	// EventCommand
	Command string
	Args    string

	// EventCallback
	CallbackID string
	Data       string
	MessageID  int

	// EventText
	Text string
}

// EventFromUpdate converts an update. The boolean is false for updates the
// bot ignores.
func EventFromUpdate(u tgbotapi.Update) (*Event, bool) {
	switch {
	case u.Message != nil:
		m := u.Message
		if m.From == nil || m.Chat == nil {
			return nil, false
		}
		ev := &Event{ChatID: m.Chat.ID, From: senderOf(m.From)}
		if m.IsCommand() {
			ev.Kind = EventCommand
			ev.Command = m.Command()
			ev.Args = m.CommandArguments()
			return ev, true
		}
		if m.Text == "" {
			return nil, false
		}
		ev.Kind = EventText
		ev.Text = m.Text
		return ev, true

	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		if q.From == nil || q.Message == nil || q.Message.Chat == nil {
			return nil, false
		}
		return &Event{
			Kind:       EventCallback,
			ChatID:     q.Message.Chat.ID,
			From:       senderOf(q.From),
			CallbackID: q.ID,
			Data:       q.Data,
			MessageID:  q.Message.MessageID,
		}, true
	}
	return nil, false
}

func senderOf(u *tgbotapi.User) Sender {
	return Sender{ID: u.ID, Username: u.UserName, FirstName: u.FirstName, LastName: u.LastName}
}

// Dispatcher consumes events.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev *Event)
}

// Messenger is the outbound half of the chat transport. Text is HTML
// markup; callers escape user supplied values.
type Messenger interface {
	// SendMessage returns the id of the sent message.
	SendMessage(ctx context.Context, chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) error
	SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
