package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/session"
)

// Handler serves one routed event.
type Handler func(ctx context.Context, req *Request) error

// Request is what a Handler works with. The session is locked for the
// lifetime of the request.
type Request struct {
	Event   *Event
	Session *session.Session
	// User is nil on bots that do not provision users.
	User *models.User
	// Data is the decoded callback, or the screen being opened.
	Data callback.Data
	Log  *logrus.Entry
	// Notice is shown above the next rendered screen, then cleared.
	Notice string

	msg  Messenger
	open func(ctx context.Context, screen string) error
}

// Messenger exposes the transport for uploads and out-of-band sends.
func (r *Request) Messenger() Messenger {
	return r.msg
}

// ChatID is the chat the event came from.
func (r *Request) ChatID() int64 {
	return r.Event.ChatID
}

// Reply edits the message whose button was pressed, or sends a new message
// for commands and text.
func (r *Request) Reply(ctx context.Context, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	if r.Event.Kind == EventCallback && r.Event.MessageID != 0 {
		err := r.msg.EditMessage(ctx, r.Event.ChatID, r.Event.MessageID, text, kb)
		if err == nil {
			return nil
		}
		r.Log.WithError(err).Debug("Edit failed, sending a new message")
	}
	_, err := r.msg.SendMessage(ctx, r.Event.ChatID, text, kb)
	return err
}

// Send always posts a new message.
func (r *Request) Send(ctx context.Context, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	_, err := r.msg.SendMessage(ctx, r.Event.ChatID, text, kb)
	return err
}

// Render records screen in the navigation history and shows it.
func (r *Request) Render(ctx context.Context, screen string, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	r.Session.History.Push(screen)
	if r.Notice != "" {
		text = r.Notice + "\n\n" + text
		r.Notice = ""
	}
	return r.Reply(ctx, text, kb)
}

// Open routes to the handler of screen as if its button had been pressed.
func (r *Request) Open(ctx context.Context, screen string) error {
	return r.open(ctx, screen)
}

// HomeKeyboard is a single button back to the main menu.
func HomeKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Home", callback.New(callback.Home)),
		),
	)
	return &kb
}
