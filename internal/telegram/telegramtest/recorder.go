// Package telegramtest provides an in-memory Messenger for tests.
package telegramtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Message is one recorded send or edit.
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  *tgbotapi.InlineKeyboardMarkup
	Edited    bool
}

// Buttons returns the callback data of every keyboard button.
func (m Message) Buttons() []string {
	if m.Keyboard == nil {
		return nil
	}
	var data []string
	for _, row := range m.Keyboard.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				data = append(data, *b.CallbackData)
			}
		}
	}
	return data
}

// Document is one recorded upload.
type Document struct {
	ChatID  int64
	Name    string
	Data    []byte
	Caption string
}

// Recorder records everything sent through it. FailChats makes every send
// to the listed chats fail with Err.
type Recorder struct {
	mu        sync.Mutex
	nextID    int
	messages  []Message
	documents []Document
	answers   []string

	FailChats map[int64]bool
	FailDocs  bool
	Err       error
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{FailChats: make(map[int64]bool)}
}

func (r *Recorder) fail(chatID int64) error {
	if r.FailChats[chatID] {
		if r.Err != nil {
			return r.Err
		}
		return ErrSend
	}
	return nil
}

// ErrSend is returned for failing chats when Err is unset.
var ErrSend = errors.New("telegramtest: send failed")

func (r *Recorder) SendMessage(ctx context.Context, chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(chatID); err != nil {
		return 0, err
	}
	r.nextID++
	r.messages = append(r.messages, Message{ChatID: chatID, MessageID: r.nextID, Text: text, Keyboard: kb})
	return r.nextID, nil
}

func (r *Recorder) EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(chatID); err != nil {
		return err
	}
	r.messages = append(r.messages, Message{ChatID: chatID, MessageID: messageID, Text: text, Keyboard: kb, Edited: true})
	return nil
}

func (r *Recorder) SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail(chatID); err != nil {
		return err
	}
	if r.FailDocs {
		return ErrSend
	}
	r.documents = append(r.documents, Document{ChatID: chatID, Name: name, Data: data, Caption: caption})
	return nil
}

func (r *Recorder) AnswerCallback(ctx context.Context, callbackID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, text)
	return nil
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// MessagesTo returns the messages sent or edited in chatID.
func (r *Recorder) MessagesTo(chatID int64) []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent message, or a zero Message.
func (r *Recorder) Last() Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}
	}
	return r.messages[len(r.messages)-1]
}

// Contains reports whether any message contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, m := range r.Messages() {
		if strings.Contains(m.Text, substr) {
			return true
		}
	}
	return false
}

// Documents returns a copy of the recorded uploads.
func (r *Recorder) Documents() []Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Document(nil), r.documents...)
}

// Answers returns the texts of answered callbacks.
func (r *Recorder) Answers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.answers...)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
	r.documents = nil
	r.answers = nil
}
