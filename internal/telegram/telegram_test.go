package telegram

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/repository"
	"github.com/Kerhoff/familybudget/internal/session"
	"github.com/Kerhoff/familybudget/internal/telegram/telegramtest"
)

var _ Messenger = (*telegramtest.Recorder)(nil)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"lines", "aaaa\nbbbb\ncccc", 9, []string{"aaaa\nbbbb", "cccc"}},
		{"long line", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"runes", "ёёёё\nжжжж", 4, []string{"ёёёё", "жжжж"}},
		{"blank chunks dropped", "aaaa\n\n\nbbbb", 4, []string{"aaaa", "bbbb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitMessage(tt.text, tt.limit)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Fatalf("SplitMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunkedSenderSendsEveryPart(t *testing.T) {
	rec := telegramtest.NewRecorder()
	s := NewChunkedSender(rec, time.Millisecond)
	s.limit = 5

	if err := s.Send(context.Background(), 42, "aaaa\nbbbb\ncccc"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	msgs := rec.MessagesTo(42)
	if len(msgs) != 3 {
		t.Fatalf("sent %d messages, want 3", len(msgs))
	}

	rec.FailChats[42] = true
	if err := s.Send(context.Background(), 42, "x"); err == nil {
		t.Fatal("Send() to a failing chat returned nil")
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewRateLimiter(3)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.Allow(1) {
			t.Fatalf("event %d rejected", i+1)
		}
	}
	if l.Allow(1) {
		t.Fatal("fourth event in a burst allowed")
	}
	if !l.Allow(2) {
		t.Fatal("users must not share a budget")
	}

	now = now.Add(20 * time.Second)
	if !l.Allow(1) {
		t.Fatal("budget did not refill")
	}

	now = now.Add(time.Hour)
	if removed := l.Sweep(time.Minute); removed != 2 {
		t.Fatalf("Sweep() = %d, want 2", removed)
	}
}

type staticUsers struct{}

func (staticUsers) EnsureUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*models.User, error) {
	return &models.User{ID: telegramID, TelegramID: telegramID, Name: firstName}, nil
}

type routerFixture struct {
	router   *Router
	rec      *telegramtest.Recorder
	sessions *session.Store
	opened   []string
	flowed   int
}

func newRouterFixture(t *testing.T, opts ...RouterOption) *routerFixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &routerFixture{rec: telegramtest.NewRecorder(), sessions: session.NewStore()}
	opts = append([]RouterOption{WithUsers(staticUsers{})}, opts...)
	f.router = NewRouter("test", logger, f.rec, f.sessions, opts...)

	screen := func(name string) Handler {
		return func(ctx context.Context, req *Request) error {
			f.opened = append(f.opened, name)
			return req.Render(ctx, req.Data.String(), name, nil)
		}
	}
	f.router.RegisterCallback(callback.Home, screen("home"))
	f.router.RegisterCallback(callback.Families, screen("families"))
	f.router.RegisterCallback(callback.Settings, screen("settings"))
	f.router.RegisterCallback(callback.FamilyCreate, func(ctx context.Context, req *Request) error {
		req.Session.Begin(flow.CreateFamily{})
		return req.Reply(ctx, "name?", nil)
	})
	f.router.RegisterCallback(callback.FamilyView, func(ctx context.Context, req *Request) error {
		return repository.ErrNotFound
	})
	f.router.RegisterCallback(callback.Stats, func(ctx context.Context, req *Request) error {
		return errors.New("boom")
	})
	f.router.RegisterCallback(callback.Recent, func(ctx context.Context, req *Request) error {
		panic("unexpected")
	})
	f.router.RegisterCommand("start", func(ctx context.Context, req *Request) error {
		return req.Open(ctx, callback.New(callback.Home))
	})
	f.router.SetFlowHandler(func(ctx context.Context, req *Request) error {
		f.flowed++
		if req.Event.Text == "bad" {
			return &flow.ValidationError{Message: "Try again <please>"}
		}
		return nil
	})
	return f
}

func (f *routerFixture) press(data string) {
	f.router.Dispatch(context.Background(), &Event{
		Kind: EventCallback, ChatID: 1, From: Sender{ID: 1}, CallbackID: "cb", Data: data, MessageID: 10,
	})
}

func (f *routerFixture) text(s string) {
	f.router.Dispatch(context.Background(), &Event{Kind: EventText, ChatID: 1, From: Sender{ID: 1}, Text: s})
}

func (f *routerFixture) command(c string) {
	f.router.Dispatch(context.Background(), &Event{Kind: EventCommand, ChatID: 1, From: Sender{ID: 1}, Command: c})
}

func (f *routerFixture) session() *session.Session {
	sess, release := f.sessions.Acquire(session.Key{ChatID: 1, UserID: 1})
	release()
	return sess
}

func TestBackReturnsToPreviousScreen(t *testing.T) {
	f := newRouterFixture(t)
	f.press(callback.New(callback.Home))
	f.press(callback.New(callback.Families))
	f.press(callback.New(callback.Settings))

	f.press(callback.New(callback.Back))
	if got := f.opened[len(f.opened)-1]; got != "families" {
		t.Fatalf("back opened %q, want families", got)
	}
	f.press(callback.New(callback.Back))
	f.press(callback.New(callback.Back))
	if got := f.opened[len(f.opened)-1]; got != "home" {
		t.Fatalf("back from the root opened %q, want home", got)
	}
}

func TestNavigationCancelsFlow(t *testing.T) {
	tests := []struct {
		name   string
		action func(f *routerFixture)
	}{
		{"back", func(f *routerFixture) { f.press(callback.New(callback.Back)) }},
		{"home", func(f *routerFixture) { f.press(callback.New(callback.Home)) }},
		{"cancel", func(f *routerFixture) { f.press(callback.New(callback.Cancel)) }},
		{"command", func(f *routerFixture) { f.command("start") }},
		{"other screen", func(f *routerFixture) { f.press(callback.New(callback.Settings)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t)
			f.press(callback.New(callback.Families))
			f.press(callback.New(callback.FamilyCreate))
			if f.session().Flow == nil {
				t.Fatal("flow did not start")
			}
			tt.action(f)
			if st := f.session().Flow; st != nil {
				t.Fatalf("flow %s survived", st.Name())
			}
			f.text("Ivanov")
			if f.flowed != 0 {
				t.Fatal("text reached the flow handler after navigation")
			}
		})
	}
}

func TestFlowReceivesTextAndInput(t *testing.T) {
	f := newRouterFixture(t)
	f.press(callback.New(callback.FamilyCreate))
	f.text("Ivanov")
	f.press(callback.New(callback.PickKind, "expense"))
	if f.flowed != 2 {
		t.Fatalf("flow handler called %d times, want 2", f.flowed)
	}
	if f.session().Flow == nil {
		t.Fatal("flow input ended the flow")
	}
}

func TestFlowInputWithoutFlowIsExpired(t *testing.T) {
	f := newRouterFixture(t)
	f.press(callback.New(callback.PickFamily, 3))
	if f.flowed != 0 {
		t.Fatal("flow handler called without a flow")
	}
	if !f.rec.Contains("no longer active") {
		t.Fatalf("last message = %q", f.rec.Last().Text)
	}
}

func TestValidationErrorKeepsFlow(t *testing.T) {
	f := newRouterFixture(t)
	f.press(callback.New(callback.FamilyCreate))
	f.text("bad")
	if f.session().Flow == nil {
		t.Fatal("validation error ended the flow")
	}
	if got := f.rec.Last().Text; got != "⚠️ Try again &lt;please&gt;" {
		t.Fatalf("reply = %q", got)
	}
}

func TestErrorReplies(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"not found", callback.New(callback.FamilyView, 99), msgNotFound},
		{"internal", callback.New(callback.Stats), msgApology},
		{"panic", callback.New(callback.Recent), msgApology},
		{"malformed", "nonsense:1", msgExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t)
			f.press(tt.data)
			if got := f.rec.Last().Text; got != tt.want {
				t.Fatalf("reply = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	f := newRouterFixture(t)
	f.command("nope")
	if got := f.rec.Last().Text; got != msgUnknownCommand {
		t.Fatalf("reply = %q", got)
	}
}

func TestAllowListAndRateLimit(t *testing.T) {
	f := newRouterFixture(t, WithAllowList(func(s Sender) bool { return s.ID == 2 }))
	f.command("start")
	if len(f.opened) != 0 || f.rec.Last().Text != msgAccessDenied {
		t.Fatalf("sender outside the allow-list was served: %v", f.opened)
	}

	f = newRouterFixture(t, WithRateLimiter(NewRateLimiter(1)))
	f.command("start")
	f.command("start")
	if len(f.opened) != 1 {
		t.Fatalf("opened %d screens, want 1", len(f.opened))
	}
	if f.rec.Last().Text != msgRateLimited {
		t.Fatalf("reply = %q", f.rec.Last().Text)
	}
}

func TestValidateReportsMissingHandlers(t *testing.T) {
	f := newRouterFixture(t)
	err := f.router.Validate(func(a callback.Action) bool {
		return a == callback.Home || a == callback.Templates
	})
	if err == nil || !strings.Contains(err.Error(), "tpls") {
		t.Fatalf("Validate() = %v", err)
	}
	if err := f.router.Validate(func(a callback.Action) bool { return a == callback.Home }); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestReplyEditsCallbackMessage(t *testing.T) {
	f := newRouterFixture(t)
	f.press(callback.New(callback.Home))
	if last := f.rec.Last(); !last.Edited || last.MessageID != 10 {
		t.Fatalf("callback reply = %+v, want an edit of message 10", last)
	}
	f.command("start")
	if last := f.rec.Last(); last.Edited {
		t.Fatal("command reply edited a message")
	}
}
