package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/metrics"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/navigation"
	"github.com/Kerhoff/familybudget/internal/repository"
	"github.com/Kerhoff/familybudget/internal/session"
)

const (
	msgApology        = "❌ An error occurred while processing your request. Please try again."
	msgUnknownCommand = "❓ Unknown command. Use /help to see available commands."
	msgNotFound       = "🔍 Not found. It may have been deleted."
	msgExpired        = "⌛ This button is no longer active."
	msgRateLimited    = "⏳ Too many requests. Please slow down a little."
	msgAccessDenied   = "⛔ Access denied."
)

// UserEnsurer provisions users on first contact.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*models.User, error)
}

// Router handles message routing for one bot.
//
// Dispatch order: navigation (back, home, cancel) first, then commands,
// then screen callbacks from a table indexed by action. Flow input
// callbacks and plain text go to the active flow. Any command or screen
// callback ends the active flow.
type Router struct {
	name      string
	logger    *logrus.Logger
	msg       Messenger
	sessions  *session.Store
	users     UserEnsurer
	limiter   *RateLimiter
	allow     func(Sender) bool
	explain   func(error) (string, bool)
	commands  map[string]Handler
	callbacks [callback.Count]Handler
	flow      Handler
	text      Handler
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithUsers provisions a user for every event and fills Request.User.
func WithUsers(u UserEnsurer) RouterOption {
	return func(r *Router) { r.users = u }
}

// WithRateLimiter rejects events over the per-user limit.
func WithRateLimiter(l *RateLimiter) RouterOption {
	return func(r *Router) { r.limiter = l }
}

// WithAllowList rejects events from senders allow does not accept.
func WithAllowList(allow func(Sender) bool) RouterOption {
	return func(r *Router) { r.allow = allow }
}

// WithErrorExplainer turns domain errors into user-facing messages.
func WithErrorExplainer(explain func(error) (string, bool)) RouterOption {
	return func(r *Router) { r.explain = explain }
}

// NewRouter creates a new message router
func NewRouter(name string, logger *logrus.Logger, msg Messenger, sessions *session.Store, opts ...RouterOption) *Router {
	r := &Router{
		name:     name,
		logger:   logger,
		msg:      msg,
		sessions: sessions,
		commands: make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command string, h Handler) {
	r.commands[command] = h
	r.logger.Debugf("Registered command: %s", command)
}

// RegisterCallback binds the handler of a screen action.
func (r *Router) RegisterCallback(a callback.Action, h Handler) {
	r.callbacks[a] = h
}

// SetFlowHandler sets the handler of flow input: text and flow callbacks
// while a flow is active.
func (r *Router) SetFlowHandler(h Handler) {
	r.flow = h
}

// SetTextHandler sets the handler of text received outside any flow.
func (r *Router) SetTextHandler(h Handler) {
	r.text = h
}

// Validate reports every action for which required is true but no handler
// was registered. Flow input actions need the flow handler instead.
func (r *Router) Validate(required func(callback.Action) bool) error {
	var missing []string
	needFlow := false
	for i := 0; i < callback.Count; i++ {
		a := callback.Action(i)
		switch {
		case !required(a):
		case a.IsFlowInput():
			needFlow = true
		case r.callbacks[a] == nil:
			missing = append(missing, a.String())
		}
	}
	if needFlow && r.flow == nil {
		missing = append(missing, "flow input")
	}
	if len(missing) > 0 {
		return fmt.Errorf("no handler for: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Dispatch handles one event. It never panics and reports failures to the
// user as a short message.
func (r *Router) Dispatch(ctx context.Context, ev *Event) {
	if ev.TraceID == "" {
		ev.TraceID = uuid.NewString()
	}
	log := r.logger.WithFields(logrus.Fields{
		"trace_id": ev.TraceID,
		"bot":      r.name,
		"chat_id":  ev.ChatID,
		"user_id":  ev.From.ID,
		"kind":     ev.Kind.String(),
	})
	metrics.UpdatesTotal.WithLabelValues(r.name, ev.Kind.String()).Inc()

	if r.allow != nil && !r.allow(ev.From) {
		log.Warn("Rejected event from sender outside the allow-list")
		r.notify(ctx, ev, msgAccessDenied)
		return
	}
	if r.limiter != nil && !r.limiter.Allow(ev.From.ID) {
		metrics.RateLimited.Inc()
		log.Debug("Rate limited")
		r.notify(ctx, ev, msgRateLimited)
		return
	}
	if ev.Kind == EventCallback {
		if err := r.msg.AnswerCallback(ctx, ev.CallbackID, ""); err != nil {
			log.WithError(err).Debug("Failed to answer callback")
		}
	}

	sess, release := r.sessions.Acquire(session.Key{ChatID: ev.ChatID, UserID: ev.From.ID})
	defer release()

	req := &Request{Event: ev, Session: sess, Log: log, msg: r.msg}
	req.open = func(ctx context.Context, screen string) error {
		return r.open(ctx, req, screen)
	}

	defer func() {
		if p := recover(); p != nil {
			metrics.HandlerErrors.WithLabelValues(r.name, ev.Kind.String()).Inc()
			log.WithField("panic", p).Error("Panic in update handler")
			sess.End()
			r.send(ctx, req, msgApology)
		}
	}()

	if r.users != nil {
		user, err := r.users.EnsureUser(ctx, ev.From.ID, ev.From.Username, ev.From.FirstName, ev.From.LastName)
		if err != nil {
			r.fail(ctx, req, fmt.Errorf("ensure user: %w", err))
			return
		}
		req.User = user
	}

	if err := r.route(ctx, req); err != nil {
		r.fail(ctx, req, err)
	}
}

func (r *Router) route(ctx context.Context, req *Request) error {
	ev := req.Event
	switch ev.Kind {
	case EventCommand:
		req.Session.End()
		command := strings.ToLower(ev.Command)
		h, ok := r.commands[command]
		if !ok {
			req.Log.WithField("command", command).Warn("Unknown command")
			return req.Send(ctx, msgUnknownCommand, nil)
		}
		req.Log = req.Log.WithField("handler", "/"+command)
		return h(ctx, req)

	case EventText:
		if req.Session.Flow != nil {
			req.Log = req.Log.WithField("handler", req.Session.Flow.Name())
			return r.flow(ctx, req)
		}
		if r.text != nil {
			return r.text(ctx, req)
		}
		return nil

	case EventCallback:
		data, err := callback.Parse(ev.Data)
		if err != nil {
			req.Log.WithError(err).WithField("data", ev.Data).Warn("Malformed callback data")
			return req.Send(ctx, msgExpired, HomeKeyboard())
		}
		req.Data = data
		req.Log = req.Log.WithField("action", data.Action.String())
		return r.callback(ctx, req)
	}
	return nil
}

func (r *Router) callback(ctx context.Context, req *Request) error {
	sess := req.Session
	switch a := req.Data.Action; {
	case a == callback.Back:
		sess.End()
		return r.open(ctx, req, sess.History.Back())

	case a == callback.Home:
		sess.End()
		sess.History.Clear()
		return r.open(ctx, req, navigation.Home)

	case a == callback.Cancel:
		sess.End()
		screen, ok := sess.History.Current()
		if !ok {
			screen = navigation.Home
		}
		return r.open(ctx, req, screen)

	case a.IsFlowInput():
		if sess.Flow == nil || r.flow == nil {
			return req.Reply(ctx, msgExpired, HomeKeyboard())
		}
		req.Log = req.Log.WithField("handler", sess.Flow.Name())
		return r.flow(ctx, req)
	}

	sess.End()
	return r.handle(ctx, req)
}

// open renders screen. Unparseable screens fall back to home.
func (r *Router) open(ctx context.Context, req *Request, screen string) error {
	data, err := callback.Parse(screen)
	if err != nil {
		data = callback.Data{Action: callback.Home}
	}
	req.Data = data
	return r.handle(ctx, req)
}

func (r *Router) handle(ctx context.Context, req *Request) error {
	a := req.Data.Action
	h := r.callbacks[a]
	if h == nil {
		return fmt.Errorf("no handler for action %q", a.String())
	}
	req.Log = req.Log.WithField("handler", a.String())
	return h(ctx, req)
}

func (r *Router) fail(ctx context.Context, req *Request, err error) {
	var ve *flow.ValidationError
	switch {
	case errors.As(err, &ve):
		r.send(ctx, req, "⚠️ "+html.EscapeString(ve.Message))
		return
	case errors.Is(err, repository.ErrNotFound):
		req.Log.WithError(err).Info("Not found")
		if sendErr := req.Send(ctx, msgNotFound, HomeKeyboard()); sendErr != nil {
			req.Log.WithError(sendErr).Error("Failed to send reply")
		}
		return
	}
	if r.explain != nil {
		if text, ok := r.explain(err); ok {
			r.send(ctx, req, text)
			return
		}
	}

	metrics.HandlerErrors.WithLabelValues(r.name, req.Event.Kind.String()).Inc()
	req.Log.WithError(err).Error("Handler failed")
	req.Session.End()
	r.send(ctx, req, msgApology)
}

func (r *Router) send(ctx context.Context, req *Request, text string) {
	if err := req.Send(ctx, text, nil); err != nil {
		req.Log.WithError(err).Error("Failed to send reply")
	}
}

// notify answers before a session exists: a toast for callbacks, a message
// otherwise.
func (r *Router) notify(ctx context.Context, ev *Event, text string) {
	var err error
	if ev.Kind == EventCallback {
		err = r.msg.AnswerCallback(ctx, ev.CallbackID, text)
	} else {
		_, err = r.msg.SendMessage(ctx, ev.ChatID, text, nil)
	}
	if err != nil {
		r.logger.WithError(err).WithField("chat_id", ev.ChatID).Debug("Failed to notify sender")
	}
}
