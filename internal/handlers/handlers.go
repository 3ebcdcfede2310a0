// Package handlers implements the screens and input flows of the main bot.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/navigation"
	"github.com/Kerhoff/familybudget/internal/repository"
	"github.com/Kerhoff/familybudget/internal/service"
	"github.com/Kerhoff/familybudget/internal/telegram"
)

// reportInterval paces the parts of an on-demand report.
const reportInterval = 100 * time.Millisecond

var (
	errUseButtons = &flow.ValidationError{Message: "Please choose one of the buttons above."}
	errSendText   = &flow.ValidationError{Message: "Please send the value as a message."}
)

// base carries what every handler needs.
type base struct {
	svc    *service.Service
	logger *logrus.Logger
}

// Handlers groups the handlers of the main bot.
type Handlers struct {
	start        *StartHandler
	families     *FamilyHandler
	transactions *TransactionHandler
	stats        *StatsHandler
	categories   *CategoryHandler
	templates    *TemplateHandler
	settings     *SettingsHandler
}

// New creates the handlers of the main bot. msg is used for uploads and
// paced multi-part messages.
func New(svc *service.Service, msg telegram.Messenger, logger *logrus.Logger) *Handlers {
	b := &base{svc: svc, logger: logger}
	return &Handlers{
		start:        &StartHandler{base: b},
		families:     &FamilyHandler{base: b},
		transactions: &TransactionHandler{base: b},
		stats:        &StatsHandler{base: b, sender: telegram.NewChunkedSender(msg, reportInterval)},
		categories:   &CategoryHandler{base: b},
		templates:    &TemplateHandler{base: b},
		settings:     &SettingsHandler{base: b},
	}
}

// Register binds every command, screen and flow to r and checks that no
// screen of the main bot is left without a handler.
func (h *Handlers) Register(r *telegram.Router) error {
	h.start.register(r)
	h.families.register(r)
	h.transactions.register(r)
	h.stats.register(r)
	h.categories.register(r)
	h.templates.register(r)
	h.settings.register(r)
	r.SetFlowHandler(h.handleFlow)
	r.SetTextHandler(h.start.text)
	return r.Validate(Required)
}

// Required reports whether the main bot must serve a.
func Required(a callback.Action) bool {
	return a != callback.Unknown && a != callback.Back && !a.IsAdmin()
}

// ExplainError turns rule violations into user-facing messages.
func ExplainError(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		return "⛔ Only a family admin can do that.", true
	case errors.Is(err, service.ErrLastAdmin):
		return "⚠️ You are the last admin of this family. Make someone else an admin or delete the family instead.", true
	case errors.Is(err, service.ErrRemoveSelf):
		return "⚠️ You cannot remove yourself. Use “Leave family” instead.", true
	case errors.Is(err, service.ErrCategoryKindMismatch), errors.Is(err, service.ErrCategoryScope):
		return "⚠️ This category cannot be used here. Choose another one.", true
	case errors.Is(err, service.ErrDefaultCategory):
		return "⚠️ Default categories cannot be changed.", true
	case errors.Is(err, service.ErrInvalidInviteCode):
		return "❌ No family has this invite code. Check it and send it again.", true
	case errors.Is(err, repository.ErrAlreadyMember):
		return "ℹ️ You are already a member of this family.", true
	case errors.Is(err, repository.ErrDuplicate):
		return "⚠️ A category with this name already exists. Send another name.", true
	case errors.Is(err, repository.ErrCategoryInUse):
		return "⚠️ This category is still used by some records.", true
	}
	return "", false
}

// done finishes the active flow and re-renders the screen it was started
// from with notice on top.
func done(ctx context.Context, req *telegram.Request, notice string) error {
	req.Session.End()
	req.Notice = notice
	screen, ok := req.Session.History.Current()
	if !ok {
		screen = navigation.Home
	}
	return req.Open(ctx, screen)
}

// textInput returns the text of a text event.
func textInput(req *telegram.Request) (string, bool) {
	if req.Event.Kind != telegram.EventText {
		return "", false
	}
	return req.Event.Text, true
}

// familyArg returns the family id carried in argument i.
func familyArg(req *telegram.Request, i int) (int64, error) {
	id, ok := req.Data.Int(i)
	if !ok {
		return 0, fmt.Errorf("callback %s without family: %w", req.Data.Action, repository.ErrNotFound)
	}
	return id, nil
}

// withFamily serves a family-scoped screen. The family comes from the
// first argument, is the user's only family, or is picked on a screen
// listing the user's families.
func (b *base) withFamily(ctx context.Context, req *telegram.Request, title string, fn func(familyID int64) error) error {
	if id, ok := req.Data.Int(0); ok {
		return fn(id)
	}
	families, err := b.svc.Families(ctx, req.User.ID)
	if err != nil {
		return err
	}
	switch len(families) {
	case 0:
		return renderNoFamilies(ctx, req)
	case 1:
		return fn(families[0].ID)
	}

	rows := make([][]tgButton, 0, len(families)+1)
	for _, f := range families {
		rows = append(rows, row(button("🏠 "+f.Name, req.Data.Action, f.ID)))
	}
	rows = append(rows, navRow())
	text := fmt.Sprintf("%s\n\nChoose a family:", title)
	return req.Render(ctx, callback.New(req.Data.Action), text, keyboard(rows...))
}

func renderNoFamilies(ctx context.Context, req *telegram.Request) error {
	text := "👨‍👩‍👧 <b>You are not in a family yet</b>\n\n" +
		"Create a family and share its invite code, or join one with a code you received."
	return req.Render(ctx, callback.New(callback.Families), text, keyboard(
		row(button("➕ Create family", callback.FamilyCreate), button("🔗 Join family", callback.FamilyJoin)),
		row(homeButton()),
	))
}

// categoryLabel renders a category for a message.
func categoryLabel(icon, name string) string {
	return html.EscapeString(models.CategoryLabel(icon, name))
}
