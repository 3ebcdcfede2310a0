package handlers

import (
	"context"
	"fmt"
	"html"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/navigation"
	"github.com/Kerhoff/familybudget/internal/telegram"
)

// StartHandler serves the main menu, the help screen and commands that
// only open a screen.
type StartHandler struct {
	*base
}

// screenCommands open a screen by name.
var screenCommands = map[string]callback.Action{
	"menu":       callback.Home,
	"help":       callback.Help,
	"expense":    callback.ExpenseAdd,
	"income":     callback.IncomeAdd,
	"recent":     callback.Recent,
	"search":     callback.Search,
	"stats":      callback.Stats,
	"report":     callback.Report,
	"families":   callback.Families,
	"categories": callback.Categories,
	"templates":  callback.Templates,
	"settings":   callback.Settings,
}

func (h *StartHandler) register(r *telegram.Router) {
	r.RegisterCommand("start", h.startCommand)
	r.RegisterCommand("cancel", h.cancelCommand)
	for command, action := range screenCommands {
		screen := callback.New(action)
		r.RegisterCommand(command, func(ctx context.Context, req *telegram.Request) error {
			return req.Open(ctx, screen)
		})
	}
	r.RegisterCallback(callback.Home, h.home)
	r.RegisterCallback(callback.Help, h.help)
	r.RegisterCallback(callback.Noop, func(context.Context, *telegram.Request) error { return nil })
}

// startCommand greets the user and opens the main menu.
func (h *StartHandler) startCommand(ctx context.Context, req *telegram.Request) error {
	req.Session.History.Clear()
	req.Notice = fmt.Sprintf("👋 <b>Welcome to Family Budget, %s!</b>\n\n"+
		"Track family expenses and incomes together: create a family, share the invite code "+
		"and every member sees the same statistics.", html.EscapeString(req.User.DisplayName()))

	h.logger.WithField("user_id", req.User.ID).Info("Sent start message")
	return req.Open(ctx, navigation.Home)
}

func (h *StartHandler) cancelCommand(ctx context.Context, req *telegram.Request) error {
	return done(ctx, req, "❌ Cancelled.")
}

func (h *StartHandler) home(ctx context.Context, req *telegram.Request) error {
	text := "🏠 <b>Main menu</b>\n\nWhat would you like to do?"
	return req.Render(ctx, navigation.Home, text, keyboard(
		row(button("➖ Expense", callback.ExpenseAdd), button("➕ Income", callback.IncomeAdd)),
		row(button("🧾 Recent", callback.Recent), button("🔍 Search", callback.Search)),
		row(button("📊 Statistics", callback.Stats), button("📄 Report", callback.Report)),
		row(button("⚡ Templates", callback.Templates), button("🗂 Categories", callback.Categories)),
		row(button("👨‍👩‍👧 Families", callback.Families), button("⚙️ Settings", callback.Settings)),
		row(button("❓ Help", callback.Help)),
	))
}

// text answers messages sent outside any flow.
func (h *StartHandler) text(ctx context.Context, req *telegram.Request) error {
	return req.Send(ctx, "🤔 I only understand buttons and commands. Use /start to open the menu.", telegram.HomeKeyboard())
}
