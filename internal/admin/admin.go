// Package admin implements the read-only screens of the administrator bot.
package admin

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/navigation"
	"github.com/Kerhoff/familybudget/internal/service"
	"github.com/Kerhoff/familybudget/internal/telegram"
)

const dateLayout = "02.01.2006"

type tgButton = tgbotapi.InlineKeyboardButton

// Handler serves the administrator bot. Amounts are shown in the default
// currency and dates in loc.
type Handler struct {
	svc    *service.Service
	loc    *time.Location
	logger *logrus.Logger
}

// New creates the administrator handlers.
func New(svc *service.Service, loc *time.Location, logger *logrus.Logger) *Handler {
	return &Handler{svc: svc, loc: loc, logger: logger}
}

// Required reports whether the administrator bot must serve a.
func Required(a callback.Action) bool {
	return a.IsAdmin() || a == callback.Home || a == callback.Cancel
}

// Register binds the administrator screens to r.
func (h *Handler) Register(r *telegram.Router) error {
	r.RegisterCommand("start", h.start)
	for command, action := range map[string]callback.Action{
		"stats":    callback.AdminStats,
		"families": callback.AdminFamilies,
		"search":   callback.AdminSearch,
		"top":      callback.AdminTops,
	} {
		screen := callback.New(action)
		r.RegisterCommand(command, func(ctx context.Context, req *telegram.Request) error {
			return req.Open(ctx, screen)
		})
	}

	r.RegisterCallback(callback.Home, h.home)
	r.RegisterCallback(callback.AdminStats, h.stats)
	r.RegisterCallback(callback.AdminFamilies, h.families)
	r.RegisterCallback(callback.AdminFamily, h.family)
	r.RegisterCallback(callback.AdminSearch, h.searchModes)
	r.RegisterCallback(callback.AdminSearchMode, h.search)
	r.RegisterCallback(callback.AdminTops, h.tops)
	r.RegisterCallback(callback.AdminTop, h.top)
	r.SetFlowHandler(h.searchInput)
	r.SetTextHandler(func(ctx context.Context, req *telegram.Request) error {
		return req.Send(ctx, "Use /start to open the admin panel.", telegram.HomeKeyboard())
	})
	return r.Validate(Required)
}

func (h *Handler) start(ctx context.Context, req *telegram.Request) error {
	req.Session.History.Clear()
	h.logger.WithField("telegram_id", req.Event.From.ID).Info("Admin panel opened")
	return req.Open(ctx, navigation.Home)
}

func (h *Handler) home(ctx context.Context, req *telegram.Request) error {
	return req.Render(ctx, navigation.Home, "🛡 <b>Admin panel</b>\n\nRead-only view of every family.", keyboard(
		row(button("📊 Global stats", callback.AdminStats), button("👨‍👩‍👧 Families", callback.AdminFamilies, 0)),
		row(button("🔍 Search", callback.AdminSearch), button("🏆 Top families", callback.AdminTops)),
	))
}

// renderLong renders screen, splitting text over several messages when it
// exceeds the message limit. The keyboard goes with the last part.
func renderLong(ctx context.Context, req *telegram.Request, screen, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	parts := telegram.SplitMessage(text, telegram.MaxMessageLength)
	if len(parts) == 0 {
		parts = []string{text}
	}
	last := len(parts) - 1
	first := kb
	if last > 0 {
		first = nil
	}
	if err := req.Render(ctx, screen, parts[0], first); err != nil {
		return err
	}
	for i := 1; i <= last; i++ {
		var markup *tgbotapi.InlineKeyboardMarkup
		if i == last {
			markup = kb
		}
		if err := req.Send(ctx, parts[i], markup); err != nil {
			return fmt.Errorf("failed to send part %d: %w", i+1, err)
		}
	}
	return nil
}

func (h *Handler) date(t time.Time) string {
	return t.In(h.loc).Format(dateLayout)
}

func currency() string {
	return models.DefaultCurrency
}

func button(text string, a callback.Action, args ...any) tgButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, callback.New(a, args...))
}

func row(buttons ...tgButton) []tgButton {
	return tgbotapi.NewInlineKeyboardRow(buttons...)
}

func keyboard(rows ...[]tgButton) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func navRow() []tgButton {
	return row(button("⬅️ Back", callback.Back), button("🏠 Home", callback.Home))
}
