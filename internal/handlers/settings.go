package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/telegram"
)

// Currencies offered in settings.
var Currencies = []string{"₽", "$", "€", "₸", "₴", "£"}

// Timezones offered in settings; any other IANA name can be typed in.
var Timezones = []string{
	"Europe/Kaliningrad", "Europe/Moscow", "Europe/Samara", "Asia/Yekaterinburg",
	"Asia/Omsk", "Asia/Novosibirsk", "Asia/Irkutsk", "Asia/Vladivostok",
	"Europe/Kyiv", "Asia/Almaty", "Europe/London", "UTC",
}

const customTimezone = "other"

// SettingsHandler edits the user's preferences.
type SettingsHandler struct {
	*base
}

func (h *SettingsHandler) register(r *telegram.Router) {
	r.RegisterCallback(callback.Settings, h.show)
	r.RegisterCallback(callback.SetCurrency, h.currency)
	r.RegisterCallback(callback.SetTimezone, h.timezone)
	r.RegisterCallback(callback.SetDateFormat, h.dateFormat)
	r.RegisterCallback(callback.ToggleSummary, h.toggleSummary)
	r.RegisterCallback(callback.SetSummaryTime, h.summaryTime)
	r.RegisterCallback(callback.ToggleNotifications, h.toggleNotifications)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func (h *SettingsHandler) show(ctx context.Context, req *telegram.Request) error {
	u := req.User
	summary := onOff(u.MonthlySummaryEnabled)
	if u.MonthlySummaryEnabled && u.MonthlySummaryTime != "" {
		summary += ", at " + u.MonthlySummaryTime
	}

	var b strings.Builder
	b.WriteString("⚙️ <b>Settings</b>\n\n")
	fmt.Fprintf(&b, "💱 Currency: %s\n", html.EscapeString(u.CurrencySymbol()))
	fmt.Fprintf(&b, "🌍 Timezone: %s\n", html.EscapeString(u.Location().String()))
	fmt.Fprintf(&b, "📅 Date format: %s\n", u.DateFormat)
	fmt.Fprintf(&b, "📬 Monthly summary: %s\n", summary)
	fmt.Fprintf(&b, "🔔 Expense notifications: %s\n", onOff(u.ExpenseNotificationsEnabled))

	return req.Render(ctx, callback.New(callback.Settings), b.String(), keyboard(
		row(button("💱 Currency", callback.SetCurrency), button("🌍 Timezone", callback.SetTimezone)),
		row(button("📅 Date format", callback.SetDateFormat), button("⏰ Summary time", callback.SetSummaryTime)),
		row(button("📬 Summary: "+onOff(u.MonthlySummaryEnabled), callback.ToggleSummary)),
		row(button("🔔 Notifications: "+onOff(u.ExpenseNotificationsEnabled), callback.ToggleNotifications)),
		navRow(),
	))
}

// save stores the changed copy of the user and goes back to the settings
// screen, dropping the option screen the change was made on.
func (h *SettingsHandler) save(ctx context.Context, req *telegram.Request, u models.User, notice string) error {
	if err := h.svc.UpdateSettings(ctx, &u); err != nil {
		return err
	}
	req.User = &u
	req.Session.End()
	if screen, ok := req.Session.History.Current(); ok && screen != callback.New(callback.Settings) {
		req.Session.History.Pop()
	}
	req.Notice = notice
	return h.show(ctx, req)
}

func (h *SettingsHandler) currency(ctx context.Context, req *telegram.Request) error {
	if cur := req.Data.Arg(0); cur != "" {
		for _, c := range Currencies {
			if c == cur {
				u := *req.User
				u.Currency = cur
				return h.save(ctx, req, u, "✅ Currency set to "+html.EscapeString(cur)+".")
			}
		}
		return errUseButtons
	}
	buttons := make([]tgButton, 0, len(Currencies))
	for _, c := range Currencies {
		buttons = append(buttons, button(c, callback.SetCurrency, c))
	}
	rows := append(grid(buttons, 3), navRow())
	return req.Render(ctx, callback.New(callback.SetCurrency), "💱 Choose the currency symbol:", keyboard(rows...))
}

func (h *SettingsHandler) timezone(ctx context.Context, req *telegram.Request) error {
	switch tz := req.Data.Arg(0); tz {
	case "":
	case customTimezone:
		req.Session.Begin(flow.SettingsEdit{Field: flow.FieldTimezone})
		return req.Reply(ctx, "🌍 Send a timezone name, for example <code>Asia/Tbilisi</code>.", cancelKeyboard())
	default:
		name, err := flow.Timezone(tz)
		if err != nil {
			return err
		}
		u := *req.User
		u.Timezone = name
		return h.save(ctx, req, u, "✅ Timezone set to "+html.EscapeString(name)+".")
	}

	buttons := make([]tgButton, 0, len(Timezones))
	for _, tz := range Timezones {
		buttons = append(buttons, button(tz, callback.SetTimezone, tz))
	}
	rows := append(grid(buttons, 2), row(button("✏️ Other…", callback.SetTimezone, customTimezone)), navRow())
	return req.Render(ctx, callback.New(callback.SetTimezone), "🌍 Choose your timezone:", keyboard(rows...))
}

func (h *SettingsHandler) dateFormat(ctx context.Context, req *telegram.Request) error {
	if arg := req.Data.Arg(0); arg != "" {
		f, err := models.ParseDateFormat(arg)
		if err != nil {
			return errUseButtons
		}
		u := *req.User
		u.DateFormat = f
		return h.save(ctx, req, u, "✅ Date format set to "+string(f)+".")
	}
	now := h.svc.Now().In(req.User.Location())
	rows := make([][]tgButton, 0, len(models.DateFormats)+1)
	for _, f := range models.DateFormats {
		rows = append(rows, row(button(fmt.Sprintf("%s (%s)", f, now.Format(f.Layout())), callback.SetDateFormat, string(f))))
	}
	rows = append(rows, navRow())
	return req.Render(ctx, callback.New(callback.SetDateFormat), "📅 Choose the date format:", keyboard(rows...))
}

func (h *SettingsHandler) toggleSummary(ctx context.Context, req *telegram.Request) error {
	u := *req.User
	u.MonthlySummaryEnabled = !u.MonthlySummaryEnabled
	notice := "📬 Monthly summary turned off."
	if u.MonthlySummaryEnabled {
		notice = "📬 Monthly summary turned on. It arrives on the 1st of every month."
	}
	return h.save(ctx, req, u, notice)
}

func (h *SettingsHandler) toggleNotifications(ctx context.Context, req *telegram.Request) error {
	u := *req.User
	u.ExpenseNotificationsEnabled = !u.ExpenseNotificationsEnabled
	return h.save(ctx, req, u, "🔔 Expense notifications turned "+onOff(u.ExpenseNotificationsEnabled)+".")
}

func (h *SettingsHandler) summaryTime(ctx context.Context, req *telegram.Request) error {
	req.Session.Begin(flow.SettingsEdit{Field: flow.FieldSummaryTime})
	return req.Reply(ctx, "⏰ Send the time for the monthly summary as HH:MM, for example <code>09:00</code>.\n"+
		"<i>The summary is sent during that hour.</i>", cancelKeyboard())
}

func (h *SettingsHandler) editInput(ctx context.Context, req *telegram.Request, st flow.SettingsEdit) error {
	text, ok := textInput(req)
	if !ok {
		return errSendText
	}
	u := *req.User
	switch st.Field {
	case flow.FieldTimezone:
		name, err := flow.Timezone(text)
		if err != nil {
			return err
		}
		u.Timezone = name
		return h.save(ctx, req, u, "✅ Timezone set to "+html.EscapeString(name)+".")
	case flow.FieldSummaryTime:
		t, err := flow.SummaryTime(text)
		if err != nil {
			return err
		}
		u.MonthlySummaryTime = t
		return h.save(ctx, req, u, "✅ Monthly summary time set to "+t+".")
	}
	return fmt.Errorf("settings: unexpected field %d", st.Field)
}
