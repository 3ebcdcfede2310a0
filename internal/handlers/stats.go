package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/money"
	"github.com/Kerhoff/familybudget/internal/period"
	"github.com/Kerhoff/familybudget/internal/report"
	"github.com/Kerhoff/familybudget/internal/service"
	"github.com/Kerhoff/familybudget/internal/telegram"
)

const statsBarLength = 12

// StatsHandler serves statistics and the on-demand monthly report.
type StatsHandler struct {
	*base
	sender *telegram.ChunkedSender
}

func (h *StatsHandler) register(r *telegram.Router) {
	r.RegisterCallback(callback.Stats, h.periods)
	r.RegisterCallback(callback.StatsPeriod, h.show)
	r.RegisterCallback(callback.StatsRange, h.askRange)
	r.RegisterCallback(callback.Report, h.report)
}

func (h *StatsHandler) periods(ctx context.Context, req *telegram.Request) error {
	return h.withFamily(ctx, req, "📊 <b>Statistics</b>", func(familyID int64) error {
		card, err := h.svc.Family(ctx, req.User.ID, familyID)
		if err != nil {
			return err
		}
		buttons := make([]tgButton, 0, len(period.Selectable))
		for _, p := range period.Selectable {
			buttons = append(buttons, button(p.Title(), callback.StatsPeriod, familyID, string(p)))
		}
		rows := grid(buttons, 2)
		rows = append(rows, row(button("📅 Custom range", callback.StatsRange, familyID)), navRow())

		text := fmt.Sprintf("📊 <b>Statistics</b> · %s\n\nChoose a period:", html.EscapeString(card.Family.Name))
		return req.Render(ctx, callback.New(callback.Stats, familyID), text, keyboard(rows...))
	})
}

func (h *StatsHandler) show(ctx context.Context, req *telegram.Request) error {
	familyID, err := familyArg(req, 0)
	if err != nil {
		return err
	}
	p, err := period.Parse(req.Data.Arg(1))
	if err != nil || p == period.Custom {
		return fmt.Errorf("stats period %q: %w", req.Data.Arg(1), errUseButtons)
	}
	rng, err := period.Resolve(p, h.svc.Now(), req.User.Location())
	if err != nil {
		return err
	}
	stats, err := h.svc.Stats(ctx, req.User.ID, familyID, rng)
	if err != nil {
		return err
	}
	return req.Render(ctx, req.Data.String(), formatStats(req.User, stats, p.Title()), keyboard(navRow()))
}

func (h *StatsHandler) askRange(ctx context.Context, req *telegram.Request) error {
	familyID, err := familyArg(req, 0)
	if err != nil {
		return err
	}
	if _, err := h.svc.Family(ctx, req.User.ID, familyID); err != nil {
		return err
	}
	req.Session.Begin(flow.StatsRange{FamilyID: familyID})
	layout := req.User.DateFormat.Layout()
	now := h.svc.Now().In(req.User.Location())
	example := now.AddDate(0, 0, 1-now.Day()).Format(layout) + "-" + now.Format(layout)
	text := fmt.Sprintf("📅 Send the range as <code>%s-%s</code>, for example <code>%s</code>.",
		req.User.DateFormat, req.User.DateFormat, example)
	return req.Reply(ctx, text, cancelKeyboard())
}

func (h *StatsHandler) rangeInput(ctx context.Context, req *telegram.Request, st flow.StatsRange) error {
	text, ok := textInput(req)
	if !ok {
		return errSendText
	}
	rng, err := period.ParseBetween(text, req.User.DateFormat.Layout(), req.User.Location())
	if err != nil {
		return &flow.ValidationError{Message: fmt.Sprintf(
			"Send two dates as %s-%s, the first not after the second.", req.User.DateFormat, req.User.DateFormat)}
	}
	stats, err := h.svc.Stats(ctx, req.User.ID, st.FamilyID, rng)
	if err != nil {
		return err
	}
	req.Session.End()
	return req.Send(ctx, formatStats(req.User, stats, period.Custom.Title()), keyboard(navRow()))
}

// formatStats renders the statistics screen.
func formatStats(viewer *models.User, s *service.FamilyStats, title string) string {
	cur := viewer.CurrencySymbol()

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Statistics</b> · %s\n", html.EscapeString(s.Family.Name))
	fmt.Fprintf(&b, "📅 %s", title)
	if !s.Range.Start.IsZero() && !s.Range.End.IsZero() {
		fmt.Fprintf(&b, " (%s – %s)", viewer.FormatDate(s.Range.Start), viewer.FormatDate(s.Range.End.AddDate(0, 0, -1)))
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "📉 <b>Expenses:</b> %s (%d)\n", money.Format(s.Expenses.Total, cur), s.Expenses.Count)
	fmt.Fprintf(&b, "📈 <b>Incomes:</b> %s (%d)\n", money.Format(s.Incomes.Total, cur), s.Incomes.Count)
	fmt.Fprintf(&b, "💰 <b>Balance:</b> %s\n", money.Format(s.Balance(), cur))

	for _, bd := range []service.Breakdown{s.Expenses, s.Incomes} {
		if bd.Count == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n<b>%ss by category:</b>\n", bd.Kind.Title())
		max := decimal.Zero
		for _, c := range bd.Categories {
			max = decimal.Max(max, c.Amount)
		}
		for _, c := range bd.Categories {
			fmt.Fprintf(&b, "%s · %s (%s)\n%s\n", categoryLabel(c.Icon, c.Name),
				money.Format(c.Amount, cur), money.FormatPercent(c.Percent), report.TextBar(c.Amount, max, statsBarLength))
		}
		fmt.Fprintf(&b, "\n<b>%ss by member:</b>\n", bd.Kind.Title())
		for _, u := range bd.Users {
			fmt.Fprintf(&b, "👤 %s · %s (%s)\n", html.EscapeString(u.Name), money.Format(u.Amount, cur), money.FormatPercent(u.Percent))
		}
	}
	return b.String()
}

// report sends last month's report of a family: the summary text and,
// when there is anything to show, the HTML document.
func (h *StatsHandler) report(ctx context.Context, req *telegram.Request) error {
	return h.withFamily(ctx, req, "📄 <b>Monthly report</b>", func(familyID int64) error {
		m, err := h.svc.ReportFor(ctx, req.User, familyID)
		if err != nil {
			return err
		}
		if err := h.sender.Send(ctx, req.ChatID(), report.Summary(m)); err != nil {
			return err
		}
		if m.Total.IsZero() {
			return nil
		}

		doc, err := report.Document(m)
		if err != nil {
			return err
		}
		if err := h.sender.Wait(ctx); err != nil {
			return err
		}
		name := report.Filename(m.FamilyName, m.Period, m.GeneratedAt)
		if err := req.Messenger().SendDocument(ctx, req.ChatID(), name, doc, "📎 Detailed report for "+html.EscapeString(m.Period)); err != nil {
			req.Log.WithError(err).Warn("Failed to send report document")
			return req.Send(ctx, "⚠️ The detailed report could not be sent. Please try again later.", nil)
		}
		h.logger.WithField("family_id", familyID).Info("Sent monthly report on demand")
		return nil
	})
}
