package admin

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/money"
	"github.com/Kerhoff/familybudget/internal/period"
	"github.com/Kerhoff/familybudget/internal/repository"
	"github.com/Kerhoff/familybudget/internal/service"
	"github.com/Kerhoff/familybudget/internal/telegram"
)

// topPeriods are the windows offered for rankings.
var topPeriods = []period.Period{period.Month, period.All}

func (h *Handler) stats(ctx context.Context, req *telegram.Request) error {
	s, err := h.svc.GlobalStats(ctx)
	if err != nil {
		return err
	}
	cur := currency()

	var b strings.Builder
	b.WriteString("📊 <b>Global statistics</b>\n\n")
	fmt.Fprintf(&b, "👨‍👩‍👧 Families: <b>%d</b>\n", s.Families)
	fmt.Fprintf(&b, "👤 Users: <b>%d</b>\n", s.Users)
	fmt.Fprintf(&b, "🔥 Active in the last 30 days: <b>%d</b>\n\n", s.ActiveFamilies)
	fmt.Fprintf(&b, "💸 Expenses, all time: <b>%s</b>\n", money.Format(s.TotalExpenses, cur))
	fmt.Fprintf(&b, "💰 Incomes, all time: <b>%s</b>\n", money.Format(s.TotalIncomes, cur))
	fmt.Fprintf(&b, "📉 Average expenses per family: %s\n", money.Format(s.AvgExpensePerFam, cur))
	fmt.Fprintf(&b, "📈 Average incomes per family: %s\n", money.Format(s.AvgIncomePerFam, cur))

	return req.Render(ctx, callback.New(callback.AdminStats), b.String(), keyboard(navRow()))
}

func (h *Handler) tops(ctx context.Context, req *telegram.Request) error {
	var rows [][]tgButton
	for _, kind := range models.Kinds {
		var buttons []tgButton
		for _, p := range topPeriods {
			label := fmt.Sprintf("%s %s · %s", kind.Icon(), kind.Title(), strings.ToLower(p.Title()))
			buttons = append(buttons, button(label, callback.AdminTop, string(kind), string(p)))
		}
		rows = append(rows, row(buttons...))
	}
	rows = append(rows, navRow())
	return req.Render(ctx, callback.New(callback.AdminTops), "🏆 <b>Top families</b>\n\nChoose a ranking:", keyboard(rows...))
}

func (h *Handler) top(ctx context.Context, req *telegram.Request) error {
	kind, err := models.ParseKind(req.Data.Arg(0))
	if err != nil {
		return fmt.Errorf("top ranking: %w", repository.ErrNotFound)
	}
	p, err := period.Parse(req.Data.Arg(1))
	if err != nil || (p != period.Month && p != period.All) {
		return fmt.Errorf("top ranking period %q: %w", req.Data.Arg(1), repository.ErrNotFound)
	}
	top, err := h.svc.TopFamilies(ctx, kind, p, h.loc)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 <b>Top %d by %s</b> · %s\n\n", service.TopLimit, strings.ToLower(kind.Title())+"s", strings.ToLower(p.Title()))
	if len(top) == 0 {
		b.WriteString("No records in this period.")
	}
	rows := make([][]tgButton, 0, len(top)+1)
	for i, t := range top {
		fmt.Fprintf(&b, "%d. %s · <b>%s</b>\n", i+1, html.EscapeString(t.Name), money.Format(t.Amount, currency()))
		rows = append(rows, row(button(fmt.Sprintf("%d. %s", i+1, t.Name), callback.AdminFamily, t.FamilyID)))
	}
	rows = append(rows, navRow())
	return req.Render(ctx, req.Data.String(), b.String(), keyboard(rows...))
}
