package admin

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/money"
	"github.com/Kerhoff/familybudget/internal/period"
	"github.com/Kerhoff/familybudget/internal/report"
	"github.com/Kerhoff/familybudget/internal/repository"
	"github.com/Kerhoff/familybudget/internal/service"
	"github.com/Kerhoff/familybudget/internal/telegram"
)

const (
	histogramBar  = 10
	topCategories = 5
)

func (h *Handler) families(ctx context.Context, req *telegram.Request) error {
	n, _ := req.Data.Int(0)
	page, err := h.svc.FamiliesPage(ctx, int(n))
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👨‍👩‍👧 <b>Families</b> · %d total\nPage %d of %d\n\n", page.Total, page.Page+1, page.Pages)
	if page.Total == 0 {
		b.WriteString("No families yet.")
	}
	rows := make([][]tgButton, 0, len(page.Families)+2)
	for _, f := range page.Families {
		fmt.Fprintf(&b, "• <b>%s</b> (#%d) · %d members · since %s\n", html.EscapeString(f.Name), f.ID, f.MembersCount, h.date(f.CreatedAt))
		rows = append(rows, row(button(fmt.Sprintf("%s (#%d)", f.Name, f.ID), callback.AdminFamily, f.ID)))
	}

	var pager []tgButton
	if page.Page > 0 {
		pager = append(pager, button("◀️ Previous", callback.AdminFamilies, page.Page-1))
	}
	if page.Page+1 < page.Pages {
		pager = append(pager, button("Next ▶️", callback.AdminFamilies, page.Page+1))
	}
	if len(pager) > 0 {
		rows = append(rows, row(pager...))
	}
	rows = append(rows, navRow())
	return req.Render(ctx, callback.New(callback.AdminFamilies, page.Page), b.String(), keyboard(rows...))
}

func (h *Handler) family(ctx context.Context, req *telegram.Request) error {
	id, ok := req.Data.Int(0)
	if !ok {
		return fmt.Errorf("admin family without id: %w", repository.ErrNotFound)
	}
	o, err := h.svc.FamilyOverview(ctx, id, h.loc)
	if err != nil {
		return err
	}
	return renderLong(ctx, req, callback.New(callback.AdminFamily, id), h.overview(o), keyboard(navRow()))
}

func (h *Handler) overview(o *service.FamilyOverview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏠 <b>%s</b> (#%d)\n", html.EscapeString(o.Family.Name), o.Family.ID)
	fmt.Fprintf(&b, "Created %s · invite code <code>%s</code>\n\n", h.date(o.Family.CreatedAt), o.Family.InviteCode)

	fmt.Fprintf(&b, "👥 <b>Members (%d)</b>\n", len(o.Members))
	for _, m := range o.Members {
		handle := ""
		if m.User.Username != "" {
			handle = " @" + html.EscapeString(m.User.Username)
		}
		fmt.Fprintf(&b, "• %s%s · %s · tg %d\n", html.EscapeString(m.User.DisplayName()), handle, m.Role.Title(), m.User.TelegramID)
	}

	for _, s := range []struct {
		title string
		stats *service.FamilyStats
	}{
		{period.Month.Title(), o.Month},
		{period.PreviousMonth.Title(), o.PrevMonth},
		{period.All.Title(), o.AllTime},
	} {
		fmt.Fprintf(&b, "\n📅 <b>%s</b>\n", s.title)
		writeBreakdown(&b, s.stats.Expenses)
		writeBreakdown(&b, s.stats.Incomes)
	}

	b.WriteString("\n📈 <b>Activity, last 12 months</b>\n")
	max := 0
	for _, m := range o.Histogram {
		if m.Count > max {
			max = m.Count
		}
	}
	for _, m := range o.Histogram {
		bar := report.TextBar(decimal.NewFromInt(int64(m.Count)), decimal.NewFromInt(int64(max)), histogramBar)
		fmt.Fprintf(&b, "<code>%s %d %s</code> %d\n", m.Month.String()[:3], m.Year, bar, m.Count)
	}

	b.WriteString("\n🧾 <b>Last records</b>\n")
	if len(o.Recent) == 0 {
		b.WriteString("Nothing recorded yet.\n")
	}
	for _, t := range o.Recent {
		fmt.Fprintf(&b, "%s %s · %s · %s · %s\n", t.Kind.Icon(), h.date(t.Date), money.Format(t.Amount, currency()),
			html.EscapeString(models.CategoryLabel(t.CategoryIcon, t.CategoryName)), html.EscapeString(t.UserName))
	}
	return b.String()
}

func writeBreakdown(b *strings.Builder, br service.Breakdown) {
	fmt.Fprintf(b, "%s %ss: <b>%s</b> (%d)\n", br.Kind.Icon(), br.Kind.Title(), money.Format(br.Total, currency()), br.Count)
	for i, c := range br.Categories {
		if i == topCategories {
			fmt.Fprintf(b, "    … and %d more\n", len(br.Categories)-topCategories)
			break
		}
		fmt.Fprintf(b, "    %s %s (%s)\n", html.EscapeString(models.CategoryLabel(c.Icon, c.Name)),
			money.Format(c.Amount, currency()), money.FormatPercent(c.Percent))
	}
}
