// Package report renders monthly statistics as chat text and as a
// standalone HTML document. Everything here is a pure function of its input.
package report

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/money"
)

const (
	barLength          = 15
	detailLimit        = 10
	descriptionPreview = 50
	rule               = "━━━━━━━━━━━━━━━━━━━━━━"
)

// CategoryLine is one category of a report with its share of the total and
// the transactions behind it, newest first.
type CategoryLine struct {
	models.CategoryTotal
	Percent decimal.Decimal
	Items   []*models.Transaction
}

// Monthly is everything needed to render a report for one family and period.
type Monthly struct {
	Recipient   *models.User
	FamilyName  string
	Period      string
	Kind        models.Kind
	Total       decimal.Decimal
	Count       int
	Categories  []CategoryLine
	GeneratedAt time.Time
}

// MaxAmount returns the largest category total, used to scale bars.
func (m *Monthly) MaxAmount() decimal.Decimal {
	max := decimal.Zero
	for _, c := range m.Categories {
		if c.Amount.GreaterThan(max) {
			max = c.Amount
		}
	}
	return max
}

// TextBar draws value relative to max as a bar of length blocks.
func TextBar(value, max decimal.Decimal, length int) string {
	if !max.IsPositive() {
		return strings.Repeat("░", length)
	}
	ratio := value.Div(max)
	if ratio.GreaterThan(decimal.NewFromInt(1)) {
		ratio = decimal.NewFromInt(1)
	}
	if ratio.IsNegative() {
		ratio = decimal.Zero
	}
	filled := int(ratio.Mul(decimal.NewFromInt(int64(length))).IntPart())
	return strings.Repeat("█", filled) + strings.Repeat("░", length-filled)
}

// Summary renders the chat message of a monthly report in HTML markup.
func Summary(m *Monthly) string {
	cur := m.Recipient.CurrencySymbol()

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Monthly report for %s</b>\n", html.EscapeString(m.Period))
	fmt.Fprintf(&b, "🏠 <b>Family:</b> %s\n\n", html.EscapeString(m.FamilyName))
	fmt.Fprintf(&b, "💰 <b>Total %ss:</b> %s\n\n", strings.ToLower(m.Kind.Title()), money.Format(m.Total, cur))

	if m.Total.IsZero() || len(m.Categories) == 0 {
		fmt.Fprintf(&b, "✨ No %ss last month!\n\n", strings.ToLower(m.Kind.Title()))
	} else {
		b.WriteString("📈 <b>By category:</b>\n\n")
		max := m.MaxAmount()
		for _, c := range m.Categories {
			icon := c.Icon
			if icon == "" {
				icon = "•"
			}
			fmt.Fprintf(&b, "%s <b>%s</b>\n", icon, html.EscapeString(c.Name))
			fmt.Fprintf(&b, "💵 %s (%s)\n", money.Format(c.Amount, cur), money.FormatPercent(c.Percent))
			fmt.Fprintf(&b, "%s\n\n", TextBar(c.Amount, max, barLength))

			if len(c.Items) == 0 {
				continue
			}
			b.WriteString("📝 <i>Details:</i>\n")
			for i, t := range c.Items {
				if i == detailLimit {
					fmt.Fprintf(&b, "  <i>... and %d more</i>\n", len(c.Items)-detailLimit)
					break
				}
				fmt.Fprintf(&b, "  • %s: %s - %s\n",
					m.Recipient.FormatDate(t.Date),
					money.Format(t.Amount, cur),
					html.EscapeString(preview(t.Description)))
			}
			b.WriteString("\n")
		}

		b.WriteString(rule + "\n")
		b.WriteString("📊 <b>Share by category:</b>\n\n")
		hundred := decimal.NewFromInt(100)
		for _, c := range m.Categories {
			fmt.Fprintf(&b, "%s\n%s %s\n\n",
				html.EscapeString(models.CategoryLabel(c.Icon, c.Name)),
				TextBar(c.Percent, hundred, barLength),
				money.FormatPercent(c.Percent))
		}
	}

	b.WriteString(rule + "\n")
	b.WriteString("💡 <b>Commands:</b>\n")
	b.WriteString("/stats - Detailed statistics\n")
	b.WriteString("/report - Download the HTML report\n")
	b.WriteString("/start - Main menu")
	return b.String()
}

func preview(description string) string {
	if description == "" {
		return "—"
	}
	r := []rune(description)
	if len(r) > descriptionPreview {
		return string(r[:descriptionPreview-3]) + "..."
	}
	return description
}

// Filename builds a download name such as
// "family_Ivanov_Household_March_2024_20240401_090000.html".
func Filename(familyName, period string, at time.Time) string {
	return fmt.Sprintf("family_%s_%s_%s.html", safe(familyName), safe(period), at.Format("20060102_150405"))
}

func safe(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, strings.TrimSpace(s))
	if s == "" {
		return "report"
	}
	return s
}
