package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/money"
)

var document = template.Must(template.New("report").Parse(documentHTML))

type documentRow struct {
	Label   string
	Amount  string
	Percent string
	Width   string
	Count   int
	Items   []documentItem
}

type documentItem struct {
	Date        string
	Description string
	Amount      string
}

type documentData struct {
	Title       string
	Family      string
	Period      string
	KindTitle   string
	Total       string
	Count       int
	Rows        []documentRow
	GeneratedAt string
}

// Document renders the report as a self-contained HTML page.
func Document(m *Monthly) ([]byte, error) {
	cur := m.Recipient.CurrencySymbol()
	max := m.MaxAmount()

	data := documentData{
		Title:       fmt.Sprintf("Monthly %ss - %s", m.Kind, m.FamilyName),
		Family:      m.FamilyName,
		Period:      m.Period,
		KindTitle:   m.Kind.Title(),
		Total:       money.Format(m.Total, cur),
		Count:       m.Count,
		GeneratedAt: m.Recipient.FormatDateTime(m.GeneratedAt),
	}
	for _, c := range m.Categories {
		width := decimal.Zero
		if max.IsPositive() {
			width = c.Amount.Div(max).Mul(decimal.NewFromInt(100))
		}
		row := documentRow{
			Label:   models.CategoryLabel(c.Icon, c.Name),
			Amount:  money.Format(c.Amount, cur),
			Percent: money.FormatPercent(c.Percent),
			Width:   width.StringFixed(1),
			Count:   c.Count,
		}
		for _, t := range c.Items {
			desc := t.Description
			if desc == "" {
				desc = "—"
			}
			row.Items = append(row.Items, documentItem{
				Date:        m.Recipient.FormatDate(t.Date),
				Description: desc,
				Amount:      money.Format(t.Amount, cur),
			})
		}
		data.Rows = append(data.Rows, row)
	}

	var buf bytes.Buffer
	if err := document.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

const documentHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: -apple-system, "Segoe UI", Roboto, Arial, sans-serif; background: #F5F5F5; color: #2C3E50; padding: 24px; }
.container { max-width: 820px; margin: 0 auto; background: #FFFFFF; border: 1px solid #DDDDDD; border-radius: 8px; padding: 32px; }
h1 { color: #FF6633; font-size: 28px; margin-bottom: 16px; }
h2 { font-size: 20px; margin: 24px 0 12px; border-bottom: 2px solid #FF6633; padding-bottom: 4px; }
.info p { margin: 4px 0; }
.total { font-size: 20px; margin-top: 8px; }
.bar { margin: 10px 0; }
.bar-label { display: flex; justify-content: space-between; font-size: 14px; }
.bar-track { background: #F5F5F5; border-radius: 4px; height: 18px; overflow: hidden; }
.bar-fill { background: #FF6633; height: 100%; }
.category { border: 1px solid #DDDDDD; border-radius: 6px; padding: 12px; margin: 12px 0; }
.category-head { font-weight: bold; font-size: 16px; }
.muted { color: #7F8C8D; font-size: 13px; }
.item { display: flex; gap: 12px; font-size: 13px; padding: 4px 0; border-top: 1px dashed #DDDDDD; }
.item .date { width: 90px; }
.item .desc { flex: 1; }
.footer { margin-top: 32px; font-size: 12px; color: #7F8C8D; text-align: center; }
</style>
</head>
<body>
<div class="container">
<h1>Monthly {{.KindTitle}} Report</h1>
<div class="info">
<p><strong>Family:</strong> {{.Family}}</p>
<p><strong>Period:</strong> {{.Period}}</p>
<p class="total"><strong>Total:</strong> {{.Total}} ({{.Count}} records)</p>
</div>
{{if .Rows}}
<h2>Overview</h2>
{{range .Rows}}
<div class="bar">
<div class="bar-label"><span>{{.Label}}</span><span>{{.Amount}} ({{.Percent}})</span></div>
<div class="bar-track"><div class="bar-fill" style="width: {{.Width}}%"></div></div>
</div>
{{end}}
<h2>By category</h2>
{{range .Rows}}
<div class="category">
<div class="category-head">{{.Label}}</div>
<div>{{.Amount}}</div>
<div class="muted">{{.Percent}} of total, {{.Count}} records</div>
{{range .Items}}
<div class="item"><span class="date">{{.Date}}</span><span class="desc">{{.Description}}</span><span>{{.Amount}}</span></div>
{{end}}
</div>
{{end}}
{{else}}
<p>No records for this period.</p>
{{end}}
<div class="footer">
<p>Generated {{.GeneratedAt}}</p>
<p>Family Budget Bot</p>
</div>
</div>
</body>
</html>
`
