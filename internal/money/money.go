// Package money parses user-entered amounts and renders stored ones.
//
// Amounts are shopspring decimals end to end. Rounding happens only when a
// value is rendered for display.
package money

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalid     = errors.New("amount must be a number with at most two decimal places")
	ErrNotPositive = errors.New("amount must be greater than zero")
	ErrTooLarge    = errors.New("amount is too large")
)

// Max is the largest amount a NUMERIC(12,2) column can hold.
var Max = decimal.RequireFromString("9999999999.99")

var (
	amountPattern = regexp.MustCompile(`^\d{1,10}(\.\d{1,2})?$`)
	hundred       = decimal.NewFromInt(100)

	// Characters accepted as thousands separators and dropped before parsing.
	separators = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "'", "", "_", "")
)

// Parse converts user input such as "1 500,50" or "1500.5" into an exact
// decimal. Both "," and "." are accepted as the decimal point.
func Parse(input string) (decimal.Decimal, error) {
	s := separators.Replace(strings.TrimSpace(input))
	s = strings.ReplaceAll(s, ",", ".")
	if !amountPattern.MatchString(s) {
		return decimal.Zero, ErrInvalid
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalid
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrNotPositive
	}
	if d.GreaterThan(Max) {
		return decimal.Zero, ErrTooLarge
	}
	return d, nil
}

// Format renders d with two decimals, a space between thousands and a comma
// as decimal point, followed by the currency symbol: "1 500,50 ₽".
func Format(d decimal.Decimal, currency string) string {
	s := d.StringFixed(2)

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)

	if currency != "" {
		b.WriteByte(' ')
		b.WriteString(currency)
	}
	return b.String()
}

// Percent returns part as a percentage of total. A zero total yields zero.
func Percent(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(hundred)
}

// FormatPercent renders a percentage with one decimal: "12.5%".
func FormatPercent(p decimal.Decimal) string {
	return p.StringFixed(1) + "%"
}

// Sum adds up the amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
