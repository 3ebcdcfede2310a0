package flow

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/money"
)

// Field length limits.
const (
	MaxDescription  = 500
	MaxFamilyName   = 100
	MaxCategoryName = 50
	MaxTemplateName = 50
	MinSearchQuery  = 2
	MaxSearchQuery  = 100
)

// ValidationError carries a message that can be shown to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a user-facing validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var (
	invitePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)
	timePattern   = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// Amount validates a money amount.
func Amount(s string) (decimal.Decimal, error) {
	d, err := money.Parse(s)
	switch {
	case err == nil:
		return d, nil
	case errors.Is(err, money.ErrNotPositive):
		return decimal.Zero, invalid("The amount must be greater than zero.")
	case errors.Is(err, money.ErrTooLarge):
		return decimal.Zero, invalid("The amount is too large.")
	default:
		return decimal.Zero, invalid("Enter a number like 1500 or 1500,50 (at most two decimals).")
	}
}

// Description validates free text: not blank, bounded, no control characters
// other than newline and tab.
func Description(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid("The description cannot be empty.")
	}
	if utf8.RuneCountInString(s) > MaxDescription {
		return "", invalid("The description must be at most %d characters.", MaxDescription)
	}
	if hasControl(s, true) {
		return "", invalid("The description contains unsupported characters.")
	}
	return s, nil
}

// FamilyName validates a family name.
func FamilyName(s string) (string, error) {
	return name(s, MaxFamilyName, "family name")
}

// CategoryName validates a custom category name.
func CategoryName(s string) (string, error) {
	return name(s, MaxCategoryName, "category name")
}

// TemplateName validates a template name.
func TemplateName(s string) (string, error) {
	return name(s, MaxTemplateName, "template name")
}

func name(s string, max int, what string) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n == 0 || n > max {
		return "", invalid("The %s must be 1 to %d characters long.", what, max)
	}
	if hasControl(s, false) {
		return "", invalid("The %s contains unsupported characters.", what)
	}
	return s, nil
}

// InviteCode normalises and validates an invite code.
func InviteCode(s string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if len(code) != models.InviteCodeLength || !invitePattern.MatchString(code) {
		return "", invalid("An invite code is %d letters and digits, for example AB12CD34.", models.InviteCodeLength)
	}
	return code, nil
}

// SummaryTime validates "H:MM" or "HH:MM" and returns it as "HH:MM".
func SummaryTime(s string) (string, error) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", invalid("Send the time as HH:MM, for example 09:00.")
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if h > 23 || mm > 59 {
		return "", invalid("Send the time as HH:MM, for example 09:00.")
	}
	return fmt.Sprintf("%02d:%02d", h, mm), nil
}

// Timezone validates an IANA timezone name.
func Timezone(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "Local" {
		return "", invalid("Send a timezone such as Europe/Moscow.")
	}
	if _, err := time.LoadLocation(s); err != nil {
		return "", invalid("Unknown timezone %q. Try something like Europe/Moscow.", s)
	}
	return s, nil
}

// SearchQuery validates the text of a description search.
func SearchQuery(s string) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n < MinSearchQuery || n > MaxSearchQuery {
		return "", invalid("The search text must be %d to %d characters long.", MinSearchQuery, MaxSearchQuery)
	}
	if hasControl(s, false) {
		return "", invalid("The search text contains unsupported characters.")
	}
	return s, nil
}

func hasControl(s string, allowLineBreaks bool) bool {
	for _, r := range s {
		if allowLineBreaks && (r == '\n' || r == '\t') {
			continue
		}
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
