package models

import (
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Defaults applied to freshly provisioned users.
const (
	DefaultCurrency = "₽"
	DefaultTimezone = "Europe/Moscow"
)

// User represents a Telegram user in the system
type User struct {
	ID                          int64      `json:"id" db:"id"`
	TelegramID                  int64      `json:"telegram_id" db:"telegram_id"`
	Name                        string     `json:"name" db:"name"`
	Username                    string     `json:"username,omitempty" db:"username"`
	Currency                    string     `json:"currency" db:"currency"`
	Timezone                    string     `json:"timezone" db:"timezone"`
	DateFormat                  DateFormat `json:"date_format" db:"date_format"`
	MonthlySummaryEnabled       bool       `json:"monthly_summary_enabled" db:"monthly_summary_enabled"`
	MonthlySummaryTime          string     `json:"monthly_summary_time,omitempty" db:"monthly_summary_time"`
	LastMonthlySummarySent      *time.Time `json:"last_monthly_summary_sent,omitempty" db:"last_monthly_summary_sent"`
	ExpenseNotificationsEnabled bool       `json:"expense_notifications_enabled" db:"expense_notifications_enabled"`
	CreatedAt                   time.Time  `json:"created_at" db:"created_at"`
}

// DisplayName returns the best display name for the user
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "user " + strconv.FormatInt(u.TelegramID, 10)
}

// Location resolves the user's timezone, falling back to UTC.
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SummaryHour returns the hour component of MonthlySummaryTime. The boolean
// is false when no preference is stored or it cannot be parsed.
func (u *User) SummaryHour() (int, bool) {
	if u.MonthlySummaryTime == "" {
		return 0, false
	}
	h, _, ok := strings.Cut(u.MonthlySummaryTime, ":")
	if !ok {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

// CurrencySymbol returns the configured symbol or the default one.
func (u *User) CurrencySymbol() string {
	if u.Currency == "" {
		return DefaultCurrency
	}
	return u.Currency
}

// FormatDate renders t in the user's timezone and date format.
func (u *User) FormatDate(t time.Time) string {
	return t.In(u.Location()).Format(u.DateFormat.Layout())
}

// FormatDateTime renders t with the user's date format followed by HH:MM.
func (u *User) FormatDateTime(t time.Time) string {
	return t.In(u.Location()).Format(u.DateFormat.Layout() + " 15:04")
}
