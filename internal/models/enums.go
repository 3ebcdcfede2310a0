package models

import (
	"database/sql/driver"
	"fmt"
)

// Role is a member's role inside a family.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ParseRole converts a stored string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleMember:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Title returns a human readable label for the role.
func (r Role) Title() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleMember:
		return "member"
	}
	panic(fmt.Sprintf("unhandled role %q", string(r)))
}

// Scan implements sql.Scanner.
func (r *Role) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	if _, err := ParseRole(string(r)); err != nil {
		return nil, err
	}
	return string(r), nil
}

// Kind tells expenses and incomes apart. Categories carry a Kind too and a
// transaction may only reference a category of the same Kind.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// Kinds lists every Kind in display order.
var Kinds = []Kind{KindExpense, KindIncome}

// ParseKind converts a stored string into a Kind, rejecting unknown values.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindExpense, KindIncome:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// Title returns a human readable, capitalised label.
func (k Kind) Title() string {
	switch k {
	case KindExpense:
		return "Expense"
	case KindIncome:
		return "Income"
	}
	panic(fmt.Sprintf("unhandled kind %q", string(k)))
}

// Icon returns the marker used in transaction lists.
func (k Kind) Icon() string {
	switch k {
	case KindExpense:
		return "📉"
	case KindIncome:
		return "📈"
	}
	panic(fmt.Sprintf("unhandled kind %q", string(k)))
}

// Scan implements sql.Scanner.
func (k *Kind) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Value implements driver.Valuer.
func (k Kind) Value() (driver.Value, error) {
	if _, err := ParseKind(string(k)); err != nil {
		return nil, err
	}
	return string(k), nil
}

// DateFormat is a user's preferred date rendering.
type DateFormat string

const (
	DateFormatDMY DateFormat = "DD.MM.YYYY"
	DateFormatMDY DateFormat = "MM/DD/YYYY"
	DateFormatISO DateFormat = "YYYY-MM-DD"
)

// DateFormats lists the supported formats in menu order.
var DateFormats = []DateFormat{DateFormatDMY, DateFormatMDY, DateFormatISO}

// ParseDateFormat converts a stored string into a DateFormat.
func ParseDateFormat(s string) (DateFormat, error) {
	switch DateFormat(s) {
	case DateFormatDMY, DateFormatMDY, DateFormatISO:
		return DateFormat(s), nil
	}
	return "", fmt.Errorf("unknown date format %q", s)
}

// Layout returns the time layout for the format.
func (f DateFormat) Layout() string {
	switch f {
	case DateFormatDMY:
		return "02.01.2006"
	case DateFormatMDY:
		return "01/02/2006"
	case DateFormatISO:
		return "2006-01-02"
	}
	return "02.01.2006"
}

func scanString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", fmt.Errorf("unexpected NULL")
	}
	return "", fmt.Errorf("unsupported type %T", src)
}
