package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an expense or an income, depending on Kind.
type Transaction struct {
	ID          int64           `json:"id" db:"id"`
	Kind        Kind            `json:"kind"`
	UserID      int64           `json:"user_id" db:"user_id"`
	FamilyID    int64           `json:"family_id" db:"family_id"`
	CategoryID  int64           `json:"category_id" db:"category_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description string          `json:"description,omitempty" db:"description"`
	Date        time.Time       `json:"date" db:"date"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`

	// Filled by list queries.
	CategoryName string `json:"category_name,omitempty"`
	CategoryIcon string `json:"category_icon,omitempty"`
	UserName     string `json:"user_name,omitempty"`
}

// Template is a named shortcut for a recurring expense.
type Template struct {
	ID          int64           `json:"id" db:"id"`
	UserID      int64           `json:"user_id" db:"user_id"`
	FamilyID    int64           `json:"family_id" db:"family_id"`
	Name        string          `json:"name" db:"name"`
	CategoryID  int64           `json:"category_id" db:"category_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description string          `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`

	CategoryName string `json:"category_name,omitempty"`
	CategoryIcon string `json:"category_icon,omitempty"`
}
