package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryTotal is one row of a per-category aggregation.
type CategoryTotal struct {
	CategoryID int64           `json:"category_id"`
	Name       string          `json:"name"`
	Icon       string          `json:"icon"`
	Amount     decimal.Decimal `json:"amount"`
	Count      int             `json:"count"`
}

// UserTotal is one row of a per-user aggregation.
type UserTotal struct {
	UserID int64           `json:"user_id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// MonthCount is a histogram bucket.
type MonthCount struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Count int        `json:"count"`
}

// FamilyTotal is one row of a cross-family ranking.
type FamilyTotal struct {
	FamilyID int64           `json:"family_id"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
}

// GlobalStats is the administrator overview.
type GlobalStats struct {
	Families         int             `json:"families"`
	Users            int             `json:"users"`
	ActiveFamilies   int             `json:"active_families"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	TotalIncomes     decimal.Decimal `json:"total_incomes"`
	AvgExpensePerFam decimal.Decimal `json:"avg_expense_per_family"`
	AvgIncomePerFam  decimal.Decimal `json:"avg_income_per_family"`
}
