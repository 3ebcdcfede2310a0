package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/money"
	"github.com/Kerhoff/familybudget/internal/period"
	"github.com/Kerhoff/familybudget/internal/report"
	"github.com/Kerhoff/familybudget/internal/repository"
)

const (
	// HistogramMonths is the window of the activity histogram.
	HistogramMonths = 12
	// reportItemLimit bounds the transactions loaded for one report.
	reportItemLimit = 5000
)

// CategoryShare is a category total with its share of the period total.
type CategoryShare struct {
	models.CategoryTotal
	Percent decimal.Decimal
}

// UserShare is a member's total with its share of the period total.
type UserShare struct {
	models.UserTotal
	Percent decimal.Decimal
}

// Breakdown aggregates one kind of transaction over a period.
type Breakdown struct {
	Kind       models.Kind
	Total      decimal.Decimal
	Count      int
	Categories []CategoryShare
	Users      []UserShare
}

// FamilyStats is the statistics screen of one family and period.
type FamilyStats struct {
	Family   *models.Family
	Range    period.Range
	Expenses Breakdown
	Incomes  Breakdown
}

// Balance is incomes minus expenses.
func (f *FamilyStats) Balance() decimal.Decimal {
	return f.Incomes.Total.Sub(f.Expenses.Total)
}

// Stats aggregates the family's expenses and incomes over rng.
func (s *Service) Stats(ctx context.Context, userID, familyID int64, rng period.Range) (*FamilyStats, error) {
	if _, err := membership(ctx, s.store.Families(), familyID, userID); err != nil {
		return nil, err
	}
	return s.familyStats(ctx, familyID, rng)
}

func (s *Service) familyStats(ctx context.Context, familyID int64, rng period.Range) (*FamilyStats, error) {
	family, err := s.store.Families().GetByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family %d: %w", familyID, err)
	}
	if family == nil {
		return nil, fmt.Errorf("family %d: %w", familyID, repository.ErrNotFound)
	}

	stats := &FamilyStats{Family: family, Range: rng}
	for _, kind := range models.Kinds {
		b, err := s.breakdown(ctx, repository.TransactionFilter{Kind: kind, FamilyID: familyID, Range: rng})
		if err != nil {
			return nil, err
		}
		switch kind {
		case models.KindExpense:
			stats.Expenses = b
		case models.KindIncome:
			stats.Incomes = b
		}
	}
	return stats, nil
}

// breakdown computes total, per-category and per-user rows of one filter.
// Percentages are taken against the total, which is zero-guarded.
func (s *Service) breakdown(ctx context.Context, f repository.TransactionFilter) (Breakdown, error) {
	txs := s.store.Transactions()
	b := Breakdown{Kind: f.Kind}

	total, count, err := txs.Total(ctx, f)
	if err != nil {
		return b, err
	}
	b.Total, b.Count = total, count

	byCategory, err := txs.ByCategory(ctx, f)
	if err != nil {
		return b, err
	}
	for _, ct := range byCategory {
		b.Categories = append(b.Categories, CategoryShare{CategoryTotal: ct, Percent: money.Percent(ct.Amount, total)})
	}

	byUser, err := txs.ByUser(ctx, f)
	if err != nil {
		return b, err
	}
	for _, ut := range byUser {
		b.Users = append(b.Users, UserShare{UserTotal: ut, Percent: money.Percent(ut.Amount, total)})
	}
	return b, nil
}

// Histogram counts expenses and incomes per calendar month in loc over the
// last months months up to now, oldest first. Months without activity are
// present with a zero count.
func (s *Service) Histogram(ctx context.Context, familyID int64, months int, loc *time.Location) ([]models.MonthCount, error) {
	now := s.now().In(loc)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, 1-months, 0)

	buckets := make([]models.MonthCount, months)
	index := make(map[[2]int]int, months)
	for i := range buckets {
		m := first.AddDate(0, i, 0)
		buckets[i] = models.MonthCount{Year: m.Year(), Month: m.Month()}
		index[[2]int{m.Year(), int(m.Month())}] = i
	}

	for _, kind := range models.Kinds {
		counts, err := s.store.Transactions().MonthlyCounts(ctx, kind, familyID, first, loc)
		if err != nil {
			return nil, fmt.Errorf("failed to count %ss of family %d: %w", kind, familyID, err)
		}
		for _, c := range counts {
			if i, ok := index[[2]int{c.Year, int(c.Month)}]; ok {
				buckets[i].Count += c.Count
			}
		}
	}
	return buckets, nil
}

// MonthlyReport builds the expense report of user in the family over rng,
// a calendar month.
func (s *Service) MonthlyReport(ctx context.Context, user *models.User, family *models.Family, rng period.Range) (*report.Monthly, error) {
	now := s.now()

	userID := user.ID
	f := repository.TransactionFilter{
		Kind:     models.KindExpense,
		FamilyID: family.ID,
		UserID:   &userID,
		Range:    rng,
	}
	txs := s.store.Transactions()
	total, count, err := txs.Total(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to sum report of family %d: %w", family.ID, err)
	}
	byCategory, err := txs.ByCategory(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to group report of family %d: %w", family.ID, err)
	}
	items, err := txs.List(ctx, f, reportItemLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list report of family %d: %w", family.ID, err)
	}

	perCategory := make(map[int64][]*models.Transaction)
	for _, t := range items {
		perCategory[t.CategoryID] = append(perCategory[t.CategoryID], t)
	}

	m := &report.Monthly{
		Recipient:   user,
		FamilyName:  family.Name,
		Period:      period.MonthTitle(rng.Start),
		Kind:        models.KindExpense,
		Total:       total,
		Count:       count,
		GeneratedAt: now,
	}
	for _, ct := range byCategory {
		m.Categories = append(m.Categories, report.CategoryLine{
			CategoryTotal: ct,
			Percent:       money.Percent(ct.Amount, total),
			Items:         perCategory[ct.CategoryID],
		})
	}
	return m, nil
}

// ReportFor builds the previous-month report of one family the user
// belongs to.
func (s *Service) ReportFor(ctx context.Context, user *models.User, familyID int64) (*report.Monthly, error) {
	if _, err := membership(ctx, s.store.Families(), familyID, user.ID); err != nil {
		return nil, err
	}
	family, err := s.store.Families().GetByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family %d: %w", familyID, err)
	}
	if family == nil {
		return nil, fmt.Errorf("family %d: %w", familyID, repository.ErrNotFound)
	}
	rng, err := period.Resolve(period.PreviousMonth, s.now(), user.Location())
	if err != nil {
		return nil, err
	}
	return s.MonthlyReport(ctx, user, family, rng)
}
