package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/period"
	"github.com/Kerhoff/familybudget/internal/repository"
)

type transactionRepository Store

func (r *transactionRepository) Create(_ context.Context, tx *models.Transaction) (*models.Transaction, error) {
	defer (*Store)(r).lock()()
	if _, ok := r.d.users[tx.UserID]; !ok {
		return nil, fmt.Errorf("user %d: %w", tx.UserID, repository.ErrNotFound)
	}
	if _, ok := r.d.families[tx.FamilyID]; !ok {
		return nil, fmt.Errorf("family %d: %w", tx.FamilyID, repository.ErrNotFound)
	}
	if _, ok := r.d.categories[tx.CategoryID]; !ok {
		return nil, fmt.Errorf("category %d: %w", tx.CategoryID, repository.ErrNotFound)
	}
	tx.ID = r.d.nextID()
	tx.CreatedAt = r.now()
	r.d.txs = append(r.d.txs, *tx)
	return tx, nil
}

func matches(t models.Transaction, f repository.TransactionFilter) bool {
	if t.Kind != f.Kind || t.FamilyID != f.FamilyID {
		return false
	}
	if f.UserID != nil && t.UserID != *f.UserID {
		return false
	}
	if !f.Range.Contains(t.Date) {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.Query)) {
		return false
	}
	return true
}

func (r *transactionRepository) filter(f repository.TransactionFilter) []models.Transaction {
	var out []models.Transaction
	for _, t := range r.d.txs {
		if matches(t, f) {
			out = append(out, t)
		}
	}
	return out
}

func (r *transactionRepository) Total(_ context.Context, f repository.TransactionFilter) (decimal.Decimal, int, error) {
	defer (*Store)(r).lock()()
	txs := r.filter(f)
	return sumAmounts(txs), len(txs), nil
}

func (r *transactionRepository) ByCategory(_ context.Context, f repository.TransactionFilter) ([]models.CategoryTotal, error) {
	defer (*Store)(r).lock()()
	index := make(map[int64]int)
	var totals []models.CategoryTotal
	for _, t := range r.filter(f) {
		i, ok := index[t.CategoryID]
		if !ok {
			c := r.d.categories[t.CategoryID]
			i = len(totals)
			index[t.CategoryID] = i
			totals = append(totals, models.CategoryTotal{CategoryID: c.ID, Name: c.Name, Icon: c.Icon, Amount: decimal.Zero})
		}
		totals[i].Amount = totals[i].Amount.Add(t.Amount)
		totals[i].Count++
	}
	sort.Slice(totals, func(i, j int) bool {
		if c := totals[i].Amount.Cmp(totals[j].Amount); c != 0 {
			return c > 0
		}
		return totals[i].CategoryID < totals[j].CategoryID
	})
	return totals, nil
}

func (r *transactionRepository) ByUser(_ context.Context, f repository.TransactionFilter) ([]models.UserTotal, error) {
	defer (*Store)(r).lock()()
	index := make(map[int64]int)
	var totals []models.UserTotal
	for _, t := range r.filter(f) {
		i, ok := index[t.UserID]
		if !ok {
			u := r.d.users[t.UserID]
			i = len(totals)
			index[t.UserID] = i
			totals = append(totals, models.UserTotal{UserID: u.ID, Name: u.Name, Amount: decimal.Zero})
		}
		totals[i].Amount = totals[i].Amount.Add(t.Amount)
		totals[i].Count++
	}
	sort.Slice(totals, func(i, j int) bool {
		if c := totals[i].Amount.Cmp(totals[j].Amount); c != 0 {
			return c > 0
		}
		return totals[i].UserID < totals[j].UserID
	})
	return totals, nil
}

func (r *transactionRepository) List(_ context.Context, f repository.TransactionFilter, limit int) ([]*models.Transaction, error) {
	defer (*Store)(r).lock()()
	txs := r.filter(f)
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].ID > txs[j].ID
	})
	if limit < len(txs) {
		txs = txs[:limit]
	}
	list := make([]*models.Transaction, 0, len(txs))
	for _, t := range txs {
		t := t
		c := r.d.categories[t.CategoryID]
		t.CategoryName, t.CategoryIcon = c.Name, c.Icon
		t.UserName = r.d.users[t.UserID].Name
		list = append(list, &t)
	}
	return list, nil
}

// MonthlyCounts buckets by calendar month in loc.
func (r *transactionRepository) MonthlyCounts(_ context.Context, kind models.Kind, familyID int64, since time.Time, loc *time.Location) ([]models.MonthCount, error) {
	defer (*Store)(r).lock()()
	type key struct {
		year  int
		month time.Month
	}
	counts := make(map[key]int)
	for _, t := range r.d.txs {
		if t.Kind != kind || t.FamilyID != familyID || t.Date.Before(since) {
			continue
		}
		d := t.Date.In(loc)
		counts[key{d.Year(), d.Month()}]++
	}
	out := make([]models.MonthCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.MonthCount{Year: k.year, Month: k.month, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func (r *transactionRepository) TopFamilies(_ context.Context, kind models.Kind, rng period.Range, limit int) ([]models.FamilyTotal, error) {
	defer (*Store)(r).lock()()
	index := make(map[int64]int)
	var top []models.FamilyTotal
	for _, t := range r.d.txs {
		if t.Kind != kind || !rng.Contains(t.Date) {
			continue
		}
		i, ok := index[t.FamilyID]
		if !ok {
			i = len(top)
			index[t.FamilyID] = i
			top = append(top, models.FamilyTotal{FamilyID: t.FamilyID, Name: r.d.families[t.FamilyID].Name, Amount: decimal.Zero})
		}
		top[i].Amount = top[i].Amount.Add(t.Amount)
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Amount.GreaterThan(top[j].Amount) })
	if limit < len(top) {
		top = top[:limit]
	}
	return top, nil
}

func (r *transactionRepository) GlobalTotal(_ context.Context, kind models.Kind) (decimal.Decimal, error) {
	defer (*Store)(r).lock()()
	total := decimal.Zero
	for _, t := range r.d.txs {
		if t.Kind == kind {
			total = total.Add(t.Amount)
		}
	}
	return total, nil
}

func (r *transactionRepository) ActiveFamilyIDs(_ context.Context, kind models.Kind, since time.Time) ([]int64, error) {
	defer (*Store)(r).lock()()
	seen := make(map[int64]bool)
	var ids []int64
	for _, t := range r.d.txs {
		if t.Kind == kind && !t.Date.Before(since) && !seen[t.FamilyID] {
			seen[t.FamilyID] = true
			ids = append(ids, t.FamilyID)
		}
	}
	return ids, nil
}
