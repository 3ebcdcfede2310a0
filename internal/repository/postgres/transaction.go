package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/period"
	"github.com/Kerhoff/familybudget/internal/repository"
)

type transactionRepository struct {
	db queryer
}

func table(kind models.Kind) string {
	switch kind {
	case models.KindExpense:
		return "expenses"
	case models.KindIncome:
		return "incomes"
	}
	panic(fmt.Sprintf("unhandled kind %q", string(kind)))
}

// conditions renders the WHERE clause of a filter against alias t.
func conditions(f repository.TransactionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	add("t.family_id = ?", f.FamilyID)
	if f.UserID != nil {
		add("t.user_id = ?", *f.UserID)
	}
	if !f.Range.Start.IsZero() {
		add("t.date >= ?", f.Range.Start)
	}
	if !f.Range.End.IsZero() {
		add("t.date < ?", f.Range.End)
	}
	if f.Query != "" {
		add("t.description ILIKE ?", containsPattern(f.Query))
	}
	return strings.Join(conds, " AND "), args
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	query := `
		INSERT INTO ` + table(tx.Kind) + ` (user_id, family_id, category_id, amount, description, date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		tx.UserID,
		tx.FamilyID,
		tx.CategoryID,
		tx.Amount,
		nullString(tx.Description),
		tx.Date,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", tx.Kind, err)
	}
	return tx, nil
}

func (r *transactionRepository) Total(ctx context.Context, f repository.TransactionFilter) (decimal.Decimal, int, error) {
	where, args := conditions(f)
	query := `SELECT COALESCE(SUM(t.amount), 0), COUNT(*) FROM ` + table(f.Kind) + ` t WHERE ` + where

	var (
		total decimal.Decimal
		count int
	)
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total, &count); err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to sum %s: %w", table(f.Kind), err)
	}
	return total, count, nil
}

func (r *transactionRepository) ByCategory(ctx context.Context, f repository.TransactionFilter) ([]models.CategoryTotal, error) {
	where, args := conditions(f)
	query := `
		SELECT c.id, c.name, c.icon, SUM(t.amount), COUNT(*)
		FROM ` + table(f.Kind) + ` t
		INNER JOIN categories c ON c.id = t.category_id
		WHERE ` + where + `
		GROUP BY c.id, c.name, c.icon
		ORDER BY SUM(t.amount) DESC, c.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query category totals: %w", err)
	}
	defer rows.Close()

	var totals []models.CategoryTotal
	for rows.Next() {
		var ct models.CategoryTotal
		if err := rows.Scan(&ct.CategoryID, &ct.Name, &ct.Icon, &ct.Amount, &ct.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

func (r *transactionRepository) ByUser(ctx context.Context, f repository.TransactionFilter) ([]models.UserTotal, error) {
	where, args := conditions(f)
	query := `
		SELECT u.id, u.name, SUM(t.amount), COUNT(*)
		FROM ` + table(f.Kind) + ` t
		INNER JOIN users u ON u.id = t.user_id
		WHERE ` + where + `
		GROUP BY u.id, u.name
		ORDER BY SUM(t.amount) DESC, u.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user totals: %w", err)
	}
	defer rows.Close()

	var totals []models.UserTotal
	for rows.Next() {
		var ut models.UserTotal
		if err := rows.Scan(&ut.UserID, &ut.Name, &ut.Amount, &ut.Count); err != nil {
			return nil, fmt.Errorf("failed to scan user total: %w", err)
		}
		totals = append(totals, ut)
	}
	return totals, rows.Err()
}

func (r *transactionRepository) List(ctx context.Context, f repository.TransactionFilter, limit int) ([]*models.Transaction, error) {
	where, args := conditions(f)
	args = append(args, limit)
	query := `
		SELECT t.id, t.user_id, t.family_id, t.category_id, t.amount, COALESCE(t.description, ''),
			t.date, t.created_at, c.name, c.icon, u.name
		FROM ` + table(f.Kind) + ` t
		INNER JOIN categories c ON c.id = t.category_id
		INNER JOIN users u ON u.id = t.user_id
		WHERE ` + where + `
		ORDER BY t.date DESC, t.id DESC
		LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table(f.Kind), err)
	}
	defer rows.Close()

	var list []*models.Transaction
	for rows.Next() {
		t := &models.Transaction{Kind: f.Kind}
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.FamilyID,
			&t.CategoryID,
			&t.Amount,
			&t.Description,
			&t.Date,
			&t.CreatedAt,
			&t.CategoryName,
			&t.CategoryIcon,
			&t.UserName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", f.Kind, err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *transactionRepository) MonthlyCounts(ctx context.Context, kind models.Kind, familyID int64, since time.Time, loc *time.Location) ([]models.MonthCount, error) {
	query := `
		SELECT EXTRACT(YEAR FROM t.date AT TIME ZONE $3)::int AS y,
			EXTRACT(MONTH FROM t.date AT TIME ZONE $3)::int AS m,
			COUNT(*)
		FROM ` + table(kind) + ` t
		WHERE t.family_id = $1 AND t.date >= $2
		GROUP BY y, m
		ORDER BY y, m`

	rows, err := r.db.QueryContext(ctx, query, familyID, since, loc.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly counts: %w", err)
	}
	defer rows.Close()

	var counts []models.MonthCount
	for rows.Next() {
		var (
			mc    models.MonthCount
			month int
		)
		if err := rows.Scan(&mc.Year, &month, &mc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan monthly count: %w", err)
		}
		mc.Month = time.Month(month)
		counts = append(counts, mc)
	}
	return counts, rows.Err()
}

func (r *transactionRepository) TopFamilies(ctx context.Context, kind models.Kind, rng period.Range, limit int) ([]models.FamilyTotal, error) {
	var (
		conds []string
		args  []any
	)
	if !rng.Start.IsZero() {
		args = append(args, rng.Start)
		conds = append(conds, "t.date >= $"+strconv.Itoa(len(args)))
	}
	if !rng.End.IsZero() {
		args = append(args, rng.End)
		conds = append(conds, "t.date < $"+strconv.Itoa(len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)

	query := `
		SELECT f.id, f.name, SUM(t.amount)
		FROM families f
		INNER JOIN ` + table(kind) + ` t ON t.family_id = f.id
		` + where + `
		GROUP BY f.id, f.name
		ORDER BY SUM(t.amount) DESC
		LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top families: %w", err)
	}
	defer rows.Close()

	var top []models.FamilyTotal
	for rows.Next() {
		var ft models.FamilyTotal
		if err := rows.Scan(&ft.FamilyID, &ft.Name, &ft.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan family total: %w", err)
		}
		top = append(top, ft)
	}
	return top, rows.Err()
}

func (r *transactionRepository) GlobalTotal(ctx context.Context, kind models.Kind) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM ` + table(kind)
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum all %s: %w", table(kind), err)
	}
	return total, nil
}

func (r *transactionRepository) ActiveFamilyIDs(ctx context.Context, kind models.Kind, since time.Time) ([]int64, error) {
	query := `SELECT DISTINCT family_id FROM ` + table(kind) + ` WHERE date >= $1`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query active families: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan family id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
