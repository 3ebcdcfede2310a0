package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/repository"
)

type categoryRepository struct {
	db       queryer
	beginner *sql.DB
}

const categoryColumns = `id, name, icon, is_default, category_type, family_id`

func scanCategory(row rowScanner) (*models.Category, error) {
	c := &models.Category{}
	var familyID sql.NullInt64
	if err := row.Scan(&c.ID, &c.Name, &c.Icon, &c.IsDefault, &c.Kind, &familyID); err != nil {
		return nil, err
	}
	if familyID.Valid {
		id := familyID.Int64
		c.FamilyID = &id
	}
	return c, nil
}

func (r *categoryRepository) ListForFamily(ctx context.Context, familyID int64, kind models.Kind) ([]*models.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE category_type = $2 AND (family_id IS NULL OR family_id = $1)
		ORDER BY family_id IS NOT NULL, id`

	rows, err := r.db.QueryContext(ctx, query, familyID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) (*models.Category, error) {
	query := `
		INSERT INTO categories (name, icon, is_default, category_type, family_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var familyID sql.NullInt64
	if category.FamilyID != nil {
		familyID = sql.NullInt64{Int64: *category.FamilyID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		category.Name,
		category.Icon,
		category.IsDefault,
		category.Kind,
		familyID,
	).Scan(&category.ID)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return nil, fmt.Errorf("category %q: %w", category.Name, repository.ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (r *categoryRepository) Rename(ctx context.Context, id int64, name string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = $2 WHERE id = $1 AND NOT is_default`, id, name)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return fmt.Errorf("category %q: %w", name, repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to rename category: %w", err)
	}
	return expectRows(result, fmt.Sprintf("category %d", id))
}

func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = $1 AND NOT is_default`, id)
	if err != nil {
		if pqCode(err) == codeForeignKeyViolation {
			return fmt.Errorf("category %d: %w", id, repository.ErrCategoryInUse)
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return expectRows(result, fmt.Sprintf("category %d", id))
}

func (r *categoryRepository) NameExists(ctx context.Context, familyID int64, name string, kind models.Kind) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM categories
			WHERE category_type = $3
				AND LOWER(name) = LOWER($2)
				AND (family_id IS NULL OR family_id = $1)
		)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, familyID, name, kind).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check category name: %w", err)
	}
	return exists, nil
}

func (r *categoryRepository) CountUsage(ctx context.Context, id int64) (int, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM expenses WHERE category_id = $1) +
			(SELECT COUNT(*) FROM incomes WHERE category_id = $1) +
			(SELECT COUNT(*) FROM expense_templates WHERE category_id = $1)`

	var n int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count category usage: %w", err)
	}
	return n, nil
}

func (r *categoryRepository) Reassign(ctx context.Context, fromID, toID int64) error {
	return inTx(ctx, r.beginner, r.db, func(q queryer) error {
		for _, stmt := range []string{
			`UPDATE expenses SET category_id = $2 WHERE category_id = $1`,
			`UPDATE incomes SET category_id = $2 WHERE category_id = $1`,
			`UPDATE expense_templates SET category_id = $2 WHERE category_id = $1`,
		} {
			if _, err := q.ExecContext(ctx, stmt, fromID, toID); err != nil {
				return fmt.Errorf("failed to reassign category %d: %w", fromID, err)
			}
		}
		return nil
	})
}
