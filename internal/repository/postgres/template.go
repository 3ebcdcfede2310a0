package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kerhoff/familybudget/internal/models"
)

type templateRepository struct {
	db queryer
}

func (r *templateRepository) Create(ctx context.Context, tpl *models.Template) (*models.Template, error) {
	query := `
		INSERT INTO expense_templates (user_id, family_id, name, category_id, amount, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		tpl.UserID,
		tpl.FamilyID,
		tpl.Name,
		tpl.CategoryID,
		tpl.Amount,
		nullString(tpl.Description),
	).Scan(&tpl.ID, &tpl.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return tpl, nil
}

const templateSelect = `
	SELECT t.id, t.user_id, t.family_id, t.name, t.category_id, t.amount,
		COALESCE(t.description, ''), t.created_at, c.name, c.icon
	FROM expense_templates t
	INNER JOIN categories c ON c.id = t.category_id`

func scanTemplate(row rowScanner) (*models.Template, error) {
	t := &models.Template{}
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.FamilyID,
		&t.Name,
		&t.CategoryID,
		&t.Amount,
		&t.Description,
		&t.CreatedAt,
		&t.CategoryName,
		&t.CategoryIcon,
	)
	return t, err
}

func (r *templateRepository) GetByID(ctx context.Context, id int64) (*models.Template, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx, templateSelect+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return t, nil
}

func (r *templateRepository) ListForUser(ctx context.Context, userID, familyID int64) ([]*models.Template, error) {
	query := templateSelect + `
		WHERE t.user_id = $1 AND t.family_id = $2
		ORDER BY t.name, t.id`

	rows, err := r.db.QueryContext(ctx, query, userID, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var list []*models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *templateRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM expense_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return expectRows(result, fmt.Sprintf("template %d", id))
}
