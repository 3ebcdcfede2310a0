package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/repository"
)

type familyRepository struct {
	db       queryer
	beginner *sql.DB
}

func (r *familyRepository) Create(ctx context.Context, family *models.Family) (*models.Family, error) {
	query := `
		INSERT INTO families (name, invite_code)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, family.Name, family.InviteCode).
		Scan(&family.ID, &family.CreatedAt)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return nil, fmt.Errorf("invite code %s: %w", family.InviteCode, repository.ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	return family, nil
}

func (r *familyRepository) getOne(ctx context.Context, where string, arg any) (*models.Family, error) {
	query := `SELECT id, name, invite_code, created_at FROM families WHERE ` + where

	family := &models.Family{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&family.ID,
		&family.Name,
		&family.InviteCode,
		&family.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

func (r *familyRepository) GetByID(ctx context.Context, id int64) (*models.Family, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *familyRepository) GetByInviteCode(ctx context.Context, code string) (*models.Family, error) {
	return r.getOne(ctx, "invite_code = $1", code)
}

func (r *familyRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM families WHERE invite_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check invite code: %w", err)
	}
	return exists, nil
}

func (r *familyRepository) UpdateName(ctx context.Context, id int64, name string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE families SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("failed to rename family: %w", err)
	}
	return expectRows(result, fmt.Sprintf("family %d", id))
}

func (r *familyRepository) UpdateInviteCode(ctx context.Context, id int64, code string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE families SET invite_code = $2 WHERE id = $1`, id, code)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return fmt.Errorf("invite code %s: %w", code, repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to update invite code: %w", err)
	}
	return expectRows(result, fmt.Sprintf("family %d", id))
}

// Delete removes dependants first: templates and transactions reference
// categories, so they go before the family's custom categories.
func (r *familyRepository) Delete(ctx context.Context, id int64) error {
	return inTx(ctx, r.beginner, r.db, func(q queryer) error {
		for _, stmt := range []string{
			`DELETE FROM expense_templates WHERE family_id = $1`,
			`DELETE FROM expenses WHERE family_id = $1`,
			`DELETE FROM incomes WHERE family_id = $1`,
			`DELETE FROM summary_deliveries WHERE family_id = $1`,
			`DELETE FROM family_members WHERE family_id = $1`,
			`DELETE FROM categories WHERE family_id = $1`,
		} {
			if _, err := q.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("failed to delete family %d dependants: %w", id, err)
			}
		}

		result, err := q.ExecContext(ctx, `DELETE FROM families WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete family: %w", err)
		}
		return expectRows(result, fmt.Sprintf("family %d", id))
	})
}

func (r *familyRepository) AddMember(ctx context.Context, familyID, userID int64, role models.Role) error {
	query := `
		INSERT INTO family_members (family_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, family_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, familyID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to add family member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrAlreadyMember
	}
	return nil
}

func (r *familyRepository) RemoveMember(ctx context.Context, familyID, userID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM family_members WHERE family_id = $1 AND user_id = $2`, familyID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove family member: %w", err)
	}
	return expectRows(result, fmt.Sprintf("member %d of family %d", userID, familyID))
}

func (r *familyRepository) GetMember(ctx context.Context, familyID, userID int64) (*models.FamilyMember, error) {
	query := `
		SELECT id, family_id, user_id, role, joined_at
		FROM family_members
		WHERE family_id = $1 AND user_id = $2`

	m := &models.FamilyMember{}
	err := r.db.QueryRowContext(ctx, query, familyID, userID).Scan(
		&m.ID,
		&m.FamilyID,
		&m.UserID,
		&m.Role,
		&m.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get family member: %w", err)
	}
	return m, nil
}

func (r *familyRepository) ListMembers(ctx context.Context, familyID int64) ([]models.Member, error) {
	query := `
		SELECT ` + userColumns + `, fm.role, fm.joined_at
		FROM family_members fm
		INNER JOIN users u ON u.id = fm.user_id
		WHERE fm.family_id = $1
		ORDER BY fm.joined_at ASC, fm.id ASC`

	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		u, err := scanUser(memberRow{rows: rows, role: &m.Role, joinedAt: &m.JoinedAt})
		if err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		m.User = u
		members = append(members, m)
	}
	return members, rows.Err()
}

// memberRow appends the membership columns to a user scan.
type memberRow struct {
	rows     *sql.Rows
	role     *models.Role
	joinedAt any
}

func (m memberRow) Scan(dest ...any) error {
	return m.rows.Scan(append(dest, m.role, m.joinedAt)...)
}

func (r *familyRepository) ListForUser(ctx context.Context, userID int64) ([]*models.Family, error) {
	query := `
		SELECT f.id, f.name, f.invite_code, f.created_at
		FROM families f
		INNER JOIN family_members fm ON fm.family_id = f.id
		WHERE fm.user_id = $1
		ORDER BY f.created_at ASC, f.id ASC`

	return r.list(ctx, query, userID)
}

func (r *familyRepository) list(ctx context.Context, query string, args ...any) ([]*models.Family, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []*models.Family
	for rows.Next() {
		f := &models.Family{}
		if err := rows.Scan(&f.ID, &f.Name, &f.InviteCode, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, f)
	}
	return families, rows.Err()
}

func (r *familyRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM families`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count families: %w", err)
	}
	return n, nil
}

func (r *familyRepository) ListPage(ctx context.Context, limit, offset int) ([]models.FamilySummary, error) {
	query := `
		SELECT f.id, f.name, f.created_at, COUNT(fm.id)
		FROM families f
		LEFT JOIN family_members fm ON fm.family_id = f.id
		GROUP BY f.id, f.name, f.created_at
		ORDER BY f.created_at DESC, f.id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query family page: %w", err)
	}
	defer rows.Close()

	var page []models.FamilySummary
	for rows.Next() {
		var s models.FamilySummary
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.MembersCount); err != nil {
			return nil, fmt.Errorf("failed to scan family summary: %w", err)
		}
		page = append(page, s)
	}
	return page, rows.Err()
}

func (r *familyRepository) SearchByName(ctx context.Context, query string, limit int) ([]*models.Family, error) {
	q := `
		SELECT id, name, invite_code, created_at
		FROM families
		WHERE name ILIKE $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	return r.list(ctx, q, containsPattern(query), limit)
}

func (r *familyRepository) SearchByUsername(ctx context.Context, query string, limit int) ([]*models.Family, error) {
	q := `
		SELECT DISTINCT f.id, f.name, f.invite_code, f.created_at
		FROM families f
		INNER JOIN family_members fm ON fm.family_id = f.id
		INNER JOIN users u ON u.id = fm.user_id
		WHERE u.username IS NOT NULL AND u.username ILIKE $1
		ORDER BY f.created_at DESC, f.id DESC
		LIMIT $2`

	return r.list(ctx, q, containsPattern(query), limit)
}
