package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type summaryRepository struct {
	db       queryer
	beginner *sql.DB
}

func (r *summaryRepository) DeliveredFamilies(ctx context.Context, userID int64, periodStart time.Time) (map[int64]bool, error) {
	query := `
		SELECT family_id
		FROM summary_deliveries
		WHERE user_id = $1 AND period_start = $2`

	rows, err := r.db.QueryContext(ctx, query, userID, periodStart.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query summary deliveries: %w", err)
	}
	defer rows.Close()

	delivered := make(map[int64]bool)
	for rows.Next() {
		var familyID int64
		if err := rows.Scan(&familyID); err != nil {
			return nil, fmt.Errorf("failed to scan summary delivery: %w", err)
		}
		delivered[familyID] = true
	}
	return delivered, rows.Err()
}

func (r *summaryRepository) MarkSent(ctx context.Context, userID, familyID int64, periodStart, sentAt time.Time) error {
	return inTx(ctx, r.beginner, r.db, func(q queryer) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO summary_deliveries (user_id, family_id, period_start, sent_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, family_id, period_start) DO NOTHING`,
			userID, familyID, periodStart.Format("2006-01-02"), sentAt)
		if err != nil {
			return fmt.Errorf("failed to record summary delivery: %w", err)
		}

		// Only ever move the marker forward.
		_, err = q.ExecContext(ctx, `
			UPDATE users
			SET last_monthly_summary_sent = $2
			WHERE id = $1
				AND (last_monthly_summary_sent IS NULL OR last_monthly_summary_sent < $2)`,
			userID, sentAt)
		if err != nil {
			return fmt.Errorf("failed to update last summary marker: %w", err)
		}
		return nil
	})
}
