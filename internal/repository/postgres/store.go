package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/Kerhoff/familybudget/internal/repository"
)

// queryer is the subset of *sql.DB and *sql.Tx the repositories use.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the PostgreSQL backend. A Store created by WithinTx is bound to
// that transaction.
type Store struct {
	db *sql.DB
	q  queryer
}

// NewStore creates a Store over an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) Users() repository.UserRepository { return &userRepository{db: s.q} }

func (s *Store) Summaries() repository.SummaryRepository {
	return &summaryRepository{db: s.q, beginner: s.db}
}

func (s *Store) Families() repository.FamilyRepository {
	return &familyRepository{db: s.q, beginner: s.db}
}

func (s *Store) Categories() repository.CategoryRepository {
	return &categoryRepository{db: s.q, beginner: s.db}
}

func (s *Store) Transactions() repository.TransactionRepository {
	return &transactionRepository{db: s.q}
}

func (s *Store) Templates() repository.TemplateRepository { return &templateRepository{db: s.q} }

// WithinTx implements repository.Store. Nested calls reuse the outer
// transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	return inTx(ctx, s.db, s.q, func(q queryer) error {
		return fn(&Store{q: q})
	})
}

// inTx runs fn in a new transaction when beginner is set, or directly on q
// when the caller already holds one.
func inTx(ctx context.Context, beginner *sql.DB, q queryer, fn func(q queryer) error) error {
	if beginner == nil {
		return fn(q)
	}

	tx, err := beginner.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func expectRows(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
