package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/period"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyMember = errors.New("user is already a member of the family")
	ErrDuplicate     = errors.New("duplicate value")
	ErrCategoryInUse = errors.New("category is referenced by transactions")
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateSettings(ctx context.Context, user *models.User) error
	ListSummaryEnabled(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
}

// SummaryRepository tracks monthly summary deliveries.
type SummaryRepository interface {
	// DeliveredFamilies returns the families already sent the summary for
	// the month starting at periodStart.
	DeliveredFamilies(ctx context.Context, userID int64, periodStart time.Time) (map[int64]bool, error)
	// MarkSent records a delivery and moves the user's last-sent marker.
	MarkSent(ctx context.Context, userID, familyID int64, periodStart, sentAt time.Time) error
}

// FamilyRepository defines the interface for family data operations
type FamilyRepository interface {
	Create(ctx context.Context, family *models.Family) (*models.Family, error)
	GetByID(ctx context.Context, id int64) (*models.Family, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Family, error)
	InviteCodeExists(ctx context.Context, code string) (bool, error)
	UpdateName(ctx context.Context, id int64, name string) error
	UpdateInviteCode(ctx context.Context, id int64, code string) error
	// Delete removes the family with its memberships, transactions,
	// templates and custom categories.
	Delete(ctx context.Context, id int64) error

	AddMember(ctx context.Context, familyID, userID int64, role models.Role) error
	RemoveMember(ctx context.Context, familyID, userID int64) error
	GetMember(ctx context.Context, familyID, userID int64) (*models.FamilyMember, error)
	ListMembers(ctx context.Context, familyID int64) ([]models.Member, error)
	ListForUser(ctx context.Context, userID int64) ([]*models.Family, error)

	Count(ctx context.Context) (int, error)
	ListPage(ctx context.Context, limit, offset int) ([]models.FamilySummary, error)
	SearchByName(ctx context.Context, query string, limit int) ([]*models.Family, error)
	SearchByUsername(ctx context.Context, query string, limit int) ([]*models.Family, error)
}

// CategoryRepository defines the interface for category data operations
type CategoryRepository interface {
	// ListForFamily returns default categories followed by the family's own.
	ListForFamily(ctx context.Context, familyID int64, kind models.Kind) ([]*models.Category, error)
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) (*models.Category, error)
	Rename(ctx context.Context, id int64, name string) error
	// Delete fails with ErrCategoryInUse while transactions reference it.
	Delete(ctx context.Context, id int64) error
	NameExists(ctx context.Context, familyID int64, name string, kind models.Kind) (bool, error)
	CountUsage(ctx context.Context, id int64) (int, error)
	// Reassign moves every expense, income and template from one category
	// to another.
	Reassign(ctx context.Context, fromID, toID int64) error
}

// TransactionFilter scopes transaction queries.
type TransactionFilter struct {
	Kind     models.Kind
	FamilyID int64
	UserID   *int64
	Range    period.Range
	// Query matches descriptions case-insensitively.
	Query string
}

// TransactionRepository reads and writes expenses and incomes.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	Total(ctx context.Context, filter TransactionFilter) (decimal.Decimal, int, error)
	ByCategory(ctx context.Context, filter TransactionFilter) ([]models.CategoryTotal, error)
	ByUser(ctx context.Context, filter TransactionFilter) ([]models.UserTotal, error)
	// List returns the newest transactions first with category and user
	// names filled in.
	List(ctx context.Context, filter TransactionFilter, limit int) ([]*models.Transaction, error)
	// MonthlyCounts groups transactions since the given time by calendar
	// month in loc.
	MonthlyCounts(ctx context.Context, kind models.Kind, familyID int64, since time.Time, loc *time.Location) ([]models.MonthCount, error)

	// Cross-family views for administrators.
	TopFamilies(ctx context.Context, kind models.Kind, r period.Range, limit int) ([]models.FamilyTotal, error)
	GlobalTotal(ctx context.Context, kind models.Kind) (decimal.Decimal, error)
	ActiveFamilyIDs(ctx context.Context, kind models.Kind, since time.Time) ([]int64, error)
}

// TemplateRepository defines the interface for expense templates
type TemplateRepository interface {
	Create(ctx context.Context, tpl *models.Template) (*models.Template, error)
	GetByID(ctx context.Context, id int64) (*models.Template, error)
	ListForUser(ctx context.Context, userID, familyID int64) ([]*models.Template, error)
	Delete(ctx context.Context, id int64) error
}

// Store bundles the repositories of one backend.
type Store interface {
	Users() UserRepository
	Summaries() SummaryRepository
	Families() FamilyRepository
	Categories() CategoryRepository
	Transactions() TransactionRepository
	Templates() TemplateRepository

	// WithinTx runs fn against repositories bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
