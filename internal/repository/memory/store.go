// Package memory is an in-process repository.Store used for local runs
// without PostgreSQL and by tests.
//
// Each method is atomic. WithinTx restores a snapshot when its function
// fails, which gives rollback but not isolation between concurrent
// transactions.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/repository"
)

type deliveryKey struct {
	userID      int64
	familyID    int64
	periodStart string
}

type data struct {
	seq        int64
	users      map[int64]models.User
	families   map[int64]models.Family
	members    []models.FamilyMember
	categories map[int64]models.Category
	txs        []models.Transaction
	templates  map[int64]models.Template
	deliveries map[deliveryKey]time.Time
}

func (d *data) nextID() int64 {
	d.seq++
	return d.seq
}

func (d *data) clone() *data {
	c := &data{
		seq:        d.seq,
		users:      make(map[int64]models.User, len(d.users)),
		families:   make(map[int64]models.Family, len(d.families)),
		members:    append([]models.FamilyMember(nil), d.members...),
		categories: make(map[int64]models.Category, len(d.categories)),
		txs:        append([]models.Transaction(nil), d.txs...),
		templates:  make(map[int64]models.Template, len(d.templates)),
		deliveries: make(map[deliveryKey]time.Time, len(d.deliveries)),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.families {
		c.families[k] = v
	}
	for k, v := range d.categories {
		c.categories[k] = v
	}
	for k, v := range d.templates {
		c.templates[k] = v
	}
	for k, v := range d.deliveries {
		c.deliveries[k] = v
	}
	return c
}

// Store implements repository.Store in memory.
type Store struct {
	mu   sync.Mutex
	d    *data
	now  func() time.Time
	inTx bool
}

// DefaultCategories are seeded into every new Store, mirroring the
// database migrations.
var DefaultCategories = []models.Category{
	{Name: "Groceries", Icon: "🛒", Kind: models.KindExpense},
	{Name: "Transport", Icon: "🚗", Kind: models.KindExpense},
	{Name: "Entertainment", Icon: "🎮", Kind: models.KindExpense},
	{Name: "Health", Icon: "💊", Kind: models.KindExpense},
	{Name: "Clothes", Icon: "👕", Kind: models.KindExpense},
	{Name: "Other", Icon: "📦", Kind: models.KindExpense},
	{Name: "Salary", Icon: "💼", Kind: models.KindIncome},
	{Name: "Bonus", Icon: "🏆", Kind: models.KindIncome},
	{Name: "Gifts", Icon: "🎁", Kind: models.KindIncome},
	{Name: "Cashback", Icon: "💳", Kind: models.KindIncome},
	{Name: "Other", Icon: "📦", Kind: models.KindIncome},
}

// New creates a Store seeded with the default categories.
func New() *Store {
	d := &data{
		users:      make(map[int64]models.User),
		families:   make(map[int64]models.Family),
		categories: make(map[int64]models.Category),
		templates:  make(map[int64]models.Template),
		deliveries: make(map[deliveryKey]time.Time),
	}
	for _, c := range DefaultCategories {
		c.ID = d.nextID()
		c.IsDefault = true
		d.categories[c.ID] = c
	}
	return &Store{d: d, now: time.Now}
}

// SetClock replaces the clock used for creation timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Users() repository.UserRepository               { return (*userRepository)(s) }
func (s *Store) Summaries() repository.SummaryRepository        { return (*summaryRepository)(s) }
func (s *Store) Families() repository.FamilyRepository          { return (*familyRepository)(s) }
func (s *Store) Categories() repository.CategoryRepository      { return (*categoryRepository)(s) }
func (s *Store) Transactions() repository.TransactionRepository { return (*transactionRepository)(s) }
func (s *Store) Templates() repository.TemplateRepository       { return (*templateRepository)(s) }

// WithinTx implements repository.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	s.mu.Lock()
	if s.inTx {
		s.mu.Unlock()
		return fn(s)
	}
	snapshot := s.d.clone()
	s.inTx = true
	s.mu.Unlock()

	err := fn(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inTx = false
	if err != nil {
		s.d = snapshot
	}
	return err
}

func (s *Store) lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

func sumAmounts(txs []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}
