package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/period"
	"github.com/Kerhoff/familybudget/internal/repository"
)

func seed(t *testing.T, s *Store) (*models.User, *models.Family) {
	t.Helper()
	ctx := context.Background()
	u, err := s.Users().Create(ctx, &models.User{TelegramID: 1001, Name: "Anna", Username: "anna"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	f, err := s.Families().Create(ctx, &models.Family{Name: "Ivanov Household", InviteCode: "ABCD1234"})
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	if err := s.Families().AddMember(ctx, f.ID, u.ID, models.RoleAdmin); err != nil {
		t.Fatalf("add member: %v", err)
	}
	return u, f
}

func firstCategory(t *testing.T, s *Store, familyID int64, kind models.Kind) *models.Category {
	t.Helper()
	cats, err := s.Categories().ListForFamily(context.Background(), familyID, kind)
	if err != nil || len(cats) == 0 {
		t.Fatalf("list categories: %v (%d)", err, len(cats))
	}
	return cats[0]
}

func TestWithinTxRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, f := seed(t, s)
	cat := firstCategory(t, s, f.ID, models.KindExpense)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx repository.Store) error {
		_, err := tx.Transactions().Create(ctx, &models.Transaction{
			Kind: models.KindExpense, UserID: u.ID, FamilyID: f.ID, CategoryID: cat.ID,
			Amount: decimal.RequireFromString("10"), Date: time.Now(),
		})
		if err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx error = %v, want boom", err)
	}

	_, n, err := s.Transactions().Total(ctx, repository.TransactionFilter{Kind: models.KindExpense, FamilyID: f.ID})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("count after rollback = %d, want 0", n)
	}
}

func TestAddMemberTwice(t *testing.T) {
	s := New()
	u, f := seed(t, s)
	err := s.Families().AddMember(context.Background(), f.ID, u.ID, models.RoleMember)
	if !errors.Is(err, repository.ErrAlreadyMember) {
		t.Errorf("AddMember twice = %v, want ErrAlreadyMember", err)
	}
}

func TestCategoriesDefaultsFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, f := seed(t, s)

	fid := f.ID
	if _, err := s.Categories().Create(ctx, &models.Category{Name: "Pets", Kind: models.KindExpense, FamilyID: &fid}); err != nil {
		t.Fatal(err)
	}
	_, err := s.Categories().Create(ctx, &models.Category{Name: "Pets", Kind: models.KindExpense, FamilyID: &fid})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("duplicate create = %v, want ErrDuplicate", err)
	}

	cats, err := s.Categories().ListForFamily(ctx, f.ID, models.KindExpense)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 7 {
		t.Fatalf("got %d categories, want 7", len(cats))
	}
	if last := cats[len(cats)-1]; last.Name != "Pets" || last.IsDefault {
		t.Errorf("last category = %+v, want custom Pets", last)
	}
	for _, c := range cats[:6] {
		if !c.IsDefault {
			t.Errorf("category %q should be a default", c.Name)
		}
	}

	exists, err := s.Categories().NameExists(ctx, f.ID, "groceries", models.KindExpense)
	if err != nil || !exists {
		t.Errorf("NameExists(groceries) = %v, %v; want true", exists, err)
	}
	exists, _ = s.Categories().NameExists(ctx, f.ID, "Pets", models.KindIncome)
	if exists {
		t.Error("NameExists must be scoped by kind")
	}
}

func TestDeleteCategoryInUse(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, f := seed(t, s)
	fid := f.ID
	pets, _ := s.Categories().Create(ctx, &models.Category{Name: "Pets", Kind: models.KindExpense, FamilyID: &fid})
	other := firstCategory(t, s, f.ID, models.KindExpense)

	_, err := s.Transactions().Create(ctx, &models.Transaction{
		Kind: models.KindExpense, UserID: u.ID, FamilyID: f.ID, CategoryID: pets.ID,
		Amount: decimal.RequireFromString("5"), Date: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Categories().Delete(ctx, pets.ID); !errors.Is(err, repository.ErrCategoryInUse) {
		t.Fatalf("Delete = %v, want ErrCategoryInUse", err)
	}
	if err := s.Categories().Reassign(ctx, pets.ID, other.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Categories().Delete(ctx, pets.ID); err != nil {
		t.Fatalf("Delete after reassign: %v", err)
	}
	if err := s.Categories().Delete(ctx, other.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("deleting a default = %v, want ErrNotFound", err)
	}
}

func TestFamilyDeleteRemovesDependants(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, f := seed(t, s)
	cat := firstCategory(t, s, f.ID, models.KindIncome)

	if _, err := s.Transactions().Create(ctx, &models.Transaction{
		Kind: models.KindIncome, UserID: u.ID, FamilyID: f.ID, CategoryID: cat.ID,
		Amount: decimal.RequireFromString("100"), Date: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.Families().Delete(ctx, f.ID); err != nil {
		t.Fatal(err)
	}

	families, _ := s.Families().ListForUser(ctx, u.ID)
	if len(families) != 0 {
		t.Errorf("user still sees %d families", len(families))
	}
	total, _ := s.Transactions().GlobalTotal(ctx, models.KindIncome)
	if !total.IsZero() {
		t.Errorf("global income = %s, want 0", total)
	}
	if err := s.Families().Delete(ctx, f.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestAggregations(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, f := seed(t, s)
	cats, _ := s.Categories().ListForFamily(ctx, f.ID, models.KindExpense)
	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	add := func(cat *models.Category, amount string, date time.Time, desc string) {
		t.Helper()
		_, err := s.Transactions().Create(ctx, &models.Transaction{
			Kind: models.KindExpense, UserID: u.ID, FamilyID: f.ID, CategoryID: cat.ID,
			Amount: decimal.RequireFromString(amount), Date: date, Description: desc,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	add(cats[0], "100", day, "milk")
	add(cats[1], "300", day.Add(time.Hour), "taxi")
	add(cats[0], "50", day.AddDate(0, -1, 0), "bread")

	march := repository.TransactionFilter{
		Kind:     models.KindExpense,
		FamilyID: f.ID,
		Range:    period.Range{Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
	}
	total, n, _ := s.Transactions().Total(ctx, march)
	if !total.Equal(decimal.NewFromInt(400)) || n != 2 {
		t.Errorf("march total = %s/%d, want 400/2", total, n)
	}

	byCat, _ := s.Transactions().ByCategory(ctx, march)
	if len(byCat) != 2 || byCat[0].CategoryID != cats[1].ID {
		t.Errorf("ByCategory = %+v, want the taxi category first", byCat)
	}

	list, _ := s.Transactions().List(ctx, repository.TransactionFilter{Kind: models.KindExpense, FamilyID: f.ID, Query: "TAX"}, 10)
	if len(list) != 1 || list[0].Description != "taxi" || list[0].UserName != "Anna" {
		t.Errorf("search = %+v", list)
	}

	hist, _ := s.Transactions().MonthlyCounts(ctx, models.KindExpense, f.ID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.UTC)
	if len(hist) != 2 || hist[0].Month != time.February || hist[1].Count != 2 {
		t.Errorf("MonthlyCounts = %+v", hist)
	}
}

func TestMarkSentMovesForwardOnly(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, f := seed(t, s)
	periodStart := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := s.Summaries().MarkSent(ctx, u.ID, f.ID, periodStart, later); err != nil {
		t.Fatal(err)
	}
	if err := s.Summaries().MarkSent(ctx, u.ID, f.ID, periodStart, later.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	got, _ := s.Users().GetByID(ctx, u.ID)
	if got.LastMonthlySummarySent == nil || !got.LastMonthlySummarySent.Equal(later) {
		t.Errorf("last sent = %v, want %v", got.LastMonthlySummarySent, later)
	}
	delivered, _ := s.Summaries().DeliveredFamilies(ctx, u.ID, periodStart)
	if !delivered[f.ID] || len(delivered) != 1 {
		t.Errorf("delivered = %v", delivered)
	}
}

func TestListPageNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		created := base.Add(time.Duration(i) * time.Hour)
		s.SetClock(func() time.Time { return created })
		if _, err := s.Families().Create(ctx, &models.Family{Name: "F", InviteCode: string(rune('A'+i)) + "0000000"}); err != nil {
			t.Fatal(err)
		}
	}

	page, _ := s.Families().ListPage(ctx, 10, 10)
	if len(page) != 2 {
		t.Fatalf("second page has %d rows, want 2", len(page))
	}
	if !page[0].CreatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("second page starts at %v", page[0].CreatedAt)
	}
	if empty, _ := s.Families().ListPage(ctx, 10, 20); len(empty) != 0 {
		t.Errorf("page past the end has %d rows", len(empty))
	}
}
