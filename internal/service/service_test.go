package service

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/money"
	"github.com/Kerhoff/familybudget/internal/period"
	"github.com/Kerhoff/familybudget/internal/repository"
	"github.com/Kerhoff/familybudget/internal/repository/memory"
	"github.com/Kerhoff/familybudget/internal/telegram/telegramtest"
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	svc   *Service
	store *memory.Store
	rec   *telegramtest.Recorder
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: memory.New(),
		rec:   telegramtest.NewRecorder(),
		now:   time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.store.SetClock(clock)
	f.svc = New(f.store, logger, WithMessenger(f.rec), WithClock(clock))
	return f
}

func (f *fixture) user(telegramID int64, name string) *models.User {
	f.t.Helper()
	u, err := f.svc.EnsureUser(f.ctx, telegramID, "", name, "")
	if err != nil {
		f.t.Fatalf("EnsureUser() error = %v", err)
	}
	return u
}

func (f *fixture) family(owner *models.User, name string) *models.Family {
	f.t.Helper()
	family, err := f.svc.CreateFamily(f.ctx, owner, name)
	if err != nil {
		f.t.Fatalf("CreateFamily() error = %v", err)
	}
	return family
}

func (f *fixture) join(u *models.User, family *models.Family) {
	f.t.Helper()
	if _, err := f.svc.JoinFamily(f.ctx, u, family.InviteCode); err != nil {
		f.t.Fatalf("JoinFamily() error = %v", err)
	}
}

// category finds a category of the family by name.
func (f *fixture) category(u *models.User, familyID int64, kind models.Kind, name string) int64 {
	f.t.Helper()
	list, err := f.svc.Categories(f.ctx, u.ID, familyID, kind)
	if err != nil {
		f.t.Fatalf("Categories() error = %v", err)
	}
	for _, c := range list {
		if c.Name == name {
			return c.ID
		}
	}
	f.t.Fatalf("no %s category %q", kind, name)
	return 0
}

func (f *fixture) add(u *models.User, familyID int64, kind models.Kind, category, amount, description string, date time.Time) *models.Transaction {
	f.t.Helper()
	tx, err := f.svc.AddTransaction(f.ctx, u, NewTransaction{
		Kind:        kind,
		FamilyID:    familyID,
		CategoryID:  f.category(u, familyID, kind, category),
		Amount:      decimal.RequireFromString(amount),
		Description: description,
		Date:        date,
	})
	if err != nil {
		f.t.Fatalf("AddTransaction() error = %v", err)
	}
	return tx
}

func TestHouseholdScenario(t *testing.T) {
	f := newFixture(t)
	alice := f.user(100, "Alice")
	bob := f.user(200, "Bob")

	family := f.family(alice, "Ivanov Household")
	if !regexp.MustCompile(`^[A-Z0-9]{8}$`).MatchString(family.InviteCode) {
		t.Fatalf("invite code = %q", family.InviteCode)
	}
	f.join(bob, family)

	card, err := f.svc.Family(f.ctx, alice.ID, family.ID)
	if err != nil {
		t.Fatalf("Family() error = %v", err)
	}
	roles := map[int64]models.Role{}
	for _, m := range card.Members {
		roles[m.User.ID] = m.Role
	}
	if roles[alice.ID] != models.RoleAdmin || roles[bob.ID] != models.RoleMember {
		t.Fatalf("roles = %v", roles)
	}

	f.add(bob, family.ID, models.KindExpense, "Groceries", "1500.50", "groceries", time.Time{})

	recent, err := f.svc.Recent(f.ctx, alice.ID, family.ID, RecentLimit)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 || recent[0].Description != "groceries" {
		t.Fatalf("recent = %+v", recent)
	}
	if got := money.Format(recent[0].Amount, alice.CurrencySymbol()); got != "1 500,50 ₽" {
		t.Fatalf("formatted amount = %q", got)
	}

	toAlice := f.rec.MessagesTo(alice.TelegramID)
	if len(toAlice) != 1 || !strings.Contains(toAlice[0].Text, "1 500,50 ₽") {
		t.Fatalf("notifications to Alice = %+v", toAlice)
	}
	if n := len(f.rec.MessagesTo(bob.TelegramID)); n != 0 {
		t.Fatalf("author received %d notifications", n)
	}
}

func TestFamilyRoundTrip(t *testing.T) {
	f := newFixture(t)
	a := f.user(1, "A")
	b := f.user(2, "B")
	family := f.family(a, "Round Trip")
	f.join(b, family)

	for _, u := range []*models.User{a, b} {
		families, err := f.svc.Families(f.ctx, u.ID)
		if err != nil {
			t.Fatalf("Families() error = %v", err)
		}
		if len(families) != 1 || families[0].ID != family.ID {
			t.Fatalf("families of %s = %+v", u.Name, families)
		}
	}

	if _, err := f.svc.JoinFamily(f.ctx, b, family.InviteCode); !errors.Is(err, repository.ErrAlreadyMember) {
		t.Fatalf("second join error = %v", err)
	}
	if _, err := f.svc.JoinFamily(f.ctx, b, "ZZZZZZZZ"); !errors.Is(err, ErrInvalidInviteCode) {
		t.Fatalf("unknown code error = %v", err)
	}
	if _, err := f.svc.JoinFamily(f.ctx, b, "abc"); !flow.IsValidation(err) {
		t.Fatalf("malformed code error = %v", err)
	}
}

func TestAdminOnlyActions(t *testing.T) {
	f := newFixture(t)
	admin := f.user(1, "Admin")
	member := f.user(2, "Member")
	family := f.family(admin, "Rules")
	f.join(member, family)

	if err := f.svc.RenameFamily(f.ctx, member.ID, family.ID, "Mine"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member rename error = %v", err)
	}
	if _, err := f.svc.RegenerateInviteCode(f.ctx, member.ID, family.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member regenerate error = %v", err)
	}
	if err := f.svc.RemoveMember(f.ctx, admin.ID, family.ID, admin.ID); !errors.Is(err, ErrRemoveSelf) {
		t.Fatalf("remove self error = %v", err)
	}

	code, err := f.svc.RegenerateInviteCode(f.ctx, admin.ID, family.ID)
	if err != nil || code == family.InviteCode {
		t.Fatalf("RegenerateInviteCode() = %q, %v", code, err)
	}
	if err := f.svc.RenameFamily(f.ctx, admin.ID, family.ID, "Renamed"); err != nil {
		t.Fatalf("RenameFamily() error = %v", err)
	}

	outsider := f.user(3, "Outsider")
	if _, err := f.svc.Family(f.ctx, outsider.ID, family.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("outsider view error = %v", err)
	}
}

func TestLeaveFamily(t *testing.T) {
	f := newFixture(t)
	admin := f.user(1, "Admin")
	member := f.user(2, "Member")
	family := f.family(admin, "Leavers")
	f.join(member, family)

	if _, err := f.svc.LeaveFamily(f.ctx, admin.ID, family.ID); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("last admin leave error = %v", err)
	}
	deleted, err := f.svc.LeaveFamily(f.ctx, member.ID, family.ID)
	if err != nil || deleted {
		t.Fatalf("member leave = %v, %v", deleted, err)
	}
	deleted, err = f.svc.LeaveFamily(f.ctx, admin.ID, family.ID)
	if err != nil || !deleted {
		t.Fatalf("sole member leave = %v, %v", deleted, err)
	}
	families, _ := f.svc.Families(f.ctx, admin.ID)
	if len(families) != 0 {
		t.Fatalf("family survived: %+v", families)
	}
}

func TestAddTransactionChecksCategory(t *testing.T) {
	f := newFixture(t)
	u := f.user(1, "U")
	mine := f.family(u, "Mine")
	owner := f.user(2, "O")
	other := f.family(owner, "Other")

	if _, err := f.svc.CreateCategory(f.ctx, u.ID, other.ID, models.KindExpense, "Boat"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("outsider CreateCategory() error = %v", err)
	}
	foreign, err := f.svc.CreateCategory(f.ctx, owner.ID, other.ID, models.KindExpense, "Boat")
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	tests := []struct {
		name       string
		kind       models.Kind
		familyID   int64
		categoryID int64
		amount     string
		want       error
	}{
		{"kind mismatch", models.KindIncome, mine.ID, f.category(u, mine.ID, models.KindExpense, "Groceries"), "10", ErrCategoryKindMismatch},
		{"foreign category", models.KindExpense, mine.ID, foreign.ID, "10", ErrCategoryScope},
		{"not a member", models.KindExpense, other.ID, foreign.ID, "10", repository.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddTransaction(f.ctx, u, NewTransaction{
				Kind:       tt.kind,
				FamilyID:   tt.familyID,
				CategoryID: tt.categoryID,
				Amount:     decimal.RequireFromString(tt.amount),
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("AddTransaction() error = %v, want %v", err, tt.want)
			}
		})
	}

	_, err = f.svc.AddTransaction(f.ctx, u, NewTransaction{
		Kind:       models.KindExpense,
		FamilyID:   mine.ID,
		CategoryID: f.category(u, mine.ID, models.KindExpense, "Groceries"),
		Amount:     decimal.Zero,
	})
	if !flow.IsValidation(err) {
		t.Fatalf("zero amount error = %v", err)
	}
}

func TestNotificationFailuresAreIsolated(t *testing.T) {
	f := newFixture(t)
	author := f.user(1, "Author")
	blocked := f.user(2, "Blocked")
	muted := f.user(3, "Muted")
	reader := f.user(4, "Reader")
	family := f.family(author, "Noisy")
	for _, u := range []*models.User{blocked, muted, reader} {
		f.join(u, family)
	}
	muted.ExpenseNotificationsEnabled = false
	if err := f.svc.UpdateSettings(f.ctx, muted); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	f.rec.FailChats[blocked.TelegramID] = true

	f.add(author, family.ID, models.KindExpense, "Transport", "250", "", time.Time{})

	if n := len(f.rec.MessagesTo(reader.TelegramID)); n != 1 {
		t.Fatalf("reader got %d notifications, want 1", n)
	}
	if n := len(f.rec.MessagesTo(muted.TelegramID)); n != 0 {
		t.Fatalf("muted user got %d notifications", n)
	}
}

func TestStatsReconcileAndZeroIncome(t *testing.T) {
	f := newFixture(t)
	u := f.user(1, "U")
	peer := f.user(2, "P")
	family := f.family(u, "Stats")
	f.join(peer, family)

	f.add(u, family.ID, models.KindExpense, "Groceries", "100.10", "", time.Time{})
	f.add(u, family.ID, models.KindExpense, "Groceries", "0.05", "", time.Time{})
	f.add(peer, family.ID, models.KindExpense, "Transport", "33.33", "", time.Time{})
	f.add(peer, family.ID, models.KindExpense, "Health", "66.67", "", time.Time{})

	rng, err := period.Resolve(period.Month, f.now, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	stats, err := f.svc.Stats(f.ctx, u.ID, family.ID, rng)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	sum := decimal.Zero
	for _, c := range stats.Expenses.Categories {
		sum = sum.Add(c.Amount)
	}
	if !sum.Equal(stats.Expenses.Total) || !stats.Expenses.Total.Equal(decimal.RequireFromString("200.15")) {
		t.Fatalf("categories sum %s, total %s", sum, stats.Expenses.Total)
	}
	if stats.Expenses.Categories[0].Name != "Groceries" {
		t.Fatalf("largest category = %q", stats.Expenses.Categories[0].Name)
	}
	if len(stats.Expenses.Users) != 2 {
		t.Fatalf("users = %+v", stats.Expenses.Users)
	}

	if !stats.Incomes.Total.IsZero() || len(stats.Incomes.Categories) != 0 {
		t.Fatalf("incomes = %+v", stats.Incomes)
	}
	for _, c := range stats.Incomes.Categories {
		if !c.Percent.IsZero() {
			t.Fatalf("percent with zero total = %s", c.Percent)
		}
	}
	if !stats.Balance().Equal(decimal.RequireFromString("-200.15")) {
		t.Fatalf("balance = %s", stats.Balance())
	}
}

func TestHistogramIsZeroPadded(t *testing.T) {
	f := newFixture(t)
	u := f.user(1, "U")
	family := f.family(u, "History")

	f.add(u, family.ID, models.KindExpense, "Groceries", "1", "", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	f.add(u, family.ID, models.KindIncome, "Salary", "1", "", time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC))
	f.add(u, family.ID, models.KindExpense, "Groceries", "1", "", time.Date(2024, 12, 24, 10, 0, 0, 0, time.UTC))
	f.add(u, family.ID, models.KindExpense, "Groceries", "1", "", time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC))

	h, err := f.svc.Histogram(f.ctx, family.ID, HistogramMonths, time.UTC)
	if err != nil {
		t.Fatalf("Histogram() error = %v", err)
	}
	if len(h) != HistogramMonths {
		t.Fatalf("len = %d", len(h))
	}
	first, last := h[0], h[len(h)-1]
	if first.Year != 2024 || first.Month != time.April || last.Year != 2025 || last.Month != time.March {
		t.Fatalf("window %d-%d .. %d-%d", first.Year, first.Month, last.Year, last.Month)
	}
	if last.Count != 2 {
		t.Fatalf("March count = %d, want 2", last.Count)
	}
	total := 0
	for _, b := range h {
		total += b.Count
	}
	if total != 3 {
		t.Fatalf("total in window = %d, want 3", total)
	}
}

func TestHistogramMonthsFollowLocation(t *testing.T) {
	moscow, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name       string
		loc        *time.Location
		feb, march int
	}{
		{"utc", time.UTC, 1, 0},
		// 28 February 22:30 UTC is already 1 March in Moscow.
		{"moscow", moscow, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			u := f.user(1, "U")
			family := f.family(u, "Edge")
			f.add(u, family.ID, models.KindExpense, "Groceries", "1", "", time.Date(2025, 2, 28, 22, 30, 0, 0, time.UTC))

			h, err := f.svc.Histogram(f.ctx, family.ID, HistogramMonths, tt.loc)
			if err != nil {
				t.Fatalf("Histogram() error = %v", err)
			}
			feb, march := h[len(h)-2], h[len(h)-1]
			if feb.Month != time.February || march.Month != time.March {
				t.Fatalf("window ends %s, %s", feb.Month, march.Month)
			}
			if feb.Count != tt.feb || march.Count != tt.march {
				t.Fatalf("counts = %d/%d, want %d/%d", feb.Count, march.Count, tt.feb, tt.march)
			}
		})
	}
}

func TestDeleteCategory(t *testing.T) {
	f := newFixture(t)
	u := f.user(1, "U")
	family := f.family(u, "Cats")

	pets, err := f.svc.CreateCategory(f.ctx, u.ID, family.ID, models.KindExpense, "Pets")
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if _, err := f.svc.CreateCategory(f.ctx, u.ID, family.ID, models.KindExpense, "pets"); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("duplicate name error = %v", err)
	}
	f.add(u, family.ID, models.KindExpense, "Pets", "10", "", time.Time{})

	if err := f.svc.DeleteCategory(f.ctx, u.ID, family.ID, pets.ID, 0); !errors.Is(err, repository.ErrCategoryInUse) {
		t.Fatalf("delete in use error = %v", err)
	}
	salary := f.category(u, family.ID, models.KindIncome, "Salary")
	if err := f.svc.DeleteCategory(f.ctx, u.ID, family.ID, pets.ID, salary); !errors.Is(err, ErrCategoryKindMismatch) {
		t.Fatalf("reassign to income error = %v", err)
	}
	other := f.category(u, family.ID, models.KindExpense, "Other")
	if err := f.svc.DeleteCategory(f.ctx, u.ID, family.ID, pets.ID, other); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}

	recent, _ := f.svc.Recent(f.ctx, u.ID, family.ID, RecentLimit)
	if len(recent) != 1 || recent[0].CategoryID != other {
		t.Fatalf("transaction not moved: %+v", recent)
	}
	groceries := f.category(u, family.ID, models.KindExpense, "Groceries")
	if err := f.svc.RenameCategory(f.ctx, u.ID, family.ID, groceries, "Food"); !errors.Is(err, ErrDefaultCategory) {
		t.Fatalf("rename default error = %v", err)
	}
}

func TestTemplates(t *testing.T) {
	f := newFixture(t)
	u := f.user(1, "U")
	family := f.family(u, "Tpl")

	tpl, err := f.svc.CreateTemplate(f.ctx, u, NewTemplate{
		FamilyID:   family.ID,
		Name:       "Coffee",
		CategoryID: f.category(u, family.ID, models.KindExpense, "Other"),
		Amount:     decimal.RequireFromString("3.5"),
	})
	if err != nil {
		t.Fatalf("CreateTemplate() error = %v", err)
	}
	tx, err := f.svc.UseTemplate(f.ctx, u, tpl.ID)
	if err != nil {
		t.Fatalf("UseTemplate() error = %v", err)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("3.5")) || !tx.Date.Equal(f.now) {
		t.Fatalf("transaction = %+v", tx)
	}

	stranger := f.user(2, "S")
	if _, err := f.svc.UseTemplate(f.ctx, stranger, tpl.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("stranger use error = %v", err)
	}
	if err := f.svc.DeleteTemplate(f.ctx, u.ID, tpl.ID); err != nil {
		t.Fatalf("DeleteTemplate() error = %v", err)
	}
	list, _ := f.svc.Templates(f.ctx, u.ID, family.ID)
	if len(list) != 0 {
		t.Fatalf("templates = %+v", list)
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	u := f.user(1, "U")
	family := f.family(u, "Search")
	f.add(u, family.ID, models.KindExpense, "Groceries", "1", "Milk and bread", time.Time{})
	f.add(u, family.ID, models.KindIncome, "Cashback", "1", "milk cashback", time.Time{})
	f.add(u, family.ID, models.KindExpense, "Transport", "1", "taxi", time.Time{})

	found, err := f.svc.Search(f.ctx, u.ID, family.ID, "MILK")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("found %d, want 2", len(found))
	}
	if _, err := f.svc.Search(f.ctx, u.ID, family.ID, "m"); !flow.IsValidation(err) {
		t.Fatalf("short query error = %v", err)
	}
}

func TestAdminViews(t *testing.T) {
	f := newFixture(t)
	owner := f.user(1, "Owner")
	for i := 0; i < 12; i++ {
		f.now = f.now.Add(time.Minute)
		f.family(owner, "Family "+string(rune('A'+i)))
	}

	page, err := f.svc.FamiliesPage(f.ctx, 5)
	if err != nil {
		t.Fatalf("FamiliesPage() error = %v", err)
	}
	if page.Page != 1 || page.Pages != 2 || len(page.Families) != 2 {
		t.Fatalf("page = %+v", page)
	}
	first, _ := f.svc.FamiliesPage(f.ctx, 0)
	if first.Families[0].Name != "Family L" {
		t.Fatalf("newest family = %q", first.Families[0].Name)
	}

	stats, err := f.svc.GlobalStats(f.ctx)
	if err != nil {
		t.Fatalf("GlobalStats() error = %v", err)
	}
	if stats.Families != 12 || stats.Users != 1 || stats.ActiveFamilies != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	found, err := f.svc.SearchFamilies(f.ctx, flow.AdminSearchByName, "family c")
	if err != nil || len(found) != 1 {
		t.Fatalf("SearchFamilies() = %+v, %v", found, err)
	}
	if _, err := f.svc.SearchFamilies(f.ctx, flow.AdminSearchByID, "abc"); !flow.IsValidation(err) {
		t.Fatalf("bad id error = %v", err)
	}
	overview, err := f.svc.FamilyOverview(f.ctx, found[0].ID, time.UTC)
	if err != nil {
		t.Fatalf("FamilyOverview() error = %v", err)
	}
	if len(overview.Members) != 1 || len(overview.Histogram) != HistogramMonths {
		t.Fatalf("overview = %+v", overview)
	}
}
