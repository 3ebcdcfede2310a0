package admin

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/familybudget/internal/callback"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/repository/memory"
	"github.com/Kerhoff/familybudget/internal/service"
	"github.com/Kerhoff/familybudget/internal/session"
	"github.com/Kerhoff/familybudget/internal/telegram"
	"github.com/Kerhoff/familybudget/internal/telegram/telegramtest"
)

const operator = 900

type adminFixture struct {
	t        *testing.T
	ctx      context.Context
	now      time.Time
	svc      *service.Service
	rec      *telegramtest.Recorder
	router   *telegram.Router
	families []*models.Family
}

// newAdmin seeds n families "Family A", "Family B", ... owned by one user,
// each created an hour after the previous one.
func newAdmin(t *testing.T, n int) *adminFixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &adminFixture{
		t:   t,
		ctx: context.Background(),
		now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		rec: telegramtest.NewRecorder(),
	}
	clock := func() time.Time { return f.now }
	store := memory.New()
	store.SetClock(clock)
	f.svc = service.New(store, logger, service.WithClock(clock))

	f.router = telegram.NewRouter("admin", logger, f.rec, session.NewStore(),
		telegram.WithAllowList(func(s telegram.Sender) bool { return s.ID == operator }),
	)
	if err := New(f.svc, time.UTC, logger).Register(f.router); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	owner, err := f.svc.EnsureUser(f.ctx, 1, "owner", "Olga", "")
	if err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}
	for i := 0; i < n; i++ {
		family, err := f.svc.CreateFamily(f.ctx, owner, fmt.Sprintf("Family %c", 'A'+i))
		if err != nil {
			t.Fatalf("CreateFamily() error = %v", err)
		}
		f.families = append(f.families, family)
		f.now = f.now.Add(time.Hour)
	}
	return f
}

func (f *adminFixture) expense(family *models.Family, amount string) {
	f.t.Helper()
	owner, err := f.svc.EnsureUser(f.ctx, 1, "owner", "Olga", "")
	if err != nil {
		f.t.Fatalf("EnsureUser() error = %v", err)
	}
	cats, err := f.svc.Categories(f.ctx, owner.ID, family.ID, models.KindExpense)
	if err != nil || len(cats) == 0 {
		f.t.Fatalf("Categories() = %d, %v", len(cats), err)
	}
	_, err = f.svc.AddTransaction(f.ctx, owner, service.NewTransaction{
		Kind:       models.KindExpense,
		FamilyID:   family.ID,
		CategoryID: cats[0].ID,
		Amount:     decimal.RequireFromString(amount),
	})
	if err != nil {
		f.t.Fatalf("AddTransaction() error = %v", err)
	}
}

func (f *adminFixture) dispatch(ev *telegram.Event) {
	if ev.From.ID == 0 {
		ev.From = telegram.Sender{ID: operator, Username: "operator"}
	}
	ev.ChatID = ev.From.ID
	f.router.Dispatch(f.ctx, ev)
}

func (f *adminFixture) command(command string) {
	f.dispatch(&telegram.Event{Kind: telegram.EventCommand, Command: command})
}

func (f *adminFixture) text(text string) {
	f.dispatch(&telegram.Event{Kind: telegram.EventText, Text: text})
}

func (f *adminFixture) press(data string) {
	f.dispatch(&telegram.Event{Kind: telegram.EventCallback, CallbackID: "cb", Data: data, MessageID: 7})
}

func (f *adminFixture) expectLast(substr string) {
	f.t.Helper()
	if got := f.rec.Last().Text; !strings.Contains(got, substr) {
		f.t.Fatalf("last message = %q, want it to contain %q", got, substr)
	}
}

func (f *adminFixture) expectButton(data string) {
	f.t.Helper()
	for _, b := range f.rec.Last().Buttons() {
		if b == data {
			return
		}
	}
	f.t.Fatalf("buttons = %v, want %s", f.rec.Last().Buttons(), data)
}

func TestOnlyOperatorsGetIn(t *testing.T) {
	f := newAdmin(t, 0)
	f.dispatch(&telegram.Event{Kind: telegram.EventCommand, Command: "start", From: telegram.Sender{ID: 5}})
	f.expectLast("Access denied")

	f.command("start")
	f.expectLast("Admin panel")
}

func TestGlobalStats(t *testing.T) {
	f := newAdmin(t, 2)
	f.expense(f.families[0], "250.50")
	f.expense(f.families[1], "100")

	f.command("stats")
	f.expectLast("Families: <b>2</b>")
	f.expectLast("Users: <b>1</b>")
	f.expectLast("Active in the last 30 days: <b>2</b>")
	f.expectLast("350,50")
}

func TestFamiliesArePaged(t *testing.T) {
	f := newAdmin(t, 12)

	f.press(callback.New(callback.AdminFamilies, 0))
	f.expectLast("12 total")
	f.expectLast("Page 1 of 2")
	f.expectLast("Family L")
	f.expectButton(callback.New(callback.AdminFamilies, 1))

	f.press(callback.New(callback.AdminFamilies, 1))
	f.expectLast("Page 2 of 2")
	f.expectLast("Family A")
	f.expectButton(callback.New(callback.AdminFamilies, 0))

	// out-of-range pages are clamped
	f.press(callback.New(callback.AdminFamilies, 9))
	f.expectLast("Page 2 of 2")
}

func TestFamilyDetail(t *testing.T) {
	f := newAdmin(t, 1)
	f.expense(f.families[0], "42")

	f.press(callback.New(callback.AdminFamily, f.families[0].ID))
	f.expectLast("Family A")
	f.expectLast("Members (1)")
	f.expectLast("@owner")
	f.expectLast("Activity, last 12 months")
	f.expectLast("Mar 2025")

	f.press(callback.New(callback.AdminFamily, 999))
	f.expectLast("Not found")
}

func TestSearchFlow(t *testing.T) {
	f := newAdmin(t, 3)
	f.press(callback.New(callback.AdminSearch))
	f.press(callback.New(callback.AdminSearchMode, "name"))
	f.expectLast("part of the family name")

	f.text("x")
	if !strings.HasPrefix(f.rec.Last().Text, "⚠️") {
		t.Fatalf("short query answered with %q", f.rec.Last().Text)
	}

	f.text("family c")
	f.expectLast("Family C")
	f.expectButton(callback.New(callback.AdminFamily, f.families[2].ID))

	// the flow is over
	f.text("family b")
	f.expectLast("Use /start")
}

func TestSearchByID(t *testing.T) {
	f := newAdmin(t, 2)
	f.press(callback.New(callback.AdminSearchMode, "id"))
	f.text(fmt.Sprint(f.families[1].ID))
	f.expectLast("Family B")

	f.press(callback.New(callback.AdminSearchMode, "id"))
	f.text("424242")
	f.expectLast("No families found")
}

func TestTopFamilies(t *testing.T) {
	f := newAdmin(t, 3)
	f.expense(f.families[0], "10")
	f.expense(f.families[2], "500")

	f.command("top")
	f.expectButton(callback.New(callback.AdminTop, "expense", "month"))

	f.press(callback.New(callback.AdminTop, "expense", "month"))
	f.expectLast("1. Family C")
	f.expectLast("2. Family A")

	f.press(callback.New(callback.AdminTop, "income", "all"))
	f.expectLast("No records in this period")

	f.press(callback.New(callback.AdminTop, "expense", "decade"))
	f.expectLast("Not found")
}

func TestCancelSearchReturnsToModes(t *testing.T) {
	f := newAdmin(t, 0)
	f.press(callback.New(callback.AdminSearch))
	f.press(callback.New(callback.AdminSearchMode, "username"))
	f.press(callback.New(callback.Cancel))
	f.expectLast("Find a family")
}
