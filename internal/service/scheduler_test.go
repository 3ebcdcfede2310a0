package service

import (
	"strings"
	"testing"
	"time"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/period"
)

// summaryFixture has two members of one family with monthly summaries at
// 09:00 and a March expense each. The clock is left on 1 April.
func summaryFixture(t *testing.T) (*fixture, *SummaryScheduler, *models.User, *models.User) {
	t.Helper()
	f := newFixture(t)
	a := f.user(10, "Anna")
	b := f.user(20, "Boris")
	family := f.family(a, "Ivanov Household")
	f.join(b, family)

	march := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	f.add(a, family.ID, models.KindExpense, "Groceries", "1200", "market", march)
	f.add(b, family.ID, models.KindExpense, "Transport", "300", "taxi", march)

	for _, u := range []*models.User{a, b} {
		u.MonthlySummaryEnabled = true
		u.MonthlySummaryTime = "09:00"
		if err := f.svc.UpdateSettings(f.ctx, u); err != nil {
			t.Fatalf("UpdateSettings() error = %v", err)
		}
	}

	f.rec.Reset()
	f.now = time.Date(2025, 4, 1, 9, 5, 0, 0, time.UTC)
	return f, NewSummaryScheduler(f.svc, f.rec, time.UTC, time.Hour, time.Minute), a, b
}

func TestSummaryTickIsIdempotent(t *testing.T) {
	f, s, a, b := summaryFixture(t)

	for i := 0; i < 2; i++ {
		if err := s.Tick(f.ctx); err != nil {
			t.Fatalf("Tick() #%d error = %v", i+1, err)
		}
	}

	for _, u := range []*models.User{a, b} {
		if n := len(f.rec.MessagesTo(u.TelegramID)); n != 1 {
			t.Fatalf("%s got %d summaries, want 1", u.Name, n)
		}
	}
	docs := f.rec.Documents()
	if len(docs) != 2 {
		t.Fatalf("documents = %d, want 2", len(docs))
	}
	for _, d := range docs {
		if len(d.Data) == 0 || d.Name == "" {
			t.Fatalf("empty document %+v", d)
		}
	}
}

func TestSummaryTickGates(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
	}{
		{"not the first day", time.Date(2025, 4, 2, 9, 5, 0, 0, time.UTC)},
		{"other hour", time.Date(2025, 4, 1, 10, 5, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, s, _, _ := summaryFixture(t)
			f.now = tt.now
			if err := s.Tick(f.ctx); err != nil {
				t.Fatalf("Tick() error = %v", err)
			}
			if n := len(f.rec.Messages()); n != 0 {
				t.Fatalf("sent %d messages, want none", n)
			}
		})
	}
}

func TestSummaryFailureIsRetriedLater(t *testing.T) {
	f, s, a, b := summaryFixture(t)
	f.rec.FailChats[a.TelegramID] = true

	if err := s.Tick(f.ctx); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if n := len(f.rec.MessagesTo(b.TelegramID)); n != 1 {
		t.Fatalf("healthy user got %d summaries, want 1", n)
	}

	delete(f.rec.FailChats, a.TelegramID)
	f.now = f.now.Add(10 * time.Minute)
	if err := s.Tick(f.ctx); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if n := len(f.rec.MessagesTo(a.TelegramID)); n != 1 {
		t.Fatalf("recovered user got %d summaries, want 1", n)
	}
	if n := len(f.rec.MessagesTo(b.TelegramID)); n != 1 {
		t.Fatalf("healthy user got %d summaries after retry, want 1", n)
	}
}

func TestSummaryWithoutHourPreference(t *testing.T) {
	f, s, a, b := summaryFixture(t)
	a.MonthlySummaryTime = ""
	if err := f.svc.UpdateSettings(f.ctx, a); err != nil {
		t.Fatal(err)
	}
	f.now = time.Date(2025, 4, 1, 15, 0, 0, 0, time.UTC)

	if err := s.Tick(f.ctx); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if n := len(f.rec.MessagesTo(a.TelegramID)); n != 1 {
		t.Fatalf("user without preference got %d summaries, want 1", n)
	}
	if n := len(f.rec.MessagesTo(b.TelegramID)); n != 0 {
		t.Fatalf("user with 09:00 got %d summaries at 15:00", n)
	}
}

func TestSummaryMonthAcrossTimezones(t *testing.T) {
	tests := []struct {
		name      string
		scheduler string
		user      string
		at        string
		now       time.Time
	}{
		// 1 April 03:05 in Moscow is still 31 March in New York.
		{"user a day behind", "Europe/Moscow", "America/New_York", "03:00",
			time.Date(2025, 4, 1, 0, 5, 0, 0, time.UTC)},
		// 1 April 23:05 in Honolulu is already 2 April in Tokyo.
		{"user a day ahead", "Pacific/Honolulu", "Asia/Tokyo", "23:00",
			time.Date(2025, 4, 2, 9, 5, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _, a, b := summaryFixture(t)
			loc, err := time.LoadLocation(tt.scheduler)
			if err != nil {
				t.Fatal(err)
			}
			for _, u := range []*models.User{a, b} {
				u.Timezone = tt.user
				u.MonthlySummaryTime = tt.at
				if err := f.svc.UpdateSettings(f.ctx, u); err != nil {
					t.Fatalf("UpdateSettings() error = %v", err)
				}
			}
			f.now = tt.now
			s := NewSummaryScheduler(f.svc, f.rec, loc, time.Hour, time.Minute)

			for i := 0; i < 2; i++ {
				if err := s.Tick(f.ctx); err != nil {
					t.Fatalf("Tick() #%d error = %v", i+1, err)
				}
			}
			for _, u := range []*models.User{a, b} {
				msgs := f.rec.MessagesTo(u.TelegramID)
				if len(msgs) != 1 {
					t.Fatalf("%s got %d summaries, want 1", u.Name, len(msgs))
				}
				if !strings.Contains(msgs[0].Text, "March 2025") {
					t.Fatalf("%s summary does not cover March: %q", u.Name, msgs[0].Text)
				}
			}
			if n := len(f.rec.Documents()); n != 2 {
				t.Fatalf("documents = %d, want 2", n)
			}
		})
	}
}

func TestMonthlyReportCoversOwnExpenses(t *testing.T) {
	f, _, a, _ := summaryFixture(t)
	families, err := f.svc.Families(f.ctx, a.ID)
	if err != nil || len(families) != 1 {
		t.Fatalf("Families() = %v, %v", families, err)
	}

	march := period.Range{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	m, err := f.svc.MonthlyReport(f.ctx, a, families[0], march)
	if err != nil {
		t.Fatalf("MonthlyReport() error = %v", err)
	}
	if m.Count != 1 || m.Total.String() != "1200" {
		t.Fatalf("report total %s over %d items", m.Total, m.Count)
	}
	if len(m.Categories) != 1 || m.Categories[0].Name != "Groceries" || len(m.Categories[0].Items) != 1 {
		t.Fatalf("categories = %+v", m.Categories)
	}
}
