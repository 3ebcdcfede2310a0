package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/period"
	"github.com/Kerhoff/familybudget/internal/repository"
)

// Administrator view limits.
const (
	FamiliesPerPage = 10
	TopLimit        = 10
	AdminSearchMax  = 20
	activeWindow    = 30 * 24 * time.Hour
	globalStatsKey  = "admin:global_stats"
	globalStatsTTL  = time.Minute
)

// GlobalStats returns the administrator overview. Results are cached for
// a minute when a cache is configured.
func (s *Service) GlobalStats(ctx context.Context) (*models.GlobalStats, error) {
	var cached models.GlobalStats
	if ok, err := s.cache.Get(ctx, globalStatsKey, &cached); err != nil {
		s.logger.WithError(err).Warn("Failed to read global stats from cache")
	} else if ok {
		return &cached, nil
	}

	stats := &models.GlobalStats{}
	var err error
	if stats.Families, err = s.store.Families().Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count families: %w", err)
	}
	if stats.Users, err = s.store.Users().Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	since := s.now().Add(-activeWindow)
	active := make(map[int64]bool)
	for _, kind := range models.Kinds {
		ids, err := s.store.Transactions().ActiveFamilyIDs(ctx, kind, since)
		if err != nil {
			return nil, fmt.Errorf("failed to find active families: %w", err)
		}
		for _, id := range ids {
			active[id] = true
		}
	}
	stats.ActiveFamilies = len(active)

	if stats.TotalExpenses, err = s.store.Transactions().GlobalTotal(ctx, models.KindExpense); err != nil {
		return nil, err
	}
	if stats.TotalIncomes, err = s.store.Transactions().GlobalTotal(ctx, models.KindIncome); err != nil {
		return nil, err
	}
	if stats.Families > 0 {
		n := decimal.NewFromInt(int64(stats.Families))
		stats.AvgExpensePerFam = stats.TotalExpenses.Div(n).Round(2)
		stats.AvgIncomePerFam = stats.TotalIncomes.Div(n).Round(2)
	}

	if err := s.cache.Set(ctx, globalStatsKey, stats, globalStatsTTL); err != nil {
		s.logger.WithError(err).Warn("Failed to cache global stats")
	}
	return stats, nil
}

// FamilyPage is one page of the administrator family list.
type FamilyPage struct {
	Families []models.FamilySummary `json:"families"`
	Page     int                    `json:"page"`
	Pages    int                    `json:"pages"`
	Total    int                    `json:"total"`
}

// FamiliesPage lists families newest first. Pages are numbered from zero
// and out-of-range numbers are clamped.
func (s *Service) FamiliesPage(ctx context.Context, page int) (*FamilyPage, error) {
	total, err := s.store.Families().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count families: %w", err)
	}
	pages := (total + FamiliesPerPage - 1) / FamiliesPerPage
	if pages == 0 {
		pages = 1
	}
	if page >= pages {
		page = pages - 1
	}
	if page < 0 {
		page = 0
	}
	list, err := s.store.Families().ListPage(ctx, FamiliesPerPage, page*FamiliesPerPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	return &FamilyPage{Families: list, Page: page, Pages: pages, Total: total}, nil
}

// FamilyOverview is the administrator's detail view of a family.
type FamilyOverview struct {
	Family    *models.Family
	Members   []models.Member
	Month     *FamilyStats
	PrevMonth *FamilyStats
	AllTime   *FamilyStats
	Histogram []models.MonthCount
	Recent    []*models.Transaction
}

// FamilyOverview gathers the administrator detail of any family, in loc.
func (s *Service) FamilyOverview(ctx context.Context, familyID int64, loc *time.Location) (*FamilyOverview, error) {
	now := s.now()
	o := &FamilyOverview{}

	for _, p := range []struct {
		period period.Period
		dst    **FamilyStats
	}{
		{period.Month, &o.Month},
		{period.PreviousMonth, &o.PrevMonth},
		{period.All, &o.AllTime},
	} {
		rng, err := period.Resolve(p.period, now, loc)
		if err != nil {
			return nil, err
		}
		stats, err := s.familyStats(ctx, familyID, rng)
		if err != nil {
			return nil, err
		}
		*p.dst = stats
	}
	o.Family = o.AllTime.Family

	var err error
	if o.Members, err = s.store.Families().ListMembers(ctx, familyID); err != nil {
		return nil, fmt.Errorf("failed to list members of family %d: %w", familyID, err)
	}
	if o.Histogram, err = s.Histogram(ctx, familyID, HistogramMonths, loc); err != nil {
		return nil, err
	}
	if o.Recent, err = s.merged(ctx, repository.TransactionFilter{FamilyID: familyID}, RecentLimit); err != nil {
		return nil, err
	}
	return o, nil
}

// SearchFamilies finds families by id, name substring or member username
// substring.
func (s *Service) SearchFamilies(ctx context.Context, mode flow.AdminSearchMode, query string) ([]*models.Family, error) {
	query = strings.TrimSpace(query)
	families := s.store.Families()

	switch mode {
	case flow.AdminSearchByID:
		id, err := strconv.ParseInt(query, 10, 64)
		if err != nil || id <= 0 {
			return nil, &flow.ValidationError{Message: "Send a numeric family ID."}
		}
		f, err := families.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get family %d: %w", id, err)
		}
		if f == nil {
			return nil, nil
		}
		return []*models.Family{f}, nil

	case flow.AdminSearchByName:
		q, err := flow.SearchQuery(query)
		if err != nil {
			return nil, err
		}
		return families.SearchByName(ctx, q, AdminSearchMax)

	case flow.AdminSearchByUsername:
		q, err := flow.SearchQuery(strings.TrimPrefix(query, "@"))
		if err != nil {
			return nil, err
		}
		return families.SearchByUsername(ctx, q, AdminSearchMax)
	}
	return nil, fmt.Errorf("unknown search mode %q", string(mode))
}

// TopFamilies ranks families by their total of kind within p, in loc.
func (s *Service) TopFamilies(ctx context.Context, kind models.Kind, p period.Period, loc *time.Location) ([]models.FamilyTotal, error) {
	rng, err := period.Resolve(p, s.now(), loc)
	if err != nil {
		return nil, err
	}
	top, err := s.store.Transactions().TopFamilies(ctx, kind, rng, TopLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank families: %w", err)
	}
	return top, nil
}
