package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/repository"
)

type userRepository Store

func (r *userRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	defer (*Store)(r).lock()()
	for _, u := range r.d.users {
		if u.TelegramID == user.TelegramID {
			return nil, fmt.Errorf("user %d: %w", user.TelegramID, repository.ErrDuplicate)
		}
	}
	user.ID = r.d.nextID()
	user.CreatedAt = r.now()
	r.d.users[user.ID] = *user
	out := *user
	return &out, nil
}

func (r *userRepository) GetByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	defer (*Store)(r).lock()()
	for _, u := range r.d.users {
		if u.TelegramID == telegramID {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *userRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	defer (*Store)(r).lock()()
	u, ok := r.d.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepository) UpdateProfile(_ context.Context, user *models.User) error {
	defer (*Store)(r).lock()()
	u, ok := r.d.users[user.ID]
	if !ok {
		return fmt.Errorf("user %d: %w", user.ID, repository.ErrNotFound)
	}
	u.Name = user.Name
	u.Username = user.Username
	r.d.users[user.ID] = u
	return nil
}

func (r *userRepository) UpdateSettings(_ context.Context, user *models.User) error {
	defer (*Store)(r).lock()()
	u, ok := r.d.users[user.ID]
	if !ok {
		return fmt.Errorf("user %d: %w", user.ID, repository.ErrNotFound)
	}
	u.Currency = user.Currency
	u.Timezone = user.Timezone
	u.DateFormat = user.DateFormat
	u.MonthlySummaryEnabled = user.MonthlySummaryEnabled
	u.MonthlySummaryTime = user.MonthlySummaryTime
	u.ExpenseNotificationsEnabled = user.ExpenseNotificationsEnabled
	r.d.users[user.ID] = u
	return nil
}

func (r *userRepository) ListSummaryEnabled(_ context.Context) ([]*models.User, error) {
	defer (*Store)(r).lock()()
	var users []*models.User
	for _, u := range r.d.users {
		if u.MonthlySummaryEnabled {
			u := u
			users = append(users, &u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *userRepository) Count(_ context.Context) (int, error) {
	defer (*Store)(r).lock()()
	return len(r.d.users), nil
}

type summaryRepository Store

func (r *summaryRepository) DeliveredFamilies(_ context.Context, userID int64, periodStart time.Time) (map[int64]bool, error) {
	defer (*Store)(r).lock()()
	day := periodStart.Format("2006-01-02")
	delivered := make(map[int64]bool)
	for k := range r.d.deliveries {
		if k.userID == userID && k.periodStart == day {
			delivered[k.familyID] = true
		}
	}
	return delivered, nil
}

func (r *summaryRepository) MarkSent(_ context.Context, userID, familyID int64, periodStart, sentAt time.Time) error {
	defer (*Store)(r).lock()()
	u, ok := r.d.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, repository.ErrNotFound)
	}
	key := deliveryKey{userID: userID, familyID: familyID, periodStart: periodStart.Format("2006-01-02")}
	if _, exists := r.d.deliveries[key]; !exists {
		r.d.deliveries[key] = sentAt
	}
	if u.LastMonthlySummarySent == nil || u.LastMonthlySummarySent.Before(sentAt) {
		t := sentAt
		u.LastMonthlySummarySent = &t
		r.d.users[userID] = u
	}
	return nil
}
