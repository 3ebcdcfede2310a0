package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/Kerhoff/familybudget/internal/metrics"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/money"
)

// notifyExpense tells every other member with notifications enabled about
// a new expense. Each recipient is tried independently.
func (s *Service) notifyExpense(ctx context.Context, author *models.User, t *models.Transaction) error {
	if s.msg == nil {
		return nil
	}
	family, err := s.store.Families().GetByID(ctx, t.FamilyID)
	if err != nil {
		return fmt.Errorf("failed to load family %d for notifications: %w", t.FamilyID, err)
	}
	if family == nil {
		return nil
	}
	members, err := s.store.Families().ListMembers(ctx, t.FamilyID)
	if err != nil {
		return fmt.Errorf("failed to list members of family %d: %w", t.FamilyID, err)
	}

	var result *multierror.Error
	for _, m := range members {
		if m.User.ID == author.ID || !m.User.ExpenseNotificationsEnabled {
			continue
		}
		text := expenseNotification(family, author, t, m.User)
		if _, err := s.msg.SendMessage(ctx, m.User.TelegramID, text, nil); err != nil {
			metrics.NotificationsFailed.Inc()
			result = multierror.Append(result, fmt.Errorf("notify user %d: %w", m.User.ID, err))
		}
	}
	return result.ErrorOrNil()
}

func expenseNotification(family *models.Family, author *models.User, t *models.Transaction, recipient *models.User) string {
	var b strings.Builder
	b.WriteString("💸 <b>New family expense</b>\n\n")
	fmt.Fprintf(&b, "🏠 <b>Family:</b> %s\n", html.EscapeString(family.Name))
	fmt.Fprintf(&b, "👤 <b>Added by:</b> %s\n", html.EscapeString(author.DisplayName()))
	fmt.Fprintf(&b, "%s <b>Category:</b> %s\n", categoryIcon(t.CategoryIcon), html.EscapeString(t.CategoryName))
	fmt.Fprintf(&b, "💰 <b>Amount:</b> %s\n", money.Format(t.Amount, recipient.CurrencySymbol()))
	if t.Description != "" {
		fmt.Fprintf(&b, "📝 <b>Description:</b> %s\n", html.EscapeString(t.Description))
	}
	return b.String()
}

func categoryIcon(icon string) string {
	if icon == "" {
		return "•"
	}
	return icon
}
