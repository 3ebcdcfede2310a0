package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/metrics"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/repository"
)

// Limits of the transaction lists.
const (
	RecentLimit = 10
	SearchLimit = 20
)

// NewTransaction is the input of AddTransaction.
type NewTransaction struct {
	Kind        models.Kind
	FamilyID    int64
	CategoryID  int64
	Amount      decimal.Decimal
	Description string
	// Date defaults to now.
	Date time.Time
}

// AddTransaction records an expense or an income in one transaction and,
// for expenses, notifies the other members once it is committed.
// Notification failures are logged and never fail the call.
func (s *Service) AddTransaction(ctx context.Context, user *models.User, in NewTransaction) (*models.Transaction, error) {
	amount, err := flow.Amount(in.Amount.String())
	if err != nil {
		return nil, err
	}
	description := ""
	if in.Description != "" {
		if description, err = flow.Description(in.Description); err != nil {
			return nil, err
		}
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}

	var created *models.Transaction
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := membership(ctx, tx.Families(), in.FamilyID, user.ID); err != nil {
			return err
		}
		c, err := visibleCategory(ctx, tx.Categories(), in.FamilyID, in.CategoryID)
		if err != nil {
			return err
		}
		if c.Kind != in.Kind {
			return ErrCategoryKindMismatch
		}

		created, err = tx.Transactions().Create(ctx, &models.Transaction{
			Kind:        in.Kind,
			UserID:      user.ID,
			FamilyID:    in.FamilyID,
			CategoryID:  c.ID,
			Amount:      amount,
			Description: description,
			Date:        date,
		})
		if err != nil {
			return err
		}
		created.CategoryName, created.CategoryIcon = c.Name, c.Icon
		created.UserName = user.Name
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add %s: %w", in.Kind, err)
	}

	metrics.TransactionsCreated.WithLabelValues(string(in.Kind)).Inc()
	log := s.logger.WithFields(logrus.Fields{
		"family_id": in.FamilyID,
		"user_id":   user.ID,
		"kind":      string(in.Kind),
		"id":        created.ID,
	})
	log.Info("Transaction recorded")

	if in.Kind == models.KindExpense {
		if err := s.notifyExpense(ctx, user, created); err != nil {
			log.WithError(err).Warn("Some expense notifications failed")
		}
	}
	return created, nil
}

// Recent returns the newest expenses and incomes of the family merged into
// one list, newest first.
func (s *Service) Recent(ctx context.Context, userID, familyID int64, limit int) ([]*models.Transaction, error) {
	if _, err := membership(ctx, s.store.Families(), familyID, userID); err != nil {
		return nil, err
	}
	return s.merged(ctx, repository.TransactionFilter{FamilyID: familyID}, limit)
}

// Search finds transactions of the family whose description contains
// query, newest first.
func (s *Service) Search(ctx context.Context, userID, familyID int64, query string) ([]*models.Transaction, error) {
	query, err := flow.SearchQuery(query)
	if err != nil {
		return nil, err
	}
	if _, err := membership(ctx, s.store.Families(), familyID, userID); err != nil {
		return nil, err
	}
	return s.merged(ctx, repository.TransactionFilter{FamilyID: familyID, Query: query}, SearchLimit)
}

func (s *Service) merged(ctx context.Context, f repository.TransactionFilter, limit int) ([]*models.Transaction, error) {
	var all []*models.Transaction
	for _, kind := range models.Kinds {
		f.Kind = kind
		list, err := s.store.Transactions().List(ctx, f, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list %ss of family %d: %w", kind, f.FamilyID, err)
		}
		all = append(all, list...)
	}
	sortNewestFirst(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func sortNewestFirst(txs []*models.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
