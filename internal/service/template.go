package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/repository"
)

// NewTemplate is the input of CreateTemplate.
type NewTemplate struct {
	FamilyID    int64
	Name        string
	CategoryID  int64
	Amount      decimal.Decimal
	Description string
}

// Templates lists the user's expense templates in the family.
func (s *Service) Templates(ctx context.Context, userID, familyID int64) ([]*models.Template, error) {
	if _, err := membership(ctx, s.store.Families(), familyID, userID); err != nil {
		return nil, err
	}
	list, err := s.store.Templates().ListForUser(ctx, userID, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return list, nil
}

// CreateTemplate stores a named expense shortcut.
func (s *Service) CreateTemplate(ctx context.Context, user *models.User, in NewTemplate) (*models.Template, error) {
	name, err := flow.TemplateName(in.Name)
	if err != nil {
		return nil, err
	}
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
	if _, err := membership(ctx, s.store.Families(), in.FamilyID, user.ID); err != nil {
		return nil, err
	}
	c, err := visibleCategory(ctx, s.store.Categories(), in.FamilyID, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if c.Kind != models.KindExpense {
		return nil, ErrCategoryKindMismatch
	}

	tpl, err := s.store.Templates().Create(ctx, &models.Template{
		UserID:      user.ID,
		FamilyID:    in.FamilyID,
		Name:        name,
		CategoryID:  c.ID,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	tpl.CategoryName, tpl.CategoryIcon = c.Name, c.Icon
	return tpl, nil
}

// ownTemplate returns a template created by the user.
func (s *Service) ownTemplate(ctx context.Context, userID, templateID int64) (*models.Template, error) {
	tpl, err := s.store.Templates().GetByID(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get template %d: %w", templateID, err)
	}
	if tpl == nil || tpl.UserID != userID {
		return nil, fmt.Errorf("template %d: %w", templateID, repository.ErrNotFound)
	}
	return tpl, nil
}

// UseTemplate records an expense dated now from the template.
func (s *Service) UseTemplate(ctx context.Context, user *models.User, templateID int64) (*models.Transaction, error) {
	tpl, err := s.ownTemplate(ctx, user.ID, templateID)
	if err != nil {
		return nil, err
	}
	return s.AddTransaction(ctx, user, NewTransaction{
		Kind:        models.KindExpense,
		FamilyID:    tpl.FamilyID,
		CategoryID:  tpl.CategoryID,
		Amount:      tpl.Amount,
		Description: tpl.Description,
	})
}

// DeleteTemplate removes one of the user's templates.
func (s *Service) DeleteTemplate(ctx context.Context, userID, templateID int64) error {
	if _, err := s.ownTemplate(ctx, userID, templateID); err != nil {
		return err
	}
	if err := s.store.Templates().Delete(ctx, templateID); err != nil {
		return fmt.Errorf("failed to delete template %d: %w", templateID, err)
	}
	return nil
}
