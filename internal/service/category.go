package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/repository"
)

// ErrDefaultCategory is returned when changing a shared default category.
var ErrDefaultCategory = errors.New("default categories cannot be changed")

// Categories lists the categories of kind available to the family.
func (s *Service) Categories(ctx context.Context, userID, familyID int64, kind models.Kind) ([]*models.Category, error) {
	if _, err := membership(ctx, s.store.Families(), familyID, userID); err != nil {
		return nil, err
	}
	list, err := s.store.Categories().ListForFamily(ctx, familyID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories of family %d: %w", familyID, err)
	}
	return list, nil
}

// Category returns a category the family may use.
func (s *Service) Category(ctx context.Context, userID, familyID, categoryID int64) (*models.Category, error) {
	if _, err := membership(ctx, s.store.Families(), familyID, userID); err != nil {
		return nil, err
	}
	return visibleCategory(ctx, s.store.Categories(), familyID, categoryID)
}

func visibleCategory(ctx context.Context, categories repository.CategoryRepository, familyID, categoryID int64) (*models.Category, error) {
	c, err := categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get category %d: %w", categoryID, err)
	}
	if c == nil {
		return nil, fmt.Errorf("category %d: %w", categoryID, repository.ErrNotFound)
	}
	if !c.VisibleTo(familyID) {
		return nil, ErrCategoryScope
	}
	return c, nil
}

// customCategory returns a category owned by the family.
func customCategory(ctx context.Context, categories repository.CategoryRepository, familyID, categoryID int64) (*models.Category, error) {
	c, err := visibleCategory(ctx, categories, familyID, categoryID)
	if err != nil {
		return nil, err
	}
	if c.IsDefault || c.FamilyID == nil {
		return nil, ErrDefaultCategory
	}
	return c, nil
}

// CreateCategory adds a custom category to the family.
func (s *Service) CreateCategory(ctx context.Context, userID, familyID int64, kind models.Kind, name string) (*models.Category, error) {
	name, err := flow.CategoryName(name)
	if err != nil {
		return nil, err
	}
	if _, err := membership(ctx, s.store.Families(), familyID, userID); err != nil {
		return nil, err
	}

	categories := s.store.Categories()
	exists, err := categories.NameExists(ctx, familyID, name, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to check category name: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("category %q: %w", name, repository.ErrDuplicate)
	}

	c, err := categories.Create(ctx, &models.Category{
		Name:     name,
		Kind:     kind,
		FamilyID: &familyID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

// RenameCategory renames one of the family's custom categories.
func (s *Service) RenameCategory(ctx context.Context, userID, familyID, categoryID int64, name string) error {
	name, err := flow.CategoryName(name)
	if err != nil {
		return err
	}
	if _, err := membership(ctx, s.store.Families(), familyID, userID); err != nil {
		return err
	}

	categories := s.store.Categories()
	c, err := customCategory(ctx, categories, familyID, categoryID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(c.Name, name) {
		exists, err := categories.NameExists(ctx, familyID, name, c.Kind)
		if err != nil {
			return fmt.Errorf("failed to check category name: %w", err)
		}
		if exists {
			return fmt.Errorf("category %q: %w", name, repository.ErrDuplicate)
		}
	}
	if err := categories.Rename(ctx, categoryID, name); err != nil {
		return fmt.Errorf("failed to rename category %d: %w", categoryID, err)
	}
	return nil
}

// CategoryUsage counts the transactions and templates referencing a
// custom category of the family.
func (s *Service) CategoryUsage(ctx context.Context, userID, familyID, categoryID int64) (*models.Category, int, error) {
	if _, err := membership(ctx, s.store.Families(), familyID, userID); err != nil {
		return nil, 0, err
	}
	categories := s.store.Categories()
	c, err := customCategory(ctx, categories, familyID, categoryID)
	if err != nil {
		return nil, 0, err
	}
	n, err := categories.CountUsage(ctx, categoryID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count usage of category %d: %w", categoryID, err)
	}
	return c, n, nil
}

// DeleteCategory deletes a custom category. A category still in use is
// only deleted when moveTo names another category of the same kind, in
// which case everything referencing it is moved there first.
func (s *Service) DeleteCategory(ctx context.Context, userID, familyID, categoryID, moveTo int64) error {
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := membership(ctx, tx.Families(), familyID, userID); err != nil {
			return err
		}
		categories := tx.Categories()
		c, err := customCategory(ctx, categories, familyID, categoryID)
		if err != nil {
			return err
		}

		if moveTo != 0 {
			if moveTo == categoryID {
				return ErrCategoryScope
			}
			target, err := visibleCategory(ctx, categories, familyID, moveTo)
			if err != nil {
				return err
			}
			if target.Kind != c.Kind {
				return ErrCategoryKindMismatch
			}
			if err := categories.Reassign(ctx, categoryID, moveTo); err != nil {
				return err
			}
		} else {
			n, err := categories.CountUsage(ctx, categoryID)
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("category %d: %w", categoryID, repository.ErrCategoryInUse)
			}
		}
		return categories.Delete(ctx, categoryID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete category %d: %w", categoryID, err)
	}
	return nil
}
