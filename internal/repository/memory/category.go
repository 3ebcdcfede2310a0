package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/repository"
)

type categoryRepository Store

func (r *categoryRepository) ListForFamily(_ context.Context, familyID int64, kind models.Kind) ([]*models.Category, error) {
	defer (*Store)(r).lock()()
	var list []*models.Category
	for _, c := range r.d.categories {
		if c.Kind == kind && c.VisibleTo(familyID) {
			c := c
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		ci, cj := list[i].FamilyID != nil, list[j].FamilyID != nil
		if ci != cj {
			return !ci
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (r *categoryRepository) GetByID(_ context.Context, id int64) (*models.Category, error) {
	defer (*Store)(r).lock()()
	c, ok := r.d.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// taken mirrors the unique (family_id, name, category_type) constraint.
func (r *categoryRepository) taken(familyID *int64, name string, kind models.Kind, except int64) bool {
	if familyID == nil {
		return false
	}
	for _, c := range r.d.categories {
		if c.ID != except && c.FamilyID != nil && *c.FamilyID == *familyID && c.Kind == kind && c.Name == name {
			return true
		}
	}
	return false
}

func (r *categoryRepository) Create(_ context.Context, category *models.Category) (*models.Category, error) {
	defer (*Store)(r).lock()()
	if r.taken(category.FamilyID, category.Name, category.Kind, 0) {
		return nil, fmt.Errorf("category %q: %w", category.Name, repository.ErrDuplicate)
	}
	category.ID = r.d.nextID()
	stored := *category
	if category.FamilyID != nil {
		id := *category.FamilyID
		stored.FamilyID = &id
	}
	r.d.categories[category.ID] = stored
	return category, nil
}

func (r *categoryRepository) Rename(_ context.Context, id int64, name string) error {
	defer (*Store)(r).lock()()
	c, ok := r.d.categories[id]
	if !ok || c.IsDefault {
		return fmt.Errorf("category %d: %w", id, repository.ErrNotFound)
	}
	if r.taken(c.FamilyID, name, c.Kind, id) {
		return fmt.Errorf("category %q: %w", name, repository.ErrDuplicate)
	}
	c.Name = name
	r.d.categories[id] = c
	return nil
}

func (r *categoryRepository) Delete(_ context.Context, id int64) error {
	defer (*Store)(r).lock()()
	c, ok := r.d.categories[id]
	if !ok || c.IsDefault {
		return fmt.Errorf("category %d: %w", id, repository.ErrNotFound)
	}
	if r.usage(id) > 0 {
		return fmt.Errorf("category %d: %w", id, repository.ErrCategoryInUse)
	}
	delete(r.d.categories, id)
	return nil
}

func (r *categoryRepository) NameExists(_ context.Context, familyID int64, name string, kind models.Kind) (bool, error) {
	defer (*Store)(r).lock()()
	for _, c := range r.d.categories {
		if c.Kind == kind && c.VisibleTo(familyID) && strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *categoryRepository) usage(id int64) int {
	n := 0
	for _, t := range r.d.txs {
		if t.CategoryID == id {
			n++
		}
	}
	for _, t := range r.d.templates {
		if t.CategoryID == id {
			n++
		}
	}
	return n
}

func (r *categoryRepository) CountUsage(_ context.Context, id int64) (int, error) {
	defer (*Store)(r).lock()()
	return r.usage(id), nil
}

func (r *categoryRepository) Reassign(_ context.Context, fromID, toID int64) error {
	defer (*Store)(r).lock()()
	for i := range r.d.txs {
		if r.d.txs[i].CategoryID == fromID {
			r.d.txs[i].CategoryID = toID
		}
	}
	for k, t := range r.d.templates {
		if t.CategoryID == fromID {
			t.CategoryID = toID
			r.d.templates[k] = t
		}
	}
	return nil
}
