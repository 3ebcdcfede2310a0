package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/repository"
)

type templateRepository Store

func (r *templateRepository) Create(_ context.Context, tpl *models.Template) (*models.Template, error) {
	defer (*Store)(r).lock()()
	if _, ok := r.d.categories[tpl.CategoryID]; !ok {
		return nil, fmt.Errorf("category %d: %w", tpl.CategoryID, repository.ErrNotFound)
	}
	tpl.ID = r.d.nextID()
	tpl.CreatedAt = r.now()
	r.d.templates[tpl.ID] = *tpl
	return tpl, nil
}

func (r *templateRepository) withCategory(t models.Template) *models.Template {
	c := r.d.categories[t.CategoryID]
	t.CategoryName, t.CategoryIcon = c.Name, c.Icon
	return &t
}

func (r *templateRepository) GetByID(_ context.Context, id int64) (*models.Template, error) {
	defer (*Store)(r).lock()()
	t, ok := r.d.templates[id]
	if !ok {
		return nil, nil
	}
	return r.withCategory(t), nil
}

func (r *templateRepository) ListForUser(_ context.Context, userID, familyID int64) ([]*models.Template, error) {
	defer (*Store)(r).lock()()
	var list []*models.Template
	for _, t := range r.d.templates {
		if t.UserID == userID && t.FamilyID == familyID {
			list = append(list, r.withCategory(t))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (r *templateRepository) Delete(_ context.Context, id int64) error {
	defer (*Store)(r).lock()()
	if _, ok := r.d.templates[id]; !ok {
		return fmt.Errorf("template %d: %w", id, repository.ErrNotFound)
	}
	delete(r.d.templates, id)
	return nil
}
