package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/repository"
)

type familyRepository Store

func (r *familyRepository) Create(_ context.Context, family *models.Family) (*models.Family, error) {
	defer (*Store)(r).lock()()
	for _, f := range r.d.families {
		if f.InviteCode == family.InviteCode {
			return nil, fmt.Errorf("invite code %s: %w", family.InviteCode, repository.ErrDuplicate)
		}
	}
	family.ID = r.d.nextID()
	family.CreatedAt = r.now()
	r.d.families[family.ID] = *family
	out := *family
	return &out, nil
}

func (r *familyRepository) GetByID(_ context.Context, id int64) (*models.Family, error) {
	defer (*Store)(r).lock()()
	f, ok := r.d.families[id]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (r *familyRepository) GetByInviteCode(_ context.Context, code string) (*models.Family, error) {
	defer (*Store)(r).lock()()
	for _, f := range r.d.families {
		if f.InviteCode == code {
			return &f, nil
		}
	}
	return nil, nil
}

func (r *familyRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	f, err := r.GetByInviteCode(ctx, code)
	return f != nil, err
}

func (r *familyRepository) UpdateName(_ context.Context, id int64, name string) error {
	defer (*Store)(r).lock()()
	f, ok := r.d.families[id]
	if !ok {
		return fmt.Errorf("family %d: %w", id, repository.ErrNotFound)
	}
	f.Name = name
	r.d.families[id] = f
	return nil
}

func (r *familyRepository) UpdateInviteCode(_ context.Context, id int64, code string) error {
	defer (*Store)(r).lock()()
	f, ok := r.d.families[id]
	if !ok {
		return fmt.Errorf("family %d: %w", id, repository.ErrNotFound)
	}
	for _, other := range r.d.families {
		if other.ID != id && other.InviteCode == code {
			return fmt.Errorf("invite code %s: %w", code, repository.ErrDuplicate)
		}
	}
	f.InviteCode = code
	r.d.families[id] = f
	return nil
}

func (r *familyRepository) Delete(_ context.Context, id int64) error {
	defer (*Store)(r).lock()()
	if _, ok := r.d.families[id]; !ok {
		return fmt.Errorf("family %d: %w", id, repository.ErrNotFound)
	}
	for k, t := range r.d.templates {
		if t.FamilyID == id {
			delete(r.d.templates, k)
		}
	}
	txs := r.d.txs[:0]
	for _, t := range r.d.txs {
		if t.FamilyID != id {
			txs = append(txs, t)
		}
	}
	r.d.txs = txs
	for k := range r.d.deliveries {
		if k.familyID == id {
			delete(r.d.deliveries, k)
		}
	}
	members := r.d.members[:0]
	for _, m := range r.d.members {
		if m.FamilyID != id {
			members = append(members, m)
		}
	}
	r.d.members = members
	for k, c := range r.d.categories {
		if c.FamilyID != nil && *c.FamilyID == id {
			delete(r.d.categories, k)
		}
	}
	delete(r.d.families, id)
	return nil
}

func (r *familyRepository) AddMember(_ context.Context, familyID, userID int64, role models.Role) error {
	defer (*Store)(r).lock()()
	if _, ok := r.d.families[familyID]; !ok {
		return fmt.Errorf("family %d: %w", familyID, repository.ErrNotFound)
	}
	if _, ok := r.d.users[userID]; !ok {
		return fmt.Errorf("user %d: %w", userID, repository.ErrNotFound)
	}
	for _, m := range r.d.members {
		if m.FamilyID == familyID && m.UserID == userID {
			return repository.ErrAlreadyMember
		}
	}
	r.d.members = append(r.d.members, models.FamilyMember{
		ID:       r.d.nextID(),
		FamilyID: familyID,
		UserID:   userID,
		Role:     role,
		JoinedAt: r.now(),
	})
	return nil
}

func (r *familyRepository) RemoveMember(_ context.Context, familyID, userID int64) error {
	defer (*Store)(r).lock()()
	for i, m := range r.d.members {
		if m.FamilyID == familyID && m.UserID == userID {
			r.d.members = append(r.d.members[:i], r.d.members[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("member %d of family %d: %w", userID, familyID, repository.ErrNotFound)
}

func (r *familyRepository) GetMember(_ context.Context, familyID, userID int64) (*models.FamilyMember, error) {
	defer (*Store)(r).lock()()
	for _, m := range r.d.members {
		if m.FamilyID == familyID && m.UserID == userID {
			return &m, nil
		}
	}
	return nil, nil
}

// Members are kept in insertion order, which is also join order.
func (r *familyRepository) ListMembers(_ context.Context, familyID int64) ([]models.Member, error) {
	defer (*Store)(r).lock()()
	var members []models.Member
	for _, m := range r.d.members {
		if m.FamilyID != familyID {
			continue
		}
		u := r.d.users[m.UserID]
		members = append(members, models.Member{User: &u, Role: m.Role, JoinedAt: m.JoinedAt})
	}
	return members, nil
}

func (r *familyRepository) ListForUser(_ context.Context, userID int64) ([]*models.Family, error) {
	defer (*Store)(r).lock()()
	var families []*models.Family
	for _, m := range r.d.members {
		if m.UserID != userID {
			continue
		}
		if f, ok := r.d.families[m.FamilyID]; ok {
			families = append(families, &f)
		}
	}
	sort.SliceStable(families, func(i, j int) bool {
		if !families[i].CreatedAt.Equal(families[j].CreatedAt) {
			return families[i].CreatedAt.Before(families[j].CreatedAt)
		}
		return families[i].ID < families[j].ID
	})
	return families, nil
}

func (r *familyRepository) Count(_ context.Context) (int, error) {
	defer (*Store)(r).lock()()
	return len(r.d.families), nil
}

// newestFirst returns every family ordered by creation time, newest first.
func (r *familyRepository) newestFirst() []models.Family {
	families := make([]models.Family, 0, len(r.d.families))
	for _, f := range r.d.families {
		families = append(families, f)
	}
	sort.Slice(families, func(i, j int) bool {
		if !families[i].CreatedAt.Equal(families[j].CreatedAt) {
			return families[i].CreatedAt.After(families[j].CreatedAt)
		}
		return families[i].ID > families[j].ID
	})
	return families
}

func (r *familyRepository) ListPage(_ context.Context, limit, offset int) ([]models.FamilySummary, error) {
	defer (*Store)(r).lock()()
	families := r.newestFirst()
	if offset >= len(families) {
		return nil, nil
	}
	families = families[offset:]
	if limit < len(families) {
		families = families[:limit]
	}

	page := make([]models.FamilySummary, 0, len(families))
	for _, f := range families {
		n := 0
		for _, m := range r.d.members {
			if m.FamilyID == f.ID {
				n++
			}
		}
		page = append(page, models.FamilySummary{ID: f.ID, Name: f.Name, CreatedAt: f.CreatedAt, MembersCount: n})
	}
	return page, nil
}

func (r *familyRepository) SearchByName(_ context.Context, query string, limit int) ([]*models.Family, error) {
	defer (*Store)(r).lock()()
	needle := strings.ToLower(query)
	var found []*models.Family
	for _, f := range r.newestFirst() {
		if len(found) == limit {
			break
		}
		if strings.Contains(strings.ToLower(f.Name), needle) {
			f := f
			found = append(found, &f)
		}
	}
	return found, nil
}

func (r *familyRepository) SearchByUsername(_ context.Context, query string, limit int) ([]*models.Family, error) {
	defer (*Store)(r).lock()()
	needle := strings.ToLower(query)
	var found []*models.Family
	for _, f := range r.newestFirst() {
		if len(found) == limit {
			break
		}
		for _, m := range r.d.members {
			if m.FamilyID != f.ID {
				continue
			}
			u := r.d.users[m.UserID]
			if u.Username != "" && strings.Contains(strings.ToLower(u.Username), needle) {
				f := f
				found = append(found, &f)
				break
			}
		}
	}
	return found, nil
}
