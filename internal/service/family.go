package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/familybudget/internal/flow"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/repository"
)

const inviteCodeAttempts = 10

// FamilyCard is a family as seen by one of its members.
type FamilyCard struct {
	Family  *models.Family
	Members []models.Member
	Role    models.Role
}

// IsAdmin reports whether the viewer administers the family.
func (c *FamilyCard) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

func generateInviteCode() (string, error) {
	alphabet := models.InviteCodeAlphabet
	max := big.NewInt(int64(len(alphabet)))
	code := make([]byte, models.InviteCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate invite code: %w", err)
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code), nil
}

// newInviteCode returns a code no family uses yet.
func newInviteCode(ctx context.Context, families repository.FamilyRepository) (string, error) {
	for i := 0; i < inviteCodeAttempts; i++ {
		code, err := generateInviteCode()
		if err != nil {
			return "", err
		}
		exists, err := families.InviteCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free invite code after %d attempts", inviteCodeAttempts)
}

// membership returns the user's membership, or ErrNotFound so that
// outsiders cannot tell foreign families from missing ones.
func membership(ctx context.Context, families repository.FamilyRepository, familyID, userID int64) (*models.FamilyMember, error) {
	m, err := families.GetMember(ctx, familyID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("family %d: %w", familyID, repository.ErrNotFound)
	}
	return m, nil
}

func requireAdmin(ctx context.Context, families repository.FamilyRepository, familyID, userID int64) error {
	m, err := membership(ctx, families, familyID, userID)
	if err != nil {
		return err
	}
	if !m.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// CreateFamily creates a family with a fresh invite code and makes user its
// admin.
func (s *Service) CreateFamily(ctx context.Context, user *models.User, name string) (*models.Family, error) {
	name, err := flow.FamilyName(name)
	if err != nil {
		return nil, err
	}

	var family *models.Family
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		code, err := newInviteCode(ctx, tx.Families())
		if err != nil {
			return err
		}
		family, err = tx.Families().Create(ctx, &models.Family{Name: name, InviteCode: code})
		if err != nil {
			return err
		}
		return tx.Families().AddMember(ctx, family.ID, user.ID, models.RoleAdmin)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"family_id": family.ID,
		"user_id":   user.ID,
	}).Info("Family created")
	return family, nil
}

// JoinFamily adds user to the family owning code as a plain member.
func (s *Service) JoinFamily(ctx context.Context, user *models.User, code string) (*models.Family, error) {
	code, err := flow.InviteCode(code)
	if err != nil {
		return nil, err
	}

	family, err := s.store.Families().GetByInviteCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to find family by invite code: %w", err)
	}
	if family == nil {
		return nil, ErrInvalidInviteCode
	}
	if err := s.store.Families().AddMember(ctx, family.ID, user.ID, models.RoleMember); err != nil {
		if errors.Is(err, repository.ErrAlreadyMember) {
			return family, err
		}
		return nil, fmt.Errorf("failed to join family %d: %w", family.ID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"family_id": family.ID,
		"user_id":   user.ID,
	}).Info("User joined family")
	return family, nil
}

// Families lists the user's families, oldest first.
func (s *Service) Families(ctx context.Context, userID int64) ([]*models.Family, error) {
	families, err := s.store.Families().ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list families of user %d: %w", userID, err)
	}
	return families, nil
}

// Family returns the card of a family the user belongs to.
func (s *Service) Family(ctx context.Context, userID, familyID int64) (*FamilyCard, error) {
	families := s.store.Families()
	m, err := membership(ctx, families, familyID, userID)
	if err != nil {
		return nil, err
	}
	family, err := families.GetByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family %d: %w", familyID, err)
	}
	if family == nil {
		return nil, fmt.Errorf("family %d: %w", familyID, repository.ErrNotFound)
	}
	members, err := families.ListMembers(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of family %d: %w", familyID, err)
	}
	return &FamilyCard{Family: family, Members: members, Role: m.Role}, nil
}

// RenameFamily changes the family's name. Admins only.
func (s *Service) RenameFamily(ctx context.Context, userID, familyID int64, name string) error {
	name, err := flow.FamilyName(name)
	if err != nil {
		return err
	}
	families := s.store.Families()
	if err := requireAdmin(ctx, families, familyID, userID); err != nil {
		return err
	}
	if err := families.UpdateName(ctx, familyID, name); err != nil {
		return fmt.Errorf("failed to rename family %d: %w", familyID, err)
	}
	return nil
}

// RegenerateInviteCode replaces the invite code and returns the new one.
// Admins only.
func (s *Service) RegenerateInviteCode(ctx context.Context, userID, familyID int64) (string, error) {
	var code string
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		families := tx.Families()
		if err := requireAdmin(ctx, families, familyID, userID); err != nil {
			return err
		}
		var err error
		code, err = newInviteCode(ctx, families)
		if err != nil {
			return err
		}
		return families.UpdateInviteCode(ctx, familyID, code)
	})
	if err != nil {
		return "", fmt.Errorf("failed to regenerate invite code of family %d: %w", familyID, err)
	}
	return code, nil
}

// RemoveMember removes another member. Admins only.
func (s *Service) RemoveMember(ctx context.Context, adminID, familyID, memberID int64) error {
	if adminID == memberID {
		return ErrRemoveSelf
	}
	families := s.store.Families()
	if err := requireAdmin(ctx, families, familyID, adminID); err != nil {
		return err
	}
	if err := families.RemoveMember(ctx, familyID, memberID); err != nil {
		return fmt.Errorf("failed to remove member %d: %w", memberID, err)
	}
	s.logger.WithFields(logrus.Fields{
		"family_id": familyID,
		"user_id":   memberID,
		"admin_id":  adminID,
	}).Info("Member removed")
	return nil
}

// LeaveFamily removes the user from the family. The sole member leaving
// deletes the family, which is reported by the boolean.
func (s *Service) LeaveFamily(ctx context.Context, userID, familyID int64) (bool, error) {
	deleted := false
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		families := tx.Families()
		m, err := membership(ctx, families, familyID, userID)
		if err != nil {
			return err
		}
		members, err := families.ListMembers(ctx, familyID)
		if err != nil {
			return err
		}
		if len(members) == 1 {
			deleted = true
			return families.Delete(ctx, familyID)
		}
		if m.IsAdmin() {
			admins := 0
			for _, other := range members {
				if other.Role == models.RoleAdmin {
					admins++
				}
			}
			if admins == 1 {
				return ErrLastAdmin
			}
		}
		return families.RemoveMember(ctx, familyID, userID)
	})
	if err != nil {
		return false, fmt.Errorf("failed to leave family %d: %w", familyID, err)
	}
	return deleted, nil
}

// DeleteFamily removes the family and everything it owns. Admins only.
func (s *Service) DeleteFamily(ctx context.Context, userID, familyID int64) error {
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := requireAdmin(ctx, tx.Families(), familyID, userID); err != nil {
			return err
		}
		return tx.Families().Delete(ctx, familyID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete family %d: %w", familyID, err)
	}
	s.logger.WithFields(logrus.Fields{
		"family_id": familyID,
		"user_id":   userID,
	}).Info("Family deleted")
	return nil
}
