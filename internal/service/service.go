package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/familybudget/internal/cache"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/repository"
	"github.com/Kerhoff/familybudget/internal/telegram"
)

// Errors returned for rule violations. Handlers turn them into messages.
var (
	ErrForbidden            = errors.New("only a family admin can do that")
	ErrLastAdmin            = errors.New("the last admin cannot leave while other members remain")
	ErrRemoveSelf           = errors.New("use leave to remove yourself")
	ErrCategoryKindMismatch = errors.New("category kind does not match")
	ErrCategoryScope        = errors.New("category belongs to another family")
	ErrInvalidInviteCode    = errors.New("no family has this invite code")
)

// Service is the central business logic layer. It works against one
// repository.Store and, when a messenger is configured, notifies users.
type Service struct {
	store  repository.Store
	logger *logrus.Logger
	msg    telegram.Messenger
	cache  cache.Cache
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMessenger enables peer notifications through msg.
func WithMessenger(msg telegram.Messenger) Option {
	return func(s *Service) { s.msg = msg }
}

// WithCache caches administrator aggregates in c.
func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a new Service with all required dependencies.
func New(store repository.Store, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger,
		cache:  cache.Noop{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}

// EnsureUser retrieves an existing user by Telegram ID, or creates a new one
// if not found. If the profile information has changed (username or name),
// it updates the record.
func (s *Service) EnsureUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*models.User, error) {
	username = strings.TrimSpace(username)
	name := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))

	users := s.store.Users()
	user, err := users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user (telegram_id=%d): %w", telegramID, err)
	}
	if user == nil {
		user = &models.User{
			TelegramID:                  telegramID,
			Name:                        name,
			Username:                    username,
			Currency:                    models.DefaultCurrency,
			Timezone:                    models.DefaultTimezone,
			DateFormat:                  models.DateFormatDMY,
			ExpenseNotificationsEnabled: true,
		}
		user, err = users.Create(ctx, user)
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent first contact.
			return users.GetByTelegramID(ctx, telegramID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create user (telegram_id=%d): %w", telegramID, err)
		}
		s.logger.Infof("Created new user: %s (telegram_id=%d)", user.DisplayName(), telegramID)
		return user, nil
	}

	if user.Username == username && (user.Name == name || name == "") {
		return user, nil
	}
	user.Username = username
	if name != "" {
		user.Name = name
	}
	if err := users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}
	s.logger.Infof("Updated user profile: %s (telegram_id=%d)", user.DisplayName(), telegramID)
	return user, nil
}

// UpdateSettings stores the user's preferences.
func (s *Service) UpdateSettings(ctx context.Context, user *models.User) error {
	if err := s.store.Users().UpdateSettings(ctx, user); err != nil {
		return fmt.Errorf("failed to update settings of user %d: %w", user.ID, err)
	}
	return nil
}

// User returns the user with the given id.
func (s *Service) User(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", id, repository.ErrNotFound)
	}
	return user, nil
}
