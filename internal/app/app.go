// Package app opens the backends shared by the bot processes.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/familybudget/internal/cache"
	"github.com/Kerhoff/familybudget/internal/config"
	"github.com/Kerhoff/familybudget/internal/repository"
	"github.com/Kerhoff/familybudget/internal/repository/memory"
	"github.com/Kerhoff/familybudget/internal/repository/postgres"
)

// Backend is the storage of one process.
type Backend struct {
	Store repository.Store
	Cache cache.Cache
	// Ping checks the database; nil for the memory backend.
	Ping func(ctx context.Context) error

	closers []func() error
}

// Open connects the configured data backend and, when REDIS_URL is set,
// the cache. An unreachable cache is logged and replaced by a no-op one.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Backend, error) {
	b := &Backend{Cache: cache.Noop{}}

	switch cfg.DataBackend {
	case config.BackendMemory:
		logger.Warn("Using the in-memory backend; data is lost on restart")
		b.Store = memory.New()
	default:
		db, err := config.NewDatabase(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		b.Store = postgres.NewStore(db.DB)
		b.Ping = db.PingContext
		b.closers = append(b.closers, db.Close)
	}

	if cfg.RedisURL != "" {
		c, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to redis, continuing without cache")
		} else {
			logger.Info("Redis cache enabled")
			b.Cache = c
			b.closers = append(b.closers, c.Close)
		}
	}
	return b, nil
}

// Close releases every connection, reporting all failures.
func (b *Backend) Close() error {
	var result *multierror.Error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Sweep calls every sweep function each interval until ctx is cancelled.
// Each function drops entries idle for longer than maxIdle and returns how
// many it dropped.
func Sweep(ctx context.Context, logger *logrus.Logger, interval, maxIdle time.Duration, sweeps map[string]func(time.Duration) int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for name, sweep := range sweeps {
				if n := sweep(maxIdle); n > 0 {
					logger.WithFields(logrus.Fields{"what": name, "dropped": n}).Debug("Swept idle entries")
				}
			}
		}
	}
}
