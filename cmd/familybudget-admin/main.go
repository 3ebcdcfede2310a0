package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Kerhoff/familybudget/internal/admin"
	"github.com/Kerhoff/familybudget/internal/app"
	"github.com/Kerhoff/familybudget/internal/config"
	"github.com/Kerhoff/familybudget/internal/service"
	"github.com/Kerhoff/familybudget/internal/session"
	"github.com/Kerhoff/familybudget/internal/telegram"
	"github.com/Kerhoff/familybudget/pkg/logger"
)

const (
	sweepInterval = 10 * time.Minute
	sessionIdle   = time.Hour
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(config.ProcessAdmin); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	logger.WithFields(l, logrus.Fields{
		"backend": cfg.DataBackend,
		"admins":  len(cfg.AdminIDs),
	}).Info("Starting Family Budget admin bot...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, l); err != nil {
		l.WithError(err).Error("Admin bot stopped with an error")
		os.Exit(1)
	}
	l.Info("Admin bot stopped")
}

func run(ctx context.Context, cfg *config.Config, l *logrus.Logger) error {
	backend, err := app.Open(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			l.WithError(err).Warn("Failed to close backends")
		}
	}()

	bot, err := telegram.NewBot(cfg.AdminBotToken, l)
	if err != nil {
		return err
	}

	svc := service.New(backend.Store, l, service.WithCache(backend.Cache))
	sessions := session.NewStore()
	limiter := telegram.NewRateLimiter(cfg.RateLimitPerMinute)
	router := telegram.NewRouter("admin", l, bot, sessions,
		telegram.WithAllowList(func(s telegram.Sender) bool { return cfg.IsAdmin(s.ID) }),
		telegram.WithRateLimiter(limiter),
	)
	if err := admin.New(svc, cfg.SchedulerLocation(), l).Register(router); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Start(ctx, router) })
	g.Go(func() error {
		return app.Sweep(ctx, l, sweepInterval, sessionIdle, map[string]func(time.Duration) int{
			"sessions":      sessions.Sweep,
			"rate_limiters": limiter.Sweep,
		})
	})

	l.Infof("Admin bot @%s started successfully", bot.Username())
	return g.Wait()
}
