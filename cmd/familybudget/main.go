package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Kerhoff/familybudget/internal/api"
	"github.com/Kerhoff/familybudget/internal/app"
	"github.com/Kerhoff/familybudget/internal/config"
	"github.com/Kerhoff/familybudget/internal/handlers"
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
	if err := cfg.Validate(config.ProcessBot); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	logger.WithFields(l, logrus.Fields{
		"backend": cfg.DataBackend,
		"port":    cfg.Port,
	}).Info("Starting Family Budget bot...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, l); err != nil {
		l.WithError(err).Error("Family Budget bot stopped with an error")
		os.Exit(1)
	}
	l.Info("Family Budget bot stopped")
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

	bot, err := telegram.NewBot(cfg.TelegramToken, l)
	if err != nil {
		return err
	}

	svc := service.New(backend.Store, l,
		service.WithMessenger(bot),
		service.WithCache(backend.Cache),
	)

	sessions := session.NewStore()
	limiter := telegram.NewRateLimiter(cfg.RateLimitPerMinute)
	router := telegram.NewRouter("main", l, bot, sessions,
		telegram.WithUsers(svc),
		telegram.WithRateLimiter(limiter),
		telegram.WithErrorExplainer(handlers.ExplainError),
	)
	if err := handlers.New(svc, bot, l).Register(router); err != nil {
		return err
	}

	scheduler := service.NewSummaryScheduler(svc, bot, cfg.SchedulerLocation(), cfg.SchedulerInterval, cfg.SchedulerRetry)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	server := api.NewServer(svc, l,
		api.WithAdminToken(cfg.AdminAPIToken),
		api.WithHealthCheck(backend.Ping),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Start(ctx, router) })
	g.Go(func() error { return scheduler.Run(ctx) })
	g.Go(func() error { return server.Run(ctx, ":"+cfg.Port) })
	g.Go(func() error {
		return app.Sweep(ctx, l, sweepInterval, sessionIdle, map[string]func(time.Duration) int{
			"sessions":      sessions.Sweep,
			"rate_limiters": limiter.Sweep,
		})
	})

	l.Infof("Family Budget bot @%s started successfully", bot.Username())
	return g.Wait()
}
