package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/familybudget/internal/metrics"
	"github.com/Kerhoff/familybudget/internal/models"
	"github.com/Kerhoff/familybudget/internal/period"
	"github.com/Kerhoff/familybudget/internal/report"
	"github.com/Kerhoff/familybudget/internal/telegram"
)

// sendInterval spaces consecutive outbound messages of the scheduler.
const sendInterval = 100 * time.Millisecond

// SummaryScheduler delivers the monthly summaries on the first day of each
// month. Users are processed one at a time.
type SummaryScheduler struct {
	svc      *Service
	msg      telegram.Messenger
	sender   *telegram.ChunkedSender
	logger   *logrus.Logger
	loc      *time.Location
	interval time.Duration
	retry    time.Duration
}

// NewSummaryScheduler creates a scheduler ticking every interval in loc.
// A tick that fails as a whole is retried after retry.
func NewSummaryScheduler(svc *Service, msg telegram.Messenger, loc *time.Location, interval, retry time.Duration) *SummaryScheduler {
	return &SummaryScheduler{
		svc:      svc,
		msg:      msg,
		sender:   telegram.NewChunkedSender(msg, sendInterval),
		logger:   svc.logger,
		loc:      loc,
		interval: interval,
		retry:    retry,
	}
}

// Run ticks until ctx is cancelled. Each tick runs on its own goroutine and
// reports back through a channel.
func (s *SummaryScheduler) Run(ctx context.Context) error {
	s.logger.WithFields(logrus.Fields{
		"interval": s.interval.String(),
		"timezone": s.loc.String(),
	}).Info("Monthly summary scheduler started")

	delay := time.Duration(0)
	for {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Monthly summary scheduler stopped")
			return nil
		case <-timer.C:
		}

		done := make(chan error, 1)
		go func() { done <- s.Tick(ctx) }()

		select {
		case <-ctx.Done():
			s.logger.Info("Monthly summary scheduler stopped")
			return nil
		case err := <-done:
			delay = s.interval
			if err != nil {
				s.logger.WithError(err).Errorf("Scheduler tick failed, retrying in %s", s.retry)
				delay = s.retry
			}
		}
	}
}

// Tick runs one pass. It returns an error only when the pass could not run
// at all; failures of single users and families are logged and counted.
func (s *SummaryScheduler) Tick(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		metrics.SchedulerTickDuration.Observe(time.Since(start).Seconds())
	}()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scheduler tick panicked: %v", p)
		}
	}()

	now := s.svc.now().In(s.loc)
	if now.Day() != 1 {
		s.logger.Debugf("Not the first day of the month (day=%d), skipping monthly summaries", now.Day())
		return nil
	}

	users, err := s.svc.store.Users().ListSummaryEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list summary recipients: %w", err)
	}
	s.logger.Infof("Found %d users with monthly summary enabled", len(users))

	var (
		result *multierror.Error
		sent   int
	)
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := s.deliver(ctx, u, now)
		sent += n
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	log := s.logger.WithField("sent", sent)
	if result != nil {
		log.WithError(result).Warnf("Monthly summaries finished with %d failures", len(result.Errors))
		return nil
	}
	log.Info("Monthly summaries finished")
	return nil
}

// sentToday reports whether the user's last summary went out on the
// calendar day of now.
func sentToday(u *models.User, now time.Time) bool {
	if u.LastMonthlySummarySent == nil {
		return false
	}
	y1, m1, d1 := u.LastMonthlySummarySent.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// deliver sends the summaries of one user and returns how many families
// were served. Families already served this month are skipped, so a pass
// interrupted half way resumes where it stopped.
func (s *SummaryScheduler) deliver(ctx context.Context, u *models.User, now time.Time) (int, error) {
	log := s.logger.WithFields(logrus.Fields{"user_id": u.ID, "telegram_id": u.TelegramID})
	// Resolved in the scheduler's zone, as are the day and hour gates.
	month, err := period.Resolve(period.PreviousMonth, now, s.loc)
	if err != nil {
		return 0, err
	}

	delivered := map[int64]bool{}
	if sentToday(u, now) {
		delivered, err = s.svc.store.Summaries().DeliveredFamilies(ctx, u.ID, month.Start)
		if err != nil {
			return 0, fmt.Errorf("user %d: failed to load deliveries: %w", u.ID, err)
		}
	}

	if hour, ok := u.SummaryHour(); ok && hour != now.Hour() {
		log.Debugf("Skipping user: summary hour %02d, now %02d", hour, now.Hour())
		return 0, nil
	}

	families, err := s.svc.store.Families().ListForUser(ctx, u.ID)
	if err != nil {
		return 0, fmt.Errorf("user %d: failed to list families: %w", u.ID, err)
	}

	var (
		result *multierror.Error
		sent   int
	)
	for _, f := range families {
		if delivered[f.ID] {
			continue
		}
		flog := log.WithField("family_id", f.ID)
		if err := s.deliverFamily(ctx, u, f, month); err != nil {
			metrics.SummariesFailed.Inc()
			flog.WithError(err).Error("Failed to deliver monthly summary")
			result = multierror.Append(result, fmt.Errorf("user %d family %d: %w", u.ID, f.ID, err))
			continue
		}
		metrics.SummariesSent.Inc()
		flog.Info("Sent monthly summary")
		sent++
	}
	return sent, result.ErrorOrNil()
}

// deliverFamily sends the summary text and, for a non-zero total, the
// document. A failed document does not fail the delivery.
func (s *SummaryScheduler) deliverFamily(ctx context.Context, u *models.User, f *models.Family, month period.Range) error {
	m, err := s.svc.MonthlyReport(ctx, u, f, month)
	if err != nil {
		return err
	}
	if err := s.sender.Send(ctx, u.TelegramID, report.Summary(m)); err != nil {
		return err
	}

	if !m.Total.IsZero() {
		if err := s.sendDocument(ctx, u, m); err != nil {
			s.logger.WithFields(logrus.Fields{
				"user_id":   u.ID,
				"family_id": f.ID,
			}).WithError(err).Warn("Failed to send monthly report document")
		}
	}

	return s.svc.store.Summaries().MarkSent(ctx, u.ID, f.ID, month.Start, s.svc.now())
}

func (s *SummaryScheduler) sendDocument(ctx context.Context, u *models.User, m *report.Monthly) error {
	doc, err := report.Document(m)
	if err != nil {
		return err
	}
	if err := s.sender.Wait(ctx); err != nil {
		return err
	}
	name := report.Filename(m.FamilyName, m.Period, m.GeneratedAt)
	return s.msg.SendDocument(ctx, u.TelegramID, name, doc, "📎 Detailed report for "+m.Period)
}
