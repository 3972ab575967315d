package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/pkg/logger"
	"gym-saas-be/internal/pkg/mailer"
	"gym-saas-be/internal/repository/specification"
	"gym-saas-be/internal/repository/unitofwork"
	"gym-saas-be/internal/tracer"
	"gym-saas-be/pkg/subscription"

	"go.opentelemetry.io/otel/attribute"
)

const cronModule = "CRON"

type CronSettings struct {
	Interval         time.Duration
	TrialWarningDays []int
	GraceWarningDays []int
}

type SweepReport struct {
	StartedAt    time.Time
	Scanned      int
	Transitioned int
	Warnings     int
	Failures     int
	Duration     time.Duration
}

type ICronService interface {
	Start(ctx context.Context)
	Stop()
	RunSweep(ctx context.Context, now time.Time) SweepReport
}

type cronService struct {
	uowFactory unitofwork.RepositoryFactory
	lifecycle  ILifecycleService
	dispatcher INotificationDispatcher
	settings   CronSettings
	clock      func() time.Time
	logger     logger.ILogger

	mu      sync.Mutex
	ticker  *time.Ticker
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

func NewCronService(
	uowFactory unitofwork.RepositoryFactory,
	lifecycle ILifecycleService,
	dispatcher INotificationDispatcher,
	settings CronSettings,
	clock func() time.Time,
	logger logger.ILogger,
) ICronService {
	if clock == nil {
		clock = time.Now
	}
	if settings.Interval <= 0 {
		settings.Interval = 24 * time.Hour
	}
	if settings.TrialWarningDays == nil {
		settings.TrialWarningDays = []int{7, 1}
	}
	if settings.GraceWarningDays == nil {
		settings.GraceWarningDays = []int{1}
	}
	return &cronService{
		uowFactory: uowFactory,
		lifecycle:  lifecycle,
		dispatcher: dispatcher,
		settings:   settings,
		clock:      clock,
		logger:     logger,
	}
}

// Start runs one sweep immediately and then one per interval until Stop is
// called or ctx is done.
func (s *cronService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.stopCh = make(chan struct{})
	s.ticker = time.NewTicker(s.settings.Interval)
	s.running = true

	s.logger.Info(cronModule, "Subscription sweep scheduled", map[string]interface{}{
		"interval": s.settings.Interval.String(),
	})

	s.wg.Add(1)
	go s.loop(ctx, s.ticker, s.stopCh)
}

func (s *cronService) loop(ctx context.Context, ticker *time.Ticker, stopCh chan struct{}) {
	defer s.wg.Done()

	s.RunSweep(ctx, s.clock())
	for {
		select {
		case <-ticker.C:
			s.RunSweep(ctx, s.clock())
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *cronService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	close(s.stopCh)
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info(cronModule, "Subscription sweep stopped", nil)
}

func (s *cronService) RunSweep(ctx context.Context, now time.Time) SweepReport {
	// now is the business clock. Duration is wall time.
	started := time.Now()
	now = now.UTC()
	report := SweepReport{StartedAt: now}

	ctx, span := tracer.Start(ctx, "cron.sweep")
	defer span.End()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	admins, err := uow.AdminRepository().FindAll(ctx, specification.SubscriptionStatusIn{Statuses: []entity.SubscriptionStatus{
		entity.SubscriptionStatusTrial,
		entity.SubscriptionStatusGrace,
		entity.SubscriptionStatusActive,
	}})
	if err != nil {
		s.logger.Error(cronModule, "Failed to load tenants for sweep", map[string]interface{}{
			"error": err.Error(),
		})
		report.Failures++
		return report
	}

	for _, admin := range admins {
		report.Scanned++
		transitioned, warned, err := s.sweepOne(ctx, admin, now)
		if err != nil {
			report.Failures++
			s.logger.Error(cronModule, "Sweep failed for tenant", map[string]interface{}{
				"admin_id": admin.Id.String(),
				"status":   string(admin.SubscriptionStatus),
				"error":    err.Error(),
			})
			continue
		}
		if transitioned {
			report.Transitioned++
		}
		if warned {
			report.Warnings++
		}
	}

	report.Duration = time.Since(started)
	span.SetAttributes(
		attribute.Int("sweep.scanned", report.Scanned),
		attribute.Int("sweep.transitioned", report.Transitioned),
		attribute.Int("sweep.failures", report.Failures),
	)
	s.logger.Info(cronModule, "Subscription sweep finished", map[string]interface{}{
		"scanned":      report.Scanned,
		"transitioned": report.Transitioned,
		"warnings":     report.Warnings,
		"failures":     report.Failures,
	})
	return report
}

func (s *cronService) sweepOne(ctx context.Context, admin *entity.Admin, now time.Time) (transitioned, warned bool, err error) {
	res, err := s.lifecycle.ApplyDue(ctx, admin, now)
	if err != nil {
		return false, false, err
	}

	if res.Applied {
		switch {
		case res.From == entity.SubscriptionStatusTrial && res.To == entity.SubscriptionStatusGrace:
			s.notify(ctx, res.Admin, mailer.KindTrialEnded, map[string]interface{}{
				"date": res.Admin.GraceEndDate,
			})
		case res.From == entity.SubscriptionStatusGrace && res.To == entity.SubscriptionStatusExpired:
			s.notify(ctx, res.Admin, mailer.KindGraceEnded, nil)
		}
		return true, false, nil
	}

	switch admin.SubscriptionStatus {
	case entity.SubscriptionStatusTrial:
		days := daysUntil(now, admin.TrialEndDate)
		if slices.Contains(s.settings.TrialWarningDays, days) {
			s.notify(ctx, admin, mailer.KindTrialEnding, map[string]interface{}{
				"date":      admin.TrialEndDate,
				"days_left": days,
			})
			return false, true, nil
		}
	case entity.SubscriptionStatusGrace:
		if admin.GraceEndDate == nil {
			return false, false, nil
		}
		days := daysUntil(now, *admin.GraceEndDate)
		if slices.Contains(s.settings.GraceWarningDays, days) {
			s.notify(ctx, admin, mailer.KindGraceEnding, map[string]interface{}{
				"date":      *admin.GraceEndDate,
				"days_left": days,
			})
			return false, true, nil
		}
	}
	return false, false, nil
}

// daysUntil counts calendar days (UTC) between now and the boundary, so a
// daily sweep hits each warning day exactly once.
func daysUntil(now, boundary time.Time) int {
	return int(subscription.StartOfDay(boundary).Sub(subscription.StartOfDay(now)).Hours() / 24)
}

func (s *cronService) notify(ctx context.Context, admin *entity.Admin, kind mailer.NotificationKind, data map[string]interface{}) {
	if s.dispatcher == nil || admin == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, notificationFor(admin, kind, data)); err != nil {
		s.logger.Warn(cronModule, "Notification not queued", map[string]interface{}{
			"admin_id": admin.Id.String(),
			"kind":     string(kind),
			"error":    err.Error(),
		})
	}
}
