// Package scheduler runs periodic background jobs: syncing with the remote
// store and streak reminders.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/example/spellsync/internal/database"
	"github.com/example/spellsync/internal/notify"
	"github.com/example/spellsync/internal/practice"
	"github.com/example/spellsync/internal/syncer"
)

// Syncer is the part of the sync engine the scheduler drives
type Syncer interface {
	SyncNow(ctx context.Context) (syncer.SyncReport, error)
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	cron     *gocron.Scheduler
	syncer   Syncer
	repos    *database.Repositories
	notifier notify.Notifier
	interval time.Duration
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Scheduler)

// WithClock replaces time.Now for the reminder check
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a scheduler. interval is the period of the sync job; loc is
// the time zone reminder hours are expressed in.
func New(sync Syncer, repos *database.Repositories, notifier notify.Notifier, interval time.Duration,
	loc *time.Location, logger *zap.Logger, opts ...Option) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		cron:     gocron.NewScheduler(loc),
		syncer:   sync,
		repos:    repos,
		notifier: notifier,
		interval: interval,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules the jobs and runs them in the background until Stop.
// Jobs get ctx so that stopping the application cancels a running job.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.syncer != nil && s.interval > 0 {
		_, err := s.cron.Every(s.interval).SingletonMode().Do(func() {
			if _, err := s.syncer.SyncNow(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("Scheduled sync failed", zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule sync: %w", err)
		}
	}

	// Every hour, on the hour
	_, err := s.cron.Cron("0 * * * *").SingletonMode().Do(func() {
		if _, err := s.CheckReminders(ctx); err != nil {
			s.logger.Error("Reminder check failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	s.cron.StartAsync()
	s.logger.Info("Scheduler started", zap.Duration("sync_interval", s.interval))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// CheckReminders reminds every user whose reminder hour is now and whose
// streak ends unless they practice today. It returns how many were sent.
func (s *Scheduler) CheckReminders(ctx context.Context) (int, error) {
	now := s.now().In(s.loc)

	users, err := s.repos.Settings.ListForReminder(ctx, now.Hour())
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, user := range users {
		stats, err := s.repos.Statistics.Get(ctx, user.UserID)
		if errors.Is(err, database.ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.Error("Error getting statistics", zap.String("user_id", user.UserID), zap.Error(err))
			continue
		}
		if !practice.StreakAtRisk(stats, now) {
			continue
		}

		reminder := notify.Reminder{
			UserID: user.UserID,
			ChatID: user.TelegramChatID,
			Streak: stats.CurrentStreak,
		}
		if user.SelectedListID != "" {
			due, err := s.repos.Reviews.Due(ctx, user.UserID, user.SelectedLanguage, user.SelectedListID, now)
			if err == nil {
				reminder.DueWords = len(due)
			}
		}

		if err := s.notifier.SendReminder(ctx, reminder); err != nil {
			s.logger.Warn("Error sending reminder", zap.String("user_id", user.UserID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}
