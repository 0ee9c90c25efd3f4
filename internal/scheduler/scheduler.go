package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/example/revisionbot/internal/study"
	"github.com/example/revisionbot/pkg/models"
	"github.com/go-co-op/gocron"
)

// ErrNoNotifier is returned by RunManualCheck on a scheduler built without a Notifier
var ErrNoNotifier = errors.New("reminders are not configured")

// Default notification window, hours in UTC
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// Notifier sends revision reminders
type Notifier interface {
	SendReminders(userID int64, count int) error
}

// Syncer refreshes the topic list
type Syncer interface {
	Sync(ctx context.Context) (study.SyncResult, error)
}

// DueCounter counts the topics due for revision
type DueCounter interface {
	DueCount(ctx context.Context) (int, error)
}

// UserSource lists users waiting for a reminder at an hour
type UserSource interface {
	GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error)
}

// Config controls the scheduled jobs
type Config struct {
	StartHour    int
	EndHour      int
	SyncInterval time.Duration // 0 disables the periodic sync
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	users     UserSource
	due       DueCounter
	notifier  Notifier
	syncer    Syncer
	cfg       Config
	now       func() time.Time
}

// New creates a new scheduler instance. Without a notifier no reminders are
// scheduled, without a syncer no periodic sync.
func New(users UserSource, due DueCounter, notifier Notifier, syncer Syncer, cfg Config) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		users:     users,
		due:       due,
		notifier:  notifier,
		syncer:    syncer,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start registers the jobs and runs them in the background until ctx is done or Stop is called
func (s *Scheduler) Start(ctx context.Context) error {
	if s.notifier != nil {
		// top of every hour
		if _, err := s.scheduler.Cron("0 * * * *").Do(func() {
			s.CheckReminders(ctx, s.now().UTC())
		}); err != nil {
			return err
		}
	}

	if s.syncer != nil && s.cfg.SyncInterval > 0 {
		if _, err := s.scheduler.Every(s.cfg.SyncInterval).Do(func() {
			if _, err := s.syncer.Sync(ctx); err != nil {
				log.Printf("Error syncing notes: %v", err)
			}
		}); err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Jobs returns the number of registered jobs
func (s *Scheduler) Jobs() int {
	return s.scheduler.Len()
}

// InWindow reports whether hour lies in the notification window. A window whose
// start is after its end wraps around midnight.
func (s *Scheduler) InWindow(hour int) bool {
	start, end := s.cfg.StartHour, s.cfg.EndHour
	if start <= end {
		return hour >= start && hour <= end
	}
	return hour >= start || hour <= end
}

// CheckReminders sends a reminder to every user whose notification hour is now
// and returns how many were sent
func (s *Scheduler) CheckReminders(ctx context.Context, now time.Time) int {
	currentHour := now.Hour()
	if !s.InWindow(currentHour) {
		log.Printf("Current hour %d is outside notification hours (%d-%d), skipping reminders",
			currentHour, s.cfg.StartHour, s.cfg.EndHour)
		return 0
	}

	users, err := s.users.GetUsersForNotification(ctx, currentHour)
	if err != nil {
		log.Printf("Error getting users for notification: %v", err)
		return 0
	}
	if len(users) == 0 {
		return 0
	}

	due, err := s.due.DueCount(ctx)
	if err != nil {
		log.Printf("Error counting due topics: %v", err)
		return 0
	}
	if due == 0 {
		return 0
	}

	sent := 0
	for _, user := range users {
		// Don't send more than the user's daily preference
		count := due
		if user.TopicsPerDay > 0 && count > user.TopicsPerDay {
			count = user.TopicsPerDay
		}

		if err := s.notifier.SendReminders(user.ID, count); err != nil {
			log.Printf("Error sending reminder to user %d: %v", user.ID, err)
			continue
		}
		sent++
	}
	return sent
}

// RunManualCheck sends one user a reminder for the topics due now and returns their count.
// Nothing is sent when no topic is due.
func (s *Scheduler) RunManualCheck(ctx context.Context, userID int64) (int, error) {
	if s.notifier == nil || s.due == nil {
		return 0, ErrNoNotifier
	}
	due, err := s.due.DueCount(ctx)
	if err != nil {
		return 0, err
	}
	if due > 0 {
		if err := s.notifier.SendReminders(userID, due); err != nil {
			return 0, err
		}
	}
	return due, nil
}
