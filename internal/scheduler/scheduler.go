package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/example/mcatbot/internal/logger"
	"github.com/example/mcatbot/pkg/models"
	"github.com/go-co-op/gocron"
)

// Notifier sends a study reminder. weakest is nil when the user has no mastery yet.
type Notifier interface {
	SendReminder(ctx context.Context, user models.User, weakest *models.ConceptMastery) error
}

// Users finds who wants a reminder at a given hour
type Users interface {
	GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error)
}

// Activity reports when a user last answered
type Activity interface {
	LastAnsweredAt(ctx context.Context, userID string) (time.Time, bool, error)
}

// Mastery lists a user's concept mastery
type Mastery interface {
	GetByUser(ctx context.Context, userID string) ([]models.ConceptMastery, error)
}

// Options configure the reminder window
type Options struct {
	StartHour int
	EndHour   int
	IdleFor   time.Duration // only users idle at least this long are reminded
	Location  *time.Location
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	users     Users
	activity  Activity
	mastery   Mastery
	opts      Options
	log       *logger.Logger
	now       func() time.Time
}

// New creates a new scheduler instance
func New(notifier Notifier, users Users, activity Activity, mastery Mastery, opts Options, log *logger.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(opts.Location),
		notifier:  notifier,
		users:     users,
		activity:  activity,
		mastery:   mastery,
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	// Hourly check for users who need notifications, aligned to the top of the hour
	_, err := s.scheduler.Every(1).Hour().StartAt(s.nextHour()).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.CheckReminders(ctx); err != nil {
			s.log.Error("Reminder check failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) nextHour() time.Time {
	return s.now().In(s.opts.Location).Truncate(time.Hour).Add(time.Hour)
}

// CheckReminders sends reminders due at the current hour and returns how many were sent
func (s *Scheduler) CheckReminders(ctx context.Context) (int, error) {
	now := s.now().In(s.opts.Location)
	currentHour := now.Hour()

	if currentHour < s.opts.StartHour || currentHour > s.opts.EndHour {
		s.log.Debug("Outside notification hours, skipping reminders",
			"hour", currentHour, "start", s.opts.StartHour, "end", s.opts.EndHour)
		return 0, nil
	}

	users, err := s.users.GetUsersForNotification(ctx, currentHour)
	if err != nil {
		return 0, err
	}

	sent := 0
	var errs []error
	for _, user := range users {
		ok, err := s.remind(ctx, user, now)
		if err != nil {
			s.log.Warn("Failed to send reminder", "user_id", user.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		if ok {
			sent++
		}
	}
	s.log.Info("Reminder check finished", "hour", currentHour, "candidates", len(users), "sent", sent)
	return sent, errors.Join(errs...)
}

// RunManualCheck sends a reminder to one user regardless of the hour and idle time
func (s *Scheduler) RunManualCheck(ctx context.Context, user models.User) error {
	weakest, err := s.weakestConcept(ctx, user.ID)
	if err != nil {
		return err
	}
	return s.notifier.SendReminder(ctx, user, weakest)
}

func (s *Scheduler) remind(ctx context.Context, user models.User, now time.Time) (bool, error) {
	last, ok, err := s.activity.LastAnsweredAt(ctx, user.ID)
	if err != nil {
		return false, err
	}
	if ok && now.Sub(last) < s.opts.IdleFor {
		return false, nil
	}
	weakest, err := s.weakestConcept(ctx, user.ID)
	if err != nil {
		return false, err
	}
	if err := s.notifier.SendReminder(ctx, user, weakest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Scheduler) weakestConcept(ctx context.Context, userID string) (*models.ConceptMastery, error) {
	rows, err := s.mastery.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var weakest *models.ConceptMastery
	for i := range rows {
		if weakest == nil || rows[i].MasteryPercentage < weakest.MasteryPercentage {
			weakest = &rows[i]
		}
	}
	return weakest, nil
}
