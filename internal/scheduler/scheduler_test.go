package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/mcatbot/pkg/models"
)

type fakeNotifier struct {
	sent    map[string]string // user id -> weakest concept
	failFor string
}

func (f *fakeNotifier) SendReminder(_ context.Context, user models.User, weakest *models.ConceptMastery) error {
	if user.ID == f.failFor {
		return errors.New("blocked by user")
	}
	concept := ""
	if weakest != nil {
		concept = weakest.Concept
	}
	f.sent[user.ID] = concept
	return nil
}

type fakeData struct {
	users   []models.User
	last    map[string]time.Time
	mastery map[string][]models.ConceptMastery
}

func (f *fakeData) GetUsersForNotification(_ context.Context, hour int) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		if u.NotificationEnabled && u.NotificationHour == hour {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeData) LastAnsweredAt(_ context.Context, userID string) (time.Time, bool, error) {
	t, ok := f.last[userID]
	return t, ok, nil
}

func (f *fakeData) GetByUser(_ context.Context, userID string) ([]models.ConceptMastery, error) {
	return f.mastery[userID], nil
}

func newTestScheduler(now time.Time) (*Scheduler, *fakeNotifier) {
	data := &fakeData{
		users: []models.User{
			{ID: "idle", NotificationEnabled: true, NotificationHour: 9},
			{ID: "active", NotificationEnabled: true, NotificationHour: 9},
			{ID: "new", NotificationEnabled: true, NotificationHour: 9},
			{ID: "other-hour", NotificationEnabled: true, NotificationHour: 18},
			{ID: "blocked", NotificationEnabled: true, NotificationHour: 9},
		},
		last: map[string]time.Time{
			"idle":    now.Add(-48 * time.Hour),
			"active":  now.Add(-2 * time.Hour),
			"blocked": now.Add(-48 * time.Hour),
		},
		mastery: map[string][]models.ConceptMastery{
			"idle": {
				{Concept: "acids", MasteryPercentage: 80},
				{Concept: "kinetics", MasteryPercentage: 25},
			},
		},
	}
	notifier := &fakeNotifier{sent: make(map[string]string), failFor: "blocked"}
	s := New(notifier, data, data, data, Options{StartHour: 8, EndHour: 22, IdleFor: 24 * time.Hour, Location: time.UTC}, nil)
	s.now = func() time.Time { return now }
	return s, notifier
}

func TestCheckReminders(t *testing.T) {
	now := time.Date(2024, 5, 6, 9, 15, 0, 0, time.UTC)
	s, notifier := newTestScheduler(now)

	sent, err := s.CheckReminders(context.Background())
	if err == nil {
		t.Error("expected the blocked user's error to be reported")
	}
	if sent != 2 {
		t.Errorf("sent = %d, want 2", sent)
	}
	if got, ok := notifier.sent["idle"]; !ok || got != "kinetics" {
		t.Errorf("idle user should be reminded about kinetics, got %q (%v)", got, ok)
	}
	if _, ok := notifier.sent["new"]; !ok {
		t.Error("user without answers should be reminded")
	}
	for _, id := range []string{"active", "other-hour"} {
		if _, ok := notifier.sent[id]; ok {
			t.Errorf("%s should not be reminded", id)
		}
	}
}

func TestCheckRemindersOutsideWindow(t *testing.T) {
	s, notifier := newTestScheduler(time.Date(2024, 5, 6, 23, 0, 0, 0, time.UTC))
	sent, err := s.CheckReminders(context.Background())
	if err != nil || sent != 0 || len(notifier.sent) != 0 {
		t.Errorf("expected nothing outside the window, got %d, %v", sent, err)
	}
}

func TestRunManualCheck(t *testing.T) {
	s, notifier := newTestScheduler(time.Date(2024, 5, 6, 3, 0, 0, 0, time.UTC))
	if err := s.RunManualCheck(context.Background(), models.User{ID: "active"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := notifier.sent["active"]; !ok {
		t.Error("manual check should ignore hour and idle time")
	}
}
