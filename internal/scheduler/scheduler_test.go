package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/revisionbot/internal/study"
	"github.com/example/revisionbot/pkg/models"
)

type fakeUsers struct {
	byHour map[int][]models.User
	err    error
}

func (f *fakeUsers) GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	return f.byHour[hour], f.err
}

type fakeDue int

func (f fakeDue) DueCount(ctx context.Context) (int, error) { return int(f), nil }

type sent struct {
	userID int64
	count  int
}

type fakeNotifier struct {
	sent []sent
	fail map[int64]bool
}

func (f *fakeNotifier) SendReminders(userID int64, count int) error {
	if f.fail[userID] {
		return errors.New("blocked by user")
	}
	f.sent = append(f.sent, sent{userID, count})
	return nil
}

type fakeSyncer struct{}

func (fakeSyncer) Sync(ctx context.Context) (study.SyncResult, error) { return study.SyncResult{}, nil }

func at(hour int) time.Time {
	return time.Date(2024, 5, 1, hour, 0, 0, 0, time.UTC)
}

func TestCheckRemindersHonorsWindowAndLimit(t *testing.T) {
	users := &fakeUsers{byHour: map[int][]models.User{
		9:  {{ID: 1, TopicsPerDay: 2}, {ID: 2}, {ID: 3}},
		23: {{ID: 4}},
	}}
	notifier := &fakeNotifier{fail: map[int64]bool{3: true}}
	s := New(users, fakeDue(5), notifier, nil, Config{StartHour: 8, EndHour: 22})

	if n := s.CheckReminders(context.Background(), at(9)); n != 2 {
		t.Fatalf("expected 2 reminders, got %d", n)
	}
	if len(notifier.sent) != 2 || notifier.sent[0] != (sent{1, 2}) || notifier.sent[1] != (sent{2, 5}) {
		t.Fatalf("unexpected reminders %+v", notifier.sent)
	}

	if n := s.CheckReminders(context.Background(), at(23)); n != 0 {
		t.Fatalf("expected no reminders outside the window, got %d", n)
	}
}

func TestCheckRemindersNothingDue(t *testing.T) {
	users := &fakeUsers{byHour: map[int][]models.User{10: {{ID: 1}}}}
	notifier := &fakeNotifier{}
	s := New(users, fakeDue(0), notifier, nil, Config{StartHour: 8, EndHour: 22})

	if n := s.CheckReminders(context.Background(), at(10)); n != 0 || len(notifier.sent) != 0 {
		t.Fatalf("expected no reminders, got %d", n)
	}
}

func TestInWindowWrapsMidnight(t *testing.T) {
	s := New(&fakeUsers{}, fakeDue(0), &fakeNotifier{}, nil, Config{StartHour: 22, EndHour: 2})
	for hour, want := range map[int]bool{21: false, 22: true, 0: true, 2: true, 3: false} {
		if got := s.InWindow(hour); got != want {
			t.Fatalf("hour %d: expected %v, got %v", hour, want, got)
		}
	}
}

func TestRunManualCheck(t *testing.T) {
	notifier := &fakeNotifier{}
	s := New(&fakeUsers{}, fakeDue(3), notifier, nil, Config{})

	due, err := s.RunManualCheck(context.Background(), 7)
	if err != nil {
		t.Fatalf("manual check: %v", err)
	}
	if due != 3 {
		t.Fatalf("expected 3 due topics, got %d", due)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != (sent{7, 3}) {
		t.Fatalf("unexpected reminders %+v", notifier.sent)
	}
}

func TestRunManualCheckNothingDue(t *testing.T) {
	notifier := &fakeNotifier{}
	s := New(&fakeUsers{}, fakeDue(0), notifier, nil, Config{})

	due, err := s.RunManualCheck(context.Background(), 7)
	if err != nil || due != 0 {
		t.Fatalf("expected nothing due, got %d, %v", due, err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no reminders, got %+v", notifier.sent)
	}
}

func TestRunManualCheckWithoutNotifier(t *testing.T) {
	s := New(nil, nil, nil, fakeSyncer{}, Config{SyncInterval: time.Hour})

	if _, err := s.RunManualCheck(context.Background(), 7); !errors.Is(err, ErrNoNotifier) {
		t.Fatalf("expected ErrNoNotifier, got %v", err)
	}
}

func TestStartRegistersJobs(t *testing.T) {
	ctx := context.Background()

	withSync := New(&fakeUsers{}, fakeDue(0), &fakeNotifier{}, fakeSyncer{}, Config{SyncInterval: time.Hour})
	if err := withSync.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer withSync.Stop()
	if withSync.Jobs() != 2 {
		t.Fatalf("expected 2 jobs, got %d", withSync.Jobs())
	}

	remindersOnly := New(&fakeUsers{}, fakeDue(0), &fakeNotifier{}, fakeSyncer{}, Config{})
	if err := remindersOnly.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer remindersOnly.Stop()
	if remindersOnly.Jobs() != 1 {
		t.Fatalf("expected 1 job, got %d", remindersOnly.Jobs())
	}

	syncOnly := New(nil, nil, nil, fakeSyncer{}, Config{SyncInterval: time.Hour})
	if err := syncOnly.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer syncOnly.Stop()
	if syncOnly.Jobs() != 1 {
		t.Fatalf("expected 1 job, got %d", syncOnly.Jobs())
	}
}
