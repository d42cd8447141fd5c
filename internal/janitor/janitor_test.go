package janitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shaiso/Questionary/internal/events"
)

type fakeStore struct {
	before  time.Time
	deleted int64
	err     error
	calls   int
}

func (s *fakeStore) DeleteStaleQuestionaries(_ context.Context, before time.Time) (int64, error) {
	s.calls++
	s.before = before
	return s.deleted, s.err
}

type fakeLocker struct {
	free     bool
	unlocked bool
}

func (l *fakeLocker) TryLock(context.Context) (func(), bool, error) {
	if !l.free {
		return nil, false, nil
	}
	return func() { l.unlocked = true }, true, nil
}

type recordingSink struct {
	events []*events.Event
}

func (s *recordingSink) Publish(_ context.Context, e *events.Event) error {
	s.events = append(s.events, e)
	return nil
}

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestJanitor(t *testing.T, store Store, locker Locker, sink events.Sink) *Janitor {
	t.Helper()

	cfg := Config{
		Store:     store,
		Sink:      sink,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Retention: 24 * time.Hour,
		Clock:     func() time.Time { return fixedNow },
	}
	if locker != nil {
		cfg.Locker = locker
	}

	j, err := New(cfg)
	if err != nil {
		t.Fatalf("new janitor: %v", err)
	}
	return j
}

func TestSweep(t *testing.T) {
	store := &fakeStore{deleted: 3}
	sink := &recordingSink{}
	j := newTestJanitor(t, store, nil, sink)

	result, err := j.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", result.Deleted)
	}
	if want := fixedNow.Add(-24 * time.Hour); !store.before.Equal(want) {
		t.Errorf("expected cutoff %s, got %s", want, store.before)
	}

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	if e := sink.events[0]; e.Type != events.TypeStaleQuestionariesRemoved || e.Key != "janitor" {
		t.Errorf("unexpected event: %+v", e)
	}
}

func TestSweep_LockHeld(t *testing.T) {
	store := &fakeStore{}
	j := newTestJanitor(t, store, &fakeLocker{free: false}, nil)

	result, err := j.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil || store.calls != 0 {
		t.Error("sweep should be skipped when the lock is held")
	}
}

func TestSweep_ReleasesLock(t *testing.T) {
	locker := &fakeLocker{free: true}
	j := newTestJanitor(t, &fakeStore{}, locker, nil)

	if _, err := j.Sweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !locker.unlocked {
		t.Error("lock should be released after the sweep")
	}
}

func TestSweep_StoreError(t *testing.T) {
	sink := &recordingSink{}
	j := newTestJanitor(t, &fakeStore{err: errors.New("db down")}, nil, sink)

	if _, err := j.Sweep(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(sink.events) != 1 || !sink.events[0].IsRejection {
		t.Error("failed sweep should publish a rejection event")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Store: &fakeStore{}, Schedule: "every tuesday", Retention: time.Hour}); err == nil {
		t.Error("expected error for invalid schedule")
	}
	if _, err := New(Config{Store: &fakeStore{}}); err == nil {
		t.Error("expected error for zero retention")
	}

	j, err := New(Config{Store: &fakeStore{}, Retention: time.Hour})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.schedule != "@hourly" {
		t.Errorf("expected default schedule, got %q", j.schedule)
	}
}

func TestNextRun(t *testing.T) {
	tests := []struct {
		expr string
		want time.Time
	}{
		{"0 3 * * *", time.Date(2024, 3, 11, 3, 0, 0, 0, time.UTC)},
		{"@hourly", time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)},
		{"@every 30m", fixedNow.Add(30 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := NextRun(tt.expr, fixedNow)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	if err := ValidateSchedule("61 * * * *"); err == nil {
		t.Error("expected error for out-of-range minute")
	}
}
