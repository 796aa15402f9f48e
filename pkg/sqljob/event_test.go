package sqljob

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"sqlrunner/internal/testutil"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *recordingObserver) ObserveJobEvent(ev Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *recordingObserver) snapshot() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Event(nil), o.events...)
}

func newObservedEngine(t *testing.T) (*Engine, *recordingObserver) {
	t.Helper()
	obs := &recordingObserver{}
	e := New(Config{
		ResultDir: filepath.Join(t.TempDir(), "results"),
		Logger:    discardLogger(),
		Observer:  obs,
	})
	t.Cleanup(func() { e.Close(context.Background()) }) //nolint:errcheck
	return e, obs
}

func eventTypes(events []Event) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestExecJobEventSequence(t *testing.T) {
	t.Parallel()
	e, obs := newObservedEngine(t)
	conn := newTestConnector(t)

	job := mustSubmit(t, e, conn, "CREATE TABLE t (a int)")
	testutil.MustWaitFor(t, func() bool { return len(obs.snapshot()) == 3 })

	events := obs.snapshot()
	want := []string{EventTypeStart, EventTypeQuery, EventTypeExit}
	for i, typ := range eventTypes(events) {
		if typ != want[i] {
			t.Fatalf("event sequence %v, want %v", eventTypes(events), want)
		}
	}
	for _, ev := range events {
		if ev.JobID != job.ID() || ev.TraceID != job.TraceID() {
			t.Errorf("event %s has wrong identity: jobId=%d traceId=%q", ev.Type, ev.JobID, ev.TraceID)
		}
	}
	if state := events[2].Data["state"]; state != StateSucceeded {
		t.Errorf("exit event state = %v, want %s", state, StateSucceeded)
	}
}

func TestQueryJobEmitsPersistEvent(t *testing.T) {
	t.Parallel()
	e, obs := newObservedEngine(t)
	conn := newTestConnector(t)

	mustSubmit(t, e, conn, "SELECT 1")
	testutil.MustWaitFor(t, func() bool { return len(obs.snapshot()) == 4 })

	want := []string{EventTypeStart, EventTypeQuery, EventTypePersist, EventTypeExit}
	got := eventTypes(obs.snapshot())
	for i, typ := range got {
		if typ != want[i] {
			t.Fatalf("event sequence %v, want %v", got, want)
		}
	}

	persist := obs.snapshot()[2]
	if persist.Data["csv"] == "" || persist.Data["binary"] == "" {
		t.Errorf("persist event missing artifact paths: %v", persist.Data)
	}
}

func TestFailedJobExitEventCarriesError(t *testing.T) {
	t.Parallel()
	e, obs := newObservedEngine(t)
	conn := newTestConnector(t)

	mustSubmit(t, e, conn, "SELEKT 1")
	testutil.MustWaitFor(t, func() bool {
		events := obs.snapshot()
		return len(events) > 0 && events[len(events)-1].Type == EventTypeExit
	})

	events := obs.snapshot()
	exit := events[len(events)-1]
	if exit.Data["state"] != StateFailed {
		t.Errorf("exit event state = %v, want %s", exit.Data["state"], StateFailed)
	}
	if exit.Data["error"] == nil || exit.Data["error"] == "" {
		t.Error("exit event for a failed job must carry the error text")
	}
}

func TestLogObserver(t *testing.T) {
	t.Parallel()
	obs := NewLogObserver(discardLogger())

	// Should not panic on either level path.
	obs.ObserveJobEvent(Event{Type: EventTypeStart, JobID: 1, Data: map[string]any{"kind": "query"}})
	obs.ObserveJobEvent(Event{Type: EventTypeExit, JobID: 1, Data: map[string]any{"error": "boom"}})
	obs.ObserveJobEvent(Event{Type: EventTypeExit, JobID: 1, Data: nil})
}
