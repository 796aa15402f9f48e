package sqljob

import (
	"errors"
	"testing"
	"time"

	"sqlrunner/pkg/apperrors"
)

func TestJobTransitions(t *testing.T) {
	t.Parallel()
	job := newJob(1, "SELECT 1", nil, submitOptions{})

	if job.State() != StatePending {
		t.Fatalf("new job state = %s, want %s", job.State(), StatePending)
	}
	if !job.StartedAt().IsZero() {
		t.Error("startedAt must be zero before the worker begins")
	}

	job.begin()
	if job.State() != StateRunning {
		t.Fatalf("state after begin = %s, want %s", job.State(), StateRunning)
	}
	if job.StartedAt().IsZero() {
		t.Error("begin must record the start time")
	}
	if !job.Running() {
		t.Error("a running job must report Running")
	}

	job.succeed(nil, 3)
	if job.State() != StateSucceeded {
		t.Fatalf("state after succeed = %s, want %s", job.State(), StateSucceeded)
	}
	if job.FinishedAt().IsZero() {
		t.Error("succeed must record the finish time")
	}
	if job.Running() {
		t.Error("a terminal job must not report Running")
	}
	if affected, err := job.RowsAffected(); err != nil || affected != 3 {
		t.Errorf("RowsAffected = (%d, %v), want (3, nil)", affected, err)
	}
}

func TestJobFailPublishesError(t *testing.T) {
	t.Parallel()
	job := newJob(2, "SELECT 1", nil, submitOptions{})
	job.begin()

	cause := apperrors.Query(errors.New("constraint violation"))
	job.fail(cause)

	if job.State() != StateFailed {
		t.Fatalf("state = %s, want %s", job.State(), StateFailed)
	}
	if job.Err() != cause {
		t.Errorf("Err() = %v, want the recorded failure", job.Err())
	}

	_, err := job.Result()
	if !errors.Is(err, apperrors.ErrJobFailed) {
		t.Errorf("expected ErrJobFailed, got %v", err)
	}
	if !errors.Is(job.Err(), apperrors.ErrQuery) {
		t.Errorf("expected the recorded failure to classify as ErrQuery, got %v", job.Err())
	}

	// Terminal transitions release postcommit waiters.
	select {
	case <-job.committed:
	default:
		t.Error("fail must release postcommit waiters")
	}
}

func TestWaitBlocksUntilTerminal(t *testing.T) {
	t.Parallel()
	job := newJob(3, "SELECT 1", nil, submitOptions{})
	job.begin()

	go func() {
		time.Sleep(30 * time.Millisecond)
		job.succeed(nil, 0)
	}()

	if got := job.Wait(0); got != job {
		t.Error("Wait must return the job for chaining")
	}
	if job.Running() {
		t.Error("Wait(0) returned while the job was still running")
	}
}

func TestSignalCommittedIsIdempotent(t *testing.T) {
	t.Parallel()
	job := newJob(4, "INSERT INTO t VALUES (1)", nil, submitOptions{postcommit: true})

	job.signalCommitted()
	job.signalCommitted() // must not panic
	job.succeed(nil, 1)   // closes committed again via the same guard

	select {
	case <-job.committed:
	default:
		t.Error("committed channel must be closed")
	}
}

func TestTraceIDsAreUnique(t *testing.T) {
	t.Parallel()
	a := newJob(5, "SELECT 1", nil, submitOptions{})
	b := newJob(6, "SELECT 1", nil, submitOptions{})

	if a.TraceID() == "" || a.TraceID() == b.TraceID() {
		t.Errorf("expected distinct trace ids, got %q and %q", a.TraceID(), b.TraceID())
	}
}
