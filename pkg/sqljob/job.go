package sqljob

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"sqlrunner/pkg/apperrors"
)

// State is the lifecycle state of a job. Transitions are monotonic:
// Pending -> Running -> {Succeeded, Failed}.
type State string

// State constants
const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// ResultSetRows is the RowsAffected sentinel for statements that produced a
// result set rather than an affected-row count.
const ResultSetRows int64 = -1

// Job is one submitted SQL statement and its execution lifecycle. It doubles
// as the caller-facing handle: observe progress with Running or Wait, then
// read the outcome with Result or RowsAffected.
//
// A job is visible in Pending state as soon as Submit returns, before its
// worker runs. Terminal fields are published by closing the done channel, so
// any reader observing a terminal state sees the fully populated result or
// error.
type Job struct {
	id          int64
	traceID     string
	sqlText     string
	params      []any
	conn        Conn
	ownsConn    bool
	submittedAt time.Time
	maxRows     int
	postcommit  bool

	commitOnce sync.Once
	committed  chan struct{} // closed when the statement reaches its commit point
	done       chan struct{} // closed on the terminal transition

	mu           sync.Mutex
	state        State
	startedAt    time.Time
	finishedAt   time.Time
	rowsAffected int64
	result       *ResultHandle
	err          error
}

func newJob(id int64, sqlText string, conn Conn, o submitOptions) *Job {
	return &Job{
		id:          id,
		traceID:     uuid.NewString(),
		sqlText:     sqlText,
		params:      o.params,
		conn:        conn,
		ownsConn:    o.ownsConn,
		submittedAt: time.Now(),
		maxRows:     o.maxRows,
		postcommit:  o.postcommit,
		committed:   make(chan struct{}),
		done:        make(chan struct{}),
		state:       StatePending,
	}
}

// ID returns the job id, unique and strictly increasing within a process.
func (j *Job) ID() int64 {
	return j.id
}

// TraceID returns the correlation id carried on log lines and events.
func (j *Job) TraceID() string {
	return j.traceID
}

// SQL returns the statement text.
func (j *Job) SQL() string {
	return j.sqlText
}

// SubmittedAt returns the submission time, used to key result artifacts.
func (j *Job) SubmittedAt() time.Time {
	return j.submittedAt
}

// State returns the current lifecycle state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Running reports whether the job has not yet reached a terminal state.
func (j *Job) Running() bool {
	select {
	case <-j.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the job reaches a terminal state,
// for select-based callers.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job reaches a terminal state or the timeout elapses;
// timeout <= 0 waits indefinitely. It returns the job for chaining. On
// timeout it returns without error: re-check Running.
func (j *Job) Wait(timeout time.Duration) *Job {
	if timeout <= 0 {
		<-j.done
		return j
	}
	select {
	case <-j.done:
	case <-time.After(timeout):
	}
	return j
}

// StartedAt returns when the worker began executing, zero while Pending.
func (j *Job) StartedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.startedAt
}

// FinishedAt returns when the job reached a terminal state, zero before.
func (j *Job) FinishedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finishedAt
}

// Err returns the recorded failure, nil unless the job is Failed.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Result returns the persisted result set. It fails with ErrNotReady before
// completion and with ErrJobFailed (wrapping the recorded failure) on a
// failed job. A nil handle with nil error means the statement produced no
// result set; use RowsAffected for its affected-row count.
func (j *Job) Result() (*ResultHandle, error) {
	if j.Running() {
		return nil, apperrors.NotReady(j.id)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == StateFailed {
		return nil, apperrors.JobFailed(j.id, j.err)
	}
	return j.result, nil
}

// RowsAffected returns the affected-row count, or ResultSetRows (-1) when
// the statement produced a result set. Same readiness rules as Result.
func (j *Job) RowsAffected() (int64, error) {
	if j.Running() {
		return 0, apperrors.NotReady(j.id)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == StateFailed {
		return 0, apperrors.JobFailed(j.id, j.err)
	}
	return j.rowsAffected, nil
}

// begin transitions Pending -> Running and records the start time.
func (j *Job) begin() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = StateRunning
	j.startedAt = time.Now()
}

// signalCommitted releases postcommit waiters. Safe to call more than once;
// terminal transitions call it so waiters never hang on a failed job.
func (j *Job) signalCommitted() {
	j.commitOnce.Do(func() { close(j.committed) })
}

// succeed records the outcome and publishes the terminal state.
func (j *Job) succeed(handle *ResultHandle, rowsAffected int64) {
	j.mu.Lock()
	j.state = StateSucceeded
	j.finishedAt = time.Now()
	j.result = handle
	j.rowsAffected = rowsAffected
	j.mu.Unlock()
	j.signalCommitted()
	close(j.done)
}

// fail records the failure and publishes the terminal state.
func (j *Job) fail(err error) {
	j.mu.Lock()
	j.state = StateFailed
	j.finishedAt = time.Now()
	j.err = err
	j.mu.Unlock()
	j.signalCommitted()
	close(j.done)
}
