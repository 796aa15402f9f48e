package sqljob

import (
	"log/slog"
	"time"
)

// Event types for job lifecycle notifications
const (
	EventTypeStart   = "sqljob.job.start"
	EventTypeQuery   = "sqljob.job.query"
	EventTypePersist = "sqljob.job.persist"
	EventTypeExit    = "sqljob.job.exit"
)

// Event is an in-process job lifecycle notification.
type Event struct {
	Type    string
	JobID   int64
	TraceID string
	Time    time.Time
	Data    map[string]any
}

// Observer receives job lifecycle events. Implementations must be safe for
// concurrent use: workers for different jobs emit from their own goroutines.
// Observers run on the worker's goroutine, so they should return quickly.
type Observer interface {
	ObserveJobEvent(ev Event)
}

// LogObserver bridges lifecycle events to a slog logger.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates an observer logging each event. A nil logger means
// slog.Default().
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

// ObserveJobEvent logs the event with its data as attributes.
func (o *LogObserver) ObserveJobEvent(ev Event) {
	args := []any{"jobId", ev.JobID, "traceId", ev.TraceID}
	for k, v := range ev.Data {
		args = append(args, k, v)
	}
	if errText, ok := ev.Data["error"]; ok && errText != "" {
		o.logger.Error(ev.Type, args...)
		return
	}
	o.logger.Info(ev.Type, args...)
}

// emit sends a lifecycle event to the configured observer, if any.
func (e *Engine) emit(j *Job, eventType string, data map[string]any) {
	if e.cfg.Observer == nil {
		return
	}
	e.cfg.Observer.ObserveJobEvent(Event{
		Type:    eventType,
		JobID:   j.id,
		TraceID: j.traceID,
		Time:    time.Now(),
		Data:    data,
	})
}
