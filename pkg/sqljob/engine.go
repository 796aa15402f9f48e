package sqljob

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	"sqlrunner/pkg/apperrors"
	"sqlrunner/pkg/connector"
)

// DefaultResultDir is where result artifacts land unless configured.
const DefaultResultDir = "sqljob-results"

// DefaultMaxTableRows bounds the result rows retained in memory per job.
const DefaultMaxTableRows = 10000

// Conn is the execution capability a job needs from its connector.
// Satisfied by *connector.Connector.
type Conn interface {
	Ping(ctx context.Context) error
	DB() *sqlx.DB
	Source() string
	Close() error
}

// MetricsRecorder is an optional interface for recording job metrics.
type MetricsRecorder interface {
	RecordJobStarted(ctx context.Context, kind string)
	RecordJobCompleted(ctx context.Context, kind string, success bool, durationSeconds float64)
	RecordRowsPersisted(ctx context.Context, rows int64, durationSeconds float64)
}

// Config holds engine configuration. The zero value is usable.
type Config struct {
	ResultDir    string          // base directory for result artifacts (default: sqljob-results)
	MaxTableRows int             // retained in-memory rows per result, <= 0 for default
	LogQuery     bool            // include the SQL text on the query-start log line
	LogParams    bool            // include parameters on the query-start log line
	Logger       *slog.Logger    // nil means slog.Default()
	Metrics      MetricsRecorder // nil disables metrics
	Observer     Observer        // nil disables lifecycle events
}

func (c Config) withDefaults() Config {
	if c.ResultDir == "" {
		c.ResultDir = DefaultResultDir
	}
	if c.MaxTableRows <= 0 {
		c.MaxTableRows = DefaultMaxTableRows
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Engine dispatches SQL jobs. Each submission gets the next id from an
// engine-owned monotonic counter and runs on its own goroutine; there is no
// queueing and no bound on concurrent workers, matching the one-worker-per-
// job model. Completed jobs stay reachable through their handles only; the
// engine does not retain them.
type Engine struct {
	cfg    Config
	sink   *Sink
	logger *slog.Logger

	seq    atomic.Int64
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New creates an engine.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	logger := cfg.Logger.With("component", "sqljob")
	return &Engine{
		cfg:    cfg,
		sink:   NewSink(cfg.ResultDir, logger),
		logger: logger,
	}
}

// Submit creates a job for the statement and starts its worker. It returns
// the job handle immediately, in Pending or later state, without blocking on
// execution — unless WithPostCommit is given, in which case it blocks until
// the statement reaches its durable commit point (or the job fails first, or
// ctx is done). The connector is not owned by the job; the caller keeps
// closing rights and must hand concurrent jobs distinct connectors when the
// underlying driver is not safe for concurrent use on one connection.
func (e *Engine) Submit(ctx context.Context, sqlText string, conn Conn, opts ...SubmitOption) (*Job, error) {
	if conn == nil {
		return nil, apperrors.Connector("nil connector")
	}
	o := submitOptions{maxRows: e.cfg.MaxTableRows}
	for _, opt := range opts {
		opt(&o)
	}
	return e.submit(ctx, sqlText, conn, o)
}

// SubmitDescriptor resolves a connection descriptor ("driver://dsn") and
// submits the statement through the resulting connector. Resolution failures
// surface synchronously with no job created. The job owns the connector and
// closes it when it finishes.
func (e *Engine) SubmitDescriptor(ctx context.Context, sqlText, descriptor string, opts ...SubmitOption) (*Job, error) {
	conn, err := connector.Open(descriptor)
	if err != nil {
		return nil, err
	}
	o := submitOptions{maxRows: e.cfg.MaxTableRows, ownsConn: true}
	for _, opt := range opts {
		opt(&o)
	}
	job, err := e.submit(ctx, sqlText, conn, o)
	if job == nil {
		conn.Close() //nolint:errcheck
	}
	return job, err
}

func (e *Engine) submit(ctx context.Context, sqlText string, conn Conn, o submitOptions) (*Job, error) {
	if e.closed.Load() {
		return nil, fmt.Errorf("engine is closed")
	}

	job := newJob(e.seq.Add(1), sqlText, conn, o)
	e.logger.Info("Job submitted", "jobId", job.id, "traceId", job.traceID, "source", conn.Source())

	e.wg.Add(1)
	go e.run(job)

	if o.postcommit {
		select {
		case <-job.committed:
		case <-ctx.Done():
			return job, ctx.Err()
		}
	}
	return job, nil
}

// Close waits for in-flight workers to finish. The context deadline bounds
// the wait; running jobs are not aborted either way.
func (e *Engine) Close(ctx context.Context) error {
	if e.closed.Swap(true) {
		return nil // already closed
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
