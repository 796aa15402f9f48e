package sqljob

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"sqlrunner/pkg/apperrors"
)

// Statement kinds, decided by leading-keyword classification.
const (
	kindQuery = "query" // expected to produce a result set
	kindExec  = "exec"  // expected to produce an affected-row count
)

// rowKeywords are the leading keywords of statements that produce rows.
var rowKeywords = map[string]bool{
	"select":   true,
	"with":     true,
	"values":   true,
	"table":    true,
	"show":     true,
	"pragma":   true,
	"explain":  true,
	"describe": true,
}

// statementKind classifies a statement by its first keyword, skipping
// comments and grouping parens. Drivers offer no uniform way to ask whether
// an already-executed statement produced rows, so the branch is chosen up
// front.
func statementKind(sqlText string) string {
	s := sqlText
	for {
		s = strings.TrimSpace(s)
		switch {
		case strings.HasPrefix(s, "("):
			s = s[1:]
		case strings.HasPrefix(s, "--"):
			if i := strings.IndexByte(s, '\n'); i >= 0 {
				s = s[i+1:]
			} else {
				return kindExec
			}
		case strings.HasPrefix(s, "/*"):
			if i := strings.Index(s, "*/"); i >= 0 {
				s = s[i+2:]
			} else {
				return kindExec
			}
		default:
			word := s
			if i := strings.IndexFunc(s, func(r rune) bool {
				return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ';' || r == '('
			}); i >= 0 {
				word = s[:i]
			}
			if rowKeywords[strings.ToLower(word)] {
				return kindQuery
			}
			return kindExec
		}
	}
}

// run executes one job from start to completion on its own goroutine.
// State machine: acquire connection, execute, persist results when a result
// set exists, finish. Every failure is terminal; nothing is retried and
// nothing propagates to a caller except through the job handle.
func (e *Engine) run(j *Job) {
	defer e.wg.Done()
	if j.ownsConn {
		defer j.conn.Close() //nolint:errcheck
	}

	// Jobs run to completion; there is no cancellation once dispatched.
	ctx := context.Background()
	logger := e.logger.With("jobId", j.id, "traceId", j.traceID)
	kind := statementKind(j.sqlText)

	j.begin()
	logger.Info("Job started", "kind", kind)
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.RecordJobStarted(ctx, kind)
	}
	e.emit(j, EventTypeStart, map[string]any{"kind": kind})

	err := e.execute(ctx, j, logger, kind)
	duration := time.Since(j.StartedAt())

	if err != nil {
		j.fail(err)
		logger.Error("Job failed", "error", err, "elapsed", duration)
		if e.cfg.Metrics != nil {
			e.cfg.Metrics.RecordJobCompleted(ctx, kind, false, duration.Seconds())
		}
		e.emit(j, EventTypeExit, map[string]any{"state": StateFailed, "error": err.Error()})
		return
	}

	logger.Info("Job succeeded", "elapsed", duration)
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.RecordJobCompleted(ctx, kind, true, duration.Seconds())
	}
	e.emit(j, EventTypeExit, map[string]any{"state": StateSucceeded})
}

// execute runs the job through its terminal success transition, or returns
// the failure to record.
func (e *Engine) execute(ctx context.Context, j *Job, logger *slog.Logger, kind string) error {
	if err := j.conn.Ping(ctx); err != nil {
		return apperrors.Connection("connector.ping", err)
	}

	startArgs := []any{"kind", kind}
	if e.cfg.LogQuery {
		startArgs = append(startArgs, "query", j.sqlText)
	}
	if e.cfg.LogParams {
		startArgs = append(startArgs, "params", j.params)
	}
	logger.Info("Query starting", startArgs...)

	started := time.Now()
	if kind == kindQuery {
		rows, err := j.conn.DB().QueryxContext(ctx, j.sqlText, j.params...)
		if err != nil {
			return apperrors.Query(err)
		}
		tbl, err := fetchTable(rows)
		if err != nil {
			return apperrors.Query(err)
		}
		elapsed := time.Since(started)
		logger.Info("Query finished", "elapsed", elapsed, "resultSet", true, "rows", len(tbl.Rows))
		e.emit(j, EventTypeQuery, map[string]any{"elapsed": elapsed.String(), "rows": len(tbl.Rows)})

		// Release postcommit waiters before persistence begins.
		j.signalCommitted()

		persistStart := time.Now()
		handle, err := e.sink.Persist(j.id, j.submittedAt, tbl, j.maxRows)
		if err != nil {
			return err
		}
		if e.cfg.Metrics != nil {
			e.cfg.Metrics.RecordRowsPersisted(ctx, int64(len(tbl.Rows)), time.Since(persistStart).Seconds())
		}
		e.emit(j, EventTypePersist, map[string]any{"csv": handle.CSVPath, "binary": handle.BinaryPath})

		j.succeed(handle, ResultSetRows)
		return nil
	}

	res, err := j.conn.DB().ExecContext(ctx, j.sqlText, j.params...)
	if err != nil {
		return apperrors.Query(err)
	}
	affected, aerr := res.RowsAffected()
	if aerr != nil {
		logger.Debug("Driver does not report affected rows", "error", aerr)
		affected = 0
	}

	// database/sql autocommits: the statement is durably committed once the
	// driver call returns.
	j.signalCommitted()

	elapsed := time.Since(started)
	logger.Info("Query finished", "elapsed", elapsed, "resultSet", false, "rowsAffected", affected)
	e.emit(j, EventTypeQuery, map[string]any{"elapsed": elapsed.String(), "rowsAffected": affected})

	j.succeed(nil, affected)
	return nil
}

// fetchTable drains a result set into memory, keeping the concrete driver
// types per value.
func fetchTable(rows *sqlx.Rows) (*Table, error) {
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	tbl := &Table{Columns: cols}
	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tbl, nil
}
