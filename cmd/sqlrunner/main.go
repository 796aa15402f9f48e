// sqlrunner executes a SQL statement as a background job and prints the
// result. The statement comes from the command line (or stdin), the
// connection target from SQLRUNNER_DSN.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sqlrunner/internal/config"
	"sqlrunner/internal/observability"
	"sqlrunner/pkg/connector"
	"sqlrunner/pkg/sqljob"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := run(); err != nil {
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg := config.LoadRunnerConfig()
	if cfg.DSN == "" {
		return fmt.Errorf("SQLRUNNER_DSN is not set")
	}

	sqlText, err := statementFromArgs(os.Args[1:])
	if err != nil {
		return err
	}

	var recorder sqljob.MetricsRecorder
	if cfg.MetricsPort != "" {
		metrics, metricsHandler, err := observability.NewMetrics(ctx)
		if err != nil {
			return err
		}
		recorder = metrics

		metricsMux := http.NewServeMux()
		metricsMux.Handle("GET /metrics", metricsHandler)
		metricsServer := &http.Server{
			Addr:         ":" + cfg.MetricsPort,
			Handler:      metricsMux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("Starting metrics server", "port", cfg.MetricsPort)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	conn, err := connector.Open(cfg.DSN)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("database is not reachable: %w", err)
	}
	slog.Info("Connected to database", "source", conn.Source())

	engine := sqljob.New(sqljob.Config{
		ResultDir:    cfg.ResultDir,
		MaxTableRows: cfg.MaxTableRows,
		LogQuery:     cfg.LogQuery,
		LogParams:    cfg.LogParams,
		Metrics:      recorder,
	})
	defer engine.Close(ctx) //nolint:errcheck

	var opts []sqljob.SubmitOption
	if cfg.PostCommit {
		opts = append(opts, sqljob.WithPostCommit())
	}

	job, err := engine.Submit(ctx, sqlText, conn, opts...)
	if err != nil {
		return err
	}

	job.Wait(cfg.WaitTimeout)
	if job.Running() {
		return fmt.Errorf("job %d still running after %s", job.ID(), cfg.WaitTimeout)
	}

	handle, err := job.Result()
	if err != nil {
		return err
	}

	if handle == nil {
		affected, err := job.RowsAffected()
		if err != nil {
			return err
		}
		fmt.Printf("%d rows affected\n", affected)
		return nil
	}

	if err := printTable(os.Stdout, handle.Table); err != nil {
		return err
	}
	slog.Info("Results written", "csv", handle.CSVPath, "binary", handle.BinaryPath)
	return nil
}

// statementFromArgs joins the command line into one statement, falling back
// to stdin when no arguments are given.
func statementFromArgs(args []string) (string, error) {
	sqlText := strings.TrimSpace(strings.Join(args, " "))
	if sqlText == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading statement from stdin: %w", err)
		}
		sqlText = strings.TrimSpace(string(data))
	}
	if sqlText == "" {
		return "", fmt.Errorf("no SQL statement given")
	}
	return sqlText, nil
}

func printTable(w io.Writer, tbl *sqljob.Table) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tbl.Columns, "\t"))
	for _, row := range tbl.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if tbl.Truncated {
		fmt.Fprintln(tw, "(truncated)")
	}
	return tw.Flush()
}
