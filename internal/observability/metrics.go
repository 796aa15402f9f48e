// Package observability provides metrics for the job engine.
package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds all application metrics implementing the golden 4 signals:
// - Latency: How long jobs and persistence take
// - Traffic: Job throughput and persisted rows
// - Errors: Rate of failed jobs
// - Saturation: Concurrent in-flight jobs
type Metrics struct {
	meter metric.Meter

	JobDuration     metric.Float64Histogram
	JobsTotal       metric.Int64Counter
	JobErrorsTotal  metric.Int64Counter
	JobsActive      metric.Int64UpDownCounter
	RowsPersisted   metric.Int64Counter
	PersistDuration metric.Float64Histogram
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("sqlrunner")
	m := &Metrics{meter: meter}

	m.JobDuration, err = meter.Float64Histogram(
		"job_duration_seconds",
		metric.WithDescription("Job execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 600),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsTotal, err = meter.Int64Counter(
		"jobs_total",
		metric.WithDescription("Total number of jobs submitted"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobErrorsTotal, err = meter.Int64Counter(
		"job_errors_total",
		metric.WithDescription("Total number of failed jobs"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsActive, err = meter.Int64UpDownCounter(
		"jobs_active",
		metric.WithDescription("Number of currently running jobs (saturation)"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RowsPersisted, err = meter.Int64Counter(
		"rows_persisted_total",
		metric.WithDescription("Total result rows written to the sink"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.PersistDuration, err = meter.Float64Histogram(
		"persist_duration_seconds",
		metric.WithDescription("Result persistence latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordJobStarted records a job entering execution.
func (m *Metrics) RecordJobStarted(ctx context.Context, kind string) {
	attrs := metric.WithAttributes(kindAttr(kind))
	m.JobsTotal.Add(ctx, 1, attrs)
	m.JobsActive.Add(ctx, 1, attrs)
}

// RecordJobCompleted records a job finishing (success or failure).
func (m *Metrics) RecordJobCompleted(ctx context.Context, kind string, success bool, durationSeconds float64) {
	attrs := metric.WithAttributes(kindAttr(kind), successAttr(success))
	m.JobDuration.Record(ctx, durationSeconds, attrs)
	m.JobsActive.Add(ctx, -1, metric.WithAttributes(kindAttr(kind)))

	if !success {
		m.JobErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordRowsPersisted records a result set landing on disk.
func (m *Metrics) RecordRowsPersisted(ctx context.Context, rows int64, durationSeconds float64) {
	m.RowsPersisted.Add(ctx, rows)
	m.PersistDuration.Record(ctx, durationSeconds)
}
