package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

// Compile-time check that Metrics implements outbound.MetricsRecorder.
var _ outbound.MetricsRecorder = (*Metrics)(nil)

// Metrics implements the MetricsRecorder interface using OpenTelemetry.
type Metrics struct {
	quoteLatency metric.Float64Histogram
	quotes       metric.Int64Counter
	approvals    metric.Int64Counter
	outcomes     metric.Int64Counter
	runDuration  metric.Float64Histogram
	runs         metric.Int64Counter
}

// NewMetrics creates a recorder on the global meter provider.
// meterName should typically be the package name or service name.
func NewMetrics(meterName string) (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter(meterName))
}

// NewMetricsWithMeter creates a recorder on meter.
func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	quoteLatency, err := meter.Float64Histogram(
		"quote_duration_seconds",
		metric.WithDescription("Time taken to obtain a swap quote"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote_duration_seconds histogram: %w", err)
	}

	quotes, err := meter.Int64Counter(
		"quotes_total",
		metric.WithDescription("Total number of quote requests by provider and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create quotes_total counter: %w", err)
	}

	approvals, err := meter.Int64Counter(
		"approval_gate_total",
		metric.WithDescription("Total number of tokens passed through the allowance gate by final state"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create approval_gate_total counter: %w", err)
	}

	outcomes, err := meter.Int64Counter(
		"swap_outcomes_total",
		metric.WithDescription("Total number of batch items by execution mode and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create swap_outcomes_total counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram(
		"run_duration_seconds",
		metric.WithDescription("Time taken by a batch run from target selection to report"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run_duration_seconds histogram: %w", err)
	}

	runs, err := meter.Int64Counter(
		"runs_total",
		metric.WithDescription("Total number of batch runs by direction, mode and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runs_total counter: %w", err)
	}

	return &Metrics{
		quoteLatency: quoteLatency,
		quotes:       quotes,
		approvals:    approvals,
		outcomes:     outcomes,
		runDuration:  runDuration,
		runs:         runs,
	}, nil
}

// RecordQuote records one quote request.
func (m *Metrics) RecordQuote(ctx context.Context, provider, result string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("result", result),
	)
	m.quoteLatency.Record(ctx, duration.Seconds(), attrs)
	m.quotes.Add(ctx, 1, attrs)
}

// RecordApproval records the gate's final state for one token.
func (m *Metrics) RecordApproval(ctx context.Context, state string) {
	m.approvals.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

// RecordOutcome records the status of one batch item.
func (m *Metrics) RecordOutcome(ctx context.Context, mode, status string) {
	m.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("status", status),
	))
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(ctx context.Context, direction, mode, result string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.String("mode", mode),
		attribute.String("result", result),
	)
	m.runDuration.Record(ctx, duration.Seconds(), attrs)
	m.runs.Add(ctx, 1, attrs)
}
