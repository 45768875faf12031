package outbound

import (
	"context"
	"time"
)

// MetricsRecorder provides an interface for recording application metrics.
// This allows the service layer to record metrics without depending on
// specific telemetry implementations.
type MetricsRecorder interface {
	// RecordQuote records one quote request. result is "ok" or the snake_case error kind.
	RecordQuote(ctx context.Context, provider, result string, duration time.Duration)

	// RecordApproval records a gate decision for one token.
	RecordApproval(ctx context.Context, state string)

	// RecordOutcome records the final status of one batch item.
	RecordOutcome(ctx context.Context, mode, status string)

	// RecordRun records a finished pipeline run. result is "ok" or the snake_case error kind.
	RecordRun(ctx context.Context, direction, mode, result string, duration time.Duration)
}
