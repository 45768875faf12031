package batch_trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

// quoter fetches quotes for a set of requests in parallel.
type quoter struct {
	provider    outbound.QuoteProvider
	concurrency int
	timeout     time.Duration
	metrics     outbound.MetricsRecorder
	logger      *slog.Logger
}

// quoteResult holds the slot for one request: exactly one of quote and err is set.
type quoteResult struct {
	quote *entity.Quote
	err   error
}

// fetch requests a quote for every request with at most q.concurrency in
// flight. Results are returned by index so callers keep request order.
// Only ErrInvalidRequest is returned as an error; it cancels the other fetches.
func (q *quoter) fetch(ctx context.Context, reqs []entity.TradeRequest) ([]quoteResult, error) {
	results := make([]quoteResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			quote, err := q.fetchOne(gctx, req)
			if err != nil {
				if errors.Is(err, entity.ErrInvalidRequest) {
					return fmt.Errorf("request %d (%s): %w", i, req.Label(), err)
				}
				results[i] = quoteResult{err: err}
				return nil
			}
			results[i] = quoteResult{quote: quote}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (q *quoter) fetchOne(ctx context.Context, req entity.TradeRequest) (*entity.Quote, error) {
	// Requests are checked here as well so an invalid one never reaches a provider.
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	start := time.Now()
	quote, err := q.provider.GetQuote(ctx, req)
	duration := time.Since(start)
	if err == nil && quote == nil {
		err = fmt.Errorf("%w: %s returned no quote", entity.ErrProviderError, q.provider.Name())
	}

	if err != nil {
		if entity.ErrorKind(err) == nil {
			err = fmt.Errorf("%w: %v", entity.ErrProviderError, err)
		}
		q.metrics.RecordQuote(ctx, q.provider.Name(), resultLabel(err), duration)
		q.logger.Warn("quote failed, skipping", "label", req.Label(), "error", err)
		return nil, err
	}

	q.metrics.RecordQuote(ctx, quote.Provider(), resultLabel(nil), duration)
	q.logger.Info("quote received",
		"label", req.Label(),
		"provider", quote.Provider(),
		"value", quote.NativeValue().String(),
		"expectedOut", quote.ExpectedAmountOut().String(),
	)
	return quote, nil
}

// resultLabels are the metric labels of the error taxonomy.
var resultLabels = map[error]string{
	entity.ErrQuoteUnavailable:    "quote_unavailable",
	entity.ErrProviderError:       "provider_error",
	entity.ErrInvalidRequest:      "invalid_request",
	entity.ErrNoValidCalls:        "no_valid_calls",
	entity.ErrSimulationFailed:    "simulation_failed",
	entity.ErrTransactionReverted: "transaction_reverted",
	entity.ErrApprovalRequired:    "approval_required",
	entity.ErrApprovalFailed:      "approval_failed",
	entity.ErrZeroBalance:         "zero_balance",
}

// resultLabel maps an error to a low-cardinality metric label.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if label, ok := resultLabels[entity.ErrorKind(err)]; ok {
		return label
	}
	return "error"
}
