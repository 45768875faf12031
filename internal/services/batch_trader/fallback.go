package batch_trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

// Compile-time check that FallbackProvider implements outbound.QuoteProvider.
var _ outbound.QuoteProvider = (*FallbackProvider)(nil)

// FallbackProvider asks each provider in order and returns the first quote.
// It moves on after ErrQuoteUnavailable or ErrProviderError and stops at
// ErrInvalidRequest, which no other provider would accept either.
type FallbackProvider struct {
	providers []outbound.QuoteProvider
	logger    *slog.Logger
}

// NewFallbackProvider chains providers in priority order.
func NewFallbackProvider(logger *slog.Logger, providers ...outbound.QuoteProvider) (*FallbackProvider, error) {
	if len(providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}
	for i, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("provider %d is nil", i)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackProvider{
		providers: providers,
		logger:    logger.With("component", "fallback-provider"),
	}, nil
}

// Name joins the provider names, e.g. "0x,zora".
func (f *FallbackProvider) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, ",")
}

func (f *FallbackProvider) GetQuote(ctx context.Context, req entity.TradeRequest) (*entity.Quote, error) {
	var errs []error
	for _, p := range f.providers {
		quote, err := p.GetQuote(ctx, req)
		if err == nil {
			return quote, nil
		}
		if errors.Is(err, entity.ErrInvalidRequest) || ctx.Err() != nil {
			return nil, err
		}

		f.logger.Debug("provider failed, trying next", "provider", p.Name(), "label", req.Label(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}

	// Unavailable everywhere is still unavailable; otherwise keep the
	// provider error so the skip reason stays in the taxonomy.
	joined := errors.Join(errs...)
	for _, err := range errs {
		if !errors.Is(err, entity.ErrQuoteUnavailable) {
			return nil, fmt.Errorf("%w: all providers failed: %v", entity.ErrProviderError, joined)
		}
	}
	return nil, fmt.Errorf("%w: no provider has a route: %v", entity.ErrQuoteUnavailable, joined)
}
