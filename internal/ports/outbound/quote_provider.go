// Package outbound defines the outbound port interfaces.
package outbound

import (
	"context"

	"github.com/archon-research/stl-trade/internal/domain/entity"
)

// QuoteProvider turns one trade request into an executable swap call.
//
// Implementations must validate the request before any network call and wrap
// failures in the entity error taxonomy:
//   - entity.ErrInvalidRequest for requests the provider cannot accept
//   - entity.ErrQuoteUnavailable when no route exists for the pair
//   - entity.ErrProviderError for transport failures, non-2xx responses and
//     malformed payloads
//
// GetQuote has no side effects and results are never cached: quotes embed
// prices and deadlines that go stale within seconds.
type QuoteProvider interface {
	// Name identifies the provider in logs, metrics and reports.
	Name() string

	GetQuote(ctx context.Context, req entity.TradeRequest) (*entity.Quote, error)
}

// CoinLister returns a read-only listing of tradable coins, most valuable first.
type CoinLister interface {
	ListMostValuable(ctx context.Context, count int) ([]entity.Coin, error)
}
