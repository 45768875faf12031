package batch_trader

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/testutil"
)

func buyRequest(i int) entity.TradeRequest {
	return entity.NewBuyRequest(testutil.TokenAddress(i), big.NewInt(1e15), 100, testutil.TestSender, fmt.Sprintf("TOKEN%d", i))
}

func failingProvider(name string, err error) *testutil.MockQuoteProvider {
	p := testutil.NewMockQuoteProvider(name)
	p.GetQuoteFn = func(context.Context, entity.TradeRequest) (*entity.Quote, error) {
		return nil, err
	}
	return p
}

func TestNewFallbackProvider_RequiresProviders(t *testing.T) {
	if _, err := NewFallbackProvider(nil); err == nil {
		t.Error("expected error with no providers")
	}
	if _, err := NewFallbackProvider(nil, testutil.NewMockQuoteProvider("0x"), nil); err == nil {
		t.Error("expected error with a nil provider")
	}
}

func TestFallbackProvider_Name(t *testing.T) {
	f, err := NewFallbackProvider(nil, testutil.NewMockQuoteProvider("0x"), testutil.NewMockQuoteProvider("zora"))
	if err != nil {
		t.Fatalf("NewFallbackProvider() error = %v", err)
	}
	if f.Name() != "0x,zora" {
		t.Errorf("Name() = %q, want 0x,zora", f.Name())
	}
}

func TestFallbackProvider_FirstSuccessWins(t *testing.T) {
	first := testutil.NewMockQuoteProvider("0x")
	first.GetQuoteFn = func(_ context.Context, req entity.TradeRequest) (*entity.Quote, error) {
		return testutil.NewQuote(t, "0x", req), nil
	}
	second := testutil.NewMockQuoteProvider("zora")

	f, _ := NewFallbackProvider(nil, first, second)
	quote, err := f.GetQuote(context.Background(), buyRequest(1))
	if err != nil {
		t.Fatalf("GetQuote() error = %v", err)
	}
	if quote.Provider() != "0x" {
		t.Errorf("provider = %q, want 0x", quote.Provider())
	}
	if second.Calls() != 0 {
		t.Errorf("second provider called %d times, want 0", second.Calls())
	}
}

func TestFallbackProvider_MovesOnAfterRecoverableErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "unavailable", err: fmt.Errorf("%w: no route", entity.ErrQuoteUnavailable)},
		{name: "provider error", err: fmt.Errorf("%w: HTTP 502", entity.ErrProviderError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := failingProvider("0x", tt.err)
			second := testutil.NewMockQuoteProvider("zora")
			second.GetQuoteFn = func(_ context.Context, req entity.TradeRequest) (*entity.Quote, error) {
				return testutil.NewQuote(t, "zora", req), nil
			}

			f, _ := NewFallbackProvider(nil, first, second)
			quote, err := f.GetQuote(context.Background(), buyRequest(1))
			if err != nil {
				t.Fatalf("GetQuote() error = %v", err)
			}
			if quote.Provider() != "zora" {
				t.Errorf("provider = %q, want zora", quote.Provider())
			}
		})
	}
}

func TestFallbackProvider_StopsOnInvalidRequest(t *testing.T) {
	first := failingProvider("0x", fmt.Errorf("%w: bad amount", entity.ErrInvalidRequest))
	second := testutil.NewMockQuoteProvider("zora")

	f, _ := NewFallbackProvider(nil, first, second)
	_, err := f.GetQuote(context.Background(), buyRequest(1))
	if !errors.Is(err, entity.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if second.Calls() != 0 {
		t.Errorf("second provider called %d times, want 0", second.Calls())
	}
}

func TestFallbackProvider_AllUnavailable(t *testing.T) {
	f, _ := NewFallbackProvider(nil,
		failingProvider("0x", entity.ErrQuoteUnavailable),
		failingProvider("zora", entity.ErrQuoteUnavailable),
	)
	_, err := f.GetQuote(context.Background(), buyRequest(1))
	if !errors.Is(err, entity.ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
	if errors.Is(err, entity.ErrProviderError) {
		t.Errorf("did not expect ErrProviderError, got %v", err)
	}
}

func TestFallbackProvider_MixedFailuresAreProviderError(t *testing.T) {
	f, _ := NewFallbackProvider(nil,
		failingProvider("0x", entity.ErrQuoteUnavailable),
		failingProvider("zora", entity.ErrProviderError),
	)
	_, err := f.GetQuote(context.Background(), buyRequest(1))
	if !errors.Is(err, entity.ErrProviderError) {
		t.Fatalf("expected ErrProviderError, got %v", err)
	}
}
