package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/archon-research/stl-trade/internal/domain/entity"
)

// MockQuoteProvider implements outbound.QuoteProvider for testing.
type MockQuoteProvider struct {
	mu         sync.Mutex
	ProviderID string
	GetQuoteFn func(ctx context.Context, req entity.TradeRequest) (*entity.Quote, error)
	CallCount  int
	Requests   []entity.TradeRequest
}

func NewMockQuoteProvider(name string) *MockQuoteProvider {
	return &MockQuoteProvider{ProviderID: name}
}

func (m *MockQuoteProvider) Name() string {
	return m.ProviderID
}

func (m *MockQuoteProvider) GetQuote(ctx context.Context, req entity.TradeRequest) (*entity.Quote, error) {
	m.mu.Lock()
	m.CallCount++
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.GetQuoteFn != nil {
		return m.GetQuoteFn(ctx, req)
	}
	return nil, errors.New("GetQuote not mocked")
}

// Calls returns the number of GetQuote calls so far.
func (m *MockQuoteProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// MockCoinLister implements outbound.CoinLister for testing.
type MockCoinLister struct {
	Coins []entity.Coin
	Err   error
}

func (m *MockCoinLister) ListMostValuable(_ context.Context, count int) ([]entity.Coin, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if count < len(m.Coins) {
		return m.Coins[:count], nil
	}
	return m.Coins, nil
}
