package testutil

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MockTokenClient implements outbound.TokenClient for testing. Unset
// functions fall back to the Balances/Allowances maps.
type MockTokenClient struct {
	mu sync.Mutex

	Balances   map[common.Address]*big.Int
	Allowances map[common.Address]*big.Int

	BalanceOfFn func(ctx context.Context, token, owner common.Address) (*big.Int, error)
	AllowanceFn func(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	DecimalsFn  func(ctx context.Context, token common.Address) (uint8, error)
	SymbolFn    func(ctx context.Context, token common.Address) (string, error)
	ApproveFn   func(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error)

	Approvals []Approval
}

// Approval records one Approve call.
type Approval struct {
	Token   common.Address
	Spender common.Address
	Amount  *big.Int
}

func NewMockTokenClient() *MockTokenClient {
	return &MockTokenClient{
		Balances:   make(map[common.Address]*big.Int),
		Allowances: make(map[common.Address]*big.Int),
	}
}

func (m *MockTokenClient) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	if m.BalanceOfFn != nil {
		return m.BalanceOfFn(ctx, token, owner)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.Balances[token]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (m *MockTokenClient) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	if m.AllowanceFn != nil {
		return m.AllowanceFn(ctx, token, owner, spender)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Allowances[token]; ok {
		return new(big.Int).Set(a), nil
	}
	return new(big.Int), nil
}

func (m *MockTokenClient) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	if m.DecimalsFn != nil {
		return m.DecimalsFn(ctx, token)
	}
	return 18, nil
}

func (m *MockTokenClient) Symbol(ctx context.Context, token common.Address) (string, error) {
	if m.SymbolFn != nil {
		return m.SymbolFn(ctx, token)
	}
	return "", errors.New("Symbol not mocked")
}

// Approve records the call. Without ApproveFn the allowance is set to amount
// immediately, as if the approval were mined.
func (m *MockTokenClient) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	m.mu.Lock()
	m.Approvals = append(m.Approvals, Approval{Token: token, Spender: spender, Amount: new(big.Int).Set(amount)})
	n := len(m.Approvals)
	m.mu.Unlock()
	if m.ApproveFn != nil {
		return m.ApproveFn(ctx, token, spender, amount)
	}
	m.mu.Lock()
	m.Allowances[token] = new(big.Int).Set(amount)
	m.mu.Unlock()
	return common.BigToHash(big.NewInt(int64(1000 + n))), nil
}
