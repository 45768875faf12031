package testutil

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

// MockChainClient implements outbound.ChainClient for testing. Sent
// transactions are recorded in order.
type MockChainClient struct {
	mu sync.Mutex

	From common.Address
	ID   *big.Int

	BalanceAtFn       func(ctx context.Context, account common.Address) (*big.Int, error)
	CallContractFn    func(ctx context.Context, msg outbound.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransactionFn func(ctx context.Context, tx outbound.TxRequest) (common.Hash, error)
	WaitForReceiptFn  func(ctx context.Context, hash common.Hash) (*outbound.Receipt, error)

	Calls []outbound.CallMsg
	Sent  []outbound.TxRequest
	Waits []common.Hash
}

func NewMockChainClient(sender common.Address) *MockChainClient {
	return &MockChainClient{From: sender, ID: big.NewInt(8453)}
}

func (m *MockChainClient) Sender() common.Address {
	return m.From
}

func (m *MockChainClient) ChainID() *big.Int {
	return new(big.Int).Set(m.ID)
}

func (m *MockChainClient) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	if m.BalanceAtFn != nil {
		return m.BalanceAtFn(ctx, account)
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil), nil
}

func (m *MockChainClient) CallContract(ctx context.Context, msg outbound.CallMsg, blockNumber *big.Int) ([]byte, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, msg)
	m.mu.Unlock()
	if m.CallContractFn != nil {
		return m.CallContractFn(ctx, msg, blockNumber)
	}
	return nil, errors.New("CallContract not mocked")
}

func (m *MockChainClient) SendTransaction(ctx context.Context, tx outbound.TxRequest) (common.Hash, error) {
	m.mu.Lock()
	m.Sent = append(m.Sent, tx)
	n := len(m.Sent)
	m.mu.Unlock()
	if m.SendTransactionFn != nil {
		return m.SendTransactionFn(ctx, tx)
	}
	return common.BigToHash(big.NewInt(int64(n))), nil
}

func (m *MockChainClient) WaitForReceipt(ctx context.Context, hash common.Hash) (*outbound.Receipt, error) {
	m.mu.Lock()
	m.Waits = append(m.Waits, hash)
	m.mu.Unlock()
	if m.WaitForReceiptFn != nil {
		return m.WaitForReceiptFn(ctx, hash)
	}
	return &outbound.Receipt{TxHash: hash, Success: true, BlockNumber: 100, GasUsed: 21000}, nil
}

// SentCount returns the number of submitted transactions.
func (m *MockChainClient) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
