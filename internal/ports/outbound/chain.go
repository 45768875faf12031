package outbound

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CallMsg is a read-only message call.
type CallMsg struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Data  []byte
}

// TxRequest is an unsigned transaction from the configured sender. The client
// fills in nonce, fees and, when GasLimit is zero, the gas estimate.
type TxRequest struct {
	To       common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
}

// Receipt is the subset of a transaction receipt the executors need.
type Receipt struct {
	TxHash      common.Hash
	Success     bool
	BlockNumber uint64
	GasUsed     uint64
}

// ChainClient is the wallet-bound view of the chain: reads, simulation and
// submission for a single sender key.
type ChainClient interface {
	// Sender returns the address transactions are signed for.
	Sender() common.Address

	// ChainID returns the chain the client is bound to.
	ChainID() *big.Int

	// BalanceAt returns the native balance of account at the latest block.
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)

	// CallContract executes msg without creating a transaction. A nil
	// blockNumber means the latest block. A revert is returned as an error.
	CallContract(ctx context.Context, msg CallMsg, blockNumber *big.Int) ([]byte, error)

	// SendTransaction signs and broadcasts tx and returns its hash.
	SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error)

	// WaitForReceipt polls until hash is mined or ctx is done.
	WaitForReceipt(ctx context.Context, hash common.Hash) (*Receipt, error)
}
