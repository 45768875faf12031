package outbound

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenClient reads ERC-20 state and submits approvals from the chain client's sender.
type TokenClient interface {
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	Decimals(ctx context.Context, token common.Address) (uint8, error)
	Symbol(ctx context.Context, token common.Address) (string, error)

	// Approve submits approve(spender, amount) and returns the transaction
	// hash without waiting for it to be mined.
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error)
}
