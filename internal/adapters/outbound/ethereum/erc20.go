package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/stl-trade/internal/pkg/blockchain/abis"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

func loadERC20ABI() (*abi.ABI, error) {
	erc20, err := abis.GetERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("failed to load ERC20 ABI: %w", err)
	}
	return erc20, nil
}

// BalanceOf returns owner's balance of token.
func (c *Client) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := c.callERC20(ctx, token, &balance, "balanceOf", owner); err != nil {
		return nil, err
	}
	return balance, nil
}

// Allowance returns how much spender may move from owner.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	if err := c.callERC20(ctx, token, &allowance, "allowance", owner, spender); err != nil {
		return nil, err
	}
	return allowance, nil
}

func (c *Client) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	var decimals uint8
	if err := c.callERC20(ctx, token, &decimals, "decimals"); err != nil {
		return 0, err
	}
	return decimals, nil
}

func (c *Client) Symbol(ctx context.Context, token common.Address) (string, error) {
	var symbol string
	if err := c.callERC20(ctx, token, &symbol, "symbol"); err != nil {
		return "", err
	}
	return symbol, nil
}

// Approve submits approve(spender, amount) from the sender.
func (c *Client) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	data, err := c.erc20.Pack("approve", spender, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack approve: %w", err)
	}
	return c.SendTransaction(ctx, outbound.TxRequest{
		To:   token,
		Data: data,
	})
}

func (c *Client) callERC20(ctx context.Context, token common.Address, out any, method string, args ...any) error {
	data, err := c.erc20.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", method, err)
	}

	result, err := c.CallContract(ctx, outbound.CallMsg{
		From: c.sender,
		To:   token,
		Data: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("%s on %s: %w", method, token.Hex(), err)
	}

	if err := c.erc20.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("failed to unpack %s from %s: %w", method, token.Hex(), err)
	}
	return nil
}
