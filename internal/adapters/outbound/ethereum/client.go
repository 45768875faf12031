// Package ethereum implements the chain and token ports on top of go-ethereum's
// ethclient with a local private-key signer.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	gethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/archon-research/stl-trade/internal/pkg/retry"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

// Compile-time check that Client implements the chain and token ports.
var (
	_ outbound.ChainClient = (*Client)(nil)
	_ outbound.TokenClient = (*Client)(nil)
)

// RevertError is returned by CallContract when the call reverted.
type RevertError struct {
	Reason string
	Data   []byte
}

func (e *RevertError) Error() string {
	if e.Reason != "" {
		return "execution reverted: " + e.Reason
	}
	return "execution reverted"
}

// Client is a chain client bound to one sender key.
type Client struct {
	eth     *ethclient.Client
	key     *ecdsa.PrivateKey
	sender  common.Address
	chainID *big.Int
	signer  types.Signer
	config  Config
	logger  *slog.Logger

	// sendMu serializes nonce lookup and broadcast.
	sendMu sync.Mutex

	erc20 *abi.ABI
}

// Dial connects to cfg.RPCURL and verifies the chain ID.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	client, err := NewClient(ctx, eth, cfg)
	if err != nil {
		eth.Close()
		return nil, err
	}
	return client, nil
}

// NewClient wraps an existing ethclient.
func NewClient(ctx context.Context, eth *ethclient.Client, cfg Config) (*Client, error) {
	if eth == nil {
		return nil, errors.New("eth client cannot be nil")
	}
	if cfg.PrivateKey == "" {
		return nil, errors.New("PrivateKey is required")
	}
	cfg.applyDefaults()

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	nodeChainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if cfg.ChainID != nil && cfg.ChainID.Cmp(nodeChainID) != 0 {
		return nil, fmt.Errorf("RPC is on chain %s, expected %s", nodeChainID, cfg.ChainID)
	}

	erc20, err := loadERC20ABI()
	if err != nil {
		return nil, err
	}

	sender := crypto.PubkeyToAddress(key.PublicKey)
	return &Client{
		eth:     eth,
		key:     key,
		sender:  sender,
		chainID: nodeChainID,
		signer:  types.LatestSignerForChainID(nodeChainID),
		config:  cfg,
		logger:  cfg.Logger.With("component", "ethereum-client", "sender", sender.Hex()),
		erc20:   erc20,
	}, nil
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) Sender() common.Address {
	return c.sender
}

func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// BalanceAt returns the native balance of account at the latest block.
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return retry.Do(ctx, c.config.Retry, isRetryableRPC, c.onRetry("eth_getBalance"), func(ctx context.Context) (*big.Int, error) {
		return c.eth.BalanceAt(ctx, account, nil)
	})
}

// CallContract executes msg as an eth_call. Reverts come back as *RevertError
// and are not retried.
func (c *Client) CallContract(ctx context.Context, msg outbound.CallMsg, blockNumber *big.Int) ([]byte, error) {
	to := msg.To
	call := gethereum.CallMsg{
		From:  msg.From,
		To:    &to,
		Value: msg.Value,
		Data:  msg.Data,
	}

	out, err := retry.Do(ctx, c.config.Retry, isRetryableRPC, c.onRetry("eth_call"), func(ctx context.Context) ([]byte, error) {
		return c.eth.CallContract(ctx, call, blockNumber)
	})
	if err != nil {
		if revert := asRevert(err); revert != nil {
			return nil, revert
		}
		return nil, fmt.Errorf("eth_call to %s: %w", msg.To.Hex(), err)
	}
	return out, nil
}

// SendTransaction signs tx as an EIP-1559 transaction from the sender and
// broadcasts it. The fee cap is twice the latest base fee plus the suggested tip.
func (c *Client) SendTransaction(ctx context.Context, tx outbound.TxRequest) (common.Hash, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.sender)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	tipCap, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to suggest gas tip: %w", err)
	}
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get latest header: %w", err)
	}
	feeCap := new(big.Int).Set(tipCap)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	gas := tx.GasLimit
	if gas == 0 {
		to := tx.To
		estimate, err := c.eth.EstimateGas(ctx, gethereum.CallMsg{
			From:  c.sender,
			To:    &to,
			Value: value,
			Data:  tx.Data,
		})
		if err != nil {
			if revert := asRevert(err); revert != nil {
				return common.Hash{}, fmt.Errorf("gas estimation: %w", revert)
			}
			return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
		}
		gas = uint64(float64(estimate) * c.config.GasLimitMultiplier)
		if gas < defaultMinGasLimit {
			gas = defaultMinGasLimit
		}
	}

	to := tx.To
	unsigned := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      tx.Data,
	})
	signed, err := types.SignTx(unsigned, c.signer, c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.Info("transaction sent",
		"txHash", signed.Hash().Hex(),
		"to", to.Hex(),
		"nonce", nonce,
		"gas", gas,
		"value", value.String(),
	)
	return signed.Hash(), nil
}

// WaitForReceipt polls for the receipt of hash until it is mined or ctx is done.
// Lookup errors are logged and polling continues.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash) (*outbound.Receipt, error) {
	ticker := time.NewTicker(c.config.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			var block uint64
			if receipt.BlockNumber != nil {
				block = receipt.BlockNumber.Uint64()
			}
			return &outbound.Receipt{
				TxHash:      receipt.TxHash,
				Success:     receipt.Status == types.ReceiptStatusSuccessful,
				BlockNumber: block,
				GasUsed:     receipt.GasUsed,
			}, nil
		}
		if !errors.Is(err, gethereum.NotFound) && ctx.Err() == nil {
			c.logger.Warn("receipt lookup failed", "txHash", hash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt of %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) onRetry(method string) retry.OnRetryFunc {
	return func(attempt int, err error, backoff time.Duration) {
		c.logger.Warn("RPC call failed, retrying",
			"method", method,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
	}
}

// isRetryableRPC retries transport failures only. A JSON-RPC error response,
// reverts included, is the node's answer and will not change on retry.
func isRetryableRPC(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return false
	}
	return retry.Transient(err)
}

// asRevert extracts revert data from a JSON-RPC error, or returns nil when err
// is not a revert.
func asRevert(err error) *RevertError {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return nil
	}
	if rpcErr.ErrorCode() != 3 && !strings.Contains(strings.ToLower(rpcErr.Error()), "revert") {
		return nil
	}

	revert := &RevertError{}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, decodeErr := hexutil.Decode(s); decodeErr == nil {
				revert.Data = data
			}
		}
	}
	if reason, unpackErr := abi.UnpackRevert(revert.Data); unpackErr == nil {
		revert.Reason = reason
	}
	return revert
}
