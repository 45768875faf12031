package ethereum

import (
	"errors"
	"log/slog"
	"math/big"
	"time"

	"github.com/archon-research/stl-trade/internal/pkg/retry"
)

// Default configuration values.
const (
	defaultReceiptPollInterval = 2 * time.Second
	defaultGasLimitMultiplier  = 1.2
	defaultMinGasLimit         = 21_000
)

// Config holds the configuration for the wallet-bound chain client.
type Config struct {
	// RPCURL is the JSON-RPC endpoint of the chain.
	RPCURL string

	// PrivateKey is the hex-encoded secp256k1 key of the sender, with or
	// without the 0x prefix.
	PrivateKey string

	// ChainID is the expected chain. Dial fails when the node reports a
	// different one. If nil, the node's chain ID is used.
	ChainID *big.Int

	// ReceiptPollInterval is how often a pending receipt is polled.
	// Defaults to 2 seconds.
	ReceiptPollInterval time.Duration

	// GasLimitMultiplier scales the node's gas estimate.
	// Defaults to 1.2.
	GasLimitMultiplier float64

	// Retry controls retries of read-only RPC calls. Submissions are never retried.
	Retry retry.Config

	// Logger is the structured logger.
	// If not set, a default logger will be used.
	Logger *slog.Logger
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return errors.New("RPCURL is required")
	}
	if c.PrivateKey == "" {
		return errors.New("PrivateKey is required")
	}
	return nil
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.ReceiptPollInterval == 0 {
		c.ReceiptPollInterval = defaultReceiptPollInterval
	}
	if c.GasLimitMultiplier == 0 {
		c.GasLimitMultiplier = defaultGasLimitMultiplier
	}
	if c.Retry == (retry.Config{}) {
		c.Retry = retry.DefaultConfig()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
