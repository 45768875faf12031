package batch_trader

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/stl-trade/internal/pkg/blockchain"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

const (
	// tracerName is the instrumentation name for this service.
	tracerName = "github.com/archon-research/stl-trade/internal/services/batch_trader"

	// minApprovalMultiplier keeps approvals strictly above the balance.
	minApprovalMultiplier = 2
)

// Config holds configuration for the batch trading service.
type Config struct {
	// Multicall3 is the aggregator contract used in atomic mode.
	Multicall3 common.Address

	// Spender is the address sell-side tokens are approved for.
	// Defaults to the 0x AllowanceHolder.
	Spender common.Address

	// ApprovalMultiplier scales the balance into the approval amount.
	// Values below 2 are raised to 2.
	ApprovalMultiplier int64

	// AutoApprove submits approvals when the allowance is below the balance.
	// When false such tokens are skipped with ErrApprovalRequired.
	AutoApprove bool

	// QuoteConcurrency bounds parallel quote requests.
	QuoteConcurrency int

	// QuoteTimeout bounds a single quote request, retries included.
	QuoteTimeout time.Duration

	// SubmissionTimeout bounds the wait for one transaction receipt.
	SubmissionTimeout time.Duration

	// DiscoveryPoolSize is how many listed coins random targets are drawn from.
	DiscoveryPoolSize int

	// Rand drives random target selection. Seed it for reproducible runs.
	Rand *rand.Rand

	// Metrics is optional.
	Metrics outbound.MetricsRecorder

	// Logger is the structured logger.
	Logger *slog.Logger
}

// ConfigDefaults returns default configuration.
func ConfigDefaults() Config {
	return Config{
		Multicall3:         blockchain.Multicall3,
		Spender:            blockchain.ZeroXAllowanceHolder,
		ApprovalMultiplier: minApprovalMultiplier,
		AutoApprove:        true,
		QuoteConcurrency:   4,
		QuoteTimeout:       20 * time.Second,
		SubmissionTimeout:  3 * time.Minute,
		DiscoveryPoolSize:  50,
		Logger:             slog.Default(),
	}
}

// applyDefaults fills unset fields. Booleans are taken as given.
func (c *Config) applyDefaults() {
	defaults := ConfigDefaults()
	if c.Multicall3 == (common.Address{}) {
		c.Multicall3 = defaults.Multicall3
	}
	if c.Spender == (common.Address{}) {
		c.Spender = defaults.Spender
	}
	if c.ApprovalMultiplier < minApprovalMultiplier {
		c.ApprovalMultiplier = minApprovalMultiplier
	}
	if c.QuoteConcurrency <= 0 {
		c.QuoteConcurrency = defaults.QuoteConcurrency
	}
	if c.QuoteTimeout == 0 {
		c.QuoteTimeout = defaults.QuoteTimeout
	}
	if c.SubmissionTimeout == 0 {
		c.SubmissionTimeout = defaults.SubmissionTimeout
	}
	if c.DiscoveryPoolSize == 0 {
		c.DiscoveryPoolSize = defaults.DiscoveryPoolSize
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if c.Metrics == nil {
		c.Metrics = noopMetrics{}
	}
	if c.Logger == nil {
		c.Logger = defaults.Logger
	}
}

type noopMetrics struct{}

func (noopMetrics) RecordQuote(context.Context, string, string, time.Duration) {}

func (noopMetrics) RecordApproval(context.Context, string) {}

func (noopMetrics) RecordOutcome(context.Context, string, string) {}

func (noopMetrics) RecordRun(context.Context, string, string, string, time.Duration) {}
