// Package inbound contains the primary/inbound ports.
// These interfaces define the use cases that the application exposes.
package inbound

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/stl-trade/internal/domain/entity"
)

// RunRequest describes one batch run.
type RunRequest struct {
	Direction entity.Direction
	Mode      entity.ExecutionMode

	// Tokens are traded in the given order.
	Tokens []common.Address

	// RandomCount adds that many coins drawn from the discovery listing.
	RandomCount int

	// AmountPerTrade is the ETH spent per token on buys. Sells always use
	// the full token balance.
	AmountPerTrade *big.Int

	SlippageBps uint32

	// DryRun stops after a successful simulation.
	DryRun bool
}

// BatchTrader runs the quote, gate, build, simulate, execute and report pipeline.
// Inbound adapters (CLI) call this.
type BatchTrader interface {
	// Run always returns a report. The error is non-nil when the run aborted.
	Run(ctx context.Context, req RunRequest) (*entity.RunReport, error)
}
