package entity

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var zeroHash common.Hash

// SkippedItem is a request that never reached the batch, with the reason.
type SkippedItem struct {
	Request TradeRequest
	Stage   string
	Err     error
}

// Stages at which an item can be skipped.
const (
	StageGate  = "gate"
	StageQuote = "quote"
)

// RunReport is the result of one pipeline run.
type RunReport struct {
	RunID     string
	Direction Direction
	Mode      ExecutionMode
	Providers []string
	DryRun    bool
	StartedAt time.Time
	Duration  time.Duration

	Requested int
	Skipped   []SkippedItem
	Outcomes  []ExecutionOutcome
	Approvals []GateResult

	// TotalValue is the ETH attached to the batch, in wei.
	TotalValue *big.Int
	// TotalExpectedOut sums the providers' expected outputs. Informational.
	TotalExpectedOut *big.Int
	// Simulated is true once pre-flight simulation passed.
	Simulated bool

	// Err is set when the run aborted.
	Err error
}

// CountStatus returns how many outcomes have status.
func (r *RunReport) CountStatus(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Succeeded returns the number of succeeded outcomes.
func (r *RunReport) Succeeded() int {
	return r.CountStatus(StatusSucceeded)
}

// Failed returns the number of failed outcomes.
func (r *RunReport) Failed() int {
	return r.CountStatus(StatusFailed)
}

// TxHashes returns the distinct transaction hashes in outcome order.
func (r *RunReport) TxHashes() []string {
	seen := make(map[string]bool)
	var hashes []string
	for _, o := range r.Outcomes {
		if o.TxHash == zeroHash {
			continue
		}
		h := o.TxHash.Hex()
		if !seen[h] {
			seen[h] = true
			hashes = append(hashes, h)
		}
	}
	return hashes
}
