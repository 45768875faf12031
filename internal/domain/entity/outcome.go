package entity

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ExecutionMode selects the atomicity policy of a batch.
type ExecutionMode string

const (
	// ModeAtomic submits every call in one Multicall3 transaction; one failure reverts all.
	ModeAtomic ExecutionMode = "atomic"
	// ModeSequential submits one transaction per call in batch order.
	ModeSequential ExecutionMode = "sequential"
)

// ParseExecutionMode parses "atomic" or "sequential" (case-insensitive).
func ParseExecutionMode(s string) (ExecutionMode, error) {
	switch ExecutionMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAtomic:
		return ModeAtomic, nil
	case ModeSequential:
		return ModeSequential, nil
	default:
		return "", fmt.Errorf("unknown execution mode %q (want atomic or sequential)", s)
	}
}

// AllowFailure is the per-call flag the mode implies.
func (m ExecutionMode) AllowFailure() bool {
	return m == ModeSequential
}

// OutcomeStatus is the final state of one batch item.
type OutcomeStatus string

const (
	StatusSucceeded   OutcomeStatus = "succeeded"
	StatusFailed      OutcomeStatus = "failed"
	StatusNotExecuted OutcomeStatus = "not_executed"
	// StatusUnknown is reported when the chain gave no answer for the item,
	// e.g. its receipt did not arrive before the submission timeout.
	StatusUnknown OutcomeStatus = "unknown"
)

// ExecutionOutcome reports what happened to the batch item at Index. In
// atomic mode all outcomes of a batch share the same TxHash.
type ExecutionOutcome struct {
	Index       int
	Request     TradeRequest
	Status      OutcomeStatus
	TxHash      common.Hash
	ReturnData  []byte
	BlockNumber uint64
	GasUsed     uint64
	Err         error
}

// NotExecutedOutcomes marks every call of batch as NotExecuted with cause.
func NotExecutedOutcomes(batch *Batch, cause error) []ExecutionOutcome {
	outcomes := make([]ExecutionOutcome, batch.Len())
	for i := range outcomes {
		outcomes[i] = ExecutionOutcome{
			Index:   i,
			Request: batch.calls[i].Request,
			Status:  StatusNotExecuted,
			Err:     cause,
		}
	}
	return outcomes
}
