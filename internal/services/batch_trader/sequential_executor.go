package batch_trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

// SequentialExecutor submits one transaction per call in batch order and
// waits for each receipt before the next submission.
type SequentialExecutor struct {
	chain   outbound.ChainClient
	timeout time.Duration
	logger  *slog.Logger
}

// NewSequentialExecutor creates a per-call executor.
func NewSequentialExecutor(chain outbound.ChainClient, timeout time.Duration, logger *slog.Logger) (*SequentialExecutor, error) {
	if chain == nil {
		return nil, errors.New("chain is required")
	}
	if timeout == 0 {
		timeout = ConfigDefaults().SubmissionTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SequentialExecutor{
		chain:   chain,
		timeout: timeout,
		logger:  logger.With("component", "sequential-executor"),
	}, nil
}

// Execute reports one outcome per call. A failed submission or a reverted
// receipt fails only that call. A receipt that does not arrive in time leaves
// the call Unknown and stops the run: the pending transaction holds the
// sender's next nonce, so later calls are NotExecuted.
func (e *SequentialExecutor) Execute(ctx context.Context, batch *entity.Batch) ([]entity.ExecutionOutcome, error) {
	calls := batch.Calls()
	outcomes := make([]entity.ExecutionOutcome, len(calls))
	for i, call := range calls {
		outcomes[i] = entity.ExecutionOutcome{Index: i, Request: call.Request, Status: entity.StatusNotExecuted}
	}

	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			markRemaining(outcomes[i:], fmt.Errorf("run cancelled: %w", err))
			return outcomes, nil
		}

		logger := e.logger.With("index", i, "label", call.Request.Label())

		hash, err := e.chain.SendTransaction(ctx, outbound.TxRequest{
			To:    call.Target,
			Value: call.Value,
			Data:  call.CallData,
		})
		if err != nil {
			outcomes[i].Status = entity.StatusFailed
			outcomes[i].Err = fmt.Errorf("submitting call: %w", err)
			logger.Error("submission failed", "error", err)
			continue
		}
		outcomes[i].TxHash = hash

		waitCtx, cancel := context.WithTimeout(ctx, e.timeout)
		receipt, err := e.chain.WaitForReceipt(waitCtx, hash)
		cancel()
		if err != nil {
			outcomes[i].Status = entity.StatusUnknown
			outcomes[i].Err = fmt.Errorf("waiting for receipt: %w", err)
			logger.Error("receipt not received, stopping", "txHash", hash.Hex(), "error", err)
			markRemaining(outcomes[i+1:], fmt.Errorf("stopped after call %d: %s is still pending", i, hash.Hex()))
			return outcomes, nil
		}

		outcomes[i].BlockNumber = receipt.BlockNumber
		outcomes[i].GasUsed = receipt.GasUsed
		if !receipt.Success {
			outcomes[i].Status = entity.StatusFailed
			outcomes[i].Err = fmt.Errorf("%w: %s", entity.ErrTransactionReverted, hash.Hex())
			logger.Warn("transaction reverted", "txHash", hash.Hex())
			continue
		}
		outcomes[i].Status = entity.StatusSucceeded
		logger.Info("transaction mined", "txHash", hash.Hex(), "block", receipt.BlockNumber, "gasUsed", receipt.GasUsed)
	}
	return outcomes, nil
}

func markRemaining(outcomes []entity.ExecutionOutcome, cause error) {
	for i := range outcomes {
		outcomes[i].Status = entity.StatusNotExecuted
		outcomes[i].Err = cause
	}
}
