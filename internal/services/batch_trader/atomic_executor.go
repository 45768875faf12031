package batch_trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/pkg/blockchain/multicall"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

// AtomicExecutor submits the whole batch as one aggregate3Value transaction.
// Either every swap lands or none does.
type AtomicExecutor struct {
	chain      outbound.ChainClient
	codec      *multicall.Codec
	multicall3 common.Address
	timeout    time.Duration
	logger     *slog.Logger
}

// NewAtomicExecutor creates an executor sending to multicall3.
func NewAtomicExecutor(chain outbound.ChainClient, codec *multicall.Codec, multicall3 common.Address, timeout time.Duration, logger *slog.Logger) (*AtomicExecutor, error) {
	if chain == nil {
		return nil, errors.New("chain is required")
	}
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	if timeout == 0 {
		timeout = ConfigDefaults().SubmissionTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AtomicExecutor{
		chain:      chain,
		codec:      codec,
		multicall3: multicall3,
		timeout:    timeout,
		logger:     logger.With("component", "atomic-executor"),
	}, nil
}

// Execute sends one transaction with value = batch.TotalValue() and waits for
// its receipt. Every outcome shares the transaction hash.
//
// Per-call results are recovered by replaying the call at the parent of the
// inclusion block. If the replay fails, calls that could not fail on their
// own are reported Succeeded (the transaction did not revert) and calls with
// AllowFailure are reported Unknown.
func (e *AtomicExecutor) Execute(ctx context.Context, batch *entity.Batch) ([]entity.ExecutionOutcome, error) {
	calls := toMulticallCalls(batch)
	data, err := e.codec.Pack(calls)
	if err != nil {
		return nil, fmt.Errorf("packing batch: %w", err)
	}

	outcomes := make([]entity.ExecutionOutcome, batch.Len())
	for i, call := range batch.Calls() {
		outcomes[i] = entity.ExecutionOutcome{Index: i, Request: call.Request}
	}
	setAll := func(status entity.OutcomeStatus, err error) {
		for i := range outcomes {
			outcomes[i].Status = status
			outcomes[i].Err = err
		}
	}

	msg := outbound.CallMsg{
		From:  e.chain.Sender(),
		To:    e.multicall3,
		Value: batch.TotalValue(),
		Data:  data,
	}

	hash, err := e.chain.SendTransaction(ctx, outbound.TxRequest{
		To:    msg.To,
		Value: msg.Value,
		Data:  msg.Data,
	})
	if err != nil {
		setAll(entity.StatusFailed, fmt.Errorf("submitting batch: %w", err))
		return outcomes, nil
	}
	for i := range outcomes {
		outcomes[i].TxHash = hash
	}
	e.logger.Info("batch submitted", "txHash", hash.Hex(), "calls", batch.Len(), "totalValue", msg.Value.String())

	waitCtx, cancel := context.WithTimeout(ctx, e.timeout)
	receipt, err := e.chain.WaitForReceipt(waitCtx, hash)
	cancel()
	if err != nil {
		setAll(entity.StatusUnknown, fmt.Errorf("waiting for receipt: %w", err))
		return outcomes, nil
	}
	for i := range outcomes {
		outcomes[i].BlockNumber = receipt.BlockNumber
		outcomes[i].GasUsed = receipt.GasUsed
	}

	if !receipt.Success {
		setAll(entity.StatusFailed, fmt.Errorf("%w: batch %s", entity.ErrTransactionReverted, hash.Hex()))
		e.logger.Error("batch reverted", "txHash", hash.Hex(), "block", receipt.BlockNumber)
		return outcomes, nil
	}

	results, err := e.replay(ctx, msg, receipt.BlockNumber, len(calls))
	if err != nil {
		e.logger.Warn("could not recover per-call results", "txHash", hash.Hex(), "error", err)
		for i, call := range calls {
			if call.AllowFailure {
				outcomes[i].Status = entity.StatusUnknown
				outcomes[i].Err = fmt.Errorf("result unavailable: %w", err)
			} else {
				outcomes[i].Status = entity.StatusSucceeded
			}
		}
		return outcomes, nil
	}

	for i, r := range results {
		outcomes[i].ReturnData = r.ReturnData
		if r.Success {
			outcomes[i].Status = entity.StatusSucceeded
		} else {
			outcomes[i].Status = entity.StatusFailed
			outcomes[i].Err = fmt.Errorf("%w: call %d inside %s", entity.ErrTransactionReverted, i, hash.Hex())
		}
	}
	e.logger.Info("batch mined", "txHash", hash.Hex(), "block", receipt.BlockNumber, "gasUsed", receipt.GasUsed)
	return outcomes, nil
}

// replay re-executes msg on the state the transaction ran against and decodes
// the positional results.
func (e *AtomicExecutor) replay(ctx context.Context, msg outbound.CallMsg, block uint64, wantLen int) ([]multicall.Result, error) {
	if block == 0 {
		return nil, errors.New("receipt has no block number")
	}
	out, err := e.chain.CallContract(ctx, msg, new(big.Int).SetUint64(block-1))
	if err != nil {
		return nil, fmt.Errorf("replaying batch at block %d: %w", block-1, err)
	}
	return e.codec.Unpack(out, wantLen)
}
