package batch_trader

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

// Gate checks that a token can be sold in full and approves the spender when
// needed. It submits transactions, so tokens are gated one at a time.
//
//	CHECK_BALANCE -> CHECK_ALLOWANCE -> SUBMIT_APPROVAL -> AWAIT_APPROVAL_CONFIRMATION -> READY
//
// Any step may end in SKIP with a reason from the entity error taxonomy.
type Gate struct {
	tokens      outbound.TokenClient
	chain       outbound.ChainClient
	spender     common.Address
	multiplier  *big.Int
	autoApprove bool
	timeout     time.Duration
	metrics     outbound.MetricsRecorder
	logger      *slog.Logger
}

// GateConfig holds the gate's parameters.
type GateConfig struct {
	Spender            common.Address
	ApprovalMultiplier int64
	AutoApprove        bool
	SubmissionTimeout  time.Duration
	Metrics            outbound.MetricsRecorder
	Logger             *slog.Logger
}

// NewGate creates a gate for the chain client's sender.
func NewGate(config GateConfig, tokens outbound.TokenClient, chain outbound.ChainClient) (*Gate, error) {
	if tokens == nil {
		return nil, fmt.Errorf("tokens is required")
	}
	if chain == nil {
		return nil, fmt.Errorf("chain is required")
	}
	if config.Spender == (common.Address{}) {
		return nil, fmt.Errorf("spender is required")
	}
	if config.ApprovalMultiplier < minApprovalMultiplier {
		config.ApprovalMultiplier = minApprovalMultiplier
	}
	if config.SubmissionTimeout == 0 {
		config.SubmissionTimeout = ConfigDefaults().SubmissionTimeout
	}
	if config.Metrics == nil {
		config.Metrics = noopMetrics{}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Gate{
		tokens:      tokens,
		chain:       chain,
		spender:     config.Spender,
		multiplier:  big.NewInt(config.ApprovalMultiplier),
		autoApprove: config.AutoApprove,
		timeout:     config.SubmissionTimeout,
		metrics:     config.Metrics,
		logger:      config.Logger.With("component", "allowance-gate"),
	}, nil
}

// Check runs the gate for token. It never returns an error: failures end in
// GateSkip with Reason set.
func (g *Gate) Check(ctx context.Context, token common.Address) entity.GateResult {
	result := g.check(ctx, token)
	g.metrics.RecordApproval(ctx, string(result.State))

	logger := g.logger.With("token", token.Hex(), "symbol", result.Allowance.Symbol)
	if result.Ready() {
		logger.Info("token ready to sell", "balance", result.Allowance.Balance.String())
	} else {
		logger.Warn("token skipped", "step", result.SkippedAt, "reason", result.Reason)
	}
	return result
}

func (g *Gate) check(ctx context.Context, token common.Address) entity.GateResult {
	owner := g.chain.Sender()
	state := entity.AllowanceState{
		Token:   token,
		Owner:   owner,
		Spender: g.spender,
		Symbol:  entity.UnknownSymbol,
	}
	step := entity.GateCheckBalance
	skip := func(reason error) entity.GateResult {
		return entity.GateResult{State: entity.GateSkip, SkippedAt: step, Allowance: state, Reason: reason}
	}

	if symbol, err := g.tokens.Symbol(ctx, token); err == nil && symbol != "" {
		state.Symbol = symbol
	}
	decimals, err := g.tokens.Decimals(ctx, token)
	if err != nil {
		return skip(fmt.Errorf("%w: reading decimals: %v", entity.ErrProviderError, err))
	}
	state.Decimals = decimals

	balance, err := g.tokens.BalanceOf(ctx, token, owner)
	if err != nil {
		return skip(fmt.Errorf("%w: reading balance: %v", entity.ErrProviderError, err))
	}
	state.Balance = balance
	if balance.Sign() == 0 {
		return skip(entity.ErrZeroBalance)
	}

	step = entity.GateCheckAllowance
	allowance, err := g.tokens.Allowance(ctx, token, owner, g.spender)
	if err != nil {
		return skip(fmt.Errorf("%w: reading allowance: %v", entity.ErrProviderError, err))
	}
	state.Allowance = allowance
	if state.Sufficient() {
		return entity.GateResult{State: entity.GateReady, Allowance: state}
	}
	if !g.autoApprove {
		return skip(fmt.Errorf("%w: allowance %s below balance %s", entity.ErrApprovalRequired, allowance, balance))
	}

	step = entity.GateSubmitApproval
	amount := new(big.Int).Mul(balance, g.multiplier)
	g.logger.Info("submitting approval",
		"token", token.Hex(),
		"spender", g.spender.Hex(),
		"amount", amount.String(),
	)
	hash, err := g.tokens.Approve(ctx, token, g.spender, amount)
	if err != nil {
		return skip(fmt.Errorf("%w: submitting approval: %v", entity.ErrApprovalFailed, err))
	}

	step = entity.GateAwaitApprovalConfirmation
	waitCtx, cancel := context.WithTimeout(ctx, g.timeout)
	receipt, err := g.chain.WaitForReceipt(waitCtx, hash)
	cancel()
	if err != nil {
		return skip(fmt.Errorf("%w: waiting for approval %s: %v", entity.ErrApprovalFailed, hash.Hex(), err))
	}
	if !receipt.Success {
		return skip(fmt.Errorf("%w: approval %s reverted", entity.ErrApprovalFailed, hash.Hex()))
	}

	// The sale amount is the balance read above, so the confirmed allowance
	// must cover it.
	allowance, err = g.tokens.Allowance(ctx, token, owner, g.spender)
	if err != nil {
		return skip(fmt.Errorf("%w: re-reading allowance: %v", entity.ErrApprovalFailed, err))
	}
	state.Allowance = allowance
	if !state.Sufficient() {
		return skip(fmt.Errorf("%w: allowance %s still below balance %s after %s", entity.ErrApprovalFailed, allowance, balance, hash.Hex()))
	}

	return entity.GateResult{State: entity.GateReady, Allowance: state, ApprovalTx: hash}
}
