// Package batch_trader runs the batch swap pipeline:
// quote -> gate (sells) -> build -> simulate -> execute -> report.
package batch_trader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/pkg/blockchain/multicall"
	"github.com/archon-research/stl-trade/internal/ports/inbound"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

// Compile-time check that Service implements inbound.BatchTrader.
var _ inbound.BatchTrader = (*Service)(nil)

type executor interface {
	Execute(ctx context.Context, batch *entity.Batch) ([]entity.ExecutionOutcome, error)
}

// Service wires the pipeline stages together. Stages run strictly in order;
// only quote fetching is parallel.
type Service struct {
	config Config

	chain    outbound.ChainClient
	provider outbound.QuoteProvider
	lister   outbound.CoinLister
	sinks    []outbound.ReportSink

	quoter     *quoter
	gate       *Gate
	simulator  *Simulator
	atomic     executor
	sequential executor

	logger *slog.Logger
}

// NewService creates the batch trading service. lister may be nil when no
// random targets are requested.
func NewService(
	config Config,
	chain outbound.ChainClient,
	tokens outbound.TokenClient,
	provider outbound.QuoteProvider,
	lister outbound.CoinLister,
	sinks ...outbound.ReportSink,
) (*Service, error) {
	if chain == nil {
		return nil, errors.New("chain is required")
	}
	if tokens == nil {
		return nil, errors.New("tokens is required")
	}
	if provider == nil {
		return nil, errors.New("provider is required")
	}
	config.applyDefaults()
	logger := config.Logger.With("component", "batch-trader")

	codec, err := multicall.NewCodec()
	if err != nil {
		return nil, err
	}

	gate, err := NewGate(GateConfig{
		Spender:            config.Spender,
		ApprovalMultiplier: config.ApprovalMultiplier,
		AutoApprove:        config.AutoApprove,
		SubmissionTimeout:  config.SubmissionTimeout,
		Metrics:            config.Metrics,
		Logger:             config.Logger,
	}, tokens, chain)
	if err != nil {
		return nil, err
	}
	simulator, err := NewSimulator(chain, codec, config.Multicall3, config.Logger)
	if err != nil {
		return nil, err
	}
	atomic, err := NewAtomicExecutor(chain, codec, config.Multicall3, config.SubmissionTimeout, config.Logger)
	if err != nil {
		return nil, err
	}
	sequential, err := NewSequentialExecutor(chain, config.SubmissionTimeout, config.Logger)
	if err != nil {
		return nil, err
	}

	return &Service{
		config:   config,
		chain:    chain,
		provider: provider,
		lister:   lister,
		sinks:    sinks,
		quoter: &quoter{
			provider:    provider,
			concurrency: config.QuoteConcurrency,
			timeout:     config.QuoteTimeout,
			metrics:     config.Metrics,
			logger:      config.Logger.With("component", "quoter"),
		},
		gate:       gate,
		simulator:  simulator,
		atomic:     atomic,
		sequential: sequential,
		logger:     logger,
	}, nil
}

// Run executes one batch. The returned report is never nil and is published
// to every sink, aborted runs included.
func (s *Service) Run(ctx context.Context, req inbound.RunRequest) (*entity.RunReport, error) {
	start := time.Now()
	report := &entity.RunReport{
		RunID:            uuid.NewString(),
		Direction:        req.Direction,
		Mode:             req.Mode,
		Providers:        strings.Split(s.provider.Name(), ","),
		DryRun:           req.DryRun,
		StartedAt:        start,
		TotalValue:       new(big.Int),
		TotalExpectedOut: new(big.Int),
	}

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "batchTrader.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", report.RunID),
			attribute.String("run.direction", string(req.Direction)),
			attribute.String("run.mode", string(req.Mode)),
			attribute.Bool("run.dry_run", req.DryRun),
		),
	)
	defer span.End()

	logger := s.logger.With("runID", report.RunID, "direction", req.Direction, "mode", req.Mode)

	err := s.run(ctx, logger, req, report)
	report.Err = err
	report.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("run.requested", report.Requested),
		attribute.Int("run.skipped", len(report.Skipped)),
		attribute.Int("run.succeeded", report.Succeeded()),
		attribute.Int("run.failed", report.Failed()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run aborted")
		logger.Error("run aborted", "error", err, "duration", report.Duration)
	} else {
		logger.Info("run finished",
			"succeeded", report.Succeeded(),
			"failed", report.Failed(),
			"skipped", len(report.Skipped),
			"duration", report.Duration,
		)
	}

	for _, o := range report.Outcomes {
		s.config.Metrics.RecordOutcome(ctx, string(req.Mode), string(o.Status))
	}
	s.config.Metrics.RecordRun(ctx, string(req.Direction), string(req.Mode), resultLabel(err), report.Duration)
	s.publish(ctx, logger, report)

	return report, err
}

func (s *Service) run(ctx context.Context, logger *slog.Logger, req inbound.RunRequest, report *entity.RunReport) error {
	if err := s.validate(req); err != nil {
		return err
	}

	targets, err := s.selectTargets(ctx, req)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("%w: no tokens selected", entity.ErrInvalidRequest)
	}
	logger.Info("targets selected", "tokenCount", len(targets))

	requests := s.buildRequests(ctx, req, targets, report)
	report.Requested = len(targets)

	results, err := s.quoter.fetch(ctx, requests)
	if err != nil {
		return err
	}

	builder := entity.NewBatchBuilder(req.Mode.AllowFailure())
	for i, r := range results {
		if r.err != nil {
			report.Skipped = append(report.Skipped, entity.SkippedItem{
				Request: requests[i],
				Stage:   entity.StageQuote,
				Err:     r.err,
			})
			continue
		}
		builder.AddQuote(r.quote)
	}

	batch, err := builder.Build()
	if err != nil {
		return err
	}
	report.TotalValue = batch.TotalValue()
	report.TotalExpectedOut = batch.TotalExpectedOut()
	logger.Info("batch built", "calls", batch.Len(), "totalValue", batch.TotalValue().String())

	s.checkNativeBalance(ctx, logger, batch)

	if err := s.simulator.Simulate(ctx, batch, req.Mode); err != nil {
		report.Outcomes = entity.NotExecutedOutcomes(batch, err)
		return err
	}
	report.Simulated = true

	if req.DryRun {
		logger.Info("dry run, not submitting")
		report.Outcomes = entity.NotExecutedOutcomes(batch, nil)
		return nil
	}

	exec := s.atomic
	if req.Mode == entity.ModeSequential {
		exec = s.sequential
	}
	outcomes, err := exec.Execute(ctx, batch)
	if err != nil {
		report.Outcomes = entity.NotExecutedOutcomes(batch, err)
		return fmt.Errorf("executing batch: %w", err)
	}
	report.Outcomes = outcomes
	return nil
}

func (s *Service) validate(req inbound.RunRequest) error {
	if req.Direction != entity.DirectionBuy && req.Direction != entity.DirectionSell {
		return fmt.Errorf("%w: unknown direction %q", entity.ErrInvalidRequest, req.Direction)
	}
	if req.Mode != entity.ModeAtomic && req.Mode != entity.ModeSequential {
		return fmt.Errorf("%w: unknown mode %q", entity.ErrInvalidRequest, req.Mode)
	}
	// Inside aggregate3Value the swap's msg.sender is Multicall3, which holds
	// neither the tokens nor the wallet's approvals.
	if req.Direction == entity.DirectionSell && req.Mode == entity.ModeAtomic {
		return fmt.Errorf("%w: sells cannot run in atomic mode", entity.ErrInvalidRequest)
	}
	if req.Direction == entity.DirectionBuy && (req.AmountPerTrade == nil || req.AmountPerTrade.Sign() <= 0) {
		return fmt.Errorf("%w: buy amount must be positive", entity.ErrInvalidRequest)
	}
	if req.RandomCount < 0 {
		return fmt.Errorf("%w: random count must not be negative", entity.ErrInvalidRequest)
	}
	if req.RandomCount > 0 && s.lister == nil {
		return fmt.Errorf("%w: random targets need a coin listing", entity.ErrInvalidRequest)
	}
	return nil
}

func (s *Service) selectTargets(ctx context.Context, req inbound.RunRequest) ([]Target, error) {
	var pool []entity.Coin
	if req.RandomCount > 0 {
		size := s.config.DiscoveryPoolSize
		if size < req.RandomCount {
			size = req.RandomCount
		}
		coins, err := s.lister.ListMostValuable(ctx, size)
		if err != nil {
			return nil, fmt.Errorf("listing coins: %w", err)
		}
		pool = coins
	}
	return SelectTargets(req.Tokens, pool, req.RandomCount, s.config.Rand), nil
}

// buildRequests turns targets into trade requests. Sells pass through the
// gate first; skipped tokens are recorded on the report and dropped.
func (s *Service) buildRequests(ctx context.Context, req inbound.RunRequest, targets []Target, report *entity.RunReport) []entity.TradeRequest {
	sender := s.chain.Sender()
	requests := make([]entity.TradeRequest, 0, len(targets))

	for _, t := range targets {
		if req.Direction == entity.DirectionBuy {
			requests = append(requests, entity.NewBuyRequest(t.Address, req.AmountPerTrade, req.SlippageBps, sender, t.Label))
			continue
		}

		result := s.gate.Check(ctx, t.Address)
		report.Approvals = append(report.Approvals, result)
		label := t.Label
		if label == t.Address.Hex() && result.Allowance.Symbol != entity.UnknownSymbol {
			label = result.Allowance.Symbol
		}
		if !result.Ready() {
			report.Skipped = append(report.Skipped, entity.SkippedItem{
				Request: entity.NewSellRequest(t.Address, result.Allowance.Balance, req.SlippageBps, sender, label),
				Stage:   entity.StageGate,
				Err:     result.Reason,
			})
			continue
		}
		requests = append(requests, entity.NewSellRequest(t.Address, result.Allowance.Balance, req.SlippageBps, sender, label))
	}
	return requests
}

// checkNativeBalance warns when the wallet cannot fund the batch. Simulation
// is the authoritative check.
func (s *Service) checkNativeBalance(ctx context.Context, logger *slog.Logger, batch *entity.Batch) {
	balance, err := s.chain.BalanceAt(ctx, s.chain.Sender())
	if err != nil {
		logger.Warn("could not read wallet balance", "error", err)
		return
	}
	if balance.Cmp(batch.TotalValue()) < 0 {
		logger.Warn("wallet balance below batch value",
			"balance", balance.String(),
			"totalValue", batch.TotalValue().String(),
		)
	}
}

func (s *Service) publish(ctx context.Context, logger *slog.Logger, report *entity.RunReport) {
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, report); err != nil {
			logger.Warn("failed to publish report", "error", err)
		}
	}
}
