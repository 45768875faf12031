// Package console renders run reports for a terminal: a structured log line
// per run plus a table of outcomes with human-readable amounts.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/pkg/blockchain"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

// Compile-time check that ReportSink implements outbound.ReportSink.
var _ outbound.ReportSink = (*ReportSink)(nil)

// Config holds configuration for the console report sink.
type Config struct {
	// Writer receives the outcome table. Defaults to os.Stdout.
	Writer io.Writer

	// ExplorerURL prefixes transaction hashes when set,
	// e.g. "https://basescan.org/tx/".
	ExplorerURL string

	// Logger is the structured logger for the sink.
	Logger *slog.Logger
}

// ConfigDefaults returns a config with default values.
func ConfigDefaults() Config {
	return Config{
		Writer:      os.Stdout,
		ExplorerURL: "https://basescan.org/tx/",
		Logger:      slog.Default(),
	}
}

// ReportSink prints reports.
type ReportSink struct {
	config Config
	logger *slog.Logger
}

// NewReportSink creates a console sink.
func NewReportSink(config Config) *ReportSink {
	defaults := ConfigDefaults()
	if config.Writer == nil {
		config.Writer = defaults.Writer
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	return &ReportSink{
		config: config,
		logger: config.Logger.With("component", "console-reportsink"),
	}
}

// Publish logs the run summary and writes the outcome table.
func (s *ReportSink) Publish(_ context.Context, report *entity.RunReport) error {
	if report == nil {
		return errors.New("report is nil")
	}

	attrs := []any{
		"runID", report.RunID,
		"direction", report.Direction,
		"mode", report.Mode,
		"requested", report.Requested,
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"notExecuted", report.CountStatus(entity.StatusNotExecuted),
		"unknown", report.CountStatus(entity.StatusUnknown),
		"skipped", len(report.Skipped),
		"totalValueEth", blockchain.FormatUnits(report.TotalValue, blockchain.NativeDecimals),
		"dryRun", report.DryRun,
		"duration", report.Duration,
	}
	if report.Err != nil {
		s.logger.Error("run summary", append(attrs, "error", report.Err)...)
	} else {
		s.logger.Info("run summary", attrs...)
	}

	return s.writeTable(report)
}

func (s *ReportSink) writeTable(report *entity.RunReport) error {
	decimals := tokenDecimals(report.Approvals)
	w := tabwriter.NewWriter(s.config.Writer, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "#\tTOKEN\tAMOUNT IN\tSTATUS\tTX\tDETAIL\n")
	for _, o := range report.Outcomes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			o.Index,
			o.Request.Label(),
			formatAmount(o.Request, decimals),
			o.Status,
			s.txLink(o.TxHash),
			errText(o.Err),
		)
	}
	for _, sk := range report.Skipped {
		fmt.Fprintf(w, "-\t%s\t%s\tskipped (%s)\t\t%s\n",
			sk.Request.Label(),
			formatAmount(sk.Request, decimals),
			sk.Stage,
			errText(sk.Err),
		)
	}
	return w.Flush()
}

func (s *ReportSink) txLink(hash common.Hash) string {
	if hash == (common.Hash{}) {
		return ""
	}
	return s.config.ExplorerURL + hash.Hex()
}

// tokenDecimals collects the decimals the gate read for each sold token.
func tokenDecimals(approvals []entity.GateResult) map[common.Address]int {
	out := make(map[common.Address]int, len(approvals))
	for _, a := range approvals {
		if a.Allowance.Decimals > 0 {
			out[a.Allowance.Token] = int(a.Allowance.Decimals)
		}
	}
	return out
}

// formatAmount renders the input amount in whole units: ETH for buys, the
// token's decimals for sells. Unknown decimals fall back to the raw integer.
func formatAmount(req entity.TradeRequest, decimals map[common.Address]int) string {
	amount := req.AmountIn()
	if amount == nil {
		amount = new(big.Int)
	}
	sell := req.SellAsset()
	if sell.IsNative() {
		return blockchain.FormatUnits(amount, blockchain.NativeDecimals) + " ETH"
	}
	if d, ok := decimals[sell.Address()]; ok {
		return blockchain.FormatUnits(amount, d)
	}
	return amount.String()
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
