package entity

import "time"

// ReportSummary is the serialized form of a RunReport published to sinks.
// Amounts are decimal strings in the smallest unit.
type ReportSummary struct {
	RunID            string           `json:"runId"`
	Direction        Direction        `json:"direction"`
	Mode             ExecutionMode    `json:"mode"`
	Providers        []string         `json:"providers"`
	DryRun           bool             `json:"dryRun"`
	StartedAt        time.Time        `json:"startedAt"`
	DurationMs       int64            `json:"durationMs"`
	Requested        int              `json:"requested"`
	Succeeded        int              `json:"succeeded"`
	Failed           int              `json:"failed"`
	TotalValue       string           `json:"totalValue"`
	TotalExpectedOut string           `json:"totalExpectedOut"`
	Simulated        bool             `json:"simulated"`
	TxHashes         []string         `json:"txHashes"`
	Outcomes         []OutcomeSummary `json:"outcomes"`
	Skipped          []SkippedSummary `json:"skipped"`
	Error            string           `json:"error,omitempty"`
}

// OutcomeSummary is one executed (or not executed) batch item.
type OutcomeSummary struct {
	Index       int           `json:"index"`
	Label       string        `json:"label"`
	SellToken   string        `json:"sellToken"`
	BuyToken    string        `json:"buyToken"`
	AmountIn    string        `json:"amountIn"`
	Status      OutcomeStatus `json:"status"`
	TxHash      string        `json:"txHash,omitempty"`
	BlockNumber uint64        `json:"blockNumber,omitempty"`
	GasUsed     uint64        `json:"gasUsed,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// SkippedSummary is one item dropped before the batch was built.
type SkippedSummary struct {
	Label  string `json:"label"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// Summary flattens the report for serialization.
func (r *RunReport) Summary() ReportSummary {
	s := ReportSummary{
		RunID:            r.RunID,
		Direction:        r.Direction,
		Mode:             r.Mode,
		Providers:        r.Providers,
		DryRun:           r.DryRun,
		StartedAt:        r.StartedAt,
		DurationMs:       r.Duration.Milliseconds(),
		Requested:        r.Requested,
		Succeeded:        r.Succeeded(),
		Failed:           r.Failed(),
		TotalValue:       "0",
		TotalExpectedOut: "0",
		Simulated:        r.Simulated,
		TxHashes:         r.TxHashes(),
		Outcomes:         make([]OutcomeSummary, 0, len(r.Outcomes)),
		Skipped:          make([]SkippedSummary, 0, len(r.Skipped)),
	}
	if r.TotalValue != nil {
		s.TotalValue = r.TotalValue.String()
	}
	if r.TotalExpectedOut != nil {
		s.TotalExpectedOut = r.TotalExpectedOut.String()
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}

	for _, o := range r.Outcomes {
		item := OutcomeSummary{
			Index:       o.Index,
			Label:       o.Request.Label(),
			SellToken:   o.Request.SellAsset().String(),
			BuyToken:    o.Request.BuyAsset().String(),
			AmountIn:    "0",
			Status:      o.Status,
			BlockNumber: o.BlockNumber,
			GasUsed:     o.GasUsed,
		}
		if amount := o.Request.AmountIn(); amount != nil {
			item.AmountIn = amount.String()
		}
		if o.TxHash != zeroHash {
			item.TxHash = o.TxHash.Hex()
		}
		if o.Err != nil {
			item.Error = o.Err.Error()
		}
		s.Outcomes = append(s.Outcomes, item)
	}

	for _, sk := range r.Skipped {
		reason := ""
		if sk.Err != nil {
			reason = sk.Err.Error()
		}
		s.Skipped = append(s.Skipped, SkippedSummary{
			Label:  sk.Request.Label(),
			Stage:  sk.Stage,
			Reason: reason,
		})
	}
	return s
}
