package outbound

import (
	"context"

	"github.com/archon-research/stl-trade/internal/domain/entity"
)

// ReportSink receives the report of every pipeline run, including aborted ones.
type ReportSink interface {
	Publish(ctx context.Context, report *entity.RunReport) error
}
