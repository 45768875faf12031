// Package memory provides an in-memory ReportSink for tests and dry runs.
//
// All operations are thread-safe.
package memory

import (
	"context"
	"sync"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

// Compile-time check that ReportSink implements outbound.ReportSink.
var _ outbound.ReportSink = (*ReportSink)(nil)

// ReportSink stores every published report.
type ReportSink struct {
	mu      sync.RWMutex
	reports []*entity.RunReport

	// Callback for test assertions
	onPublish func(*entity.RunReport)
}

// NewReportSink creates an empty sink.
func NewReportSink() *ReportSink {
	return &ReportSink{
		reports: make([]*entity.RunReport, 0),
	}
}

// Publish stores the report.
func (s *ReportSink) Publish(_ context.Context, report *entity.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports = append(s.reports, report)
	if s.onPublish != nil {
		s.onPublish(report)
	}
	return nil
}

// Reports returns a copy of the published reports in order.
func (s *ReportSink) Reports() []*entity.RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entity.RunReport, len(s.reports))
	copy(out, s.reports)
	return out
}

// Last returns the most recent report, or nil.
func (s *ReportSink) Last() *entity.RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.reports) == 0 {
		return nil
	}
	return s.reports[len(s.reports)-1]
}

// SetOnPublish registers a callback invoked for each published report.
func (s *ReportSink) SetOnPublish(fn func(*entity.RunReport)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPublish = fn
}

// Clear removes all stored reports.
func (s *ReportSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = make([]*entity.RunReport, 0)
}
