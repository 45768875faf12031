package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/archon-research/stl-trade/internal/domain/entity"
)

// MockReportSink implements outbound.ReportSink for testing.
type MockReportSink struct {
	mu        sync.Mutex
	PublishFn func(ctx context.Context, report *entity.RunReport) error
	Reports   []*entity.RunReport
}

func (m *MockReportSink) Publish(ctx context.Context, report *entity.RunReport) error {
	m.mu.Lock()
	m.Reports = append(m.Reports, report)
	m.mu.Unlock()
	if m.PublishFn != nil {
		return m.PublishFn(ctx, report)
	}
	return nil
}

// MockMetrics implements outbound.MetricsRecorder and counts every call.
type MockMetrics struct {
	mu        sync.Mutex
	Quotes    map[string]int
	Approvals map[string]int
	Outcomes  map[string]int
	Runs      map[string]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Quotes:    make(map[string]int),
		Approvals: make(map[string]int),
		Outcomes:  make(map[string]int),
		Runs:      make(map[string]int),
	}
}

func (m *MockMetrics) RecordQuote(_ context.Context, provider, result string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Quotes[provider+":"+result]++
}

func (m *MockMetrics) RecordApproval(_ context.Context, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Approvals[state]++
}

func (m *MockMetrics) RecordOutcome(_ context.Context, mode, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes[mode+":"+status]++
}

func (m *MockMetrics) RecordRun(_ context.Context, direction, mode, result string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Runs[direction+":"+mode+":"+result]++
}
