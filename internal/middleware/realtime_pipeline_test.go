package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"StockCast/internal/domain/models"
)

type stubMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newStubMetrics() *stubMetrics { return &stubMetrics{errors: make(map[string]int)} }

func (m *stubMetrics) RecordPrediction(string, string)      {}
func (m *stubMetrics) RecordCacheEvent(bool)                {}
func (m *stubMetrics) RecordLastPrediction(string, float64) {}
func (m *stubMetrics) RecordLastPrice(string, float64)      {}
func (m *stubMetrics) RecordIngest(string, string)          {}
func (m *stubMetrics) RecordLatency(string, float64)        {}

func (m *stubMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *stubMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

type stubProc struct {
	mu    sync.Mutex
	ticks []*models.Tick
	err   error
}

func (p *stubProc) Process(_ context.Context, t *models.Tick) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.ticks = append(p.ticks, t)
	return nil
}

func (p *stubProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ticks)
}

func validTick(symbol string) *models.Tick {
	return &models.Tick{Symbol: symbol, Timestamp: 1700000000, Price: 101.5, Volume: 3}
}

func TestPipelineForwardsValidTick(t *testing.T) {
	proc := &stubProc{}
	p := NewRealtimePipeline(proc, newStubMetrics())

	if err := p.Process(context.Background(), validTick("AAPL")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if proc.count() != 1 {
		t.Errorf("forwarded = %d, want 1", proc.count())
	}
}

func TestPipelineRejectsInvalidTicks(t *testing.T) {
	proc := &stubProc{}
	m := newStubMetrics()
	p := NewRealtimePipeline(proc, m)

	cases := []*models.Tick{
		nil,
		{Symbol: "", Timestamp: 1700000000, Price: 1},
		{Symbol: "AAPL", Timestamp: 0, Price: 1},
		{Symbol: "AAPL", Timestamp: 1700000000, Price: -1},
	}
	for i, tick := range cases {
		if err := p.Process(context.Background(), tick); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
	if proc.count() != 0 {
		t.Errorf("forwarded = %d, want 0", proc.count())
	}
	if m.errorCount("pipeline_validate") != len(cases) {
		t.Errorf("validate errors = %d, want %d", m.errorCount("pipeline_validate"), len(cases))
	}
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc := &stubProc{}
	m := newStubMetrics()
	p := NewRealtimePipeline(proc, m, WithMaxRPS(2))

	for i := 0; i < 10; i++ {
		if err := p.Process(context.Background(), validTick("AAPL")); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	if proc.count() > 3 {
		t.Errorf("forwarded = %d, want at most 3 with rps 2", proc.count())
	}
	if m.errorCount("pipeline_throttle") == 0 {
		t.Error("expected throttled ticks to be recorded")
	}
	// a different symbol has its own bucket
	if err := p.Process(context.Background(), validTick("MSFT")); err != nil {
		t.Fatalf("Process: %v", err)
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &stubProc{err: errors.New("backend down")}
	m := newStubMetrics()
	p := NewRealtimePipeline(proc, m, WithBufferSize(4))

	if err := p.Process(context.Background(), validTick("AAPL")); err == nil {
		t.Fatal("expected downstream error")
	}
	if m.errorCount("pipeline_process") != 1 {
		t.Errorf("process errors = %d, want 1", m.errorCount("pipeline_process"))
	}
	if len(p.bufCh) != 1 {
		t.Errorf("buffered = %d, want 1", len(p.bufCh))
	}
}

func TestPipelineTransformHook(t *testing.T) {
	proc := &stubProc{}
	p := NewRealtimePipeline(proc, newStubMetrics(), WithTransform(func(t *models.Tick) *models.Tick {
		t.Symbol = "X:" + t.Symbol
		return t
	}))

	if err := p.Process(context.Background(), validTick("AAPL")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if proc.count() != 1 || proc.ticks[0].Symbol != "X:AAPL" {
		t.Errorf("transform not applied: %+v", proc.ticks)
	}
}
