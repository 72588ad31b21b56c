package sampler

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"observer_core/internal/collector"
	"observer_core/internal/collector/collectortest"
)

type panickingProvider struct {
	*collectortest.Provider
}

func (p panickingProvider) VirtualMemory(ctx context.Context) (*collector.MemoryStat, error) {
	panic("read /proc/meminfo: index out of range")
}

func TestInitializePrimesOnce(t *testing.T) {
	provider := collectortest.New()
	s := New(provider, zaptest.NewLogger(t))

	if s.Ready() {
		t.Fatal("sampler should start uninitialized")
	}

	for i := 0; i < 3; i++ {
		if err := s.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize() error: %v", err)
		}
	}

	if !s.Ready() {
		t.Fatal("sampler should be ready after Initialize")
	}

	calls := provider.Calls()
	if len(calls) != 1 || calls[0] != 0 {
		t.Errorf("expected a single zero-interval priming read, got %v", calls)
	}
	if provider.BreakdownCalls != 1 {
		t.Errorf("expected a single breakdown priming read, got %d", provider.BreakdownCalls)
	}
}

func TestInitializeFailure(t *testing.T) {
	provider := collectortest.New()
	provider.PercentErr = errors.New("no /proc/stat")
	s := New(provider, zaptest.NewLogger(t))

	if err := s.Initialize(context.Background()); err == nil {
		t.Fatal("expected priming error")
	}
	if s.Ready() {
		t.Error("sampler must stay uninitialized after failed priming")
	}
}

func TestSampleBeforeInitializeWarnsOnce(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := New(collectortest.New(), zap.New(core))

	for i := 0; i < 3; i++ {
		if _, err := s.SampleBreakdown(context.Background()); err != nil {
			t.Fatalf("SampleBreakdown() error: %v", err)
		}
	}

	if n := logs.FilterMessageSnippet("before priming").Len(); n != 1 {
		t.Errorf("expected one warning, got %d", n)
	}
}

func TestSampleBreakdown(t *testing.T) {
	s := New(collectortest.New(), zaptest.NewLogger(t))

	snap, err := s.SampleBreakdown(context.Background())
	if err != nil {
		t.Fatalf("SampleBreakdown() error: %v", err)
	}

	want := CPUSnapshot{
		UserPercent: 12.5, SystemPercent: 4.5, IdlePercent: 80, NicePercent: 0.5,
		IowaitPercent: 1.5, IrqPercent: 0.5, SoftirqPercent: 0.5,
	}
	if snap != want {
		t.Errorf("SampleBreakdown() = %+v, want %+v", snap, want)
	}
}

func TestSampleBreakdownClampsRoundingErrors(t *testing.T) {
	provider := collectortest.New()
	provider.Breakdown.User = 100.00000001
	provider.Breakdown.Idle = -0.0000001
	s := New(provider, zaptest.NewLogger(t))

	snap, err := s.SampleBreakdown(context.Background())
	if err != nil {
		t.Fatalf("SampleBreakdown() error: %v", err)
	}
	if snap.UserPercent != 100 {
		t.Errorf("user = %v, want 100", snap.UserPercent)
	}
	if snap.IdlePercent != 0 {
		t.Errorf("idle = %v, want 0", snap.IdlePercent)
	}
}

func TestSampleBreakdownLeavesOverallEmpty(t *testing.T) {
	provider := collectortest.New()
	provider.Breakdown = collector.CPUBreakdown{}
	s := New(provider, zaptest.NewLogger(t))

	snap, err := s.SampleBreakdown(context.Background())
	if err != nil {
		t.Fatalf("SampleBreakdown() error: %v", err)
	}
	if snap.OverallBusyPercent != 0 {
		t.Errorf("overall = %v, all-zero counters must not read as busy", snap.OverallBusyPercent)
	}
}

func TestSampleRejectsNonFiniteValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *collectortest.Provider)
		sample func(s *Sampler) error
	}{
		{
			name:   "breakdown nan",
			mutate: func(p *collectortest.Provider) { p.Breakdown.System = math.NaN() },
			sample: func(s *Sampler) error { _, err := s.SampleBreakdown(context.Background()); return err },
		},
		{
			name:   "overall inf",
			mutate: func(p *collectortest.Provider) { p.Busy = math.Inf(1) },
			sample: func(s *Sampler) error { _, err := s.SampleOverall(context.Background(), 0); return err },
		},
		{
			name:   "memory nan",
			mutate: func(p *collectortest.Provider) { p.Memory.UsedPercent = math.NaN() },
			sample: func(s *Sampler) error { _, err := s.SampleMemory(context.Background()); return err },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := collectortest.New()
			tt.mutate(provider)
			s := New(provider, zaptest.NewLogger(t))

			if err := tt.sample(s); !errors.Is(err, ErrUnavailable) {
				t.Errorf("expected ErrUnavailable, got %v", err)
			}
		})
	}
}

func TestProviderErrorsAreMasked(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	provider := collectortest.New()
	provider.MemoryErr = errors.New("open /proc/meminfo: permission denied")
	s := New(provider, zap.New(core))

	_, err := s.SampleMemory(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if strings.Contains(err.Error(), "meminfo") {
		t.Errorf("provider details leaked into error: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one error log, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["error"]; !strings.Contains(got.(string), "meminfo") {
		t.Errorf("raw error should be logged server-side, got %v", got)
	}
}

func TestSampleOverallUsesWindow(t *testing.T) {
	provider := collectortest.New()
	s := New(provider, zaptest.NewLogger(t))

	busy, err := s.SampleOverall(context.Background(), 250*time.Millisecond)
	if err != nil {
		t.Fatalf("SampleOverall() error: %v", err)
	}
	if busy != 18.25 {
		t.Errorf("busy = %v, want 18.25", busy)
	}

	calls := provider.Calls()
	if len(calls) != 1 || calls[0] != 250*time.Millisecond {
		t.Errorf("unexpected CPUPercent calls: %v", calls)
	}
}

func TestSampleOverallAbandonsOnCancel(t *testing.T) {
	provider := collectortest.New()
	provider.Wait = true
	s := New(provider, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err := s.SampleOverall(ctx, 10*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancellation took too long: %v", elapsed)
	}
}

func TestSampleOverallWithCancelledContext(t *testing.T) {
	provider := collectortest.New()
	s := New(provider, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.SampleOverall(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(provider.Calls()) != 0 {
		t.Error("provider should not be called with a cancelled context")
	}
}

func TestSampleMemoryKeepsProviderPercent(t *testing.T) {
	provider := collectortest.New()
	// Проценты провайдера не пересчитываются из байт
	provider.Memory.UsedPercent = 61.2
	s := New(provider, zaptest.NewLogger(t))

	snap, err := s.SampleMemory(context.Background())
	if err != nil {
		t.Fatalf("SampleMemory() error: %v", err)
	}
	if snap.UsedPercent != 61.2 {
		t.Errorf("UsedPercent = %v, want 61.2", snap.UsedPercent)
	}
	if snap.TotalBytes != provider.Memory.TotalBytes {
		t.Errorf("TotalBytes = %d, want %d", snap.TotalBytes, provider.Memory.TotalBytes)
	}
}

func TestBreakdownReport(t *testing.T) {
	provider := collectortest.New()
	s := New(provider, zaptest.NewLogger(t))
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	report, err := s.Breakdown(context.Background())
	if err != nil {
		t.Fatalf("Breakdown() error: %v", err)
	}
	if !report.Timestamp.Equal(fixed) {
		t.Errorf("timestamp = %v, want %v", report.Timestamp, fixed)
	}
	if report.CPU.UserPercent != 12.5 {
		t.Errorf("user = %v", report.CPU.UserPercent)
	}
	if report.Memory.UsedPercent != 37.5 {
		t.Errorf("memory = %v", report.Memory.UsedPercent)
	}
	if len(provider.Calls()) != 0 {
		t.Error("breakdown report must not wait on the overall sample")
	}
}

func TestOverallReport(t *testing.T) {
	provider := collectortest.New()
	s := New(provider, zaptest.NewLogger(t))

	report, err := s.Overall(context.Background())
	if err != nil {
		t.Fatalf("Overall() error: %v", err)
	}
	if report.CPU.OverallBusyPercent != 18.25 {
		t.Errorf("overall = %v, want 18.25", report.CPU.OverallBusyPercent)
	}
	if report.Memory.UsedPercent != 37.5 {
		t.Errorf("memory = %v, want 37.5", report.Memory.UsedPercent)
	}

	calls := provider.Calls()
	if len(calls) != 1 || calls[0] != DefaultSampleWindow {
		t.Errorf("expected one read with the default window, got %v", calls)
	}
}

func TestOverallReportFailure(t *testing.T) {
	provider := collectortest.New()
	provider.Wait = true
	provider.MemoryErr = errors.New("boom")
	s := New(provider, zaptest.NewLogger(t))

	if _, err := s.Overall(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestHostFactsMasksErrors(t *testing.T) {
	provider := collectortest.New()
	provider.FactsErr = errors.New("host info: exec uname failed")
	s := New(provider, zaptest.NewLogger(t))

	if _, err := s.HostFacts(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestProviderPanicIsMasked(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := New(panickingProvider{collectortest.New()}, zap.New(core))
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	if _, err := s.Breakdown(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Breakdown() error = %v, want ErrUnavailable", err)
	}
	if _, err := s.Overall(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Overall() error = %v, want ErrUnavailable", err)
	}

	entries := logs.FilterMessage("Failed to sample host statistics").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 error logs, got %d", len(entries))
	}
	if !strings.Contains(entries[0].ContextMap()["error"].(string), "index out of range") {
		t.Errorf("panic value missing from log: %v", entries[0].ContextMap())
	}
}
