// Package sampler снимает показатели CPU и памяти и готовит их для JSON и
// текстового формата Prometheus.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"observer_core/internal/collector"
)

// DefaultSampleWindow интервал наблюдения для общей загрузки CPU
const DefaultSampleWindow = 100 * time.Millisecond

// ErrUnavailable единственный сигнал об ошибке для вызывающего кода.
// Подробности остаются в логах сервера.
var ErrUnavailable = errors.New("host statistics unavailable")

// HostStatsProvider источник сырых показателей хоста
type HostStatsProvider interface {
	CPUBreakdown(ctx context.Context) (*collector.CPUBreakdown, error)
	CPUPercent(ctx context.Context, interval time.Duration) (float64, error)
	VirtualMemory(ctx context.Context) (*collector.MemoryStat, error)
	HostFacts(ctx context.Context) (*collector.HostFacts, error)
}

// Sampler оборачивает HostStatsProvider: первичный замер, проверка значений,
// сборка отчета
type Sampler struct {
	provider HostStatsProvider
	logger   *zap.Logger
	now      func() time.Time
	window   time.Duration

	initOnce sync.Once
	initErr  error
	ready    atomic.Bool

	unprimedOnce sync.Once
}

// New создает сэмплер в состоянии Uninitialized
func New(provider HostStatsProvider, logger *zap.Logger) *Sampler {
	return &Sampler{
		provider: provider,
		logger:   logger,
		now:      time.Now,
		window:   DefaultSampleWindow,
	}
}

// Initialize делает первичный замер CPU и отбрасывает результат.
// Вызывается один раз до обслуживания запросов.
func (s *Sampler) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.logger.Debug("Priming CPU counters")

		if _, err := guard(func() (float64, error) { return s.provider.CPUPercent(ctx, 0) }); err != nil {
			s.initErr = fmt.Errorf("failed to prime CPU percentage: %w", err)
			return
		}
		if _, err := guard(func() (*collector.CPUBreakdown, error) { return s.provider.CPUBreakdown(ctx) }); err != nil {
			s.initErr = fmt.Errorf("failed to prime CPU breakdown: %w", err)
			return
		}

		s.ready.Store(true)
		s.logger.Info("Sampler ready")
	})

	return s.initErr
}

// Ready сообщает, выполнен ли первичный замер
func (s *Sampler) Ready() bool {
	return s.ready.Load()
}

// SampleBreakdown возвращает загрузку CPU по категориям без ожидания.
// Два вызова подряд могут вернуть одинаковые значения.
func (s *Sampler) SampleBreakdown(ctx context.Context) (CPUSnapshot, error) {
	s.checkPrimed()

	b, err := guard(func() (*collector.CPUBreakdown, error) { return s.provider.CPUBreakdown(ctx) })
	if err != nil {
		return CPUSnapshot{}, s.fail(ctx, "cpu_breakdown", err)
	}

	var snap CPUSnapshot
	fields := []struct {
		name string
		src  float64
		dst  *float64
	}{
		{"user", b.User, &snap.UserPercent},
		{"system", b.System, &snap.SystemPercent},
		{"idle", b.Idle, &snap.IdlePercent},
		{"nice", b.Nice, &snap.NicePercent},
		{"iowait", b.Iowait, &snap.IowaitPercent},
		{"irq", b.Irq, &snap.IrqPercent},
		{"softirq", b.Softirq, &snap.SoftirqPercent},
	}
	for _, f := range fields {
		v, err := percent(f.name, f.src)
		if err != nil {
			return CPUSnapshot{}, s.fail(ctx, "cpu_breakdown", err)
		}
		*f.dst = v
	}

	return snap, nil
}

// SampleOverall возвращает общую загрузку CPU за окно window.
// Блокирует вызывающего примерно на window; отмена ctx прерывает ожидание.
func (s *Sampler) SampleOverall(ctx context.Context, window time.Duration) (float64, error) {
	s.checkPrimed()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	busy, err := guard(func() (float64, error) { return s.provider.CPUPercent(ctx, window) })
	if err != nil {
		return 0, s.fail(ctx, "cpu_overall", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	busy, err = percent("overall", busy)
	if err != nil {
		return 0, s.fail(ctx, "cpu_overall", err)
	}

	return busy, nil
}

// SampleMemory возвращает текущее состояние памяти без ожидания
func (s *Sampler) SampleMemory(ctx context.Context) (MemorySnapshot, error) {
	vm, err := guard(func() (*collector.MemoryStat, error) { return s.provider.VirtualMemory(ctx) })
	if err != nil {
		return MemorySnapshot{}, s.fail(ctx, "memory", err)
	}

	used, err := percent("memory", vm.UsedPercent)
	if err != nil {
		return MemorySnapshot{}, s.fail(ctx, "memory", err)
	}

	return MemorySnapshot{
		TotalBytes:     vm.TotalBytes,
		AvailableBytes: vm.AvailableBytes,
		UsedBytes:      vm.UsedBytes,
		FreeBytes:      vm.FreeBytes,
		UsedPercent:    used,
	}, nil
}

// Breakdown собирает отчет из разбивки CPU и памяти, без ожидания
func (s *Sampler) Breakdown(ctx context.Context) (*MetricsReport, error) {
	report := &MetricsReport{Timestamp: s.now()}

	cpuSnap, err := s.SampleBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	memSnap, err := s.SampleMemory(ctx)
	if err != nil {
		return nil, err
	}

	report.CPU = cpuSnap
	report.Memory = memSnap
	return report, nil
}

// Overall собирает отчет с общей загрузкой CPU за окно замера.
// Память читается параллельно с ожиданием CPU.
func (s *Sampler) Overall(ctx context.Context) (*MetricsReport, error) {
	report := &MetricsReport{Timestamp: s.now()}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		busy, err := s.SampleOverall(ctx, s.window)
		if err != nil {
			return err
		}
		report.CPU.OverallBusyPercent = busy
		return nil
	})
	p.Go(func(ctx context.Context) error {
		memSnap, err := s.SampleMemory(ctx)
		if err != nil {
			return err
		}
		report.Memory = memSnap
		return nil
	})

	if err := p.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// HostFacts возвращает сведения о хосте с той же политикой ошибок
func (s *Sampler) HostFacts(ctx context.Context) (*collector.HostFacts, error) {
	facts, err := guard(func() (*collector.HostFacts, error) { return s.provider.HostFacts(ctx) })
	if err != nil {
		return nil, s.fail(ctx, "host_facts", err)
	}
	return facts, nil
}

// fail логирует исходную ошибку и заменяет ее на ErrUnavailable.
// Отмена контекста возвращается как есть.
func (s *Sampler) fail(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.logger.Debug("Sampling abandoned",
			zap.String("operation", op),
			zap.Error(ctxErr))
		return ctxErr
	}

	s.logger.Error("Failed to sample host statistics",
		zap.String("operation", op),
		zap.Error(err))
	return ErrUnavailable
}

// guard вызывает провайдер и превращает панику в ошибку со стеком
func guard[T any](fn func() (T, error)) (v T, err error) {
	var pc panics.Catcher
	pc.Try(func() { v, err = fn() })
	if r := pc.Recovered(); r != nil {
		var zero T
		return zero, r.AsError()
	}
	return v, err
}

// checkPrimed предупреждает один раз о замерах до Initialize
func (s *Sampler) checkPrimed() {
	if s.ready.Load() {
		return
	}
	s.unprimedOnce.Do(func() {
		s.logger.Warn("Sampling CPU before priming, first figures may be inaccurate")
	})
}

// percent отбрасывает нечисловые значения и прижимает остальные к [0, 100]
func percent(name string, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s percentage is not finite: %v", name, v)
	}
	return clamp(v), nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
