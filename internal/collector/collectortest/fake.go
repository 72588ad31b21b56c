// Package collectortest содержит подменный источник показателей для тестов.
package collectortest

import (
	"context"
	"sync"
	"time"

	"observer_core/internal/collector"
)

// Provider отдает заранее заданные показатели и считает вызовы
type Provider struct {
	mu sync.Mutex

	Breakdown collector.CPUBreakdown
	Busy      float64
	Memory    collector.MemoryStat
	Facts     collector.HostFacts

	BreakdownErr error
	PercentErr   error
	MemoryErr    error
	FactsErr     error

	// Wait включает реальное ожидание интервала в CPUPercent
	Wait bool

	PercentCalls   []time.Duration
	BreakdownCalls int
}

// New возвращает провайдер с правдоподобными значениями
func New() *Provider {
	return &Provider{
		Breakdown: collector.CPUBreakdown{
			User: 12.5, System: 4.5, Idle: 80, Nice: 0.5,
			Iowait: 1.5, Irq: 0.5, Softirq: 0.5,
		},
		Busy: 18.25,
		Memory: collector.MemoryStat{
			TotalBytes:     16 * 1024 * 1024 * 1024,
			AvailableBytes: 10 * 1024 * 1024 * 1024,
			UsedBytes:      5 * 1024 * 1024 * 1024,
			FreeBytes:      3 * 1024 * 1024 * 1024,
			UsedPercent:    37.5,
		},
		Facts: collector.HostFacts{
			Platform:         "linux",
			Hostname:         "node-1",
			CPULogicalCount:  8,
			MemoryTotalBytes: 16 * 1024 * 1024 * 1024,
			Load:             &collector.LoadAverage{Load1: 0.5, Load5: 0.4, Load15: 0.3},
		},
	}
}

func (p *Provider) CPUBreakdown(ctx context.Context) (*collector.CPUBreakdown, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.BreakdownCalls++
	if p.BreakdownErr != nil {
		return nil, p.BreakdownErr
	}
	b := p.Breakdown
	return &b, nil
}

func (p *Provider) CPUPercent(ctx context.Context, interval time.Duration) (float64, error) {
	p.mu.Lock()
	p.PercentCalls = append(p.PercentCalls, interval)
	wait, busy, err := p.Wait, p.Busy, p.PercentErr
	p.mu.Unlock()

	if wait && interval > 0 {
		timer := time.NewTimer(interval)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	if err != nil {
		return 0, err
	}
	return busy, nil
}

func (p *Provider) VirtualMemory(ctx context.Context) (*collector.MemoryStat, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.MemoryErr != nil {
		return nil, p.MemoryErr
	}
	m := p.Memory
	return &m, nil
}

func (p *Provider) HostFacts(ctx context.Context) (*collector.HostFacts, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FactsErr != nil {
		return nil, p.FactsErr
	}
	f := p.Facts
	return &f, nil
}

// Calls возвращает копию интервалов, с которыми вызывался CPUPercent
func (p *Provider) Calls() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]time.Duration(nil), p.PercentCalls...)
}
