package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// Collector читает счетчики хоста через gopsutil
type Collector struct {
	logger *zap.Logger

	// times возвращает суммарные счетчики времени CPU; подменяется в тестах
	times func(ctx context.Context) (cpu.TimesStat, error)

	mu            sync.Mutex
	lastTimes     *cpu.TimesStat
	lastBreakdown *CPUBreakdown
}

// New создает новый экземпляр сборщика
func New(logger *zap.Logger) *Collector {
	return &Collector{
		logger: logger,
		times:  aggregateTimes,
	}
}

// CPUBreakdown возвращает проценты времени CPU по категориям с момента
// предыдущего вызова. Не блокирует.
func (c *Collector) CPUBreakdown(ctx context.Context) (*CPUBreakdown, error) {
	current, err := c.times(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get CPU times: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Без базового замера считаем от момента загрузки
	var previous cpu.TimesStat
	if c.lastTimes != nil {
		previous = *c.lastTimes
	}

	breakdown, ok := breakdownFromDelta(previous, current)
	if !ok {
		// Счетчики не обновились между вызовами
		c.logger.Debug("CPU counters unchanged since previous read")
		if c.lastBreakdown != nil {
			result := *c.lastBreakdown
			return &result, nil
		}
		breakdown, _ = breakdownFromDelta(cpu.TimesStat{}, current)
	}

	c.lastTimes = &current
	c.lastBreakdown = &breakdown

	result := breakdown
	return &result, nil
}

// CPUPercent возвращает общую загрузку CPU за интервал.
// Нулевой интервал сравнивает с предыдущим вызовом без ожидания.
func (c *Collector) CPUPercent(ctx context.Context, interval time.Duration) (float64, error) {
	percentages, err := cpu.PercentWithContext(ctx, interval, false)
	if err != nil {
		return 0, fmt.Errorf("failed to get CPU percentage: %w", err)
	}
	if len(percentages) == 0 {
		return 0, fmt.Errorf("failed to get CPU percentage: empty result")
	}

	return percentages[0], nil
}

// VirtualMemory собирает показатели памяти
func (c *Collector) VirtualMemory(ctx context.Context) (*MemoryStat, error) {
	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get memory statistics: %w", err)
	}

	return &MemoryStat{
		TotalBytes:     vmStat.Total,
		AvailableBytes: vmStat.Available,
		UsedBytes:      vmStat.Used,
		FreeBytes:      vmStat.Free,
		UsedPercent:    vmStat.UsedPercent,
	}, nil
}

// HostFacts собирает сведения о платформе хоста
func (c *Collector) HostFacts(ctx context.Context) (*HostFacts, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get host info: %w", err)
	}

	count, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get CPU count: %w", err)
	}

	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get memory statistics: %w", err)
	}

	facts := &HostFacts{
		Platform:         info.OS,
		Hostname:         info.Hostname,
		CPULogicalCount:  count,
		MemoryTotalBytes: vmStat.Total,
	}

	// Load average не критично, продолжаем без него
	loadAvg, err := load.AvgWithContext(ctx)
	if err != nil {
		c.logger.Warn("Failed to get load average", zap.Error(err))
	} else if loadAvg != nil {
		facts.Load = &LoadAverage{
			Load1:  loadAvg.Load1,
			Load5:  loadAvg.Load5,
			Load15: loadAvg.Load15,
		}
	}

	return facts, nil
}

// aggregateTimes читает суммарные по всем ядрам счетчики
func aggregateTimes(ctx context.Context) (cpu.TimesStat, error) {
	stats, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return cpu.TimesStat{}, err
	}
	if len(stats) == 0 {
		return cpu.TimesStat{}, fmt.Errorf("no CPU times reported")
	}
	return stats[0], nil
}

// breakdownFromDelta считает проценты по разнице двух замеров.
// Возвращает false, если счетчики не изменились.
func breakdownFromDelta(prev, cur cpu.TimesStat) (CPUBreakdown, bool) {
	user := delta(prev.User, cur.User)
	system := delta(prev.System, cur.System)
	idle := delta(prev.Idle, cur.Idle)
	nice := delta(prev.Nice, cur.Nice)
	iowait := delta(prev.Iowait, cur.Iowait)
	irq := delta(prev.Irq, cur.Irq)
	softirq := delta(prev.Softirq, cur.Softirq)
	steal := delta(prev.Steal, cur.Steal)

	// Guest уже учтен в User на Linux
	total := user + system + idle + nice + iowait + irq + softirq + steal
	if total <= 0 {
		return CPUBreakdown{}, false
	}

	percent := func(v float64) float64 {
		p := v / total * 100
		if p > 100 {
			return 100
		}
		return p
	}

	return CPUBreakdown{
		User:    percent(user),
		System:  percent(system),
		Idle:    percent(idle),
		Nice:    percent(nice),
		Iowait:  percent(iowait),
		Irq:     percent(irq),
		Softirq: percent(softirq),
	}, true
}

// delta не дает счетчику уйти в минус после переполнения
func delta(prev, cur float64) float64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}
