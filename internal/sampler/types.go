package sampler

import "time"

// CPUSnapshot содержит загрузку процессора в процентах [0, 100]
type CPUSnapshot struct {
	UserPercent    float64
	SystemPercent  float64
	IdlePercent    float64
	NicePercent    float64
	IowaitPercent  float64
	IrqPercent     float64
	SoftirqPercent float64

	// OverallBusyPercent общая загрузка за окно замера. Заполняется только
	// в Overall, разбивка по категориям оставляет ноль.
	OverallBusyPercent float64
}

// MemorySnapshot содержит состояние виртуальной памяти.
// Сумма байт может не совпадать с TotalBytes из-за кешей и буферов.
type MemorySnapshot struct {
	TotalBytes     uint64
	AvailableBytes uint64
	UsedBytes      uint64
	FreeBytes      uint64
	UsedPercent    float64
}

// MetricsReport один согласованный замер, создается на каждый запрос
type MetricsReport struct {
	Timestamp time.Time
	CPU       CPUSnapshot
	Memory    MemorySnapshot
}

// MetricsJSON представление отчета для /metrics-json
type MetricsJSON struct {
	Timestamp time.Time  `json:"timestamp"`
	CPU       CPUJSON    `json:"cpu"`
	Memory    MemoryJSON `json:"memory"`
}

// CPUJSON разбивка загрузки CPU
type CPUJSON struct {
	UserPercent    float64 `json:"user_percent"`
	SystemPercent  float64 `json:"system_percent"`
	IdlePercent    float64 `json:"idle_percent"`
	NicePercent    float64 `json:"nice_percent"`
	IowaitPercent  float64 `json:"iowait_percent"`
	IrqPercent     float64 `json:"irq_percent"`
	SoftirqPercent float64 `json:"softirq_percent"`
}

// MemoryJSON память в гигабайтах
type MemoryJSON struct {
	TotalGB     float64 `json:"total_gb"`
	AvailableGB float64 `json:"available_gb"`
	UsedGB      float64 `json:"used_gb"`
	FreeGB      float64 `json:"free_gb"`
	Percent     float64 `json:"percent"`
}
