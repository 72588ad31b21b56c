package collector

// CPUBreakdown содержит процент времени CPU по категориям
type CPUBreakdown struct {
	User    float64 `json:"user"`
	System  float64 `json:"system"`
	Idle    float64 `json:"idle"`
	Nice    float64 `json:"nice"`
	Iowait  float64 `json:"iowait"`
	Irq     float64 `json:"irq"`
	Softirq float64 `json:"softirq"`
}

// MemoryStat содержит показатели виртуальной памяти
type MemoryStat struct {
	TotalBytes     uint64  `json:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	FreeBytes      uint64  `json:"free_bytes"`
	UsedPercent    float64 `json:"used_percent"`
}

// LoadAverage средняя загрузка системы
type LoadAverage struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// HostFacts статические сведения о хосте
type HostFacts struct {
	Platform         string       `json:"platform"`
	Hostname         string       `json:"hostname"`
	CPULogicalCount  int          `json:"cpu_logical_count"`
	MemoryTotalBytes uint64       `json:"memory_total_bytes"`
	Load             *LoadAverage `json:"load,omitempty"`
}
