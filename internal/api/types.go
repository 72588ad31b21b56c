package api

import (
	"time"

	"observer_core/internal/collector"
)

// HealthResponse ответ liveness-проверки
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse сведения о сервисе и хосте
type StatusResponse struct {
	Service       string     `json:"service"`
	Version       string     `json:"version"`
	Timestamp     time.Time  `json:"timestamp"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	System        SystemInfo `json:"system"`
}

// SystemInfo сведения о платформе
type SystemInfo struct {
	Platform      string                 `json:"platform"`
	Hostname      string                 `json:"hostname"`
	GoVersion     string                 `json:"go_version"`
	CPUCount      int                    `json:"cpu_count"`
	MemoryTotalGB float64                `json:"memory_total_gb"`
	LoadAverage   *collector.LoadAverage `json:"load_average,omitempty"`
}

// ErrorResponse тело ответа 500 с фиксированным текстом
type ErrorResponse struct {
	Detail string `json:"detail"`
}
