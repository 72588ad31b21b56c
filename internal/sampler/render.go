package sampler

import (
	"io"
	"math"

	"observer_core/pkg/exposition"
)

const bytesPerGB = 1024 * 1024 * 1024

// RenderJSON переводит отчет в форму ответа /metrics-json. Все поля заполнены.
func RenderJSON(report *MetricsReport) MetricsJSON {
	return MetricsJSON{
		Timestamp: report.Timestamp.UTC(),
		CPU: CPUJSON{
			UserPercent:    report.CPU.UserPercent,
			SystemPercent:  report.CPU.SystemPercent,
			IdlePercent:    report.CPU.IdlePercent,
			NicePercent:    report.CPU.NicePercent,
			IowaitPercent:  report.CPU.IowaitPercent,
			IrqPercent:     report.CPU.IrqPercent,
			SoftirqPercent: report.CPU.SoftirqPercent,
		},
		Memory: MemoryJSON{
			TotalGB:     BytesToGB(report.Memory.TotalBytes),
			AvailableGB: BytesToGB(report.Memory.AvailableBytes),
			UsedGB:      BytesToGB(report.Memory.UsedBytes),
			FreeGB:      BytesToGB(report.Memory.FreeBytes),
			Percent:     report.Memory.UsedPercent,
		},
	}
}

// RenderPrometheus возвращает gauge-метрики: только общая загрузка CPU и
// процент занятой памяти
func RenderPrometheus(report *MetricsReport) []exposition.Gauge {
	values := map[string]float64{
		exposition.CPUPercentName:    report.CPU.OverallBusyPercent,
		exposition.MemoryPercentName: report.Memory.UsedPercent,
	}

	descriptors := exposition.Descriptors()
	gauges := make([]exposition.Gauge, 0, len(descriptors))
	for _, d := range descriptors {
		gauges = append(gauges, exposition.Gauge{
			Name:  d.Name,
			Help:  d.Help,
			Value: values[d.Name],
		})
	}
	return gauges
}

// WritePrometheus пишет отчет в текстовом формате Prometheus
func WritePrometheus(w io.Writer, report *MetricsReport) error {
	return exposition.Write(w, RenderPrometheus(report))
}

// BytesToGB переводит байты в гигабайты с округлением до двух знаков
func BytesToGB(b uint64) float64 {
	return math.Round(float64(b)/bytesPerGB*100) / 100
}
