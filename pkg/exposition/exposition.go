// Package exposition пишет метрики в текстовом формате Prometheus.
package exposition

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// ContentType заголовок ответа для текстового формата
const ContentType = "text/plain; charset=utf-8"

// Write записывает gauge-метрики: строки HELP, TYPE и значение для каждой.
// Метрики регистрируются в отдельном реестре, глобальный реестр не трогается.
// При ошибке в w ничего не пишется.
func Write(w io.Writer, gauges []Gauge) error {
	reg := prometheus.NewRegistry()
	for _, g := range gauges {
		if math.IsNaN(g.Value) || math.IsInf(g.Value, 0) {
			return fmt.Errorf("metric %s has non-finite value", g.Name)
		}

		value := g.Value
		gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: g.Name,
			Help: g.Help,
		}, func() float64 { return value })
		if err := reg.Register(gauge); err != nil {
			return fmt.Errorf("invalid metric %q: %w", g.Name, err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}

	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write exposition: %w", err)
	}
	return nil
}
