package exposition

// Gauge представляет одно значение в формате Prometheus
type Gauge struct {
	Name  string
	Help  string
	Value float64
}

// GaugeDescriptor описывает метрику, которую отдает сервис
type GaugeDescriptor struct {
	Name string
	Help string
}

// Имена метрик сервиса
const (
	CPUPercentName    = "observer_core_cpu_percent"
	MemoryPercentName = "observer_core_memory_percent"
)

// Descriptors возвращает список всех метрик в порядке вывода
func Descriptors() []GaugeDescriptor {
	return []GaugeDescriptor{
		{
			Name: CPUPercentName,
			Help: "CPU usage percentage",
		},
		{
			Name: MemoryPercentName,
			Help: "Memory usage percentage",
		},
	}
}
