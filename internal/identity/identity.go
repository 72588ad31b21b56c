package identity

import "time"

// ServiceIdentity описывает запущенный процесс сервиса.
// Создается один раз при старте и дальше только читается.
type ServiceIdentity struct {
	Name      string
	Version   string
	StartTime time.Time
}

// New создает идентификатор сервиса
func New(name, version string, startTime time.Time) ServiceIdentity {
	return ServiceIdentity{
		Name:      name,
		Version:   version,
		StartTime: startTime,
	}
}

// Uptime возвращает время работы в целых секундах, не меньше нуля
func (s ServiceIdentity) Uptime(now time.Time) int64 {
	elapsed := now.Sub(s.StartTime)
	if elapsed < 0 {
		return 0
	}
	return int64(elapsed / time.Second)
}
