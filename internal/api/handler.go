package api

import (
	"bytes"
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"observer_core/internal/collector"
	"observer_core/internal/identity"
	"observer_core/internal/sampler"
	"observer_core/pkg/exposition"
)

const (
	healthyStatus = "healthy"

	metricsUnavailable  = "Unable to fetch metrics at this time"
	statusUnavailable   = "Unable to fetch system status at this time"
	internalErrorDetail = "Internal server error"
)

// MetricsSampler то, что обработчикам нужно от сэмплера
type MetricsSampler interface {
	Breakdown(ctx context.Context) (*sampler.MetricsReport, error)
	Overall(ctx context.Context) (*sampler.MetricsReport, error)
	HostFacts(ctx context.Context) (*collector.HostFacts, error)
}

// Handler обработчики HTTP-запросов сервиса
type Handler struct {
	logger   *zap.Logger
	sampler  MetricsSampler
	identity identity.ServiceIdentity
	now      func() time.Time
}

// NewHandler создает обработчики
func NewHandler(logger *zap.Logger, s MetricsSampler, id identity.ServiceIdentity) *Handler {
	return &Handler{
		logger:   logger,
		sampler:  s,
		identity: id,
		now:      time.Now,
	}
}

// Health liveness-проверка, показатели хоста не читает
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    healthyStatus,
		Service:   h.identity.Name,
		Timestamp: h.now().UTC(),
	})
}

// Status сведения о сервисе, хосте и времени работы
// GET /status
func (h *Handler) Status(c echo.Context) error {
	facts, err := h.sampler.HostFacts(c.Request().Context())
	if err != nil {
		return h.internalError(c, statusUnavailable, err)
	}

	now := h.now()
	return c.JSON(http.StatusOK, StatusResponse{
		Service:       h.identity.Name,
		Version:       h.identity.Version,
		Timestamp:     now.UTC(),
		UptimeSeconds: h.identity.Uptime(now),
		System: SystemInfo{
			Platform:      facts.Platform,
			Hostname:      facts.Hostname,
			GoVersion:     runtime.Version(),
			CPUCount:      facts.CPULogicalCount,
			MemoryTotalGB: sampler.BytesToGB(facts.MemoryTotalBytes),
			LoadAverage:   facts.Load,
		},
	})
}

// MetricsJSON загрузка CPU по категориям и память, без ожидания
// GET /metrics-json
func (h *Handler) MetricsJSON(c echo.Context) error {
	report, err := h.sampler.Breakdown(c.Request().Context())
	if err != nil {
		return h.internalError(c, metricsUnavailable, err)
	}

	return c.JSON(http.StatusOK, sampler.RenderJSON(report))
}

// Metrics общая загрузка CPU и память в формате Prometheus
// GET /metrics
func (h *Handler) Metrics(c echo.Context) error {
	report, err := h.sampler.Overall(c.Request().Context())
	if err != nil {
		return h.internalError(c, metricsUnavailable, err)
	}

	var buf bytes.Buffer
	if err := sampler.WritePrometheus(&buf, report); err != nil {
		return h.internalError(c, metricsUnavailable, err)
	}

	return c.Blob(http.StatusOK, exposition.ContentType, buf.Bytes())
}

// internalError отвечает 500 с фиксированным текстом; ошибка идет только в лог
func (h *Handler) internalError(c echo.Context, detail string, err error) error {
	h.logger.Error("Request failed",
		zap.String("path", c.Path()),
		zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		zap.Error(err))

	return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: detail})
}
