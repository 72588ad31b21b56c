package profiler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime"
	rpprof "runtime/pprof"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config представляет конфигурацию профилировщика
type Config struct {
	Enable      bool   // включить профилирование
	HTTPPort    int    // порт для pprof, 0 отключает HTTP
	CPUProfile  string // путь к файлу CPU профиля
	MemProfile  string // путь к файлу профиля памяти
	ProfileTime int    // время записи CPU профиля в секундах
}

// Profiler отдает pprof на отдельном порту и пишет профили в файлы.
// Основной HTTP-сервис pprof не публикует.
type Profiler struct {
	config Config
	logger *zap.Logger

	httpServer *http.Server
	listener   net.Listener

	mu       sync.Mutex
	cpuFile  *os.File
	cpuTimer *time.Timer
}

// New создает новый профилировщик
func New(config Config, logger *zap.Logger) *Profiler {
	return &Profiler{
		config: config,
		logger: logger,
	}
}

// Start запускает профилирование. ctx становится базовым контекстом запросов
// pprof: его отмена прерывает длинные /debug/pprof/profile и trace.
func (p *Profiler) Start(ctx context.Context) error {
	if !p.config.Enable {
		p.logger.Debug("Profiling disabled")
		return nil
	}

	if p.config.HTTPPort > 0 {
		if err := p.startHTTPServer(ctx); err != nil {
			return fmt.Errorf("failed to start pprof HTTP server: %w", err)
		}
	}

	if p.config.CPUProfile != "" {
		if err := p.startCPUProfile(); err != nil {
			return fmt.Errorf("failed to start CPU profiling: %w", err)
		}
	}

	return nil
}

// Stop останавливает профилирование и сохраняет профиль памяти
func (p *Profiler) Stop() error {
	if !p.config.Enable {
		return nil
	}

	var errs []error

	if err := p.stopCPUProfile(); err != nil {
		errs = append(errs, err)
	}

	if p.config.MemProfile != "" {
		if err := p.writeMemProfile(); err != nil {
			errs = append(errs, err)
		}
	}

	if p.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown pprof server: %w", err))
		}
	}

	p.logRuntimeStats()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("profiler shutdown errors: %w", err)
	}
	return nil
}

// Addr возвращает адрес pprof сервера
func (p *Profiler) Addr() string {
	if p.listener == nil {
		return ""
	}
	return p.listener.Addr().String()
}

// startHTTPServer поднимает pprof на localhost
func (p *Profiler) startHTTPServer(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(p.config.HTTPPort)))
	if err != nil {
		return err
	}
	p.listener = ln
	p.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := p.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("pprof HTTP server error", zap.Error(err))
		}
	}()

	p.logger.Info("pprof endpoints enabled", zap.String("addr", ln.Addr().String()))
	return nil
}

// startCPUProfile пишет CPU профиль в файл, останавливается по таймеру
func (p *Profiler) startCPUProfile() error {
	file, err := os.Create(p.config.CPUProfile)
	if err != nil {
		return fmt.Errorf("failed to create CPU profile file: %w", err)
	}

	if err := rpprof.StartCPUProfile(file); err != nil {
		file.Close()
		return err
	}

	p.mu.Lock()
	p.cpuFile = file
	if p.config.ProfileTime > 0 {
		p.cpuTimer = time.AfterFunc(time.Duration(p.config.ProfileTime)*time.Second, func() {
			if err := p.stopCPUProfile(); err != nil {
				p.logger.Error("Failed to stop CPU profiling", zap.Error(err))
			}
		})
	}
	p.mu.Unlock()

	p.logger.Info("Started CPU profiling",
		zap.String("file", p.config.CPUProfile),
		zap.Int("seconds", p.config.ProfileTime))
	return nil
}

// stopCPUProfile останавливает CPU профилирование, повторный вызов безопасен
func (p *Profiler) stopCPUProfile() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cpuTimer != nil {
		p.cpuTimer.Stop()
		p.cpuTimer = nil
	}
	if p.cpuFile == nil {
		return nil
	}

	rpprof.StopCPUProfile()
	err := p.cpuFile.Close()
	p.cpuFile = nil
	if err != nil {
		return fmt.Errorf("failed to close CPU profile file: %w", err)
	}

	p.logger.Info("Stopped CPU profiling", zap.String("file", p.config.CPUProfile))
	return nil
}

// writeMemProfile записывает профиль памяти в файл
func (p *Profiler) writeMemProfile() error {
	file, err := os.Create(p.config.MemProfile)
	if err != nil {
		return fmt.Errorf("failed to create memory profile file: %w", err)
	}
	defer file.Close()

	// GC перед снимком, чтобы профиль отражал живые объекты
	runtime.GC()

	if err := rpprof.WriteHeapProfile(file); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}

	p.logger.Info("Written memory profile", zap.String("file", p.config.MemProfile))
	return nil
}

// logRuntimeStats логирует статистику памяти процесса
func (p *Profiler) logRuntimeStats() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	p.logger.Info("Runtime statistics",
		zap.Uint64("alloc_mb", m.Alloc/1024/1024),
		zap.Uint64("total_alloc_mb", m.TotalAlloc/1024/1024),
		zap.Uint64("sys_mb", m.Sys/1024/1024),
		zap.Uint32("num_gc", m.NumGC),
		zap.Int("goroutines", runtime.NumGoroutine()))
}
