package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"observer_core/internal/collector"
	"observer_core/internal/config"
	"observer_core/internal/identity"
	"observer_core/internal/logger"
	"observer_core/internal/server"
	"observer_core/pkg/profiler"
)

const serviceName = "observer-core"

// version задается при сборке через -ldflags "-X main.version=..."
var version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "HTTP service reporting host health, identity and CPU/memory metrics",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	config.AddFlags(cmd)
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	// Время старта фиксируется до любой инициализации
	id := identity.New(serviceName, version, time.Now())

	cfg := config.NewConfig()
	if err := cfg.Load(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return err
	}

	log, err := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return err
	}
	defer logger.Sync(log)

	log.Info("Starting "+serviceName,
		zap.String("version", version),
		zap.String("listen", cfg.ListenAddr),
		zap.String("log_level", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prof := profiler.New(profiler.Config{
		Enable:      cfg.ProfileEnable,
		HTTPPort:    cfg.ProfileHTTPPort,
		CPUProfile:  cfg.ProfileCPUFile,
		MemProfile:  cfg.ProfileMemFile,
		ProfileTime: cfg.ProfileTime,
	}, log)
	if err := prof.Start(ctx); err != nil {
		log.Error("Failed to start profiler", zap.Error(err))
		return err
	}
	defer func() {
		if err := prof.Stop(); err != nil {
			log.Warn("Profiler stopped with errors", zap.Error(err))
		}
	}()

	srv := server.New(cfg, collector.New(log), id, log)
	if err := srv.Start(ctx); err != nil {
		log.Error("Failed to start server", zap.Error(err))
		return err
	}

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case <-srv.Done():
		log.Warn("Server exited unexpectedly")
	}

	if err := srv.Stop(); err != nil {
		log.Error("Failed to stop server", zap.Error(err))
		return err
	}
	return nil
}
