package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/fleetpulse/fleetpulse/monitor/internal/config"
	"github.com/fleetpulse/fleetpulse/monitor/internal/driver"
	"github.com/fleetpulse/fleetpulse/monitor/internal/reporter"
	"github.com/fleetpulse/fleetpulse/monitor/internal/source"
)

func main() {
	configPath := flag.String("config", "config/monitor.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("fleetpulse-monitor starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"server", cfg.Server.Endpoint,
		"sensors", len(cfg.Sensors),
		"poll_interval", cfg.PollInterval,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Thresholds are shared read-only across watchers; hot reload swaps the
	// snapshot atomically between cycles.
	var thresholds atomic.Pointer[config.Thresholds]
	th := cfg.Thresholds
	thresholds.Store(&th)

	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			t := updated.Thresholds
			thresholds.Store(&t)
			slog.Info("thresholds hot-reloaded",
				"critical_value", t.CriticalValue,
				"contamination", t.Contamination,
			)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	rep := reporter.New(cfg.Server, cfg.ReportBufferSize)
	go rep.Run(ctx)

	// One independent watcher task per sensor.
	var wg sync.WaitGroup
	for _, sc := range cfg.Sensors {
		src, err := source.New(sc, cfg.Server)
		if err != nil {
			slog.Error("skipping sensor, could not build source", "sensor", sc.ID, "err", err)
			continue
		}
		w := driver.NewWatcher(sc.ID, src, rep,
			func() config.Thresholds { return *thresholds.Load() },
			cfg.PollInterval)

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			w.Run(ctx)
		}(sc.ID)
		slog.Info("watching sensor", "sensor", sc.ID, "source", orDefault(sc.Source.Type))
	}

	<-ctx.Done()
	wg.Wait()
	slog.Info("fleetpulse-monitor shutting down")
}

func orDefault(sourceType string) string {
	if sourceType == "" {
		return "api"
	}
	return sourceType
}
