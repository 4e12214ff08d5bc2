package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casewatch/pkg/collector"
	"casewatch/pkg/config"
	"casewatch/pkg/dispatcher"
	"casewatch/pkg/logger"
	"casewatch/pkg/metrics"
	"casewatch/pkg/notifier"
	"casewatch/pkg/scheduler"
	"casewatch/pkg/server"
	"casewatch/pkg/store"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app := cfg.GetAppConfig()
	if err := logger.InitLogger(app.Environment == "development", app.LogPath, app.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting casewatch",
		zap.String("environment", app.Environment),
		zap.Int("sources", len(cfg.Sources)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sc := cfg.GetSchedulerConfig()

	keys := make([]string, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		keys = append(keys, src.Key)
	}
	minSpacing := time.Duration(sc.IntervalMinutes[config.LevelCritical]) * time.Minute
	metricsStore := metrics.NewStore(keys, sc.WindowHours, minSpacing)

	manager, err := scheduler.NewManager(cfg, metricsStore)
	if err != nil {
		logger.Fatal("Failed to create schedule manager", zap.Error(err))
	}

	persistence, err := store.Open(cfg.GetDatabaseConfig())
	if err != nil {
		logger.Fatal("Failed to open persistence", zap.Error(err))
	}
	if persistence != nil {
		restoreState(persistence, metricsStore, manager, sc.WindowHours)
		metricsStore.SetRecordHook(func(sample metrics.Sample) {
			if err := persistence.SaveSample(sample); err != nil {
				logger.Warn("Failed to persist sample", zap.Error(err))
			}
		})
	}

	registry := collector.NewRegistry()
	registry.SetFallback(collector.NewHTTPCollector())

	disp := dispatcher.NewDispatcher(cfg, manager, metricsStore, registry)
	if persistence != nil {
		disp.SetRunSink(persistence)
	}

	alerts := notifier.NewTelegramNotifier(cfg.GetNotifierConfig())
	if err := alerts.ValidateConfig(); err != nil {
		logger.Fatal("Invalid notifier configuration", zap.Error(err))
	}
	disp.SetAlerter(alerts)

	runner, err := dispatcher.NewRunner(ctx, cfg, manager, disp, metricsStore)
	if err != nil {
		logger.Fatal("Failed to create scheduling loop", zap.Error(err))
	}
	if persistence != nil {
		runner.SetSink(persistence)
	}

	httpServer := server.NewHTTPServer(cfg, manager, metricsStore, disp)

	errCh := make(chan error, 2)
	go func() {
		if err := runner.Start(); err != nil {
			errCh <- err
		}
	}()
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("Component failed, shutting down", zap.Error(err))
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}

// restoreState reloads persisted samples and schedule entries so a
// restart does not lose the adaptive history
func restoreState(persistence *store.Store, metricsStore *metrics.Store, manager *scheduler.Manager, windowHours int) {
	samples, err := persistence.LoadSamples(windowHours)
	if err != nil {
		logger.Warn("Failed to load persisted samples", zap.Error(err))
	} else if n := metricsStore.Restore(samples); n > 0 {
		logger.Info("Restored metrics samples", zap.Int("count", n))
	}

	entries, err := persistence.LoadSchedules()
	if err != nil {
		logger.Warn("Failed to load persisted schedules", zap.Error(err))
	} else if n := manager.RestoreEntries(entries); n > 0 {
		logger.Info("Restored schedule entries", zap.Int("count", n))
	}
}
