// Package main is the alarmstreams entry point: it loads the
// application configuration, connects the event bus, and runs one alarm
// executor per configured rule document until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/alarmstreams/config"
	"github.com/c360/alarmstreams/eventbus"
	"github.com/c360/alarmstreams/metric"
	"github.com/c360/alarmstreams/natsclient"
	"github.com/c360/alarmstreams/pkg/retry"
	"github.com/c360/alarmstreams/processor/alarm"
	"github.com/c360/alarmstreams/query/exprengine"
)

const (
	Version = "0.1.0"
	appName = "alarmstreams"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\n%s\n", r, buf[:n])
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "alarmstreams.yaml", "path to the application configuration")
	validateOnly := flag.Bool("validate", false, "validate configuration and rule documents, then exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if *validateOnly {
		return validateRules(cfg, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metric.NewMetricsRegistry()

	client, err := natsclient.NewClient(cfg.NATS.URL,
		natsclient.WithName(cfg.NATS.Name),
		natsclient.WithLogger(logger),
		natsclient.WithTimeout(cfg.NATS.ConnectTimeout),
		natsclient.WithDrainTimeout(cfg.NATS.DrainTimeout),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithMetrics(registry),
	)
	if err != nil {
		return err
	}
	if err := retry.Do(ctx, retry.Persistent(), func() error {
		return client.Connect(ctx)
	}); err != nil {
		return err
	}
	defer func() { _ = client.Close(context.Background()) }()

	bus := eventbus.NewNATSBus(client, registry)
	defer func() { _ = bus.Close(context.Background()) }()

	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Port, "", registry)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() { _ = metricsServer.Stop() }()
	}

	provider := alarm.Provider{
		Bus:     bus,
		Engine:  exprengine.New(),
		Metrics: registry,
	}

	hosts := make([]*ruleHost, 0, len(cfg.RuleFiles))
	defer func() {
		for _, h := range hosts {
			h.stop(cfg.StopTimeout)
		}
	}()

	for _, path := range cfg.RuleFiles {
		h, err := newRuleHost(ctx, bus, provider, path, logger)
		if err != nil {
			return err
		}
		if err := h.start(ctx); err != nil {
			h.cancel()
			return err
		}
		hosts = append(hosts, h)
		logger.Info("alarm rule running", "rule_file", path)
	}

	logger.Info("alarmstreams started", "rules", len(hosts))

	// SIGHUP reloads every rule document in place.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-hup:
			logger.Info("reloading rule documents")
			for _, h := range hosts {
				h.reload()
			}
		}
	}
}

// validateRules checks every configured rule document without starting
// anything.
func validateRules(cfg *config.Config, logger *slog.Logger) error {
	var failed bool
	for _, path := range cfg.RuleFiles {
		raw, err := os.ReadFile(path)
		if err == nil {
			err = alarm.Validate(raw)
		}
		if err != nil {
			failed = true
			logger.Error("rule document invalid", "rule_file", path, "error", err)
			continue
		}
		logger.Info("rule document valid", "rule_file", path)
	}
	if failed {
		return fmt.Errorf("configuration contains invalid rule documents")
	}
	logger.Info("configuration is valid")
	return nil
}
