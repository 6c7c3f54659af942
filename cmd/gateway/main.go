package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/svcgw/gateway/internal/config"
	"github.com/svcgw/gateway/internal/gateway"
	"github.com/svcgw/gateway/internal/logging"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/gateway.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	validateOnly := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Service Gateway %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *validateOnly {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	logger, err := logging.NewWithOptions(logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	logging.Info("starting service gateway",
		zap.String("version", version),
		zap.String("config", *configPath),
		zap.Int("upstreams", len(cfg.Upstreams)),
		zap.Int("routes", len(cfg.Routes)),
	)

	server, err := gateway.NewServer(cfg, logger)
	if err != nil {
		logging.Error("failed to create gateway", zap.Error(err))
		os.Exit(1)
	}

	watcher, err := config.NewWatcher(*configPath)
	if err != nil {
		logging.Error("failed to watch configuration", zap.Error(err))
		os.Exit(1)
	}
	watcher.OnChange(func(next *config.Config) {
		if err := server.ApplyConfig(context.Background(), next); err != nil {
			logging.Error("failed to apply reloaded configuration", zap.Error(err))
		}
	})
	if err := watcher.Start(); err != nil {
		logging.Error("failed to start config watcher", zap.Error(err))
		os.Exit(1)
	}
	defer watcher.Stop()

	if err := server.Run(context.Background()); err != nil {
		logging.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}
