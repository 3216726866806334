package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/expense-wizard/internal/config"
	"github.com/garyjia/expense-wizard/internal/container"
	"github.com/garyjia/expense-wizard/internal/interfaces/http"
	"github.com/garyjia/expense-wizard/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file (empty for defaults and environment only)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Expense Wizard",
		zap.String("version", http.Version),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("storage", cfg.Storage.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	health := c.Health()
	logger.Info("Components ready", zap.Bool("overall", health.Overall), zap.Any("components", health.Components))

	runErr := c.Run(ctx)
	if runErr != nil {
		logger.Error("Server stopped with error", zap.Error(runErr))
	} else {
		logger.Info("Shutting down server...")
	}

	if err := c.Close(); err != nil {
		logger.Error("Shutdown finished with errors", zap.Error(err))
		os.Exit(1)
	}
	if runErr != nil {
		os.Exit(1)
	}
	logger.Info("Server exited")
}
