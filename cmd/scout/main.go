package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scholarscout-hq/scholarscout/internal/app"
	"github.com/scholarscout-hq/scholarscout/internal/config"
	"github.com/scholarscout-hq/scholarscout/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "scout start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("scout starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scout, err := app.NewScout(ctx, cfg, logger.Default())
	if err != nil {
		logger.ErrorObj("failed to initialize scout", "error", err.Error())
		return err
	}

	if err := scout.Run(ctx); err != nil {
		return fmt.Errorf("scout run: %w", err)
	}

	return nil
}
