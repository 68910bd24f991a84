package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tasktrackd/internal/api"
	"tasktrackd/internal/config"
	"tasktrackd/internal/core"
	"tasktrackd/internal/logging"
	tasktrackmcp "tasktrackd/internal/mcp"
	"tasktrackd/internal/store"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	storeInst, err := store.Open(ctx, cfg.StateDir)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer storeInst.Close()

	location := time.Local

	tracker, err := core.NewTracker(ctx, storeInst, logger, location, cfg.CacheSize)
	if err != nil {
		logger.Error("create tracker", "err", err)
		os.Exit(1)
	}

	switch cfg.Mode {
	case "http":
		runHTTPMode(cfg, tracker, storeInst, logger, location)
	case "mcp":
		runMCPMode(tracker, logger, location)
	case "both":
		runBothMode(cfg, tracker, storeInst, logger, location)
	}
}

// runHTTPMode starts only the HTTP server.
func runHTTPMode(cfg *config.Config, tracker *core.Tracker, storeInst *store.Store, logger *slog.Logger, location *time.Location) {
	server := api.NewServer(cfg.Addr, cfg.AuthToken, tracker, storeInst, logger, location)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("received signal", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "err", err)
	}
}

// runMCPMode starts only the MCP server on stdio.
func runMCPMode(tracker *core.Tracker, logger *slog.Logger, location *time.Location) {
	mcpServer := tasktrackmcp.NewMCPServer(tracker, logger, location)

	if err := mcpServer.Run(); err != nil {
		logger.Error("mcp server error", "err", err)
		os.Exit(1)
	}
}

// runBothMode starts the HTTP and MCP servers together.
func runBothMode(cfg *config.Config, tracker *core.Tracker, storeInst *store.Store, logger *slog.Logger, location *time.Location) {
	mcpServer := tasktrackmcp.NewMCPServer(tracker, logger, location)
	mcpErr := make(chan error, 1)
	go func() {
		if err := mcpServer.Run(); err != nil {
			mcpErr <- err
		}
	}()

	server := api.NewServer(cfg.Addr, cfg.AuthToken, tracker, storeInst, logger, location)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("received signal", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "err", err)
	case err := <-mcpErr:
		logger.Error("mcp server error", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "err", err)
	}
	logger.Info("shutdown complete")
}
