package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"dmcchain/config"
	"dmcchain/core/events"
	"dmcchain/core/state"
	"dmcchain/core/types"
	"dmcchain/gateway"
	"dmcchain/native/dmc"
	"dmcchain/observability/logging"
	"dmcchain/storage"
)

func main() {
	configFile := "./config.toml"
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		slog.Error("failed to load config", "path", configFile, "err", err)
		os.Exit(1)
	}
	logger := logging.Setup("dmcd", cfg.Environment)

	if err := run(cfg, logger); err != nil {
		logger.Error("daemon exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	admin, err := cfg.Admin()
	if err != nil {
		return err
	}
	recovery, err := cfg.Recovery()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return err
	}
	defer db.Close()

	manager := state.NewManager(cfg.PriceWindowSeconds)
	if err := manager.Load(db); err != nil {
		return err
	}
	for key, value := range cfg.Params {
		manager.ParamSet(key, value)
	}

	queue := events.NewQueue()
	engine := dmc.NewEngine(admin, recovery)
	engine.SetState(manager)
	engine.SetEmitter(queue)

	tokens := make(map[string]types.Address, len(cfg.AuthTokens))
	for token, rawAddr := range cfg.AuthTokens {
		addr, err := types.ParseAddress(rawAddr)
		if err != nil {
			return err
		}
		tokens[token] = addr
	}

	server := gateway.NewServer(engine, manager, queue, db, tokens, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", cfg.ListenAddress)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	if err := manager.Flush(db); err != nil {
		return err
	}
	return nil
}
