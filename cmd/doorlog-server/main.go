package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/makerden/doorlog/internal/config"
	"github.com/makerden/doorlog/internal/doorlog/service"
	"github.com/makerden/doorlog/internal/doorlog/store/sqlite"
	"github.com/makerden/doorlog/internal/httpapi"
	"github.com/makerden/doorlog/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "doorlog-server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogFile != "" {
		logOut = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
		}
	}
	logger, err := logging.New(cfg.LogLevel, logOut)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// Stores
	shards := sqlite.NewShards(cfg.DataDir)
	defer func() {
		if err := shards.Close(); err != nil {
			logger.Error().Err(err).Msg("closing shards")
		}
	}()

	// Services
	ingestor := service.NewIngestor(shards, cfg.ActionLogDir, logger)
	query := service.NewQueryService(sqlite.NewFederator(shards), cfg.ScanWindow, logger)
	gate := service.NewReloadGate(cfg.ReloadInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DevSeed {
		res, err := service.SeedDev(ctx, ingestor, service.SeedDevOptions{})
		if err != nil {
			return fmt.Errorf("dev seed: %w", err)
		}
		logger.Info().
			Int("inserted", res.Inserted).
			Int("files_processed", res.FilesProcessed).
			Msg("dev seed loaded")
	}

	sweeper := service.NewRetentionSweeper(ingestor, service.SweeperConfig{
		RetentionDays: cfg.RetentionDays,
		Interval:      cfg.RetentionSweepInterval,
	}, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:   logger,
		Addr:     cfg.HTTPAddr,
		Query:    query,
		Ingestor: ingestor,
		Gate:     gate,
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	return nil
}
