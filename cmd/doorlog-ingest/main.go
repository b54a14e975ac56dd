package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/makerden/doorlog/internal/config"
	"github.com/makerden/doorlog/internal/doorlog/service"
	"github.com/makerden/doorlog/internal/doorlog/store/sqlite"
	"github.com/makerden/doorlog/internal/logging"
)

func main() {
	file := flag.String("file", "", "Ingest a single action-log file")
	truncate := flag.Bool("truncate", false, "Remove consumed lines from the file after ingesting (with -file)")
	scan := flag.Bool("scan", false, "Scan the configured action-log directory, truncating consumed lines")
	flag.Parse()

	if err := run(*file, *truncate, *scan); err != nil {
		fmt.Fprintln(os.Stderr, "doorlog-ingest:", err)
		os.Exit(1)
	}
}

func run(file string, truncate, scan bool) error {
	if (file == "" && !scan) || (file != "" && scan) {
		return errors.New("choose exactly one of -file or -scan")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	shards := sqlite.NewShards(cfg.DataDir)
	defer func() {
		if err := shards.Close(); err != nil {
			logger.Error().Err(err).Msg("closing shards")
		}
	}()

	ingestor := service.NewIngestor(shards, cfg.ActionLogDir, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if scan {
		res, err := ingestor.ScanDir(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("inserted %d events from %d files (%d scanned)\n",
			res.Inserted, res.FilesProcessed, res.FilesScanned)
		return nil
	}

	inserted, err := ingestor.IngestFile(ctx, file, truncate)
	if err != nil {
		return err
	}
	fmt.Printf("inserted %d events from %s\n", inserted, file)
	return nil
}
