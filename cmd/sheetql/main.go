// Command sheetql serves natural-language questions over a spreadsheet.
//
// On startup it ingests the configured workbook into SQLite, then answers
// POST /api/ask requests by generating SQL with the configured model,
// sanitizing it, and executing it against the loaded tables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sheetql/sheetql"
	"github.com/sheetql/sheetql/config"
	"github.com/sheetql/sheetql/llm"
	"github.com/sheetql/sheetql/logging"
	"github.com/sheetql/sheetql/metrics"
	"github.com/sheetql/sheetql/metrics/datadog"
)

// startupTimeout bounds the initial catalog build.
const startupTimeout = 2 * time.Minute

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "sheetql error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("sheetql", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return errors.New("missing required flag: --config")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, closeLogger := logging.Setup(cfg.Logging.SeqURL)
	defer closeLogger()

	var backend metrics.Backend = metrics.Nop{}
	if cfg.Metrics.Datadog {
		ddBackend, err := datadog.NewBackend(context.Background(), datadog.Options{
			Service: cfg.Metrics.Service,
			Tags:    cfg.Metrics.Tags,
		})
		if err != nil {
			return fmt.Errorf("metrics backend: %w", err)
		}
		defer func() {
			_ = ddBackend.Close()
		}()
		backend = ddBackend
	}

	client, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.APIKey(),
		Model:    cfg.LLM.Model,
		Timeout:  cfg.Timeouts.LLM,
	})
	if err != nil {
		return err
	}

	db, err := sheetql.OpenDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	engine := sheetql.NewEngine(db, sheetql.FileSource(cfg.Workbook), client,
		sheetql.WithLogger(logger),
		sheetql.WithMetrics(backend),
		sheetql.WithTimeouts(cfg.Timeouts.LLM, cfg.Timeouts.Query),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	catalog, err := engine.Refresh(startCtx)
	if err != nil {
		return fmt.Errorf("initial catalog build: %w", err)
	}
	logger.Info("startup ingest complete",
		"workbook", cfg.Workbook, "tables", len(catalog.Tables), "base_table", catalog.BaseTable)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newServer(engine, logger).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
