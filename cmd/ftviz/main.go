package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ftviz/internal/config"
	"ftviz/internal/convert"
	"ftviz/internal/docker"
	"ftviz/internal/extract"
	"ftviz/internal/orchestrator"
	"ftviz/internal/store"
	"ftviz/internal/strategy/builtins"
	"ftviz/internal/tui"
	"ftviz/internal/util"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfgPath := flag.String("config", config.PathFromEnv(), "path to the ftviz YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	runs, err := store.NewSQLiteStore(cfg.History.SQLitePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open run history: %v\n", err)
		os.Exit(1)
	}
	defer runs.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner := docker.NewExecRunner()
	o := orchestrator.New(orchestrator.Options{
		Project:       cfg.Project.Root,
		Container:     docker.New(cfg.Docker.Binary, runner, cfg.Docker.StartTimeout, logger),
		Converter:     convert.New(logger, cfg.Convert.MaxWorkers),
		Extractor:     extract.New(builtins.NewRegistry(), logger),
		Runs:          runs,
		ExtractMode:   cfg.Extract.Mode,
		ExtractBinary: cfg.Extract.Binary,
		Out:           os.Stdout,
		Log:           logger,
	})

	fmt.Println(tui.Header("Freqtrade Backtest & Visualization"))

	err = o.Interactive(ctx, tui.Options{})
	switch {
	case err == nil:
	case ctx.Err() != nil:
		fmt.Println("\nInterrupted by user")
	case orchestrator.IsCancelled(err):
		fmt.Println("Cancelled")
	default:
		fmt.Println(tui.Failure(err.Error()))
		runs.Close()
		os.Exit(1)
	}
}
