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
	"ftviz/internal/util"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	root := flag.String("root", cfg.Project.Root, "project directory holding bots/")
	workers := flag.Int("workers", cfg.Convert.MaxWorkers, "bots converted in parallel")
	flag.Parse()

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := convert.New(logger, *workers).ToCSV(ctx, *root)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Converted %d file(s), skipped %d\n", report.Converted, report.Skipped)
}
