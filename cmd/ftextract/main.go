package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"ftviz/internal/extract"
	"ftviz/internal/strategy/builtins"
	"ftviz/internal/util"
)

// stringFlag registers one value under a short and a long name.
func stringFlag(p *string, short, long, usage string) {
	flag.StringVar(p, long, "", usage)
	if short != "" {
		flag.StringVar(p, short, "", usage+" (shorthand)")
	}
}

func main() {
	var opts extract.Options
	stringFlag(&opts.Strategy, "s", "strategy", "strategy class name (required)")
	stringFlag(&opts.Timeframe, "i", "timeframe", "timeframe, e.g. 5m (default: config.json, then "+extract.DefaultTimeframe+")")
	stringFlag(&opts.Pair, "p", "pair", "pair, e.g. BTC/USDT (default: first pair_whitelist entry)")
	stringFlag(&opts.Timerange, "", "timerange", "inclusive YYYYMMDD-YYYYMMDD range; either side may be empty")
	stringFlag(&opts.ConfigPath, "c", "config", "config.json path (default: <user_data>/config.json)")
	stringFlag(&opts.StrategyPath, "", "strategy-path", "strategy source directory (default: <user_data>/strategies)")
	stringFlag(&opts.UserDir, "", "userdir", "directory to start the user_data search from (default: this binary's directory)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ftextract --strategy <name> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Writes a strategy's indicator columns to <user_data>/data/indicator_data/.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if strings.TrimSpace(opts.Strategy) == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := util.NewLogger(*logLevel, "text")
	util.SetDefault(logger)

	if opts.UserDir == "" {
		exe, err := os.Executable()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		opts.UserDir = filepath.Dir(exe)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := extract.New(builtins.NewRegistry(), logger).Run(ctx, opts)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Strategy:   %s\n", opts.Strategy)
	fmt.Printf("Pair:       %s (%s)\n", res.Pair, res.Timeframe)
	fmt.Printf("Source:     %s\n", res.Source)
	fmt.Printf("Rows:       %d\n", res.Rows)
	fmt.Printf("Indicators: %s\n", strings.Join(res.Indicators, ", "))
	fmt.Printf("Saved to:   %s\n", res.OutputPath)
}
