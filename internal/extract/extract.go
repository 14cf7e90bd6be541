// Package extract replays a strategy's indicator computation over stored
// OHLCV data and writes the indicator columns as a CSV the chart page loads.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ftviz/internal/frame"
	"ftviz/internal/store"
	"ftviz/internal/strategy"
	"ftviz/internal/userdata"
	"ftviz/internal/util"
)

// DefaultTimeframe is used when neither the flag nor config.json sets one.
const DefaultTimeframe = "5m"

// BaseColumns are the OHLCV table columns that are never indicators.
var BaseColumns = []string{"time", "date", "open", "high", "low", "close", "volume"}

var (
	ErrConfigMissing = errors.New("exchange name not found in config.json")
	ErrPairMissing   = errors.New("no pair provided and no pair_whitelist in config; use --pair or add pair_whitelist")
	ErrStrategyLoad  = errors.New("could not load strategy")
	ErrMethodMissing = errors.New("strategy does not implement PopulateIndicators")
)

// Options are the extractor inputs. Empty fields fall back to config.json or
// the conventional layout.
type Options struct {
	Strategy     string
	Timeframe    string
	Pair         string
	Timerange    string
	ConfigPath   string
	StrategyPath string

	// UserDir is where the upward search for the user_data root starts.
	UserDir string
}

// Result describes a completed extraction.
type Result struct {
	Root       string
	Source     string
	Pair       string
	Timeframe  string
	Rows       int
	Indicators []string
	OutputPath string
}

// Extractor runs strategies from a registry against stored OHLCV data.
type Extractor struct {
	registry *strategy.Registry
	log      *slog.Logger
}

// New creates an Extractor resolving strategy names through registry.
func New(registry *strategy.Registry, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{registry: registry, log: log}
}

// Run executes the full extraction and returns where the output went. Any
// error leaves the output file untouched.
func (e *Extractor) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Strategy == "" {
		return nil, errors.New("strategy name is required")
	}

	root, err := userdata.FindRoot(opts.UserDir)
	if err != nil {
		return nil, err
	}
	layout := userdata.NewLayout(root)
	e.log.Debug("detected user_data root", "root", root)

	strategyDir := opts.StrategyPath
	if strategyDir == "" {
		strategyDir = layout.StrategiesDir()
	}
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = layout.ConfigPath()
	}
	e.log.Debug("resolved paths",
		"strategies", strategyDir,
		"data", layout.DataDir(),
		"config", configPath,
	)

	cfg, err := userdata.LoadBotConfigOrEmpty(configPath)
	if err != nil {
		return nil, err
	}

	timeframe := opts.Timeframe
	if timeframe == "" {
		timeframe = cfg.TimeframeOr(DefaultTimeframe)
	}
	pair := opts.Pair
	if pair == "" {
		first, ok := cfg.FirstPair()
		if !ok {
			return nil, ErrPairMissing
		}
		pair = first
	}
	timerange := opts.Timerange
	if timerange == "" {
		timerange = cfg.Timerange
	}
	e.log.Debug("resolved inputs", "timeframe", timeframe, "pair", pair, "timerange", timerange)

	file, err := strategy.FindFile(opts.Strategy, strategyDir, true)
	if err != nil {
		return nil, err
	}
	e.log.Debug("found strategy file", "file", file)

	factory, ok := e.registry.Get(opts.Strategy)
	if !ok {
		return nil, fmt.Errorf("%w: %s from %s: no registered implementation (registered: %s)",
			ErrStrategyLoad, opts.Strategy, file, strings.Join(e.registry.List(), ", "))
	}

	exchange := cfg.Exchange.Name
	if exchange == "" {
		return nil, ErrConfigMissing
	}

	candidates := store.Candidates(layout.ExchangeDataDir(exchange), pair, timeframe)
	for _, c := range candidates {
		e.log.Debug("OHLCV candidate", "path", c.Path)
	}
	source, err := store.FirstExisting(candidates)
	if err != nil {
		return nil, err
	}
	e.log.Debug("using OHLCV file", "path", source.Path, "format", source.Format)

	df, err := store.ReadTable(source.Path)
	if err != nil {
		return nil, err
	}
	if err := df.LowerColumns(); err != nil {
		return nil, err
	}
	if err := df.EnsureTime(); err != nil {
		return nil, err
	}

	if timerange != "" {
		tr, err := util.ParseTimerange(timerange)
		if err != nil {
			return nil, err
		}
		if df, err = filterTimerange(df, tr); err != nil {
			return nil, err
		}
		e.log.Debug("applied timerange", "timerange", tr.String(), "rows", df.Len())
	}

	strat, err := strategy.Instantiate(factory, cfg, e.log)
	if err != nil {
		return nil, err
	}
	populator, ok := strat.(strategy.IndicatorPopulator)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodMissing, opts.Strategy)
	}

	e.log.Debug("running PopulateIndicators")
	out, err := populator.PopulateIndicators(ctx, df.Copy(), strategy.Metadata{})
	if err != nil {
		return nil, fmt.Errorf("populating indicators for %s: %w", opts.Strategy, err)
	}
	if out == nil {
		return nil, fmt.Errorf("populating indicators for %s: no table returned", opts.Strategy)
	}

	indicators := IndicatorColumns(out)
	e.log.Debug("indicator columns", "columns", indicators)
	if !out.Has("time") {
		return nil, fmt.Errorf("%w: time (dropped by %s)", frame.ErrColumnMissing, opts.Strategy)
	}

	table, err := out.Select(append([]string{"time"}, indicators...)...)
	if err != nil {
		return nil, err
	}
	output := layout.IndicatorOutputPath(opts.Strategy)
	if err := frame.WriteCSVFile(output, table); err != nil {
		return nil, fmt.Errorf("writing %s: %w", output, err)
	}

	return &Result{
		Root:       root,
		Source:     source.Path,
		Pair:       pair,
		Timeframe:  timeframe,
		Rows:       table.Len(),
		Indicators: indicators,
		OutputPath: output,
	}, nil
}

// IndicatorColumns returns the columns of f that are not BaseColumns, in
// table order.
func IndicatorColumns(f *frame.Frame) []string {
	var cols []string
	for _, name := range f.Columns() {
		if !isBaseColumn(name) {
			cols = append(cols, name)
		}
	}
	return cols
}

func isBaseColumn(name string) bool {
	for _, b := range BaseColumns {
		if name == b {
			return true
		}
	}
	return false
}

func filterTimerange(df *frame.Frame, tr util.Timerange) (*frame.Frame, error) {
	ts, ok := df.Series("time")
	if !ok {
		return nil, fmt.Errorf("%w: time", frame.ErrColumnMissing)
	}
	keep := make([]bool, df.Len())
	for i := range keep {
		keep[i] = tr.Contains(ts.Int(i))
	}
	return df.Filter(keep)
}
