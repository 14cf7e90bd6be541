// Package orchestrator composes the container runtime, the converters and
// the indicator extractor into the backtest and visualization workflows
// behind the interactive menu.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"ftviz/internal/config"
	"ftviz/internal/convert"
	"ftviz/internal/docker"
	"ftviz/internal/extract"
	"ftviz/internal/store"
	"ftviz/internal/strategy"
	"ftviz/internal/tui"
	"ftviz/internal/userdata"
)

// DefaultBacktestTimeframe is used when a bot's config.json sets none.
const DefaultBacktestTimeframe = "1h"

// ExtractorName is the extractor binary's file name inside a bot's
// user_data/code directory.
const ExtractorName = "ftextract"

// Container is the container runtime surface the workflows need.
type Container interface {
	EnsureRunning(ctx context.Context, bot userdata.Bot) (string, error)
	Exec(ctx context.Context, container string, args ...string) error
}

// Converter runs the batch converters over a project.
type Converter interface {
	ToCSV(ctx context.Context, project string) (convert.Report, error)
	Unzip(ctx context.Context, project string) (convert.Report, error)
}

// Extractor runs the indicator extractor in-process.
type Extractor interface {
	Run(ctx context.Context, opts extract.Options) (*extract.Result, error)
}

var (
	_ Container = (*docker.Client)(nil)
	_ Converter = (*convert.Converter)(nil)
	_ Extractor = (*extract.Extractor)(nil)
)

// Options wires an Orchestrator.
type Options struct {
	Project   string
	Container Container
	Converter Converter
	Extractor Extractor

	// Runs records every step; nil disables recording.
	Runs store.RunStore

	// ExtractMode is config.ExtractDocker or config.ExtractLocal.
	ExtractMode string
	// ExtractBinary is the extractor copied into the bot. Empty means the
	// ftextract binary next to the running executable.
	ExtractBinary string

	Out io.Writer
	Log *slog.Logger
}

// Orchestrator runs the workflows for the bots of one project.
type Orchestrator struct {
	project       string
	container     Container
	converter     Converter
	extractor     Extractor
	runs          store.RunStore
	extractMode   string
	extractBinary string
	out           io.Writer
	log           *slog.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		project:       opts.Project,
		container:     opts.Container,
		converter:     opts.Converter,
		extractor:     opts.Extractor,
		runs:          opts.Runs,
		extractMode:   opts.ExtractMode,
		extractBinary: opts.ExtractBinary,
		out:           opts.Out,
		log:           opts.Log,
	}
	if o.project == "" {
		o.project = "."
	}
	if o.extractMode == "" {
		o.extractMode = config.ExtractDocker
	}
	if o.out == nil {
		o.out = os.Stdout
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	return o
}

// Bots lists the project's bots.
func (o *Orchestrator) Bots() ([]userdata.Bot, error) {
	return userdata.FindBots(o.project)
}

// Strategies lists the strategy classes declared in the bot's sources.
func (o *Orchestrator) Strategies(bot userdata.Bot) ([]string, error) {
	dir := bot.UserData().StrategiesDir()
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("strategies directory not found: %s", dir)
	}
	return strategy.ListClasses(dir)
}

// LoadConfig reads the bot's config.json, empty when absent.
func (o *Orchestrator) LoadConfig(bot userdata.Bot) (*userdata.BotConfig, error) {
	path := bot.UserData().ConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		o.log.Warn("config not found", "path", path)
	}
	return userdata.LoadBotConfigOrEmpty(path)
}

// RunBacktest runs one trades-exporting backtest inside the bot container.
func (o *Orchestrator) RunBacktest(ctx context.Context, bot userdata.Bot, strat, timerange string) error {
	o.printf("%s\n", tui.Header("Running Backtest: "+strat))

	cfg, err := o.LoadConfig(bot)
	if err != nil {
		return err
	}
	container, err := o.ensureContainer(ctx, bot, strat)
	if err != nil {
		return err
	}

	args := docker.BacktestArgs(strat, cfg.TimeframeOr(DefaultBacktestTimeframe), timerange)
	err = o.step(ctx, bot, strat, "backtest", func() error {
		return o.container.Exec(ctx, container, args...)
	})
	if err != nil {
		o.printf("%s\n", tui.Failure("Backtest failed"))
		return err
	}
	o.printf("%s\n", tui.Success("Backtest completed"))
	return nil
}

// PrepareVisualization converts the price tables, extracts the backtest
// archives, and produces the strategy's indicator CSV. The first failing
// step aborts the rest.
func (o *Orchestrator) PrepareVisualization(ctx context.Context, bot userdata.Bot, strat string) error {
	o.printf("%s\n", tui.Header("Preparing Visualization Files"))

	local := o.extractMode == config.ExtractLocal
	var container string
	if !local {
		var err error
		if container, err = o.ensureContainer(ctx, bot, strat); err != nil {
			return err
		}
	}

	const total = 4
	o.printf("\n%s\n", tui.Step(1, total, "Converting feather files to CSV..."))
	err := o.step(ctx, bot, strat, "convert", func() error {
		r, err := o.converter.ToCSV(ctx, o.project)
		if err == nil {
			o.printf("%s\n", tui.Success(fmt.Sprintf("Feather files converted (%d converted, %d skipped)", r.Converted, r.Skipped)))
		}
		return err
	})
	if err != nil {
		return err
	}

	o.printf("\n%s\n", tui.Step(2, total, "Unzipping backtest results..."))
	err = o.step(ctx, bot, strat, "unzip", func() error {
		r, err := o.converter.Unzip(ctx, o.project)
		if err == nil {
			o.printf("%s\n", tui.Success(fmt.Sprintf("Backtest results unzipped (%d archives)", r.Extracted)))
		}
		return err
	})
	if err != nil {
		return err
	}

	if local {
		o.printf("\n%s\n", tui.Step(3, total, "Local extraction, no copy needed"))
		o.printf("\n%s\n", tui.Step(4, total, "Extracting indicators for "+strat+"..."))
		err = o.step(ctx, bot, strat, "extract", func() error {
			res, err := o.extractor.Run(ctx, extract.Options{Strategy: strat, UserDir: bot.UserData().Root})
			if err == nil {
				o.printf("Output: %s\n", res.OutputPath)
			}
			return err
		})
	} else {
		o.printf("\n%s\n", tui.Step(3, total, "Ensuring "+ExtractorName+" is in the container..."))
		err = o.step(ctx, bot, strat, "copy-extractor", func() error {
			dst, err := o.copyExtractor(bot)
			if err == nil {
				o.printf("%s\n", tui.Success("Copied "+ExtractorName+" to "+dst))
			}
			return err
		})
		if err != nil {
			return err
		}

		o.printf("\n%s\n", tui.Step(4, total, "Extracting indicators for "+strat+"..."))
		err = o.step(ctx, bot, strat, "extract", func() error {
			return o.container.Exec(ctx, container, "user_data/code/"+ExtractorName, "--strategy", strat)
		})
	}
	if err != nil {
		o.printf("%s\n", tui.Failure("Indicator extraction failed"))
		return err
	}
	o.printf("%s\n", tui.Success("Indicators extracted"))

	summary, err := o.Summary(ctx, bot, strat)
	if err != nil {
		return err
	}
	o.printf("%s", summary.Render())
	return nil
}

func (o *Orchestrator) ensureContainer(ctx context.Context, bot userdata.Bot, strat string) (string, error) {
	o.printf("%s\n", tui.Header("Checking Docker Container"))
	var name string
	err := o.step(ctx, bot, strat, "container", func() error {
		var err error
		name, err = o.container.EnsureRunning(ctx, bot)
		return err
	})
	return name, err
}

// step runs fn and records it in the run history.
func (o *Orchestrator) step(ctx context.Context, bot userdata.Bot, strat, name string, fn func() error) error {
	var id int64
	if o.runs != nil {
		var err error
		if id, err = o.runs.StartRun(ctx, bot.Name, strat, name); err != nil {
			o.log.Warn("could not record step", "step", name, "error", err)
		}
	}

	runErr := fn()

	if o.runs != nil && id != 0 {
		// Record the outcome even when ctx was cancelled mid-step.
		if err := o.runs.FinishRun(context.WithoutCancel(ctx), id, runErr); err != nil {
			o.log.Warn("could not record step result", "step", name, "error", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("%s: %w", name, runErr)
	}
	return nil
}

// extractorSource returns the extractor binary to copy into bots.
func (o *Orchestrator) extractorSource() (string, error) {
	if o.extractBinary != "" {
		return o.extractBinary, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exe), ExtractorName), nil
}

func (o *Orchestrator) copyExtractor(bot userdata.Bot) (string, error) {
	src, err := o.extractorSource()
	if err != nil {
		return "", err
	}
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("%s not found at %s: %w", ExtractorName, src, err)
	}
	defer in.Close()

	codeDir := bot.UserData().CodeDir()
	if err := os.MkdirAll(codeDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(codeDir, ExtractorName)
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	// O_CREATE keeps the mode of an existing file.
	return dst, os.Chmod(dst, 0o755)
}

func (o *Orchestrator) printf(format string, args ...any) {
	fmt.Fprintf(o.out, format, args...)
}
