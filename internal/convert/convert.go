// Package convert runs the batch jobs that prepare every bot's files for the
// chart page: columnar price tables to CSV, and backtest archives to
// directories.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"ftviz/internal/frame"
	"ftviz/internal/store"
	"ftviz/internal/userdata"
)

// TVSuffix is appended to a converted table's stem.
const TVSuffix = "_tv.csv"

// OHLCVColumns is the column order of converted tables.
var OHLCVColumns = []string{"time", "open", "high", "low", "close", "volume"}

// errSkip marks a file that was left unconverted with a warning.
var errSkip = errors.New("skipped")

// Report counts the outcome of a batch run.
type Report struct {
	Converted int
	Extracted int
	Skipped   int
}

func (r *Report) add(o Report) {
	r.Converted += o.Converted
	r.Extracted += o.Extracted
	r.Skipped += o.Skipped
}

// Converter runs the batch jobs over every bot of a project.
type Converter struct {
	log        *slog.Logger
	maxWorkers int
}

// New creates a Converter processing up to maxWorkers bots at once. Values
// below one mean one bot at a time.
func New(log *slog.Logger, maxWorkers int) *Converter {
	if log == nil {
		log = slog.Default()
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Converter{log: log, maxWorkers: maxWorkers}
}

// ToCSV converts every feather table (and every parquet table without a
// feather sibling) below each bot's user_data/data into <stem>_tv.csv.
func (c *Converter) ToCSV(ctx context.Context, project string) (Report, error) {
	c.log.Debug("converting tables", "project", project)
	return c.eachBot(ctx, project, func(ctx context.Context, bot userdata.Bot) (Report, error) {
		dir := bot.UserData().DataDir()
		if !isDir(dir) {
			return Report{}, nil
		}
		c.log.Debug("processing data dir", "dir", dir)
		return c.convertDir(ctx, dir)
	})
}

// Unzip extracts every zip archive directly inside each bot's
// user_data/backtest_results into a sibling directory named after it.
func (c *Converter) Unzip(ctx context.Context, project string) (Report, error) {
	c.log.Debug("extracting archives", "project", project)
	return c.eachBot(ctx, project, func(ctx context.Context, bot userdata.Bot) (Report, error) {
		dir := bot.UserData().BacktestResultsDir()
		if !isDir(dir) {
			return Report{}, nil
		}
		c.log.Debug("checking for zip files", "dir", dir)
		return c.unzipDir(ctx, dir)
	})
}

func (c *Converter) eachBot(ctx context.Context, project string, fn func(context.Context, userdata.Bot) (Report, error)) (Report, error) {
	bots, err := userdata.FindBots(project)
	if err != nil {
		return Report{}, err
	}

	reports := make([]Report, len(bots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxWorkers)
	for i, bot := range bots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, bot)
			if err != nil {
				return fmt.Errorf("bot %s: %w", bot.Name, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	var total Report
	for _, r := range reports {
		total.add(r)
	}
	return total, nil
}

func (c *Converter) convertDir(ctx context.Context, dir string) (Report, error) {
	var report Report
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !convertible(path) {
			return nil
		}

		dst, err := ConvertFile(path)
		switch {
		case errors.Is(err, errSkip):
			c.log.Warn("skipping table", "path", path, "reason", err)
			report.Skipped++
		case err != nil:
			return err
		default:
			c.log.Info("converted", "src", path, "dst", dst)
			report.Converted++
		}
		return nil
	})
	return report, err
}

// convertible reports whether path is a feather table, or a parquet table
// with no feather sibling.
func convertible(path string) bool {
	format, ok := store.FormatOf(path)
	if !ok {
		return false
	}
	switch format {
	case store.FormatFeather:
		return true
	case store.FormatParquet:
		return !fileExists(strings.TrimSuffix(path, filepath.Ext(path)) + ".feather")
	default:
		return false
	}
}

// TVPath returns the CSV path a table at src converts to.
func TVPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + TVSuffix
}

// ConvertFile writes src as a time,open,high,low,close,volume CSV next to it
// and returns the CSV path. A date column always wins over an existing time
// column.
func ConvertFile(src string) (string, error) {
	df, err := store.ReadTable(src)
	if err != nil {
		return "", err
	}
	if err := df.LowerColumns(); err != nil {
		return "", err
	}

	switch {
	case df.Has("date"):
		ts, err := df.DateToUnix()
		if err != nil {
			return "", fmt.Errorf("%s: %w", src, err)
		}
		if err := df.Set(ts); err != nil {
			return "", err
		}
	case !df.Has("time"):
		return "", fmt.Errorf("%w: no 'date' or 'time' column", errSkip)
	default:
		if err := df.EnsureTime(); err != nil {
			return "", fmt.Errorf("%s: %w", src, err)
		}
	}

	out, err := df.Select(OHLCVColumns...)
	if errors.Is(err, frame.ErrColumnMissing) {
		return "", fmt.Errorf("%w: %v", errSkip, err)
	}
	if err != nil {
		return "", err
	}

	dst := TVPath(src)
	if err := frame.WriteCSVFile(dst, out); err != nil {
		return "", err
	}
	return dst, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
