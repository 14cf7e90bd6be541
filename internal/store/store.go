// Package store reads OHLCV tables from the formats the backtest engine
// writes (feather, parquet, CSV), discovers which file to read for a pair,
// and persists the orchestrator's run history.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ftviz/internal/frame"
	"ftviz/internal/userdata"
)

// ErrDataFileNotFound is returned when none of the candidate OHLCV files
// exists.
var ErrDataFileNotFound = errors.New("OHLCV file not found")

// Format identifies an on-disk table encoding.
type Format string

const (
	FormatFeather Format = "feather"
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
)

// FormatOf returns the table format implied by path's extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".feather":
		return FormatFeather, true
	case ".parquet":
		return FormatParquet, true
	case ".csv":
		return FormatCSV, true
	default:
		return "", false
	}
}

// ReadTable loads the table at path using the reader for its format.
func ReadTable(path string) (*frame.Frame, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, fmt.Errorf("unsupported table format: %s", path)
	}
	switch format {
	case FormatFeather:
		return ReadFeather(path)
	case FormatParquet:
		return ReadParquet(path)
	default:
		return frame.ReadCSVFile(path)
	}
}

// Candidate is one possible location of a pair's OHLCV file.
type Candidate struct {
	Path   string
	Format Format
}

// Candidates returns the OHLCV lookup order for a pair and timeframe inside
// an exchange data directory. Binary formats come before CSV and the
// separator-free pair spelling before the underscore spelling:
//
//	BTCUSDT-5m.feather, BTC_USDT-5m.feather,
//	BTCUSDT-5m.parquet, BTC_USDT-5m.parquet,
//	BTCUSDT-5m.csv,     BTC_USDT-5m.csv
func Candidates(dir, pair, timeframe string) []Candidate {
	spellings := []string{userdata.PairBase(pair), userdata.PairUnderscore(pair)}
	formats := []Format{FormatFeather, FormatParquet, FormatCSV}

	out := make([]Candidate, 0, len(spellings)*len(formats))
	for _, format := range formats {
		for _, sp := range spellings {
			out = append(out, Candidate{
				Path:   filepath.Join(dir, sp+"-"+timeframe+"."+string(format)),
				Format: format,
			})
		}
	}
	return out
}

// FirstExisting returns the first candidate present on disk.
func FirstExisting(candidates []Candidate) (Candidate, error) {
	for _, c := range candidates {
		if info, err := os.Stat(c.Path); err == nil && !info.IsDir() {
			return c, nil
		}
	}

	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.Path
	}
	return Candidate{}, fmt.Errorf("%w; looked in: %s", ErrDataFileNotFound, strings.Join(paths, ", "))
}

// RunStore persists the orchestrator's step history.
type RunStore interface {
	// StartRun records the start of a step and returns its ID.
	StartRun(ctx context.Context, bot, strategy, step string) (int64, error)

	// FinishRun marks a step finished; a non-nil runErr marks it failed.
	FinishRun(ctx context.Context, id int64, runErr error) error

	// ListRuns returns the most recent runs for a bot, newest first, up to limit.
	ListRuns(ctx context.Context, bot string, limit int) ([]Run, error)
}
