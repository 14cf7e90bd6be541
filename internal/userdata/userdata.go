// Package userdata locates a bot's user_data root and derives every
// conventional path the tools read from or write to.
package userdata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigFileName marks the user_data root.
const ConfigFileName = "config.json"

// ErrRootNotFound is returned when no ancestor directory holds config.json.
var ErrRootNotFound = errors.New("could not find user_data root with " + ConfigFileName)

// FindRoot ascends from start until a directory containing config.json is
// found and returns that directory.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		info, err := os.Stat(filepath.Join(dir, ConfigFileName))
		if err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched upward from %s)", ErrRootNotFound, start)
		}
		dir = parent
	}
}

// Layout resolves the fixed directory structure below a user_data root.
type Layout struct {
	Root string
}

// NewLayout returns the Layout rooted at root.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// ConfigPath returns <root>/config.json.
func (l Layout) ConfigPath() string {
	return filepath.Join(l.Root, ConfigFileName)
}

// StrategiesDir returns <root>/strategies.
func (l Layout) StrategiesDir() string {
	return filepath.Join(l.Root, "strategies")
}

// DataDir returns <root>/data.
func (l Layout) DataDir() string {
	return filepath.Join(l.Root, "data")
}

// BacktestResultsDir returns <root>/backtest_results.
func (l Layout) BacktestResultsDir() string {
	return filepath.Join(l.Root, "backtest_results")
}

// CodeDir returns <root>/code, where helper binaries are dropped so the bot
// container can run them.
func (l Layout) CodeDir() string {
	return filepath.Join(l.Root, "code")
}

// ExchangeDataDir returns <root>/data/<exchange>.
func (l Layout) ExchangeDataDir(exchange string) string {
	return filepath.Join(l.DataDir(), exchange)
}

// IndicatorOutputPath returns the CSV path for a strategy's indicator
// columns. It depends only on the data root and the strategy name.
func (l Layout) IndicatorOutputPath(strategy string) string {
	return IndicatorOutputPath(l.DataDir(), strategy)
}

// IndicatorOutputPath returns <dataDir>/indicator_data/indicator_data_<strategy>.csv.
func IndicatorOutputPath(dataDir, strategy string) string {
	return filepath.Join(dataDir, "indicator_data", "indicator_data_"+strategy+".csv")
}

// PairBase spells a pair without separators: "BTC/USDT" -> "BTCUSDT".
func PairBase(pair string) string {
	return strings.NewReplacer("/", "", "_", "").Replace(pair)
}

// PairUnderscore spells a pair with an underscore: "BTC/USDT" -> "BTC_USDT".
func PairUnderscore(pair string) string {
	return strings.ReplaceAll(pair, "/", "_")
}

// TVCSVName returns the chart-ready CSV name the converter produces for a
// pair spelling and timeframe.
func TVCSVName(pairSpelling, timeframe string) string {
	return pairSpelling + "-" + timeframe + "_tv.csv"
}
