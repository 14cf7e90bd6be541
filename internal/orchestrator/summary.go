package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ftviz/internal/store"
	"ftviz/internal/tui"
	"ftviz/internal/userdata"
)

// summaryRuns is how many recorded steps the summary lists.
const summaryRuns = 5

// Summary tells the operator where the visualization inputs live.
type Summary struct {
	Exchange  string
	Pair      string
	Timeframe string

	// OHLCVFiles are the chart CSVs for both pair spellings.
	OHLCVFiles   []string
	IndicatorCSV string
	// BacktestJSON is the newest backtest result document, empty when none.
	BacktestJSON string

	Runs []store.Run
}

// Summary gathers the output locations for a bot and strategy.
func (o *Orchestrator) Summary(ctx context.Context, bot userdata.Bot, strat string) (Summary, error) {
	cfg, err := o.LoadConfig(bot)
	if err != nil {
		return Summary{}, err
	}

	layout := bot.UserData()
	s := Summary{
		Exchange:     cfg.Exchange.Name,
		Timeframe:    cfg.TimeframeOr(DefaultBacktestTimeframe),
		IndicatorCSV: o.rel(layout.IndicatorOutputPath(strat)),
	}
	if pair, ok := cfg.FirstPair(); ok && s.Exchange != "" {
		s.Pair = pair
		dir := layout.ExchangeDataDir(s.Exchange)
		for _, sp := range []string{userdata.PairBase(pair), userdata.PairUnderscore(pair)} {
			s.OHLCVFiles = append(s.OHLCVFiles, o.rel(filepath.Join(dir, userdata.TVCSVName(sp, s.Timeframe))))
		}
	}

	newest, err := NewestBacktestJSON(layout.BacktestResultsDir())
	if err != nil {
		o.log.Debug("no backtest results", "dir", layout.BacktestResultsDir(), "error", err)
	}
	if newest != "" {
		s.BacktestJSON = o.rel(newest)
	}

	if o.runs != nil {
		runs, err := o.runs.ListRuns(ctx, bot.Name, summaryRuns)
		if err != nil {
			o.log.Warn("could not read run history", "bot", bot.Name, "error", err)
		}
		s.Runs = runs
	}
	return s, nil
}

// Render formats the summary for the terminal.
func (s Summary) Render() string {
	var b strings.Builder
	b.WriteString(tui.Header("Files Ready for Visualization"))
	b.WriteString("\n\n")

	ohlcv := s.OHLCVFiles
	if len(ohlcv) == 0 {
		ohlcv = []string{"(no exchange or pair configured)"}
	}
	b.WriteString(tui.Entry("OHLCV CSV:", ohlcv...))
	b.WriteString("\n")
	b.WriteString(tui.Entry("Indicator CSV:", s.IndicatorCSV))
	b.WriteString("\n")
	if s.BacktestJSON != "" {
		b.WriteString(tui.Entry("Backtest JSON (newest):", s.BacktestJSON))
	} else {
		b.WriteString(tui.Entry("Backtest JSON:", "(no backtest results found)"))
	}
	b.WriteString("\n")

	if len(s.Runs) > 0 {
		lines := make([]string, len(s.Runs))
		for i, r := range s.Runs {
			line := fmt.Sprintf("%s  %-14s %-7s %s", r.StartedAt.Local().Format(time.DateTime), r.Step, r.Status, r.Strategy)
			if r.Detail != "" {
				line += "  " + r.Detail
			}
			lines[i] = line
		}
		b.WriteString(tui.Entry("Recent steps:", lines...))
		b.WriteString("\n")
	}
	return b.String()
}

// NewestBacktestJSON returns the most recently modified .json file anywhere
// below dir, skipping ".meta.json" sidecars and the ".last_result.json"
// pointer.
func NewestBacktestJSON(dir string) (string, error) {
	var (
		newest  string
		newestT time.Time
	)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() || filepath.Ext(name) != ".json" ||
			strings.HasSuffix(name, ".meta.json") || strings.HasPrefix(name, ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if newest == "" || info.ModTime().After(newestT) {
			newest, newestT = path, info.ModTime()
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return newest, nil
}

// rel shortens path relative to the project root when possible.
func (o *Orchestrator) rel(path string) string {
	if r, err := filepath.Rel(o.project, path); err == nil && !strings.HasPrefix(r, "..") {
		return r
	}
	return path
}
