package builtins

import (
	"context"
	"fmt"

	"ftviz/internal/frame"
	"ftviz/internal/indicator"
	"ftviz/internal/strategy"
	"ftviz/internal/userdata"
)

// Compile-time interface checks.
var _ strategy.Strategy = (*SMACross)(nil)
var _ strategy.IndicatorPopulator = (*SMACross)(nil)

// SMACrossName is the class name SMACross is registered under.
const SMACrossName = "SMACross"

// SMACross charts a short and a long simple moving average of the close.
// Periods can be tuned from the bot config:
//
//	"sma_cross": {"short": 10, "long": 30}
type SMACross struct {
	shortPeriod int
	longPeriod  int
}

// NewSMACross creates a new SMACross strategy with the specified short and
// long moving average periods.
func NewSMACross(short, long int) (*SMACross, error) {
	if short <= 0 || long <= 0 || short >= long {
		return nil, fmt.Errorf("sma cross periods must satisfy 0 < short < long, got %d/%d", short, long)
	}
	return &SMACross{
		shortPeriod: short,
		longPeriod:  long,
	}, nil
}

func smaCrossFactory() strategy.Factory {
	return strategy.Factory{
		Name: SMACrossName,
		New: func() (strategy.Strategy, error) {
			return newSMACross(10, 30)
		},
		NewWithConfig: func(cfg *userdata.BotConfig) (strategy.Strategy, error) {
			sec, ok := cfg.Section("sma_cross")
			if !ok {
				return newSMACross(10, 30)
			}
			short, err := intParam("sma_cross", sec, "short", 10)
			if err != nil {
				return nil, err
			}
			long, err := intParam("sma_cross", sec, "long", 30)
			if err != nil {
				return nil, err
			}
			return newSMACross(short, long)
		},
	}
}

// newSMACross returns a nil interface on error.
func newSMACross(short, long int) (strategy.Strategy, error) {
	s, err := NewSMACross(short, long)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Name returns "SMACross".
func (s *SMACross) Name() string {
	return SMACrossName
}

// PopulateIndicators adds sma_short and sma_long columns.
func (s *SMACross) PopulateIndicators(_ context.Context, df *frame.Frame, _ strategy.Metadata) (*frame.Frame, error) {
	closes, err := df.Floats("close")
	if err != nil {
		return nil, err
	}
	if err := df.SetFloats("sma_short", indicator.SMA(closes, s.shortPeriod)); err != nil {
		return nil, err
	}
	if err := df.SetFloats("sma_long", indicator.SMA(closes, s.longPeriod)); err != nil {
		return nil, err
	}
	return df, nil
}

// intParam reads an integer from a decoded config section.
func intParam(section string, sec map[string]any, key string, def int) (int, error) {
	v, ok := sec[key]
	if !ok {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) {
		return 0, fmt.Errorf("%s.%s: want an integer, got %v", section, key, v)
	}
	return int(f), nil
}
