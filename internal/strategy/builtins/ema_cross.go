package builtins

import (
	"context"
	"fmt"

	"ftviz/internal/frame"
	"ftviz/internal/indicator"
	"ftviz/internal/strategy"
	"ftviz/internal/userdata"
)

var _ strategy.IndicatorPopulator = (*EMACross)(nil)

// EMACrossName is the class name EMACross is registered under.
const EMACrossName = "EMACross"

// EMACross charts a fast and a slow exponential moving average of the
// close, tunable from the bot config:
//
//	"ema_cross": {"fast": 12, "slow": 26}
type EMACross struct {
	fast int
	slow int
}

// NewEMACross requires 0 < fast < slow.
func NewEMACross(fast, slow int) (*EMACross, error) {
	if fast <= 0 || slow <= 0 || fast >= slow {
		return nil, fmt.Errorf("ema cross periods must satisfy 0 < fast < slow, got %d/%d", fast, slow)
	}
	return &EMACross{fast: fast, slow: slow}, nil
}

func emaCrossFactory() strategy.Factory {
	build := func(fast, slow int) (strategy.Strategy, error) {
		s, err := NewEMACross(fast, slow)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return strategy.Factory{
		Name: EMACrossName,
		New:  func() (strategy.Strategy, error) { return build(12, 26) },
		NewWithConfig: func(cfg *userdata.BotConfig) (strategy.Strategy, error) {
			sec, ok := cfg.Section("ema_cross")
			if !ok {
				return build(12, 26)
			}
			fast, err := intParam("ema_cross", sec, "fast", 12)
			if err != nil {
				return nil, err
			}
			slow, err := intParam("ema_cross", sec, "slow", 26)
			if err != nil {
				return nil, err
			}
			return build(fast, slow)
		},
	}
}

func (s *EMACross) Name() string { return EMACrossName }

// PopulateIndicators adds ema_fast and ema_slow columns.
func (s *EMACross) PopulateIndicators(_ context.Context, df *frame.Frame, _ strategy.Metadata) (*frame.Frame, error) {
	closes, err := df.Floats("close")
	if err != nil {
		return nil, err
	}
	if err := df.SetFloats("ema_fast", indicator.EMA(closes, s.fast)); err != nil {
		return nil, err
	}
	if err := df.SetFloats("ema_slow", indicator.EMA(closes, s.slow)); err != nil {
		return nil, err
	}
	return df, nil
}
