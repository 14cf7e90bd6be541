package builtins

import (
	"context"

	"ftviz/internal/frame"
	"ftviz/internal/indicator"
	"ftviz/internal/strategy"
)

var _ strategy.IndicatorPopulator = (*SimpleVisualRSI)(nil)

// SimpleVisualRSIName is the class name SimpleVisualRSI is registered under.
const SimpleVisualRSIName = "SimpleVisualRSI"

// SimpleVisualRSI adds a 14-period RSI column named "rsi". Entries fire
// below 30 and exits above 70 in the engine; only the indicator is charted.
type SimpleVisualRSI struct {
	period int
}

func (s *SimpleVisualRSI) Name() string { return SimpleVisualRSIName }

func (s *SimpleVisualRSI) PopulateIndicators(_ context.Context, df *frame.Frame, _ strategy.Metadata) (*frame.Frame, error) {
	closes, err := df.Floats("close")
	if err != nil {
		return nil, err
	}
	if err := df.SetFloats("rsi", indicator.RSI(closes, s.period)); err != nil {
		return nil, err
	}
	return df, nil
}
