// Package builtins provides the indicator strategies that ship with ftviz.
// Each is registered under the class name its engine-side source declares.
package builtins

import "ftviz/internal/strategy"

// Register adds every built-in strategy to r.
func Register(r *strategy.Registry) {
	r.Register(strategy.Factory{
		Name: SimpleVisualRSIName,
		New: func() (strategy.Strategy, error) {
			return &SimpleVisualRSI{period: 14}, nil
		},
	})
	r.Register(smaCrossFactory())
	r.Register(emaCrossFactory())
}

// NewRegistry returns a Registry holding every built-in strategy.
func NewRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	Register(r)
	return r
}
