// Package strategy defines the Strategy interface for indicator strategies,
// a Registry of named factories, and the text-pattern resolver that finds a
// strategy's declaring source file.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"ftviz/internal/frame"
	"ftviz/internal/userdata"
)

// ErrInstantiate is returned when no constructor of a factory succeeds.
var ErrInstantiate = errors.New("failed to instantiate strategy")

// Metadata accompanies the table passed to PopulateIndicators.
type Metadata map[string]any

// Strategy is the interface that all registered strategies implement.
type Strategy interface {
	// Name returns the class name the strategy is registered under.
	Name() string
}

// IndicatorPopulator is implemented by strategies that can compute indicator
// columns. The returned frame must keep every input column and add the
// computed ones.
type IndicatorPopulator interface {
	PopulateIndicators(ctx context.Context, df *frame.Frame, metadata Metadata) (*frame.Frame, error)
}

// Factory builds a Strategy. NewWithConfig is optional; when set it is
// preferred and receives the bot configuration.
type Factory struct {
	Name          string
	New           func() (Strategy, error)
	NewWithConfig func(cfg *userdata.BotConfig) (Strategy, error)
}

// Registry holds a named collection of strategy factories for lookup and
// enumeration.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory to the registry, keyed by its Name.
func (r *Registry) Register(f Factory) {
	r.factories[f.Name] = f
}

// Get retrieves a factory by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instantiate builds a strategy from f. A config-aware constructor is tried
// first; if it fails the no-argument constructor is used instead.
func Instantiate(f Factory, cfg *userdata.BotConfig, log *slog.Logger) (Strategy, error) {
	if f.NewWithConfig != nil {
		s, err := f.NewWithConfig(cfg)
		if err == nil && s != nil {
			return s, nil
		}
		if err == nil {
			err = errors.New("constructor returned nil")
		}
		log.Warn("could not instantiate with config", "strategy", f.Name, "error", err)
	}

	if f.New == nil {
		return nil, fmt.Errorf("%w: %s has no no-argument constructor", ErrInstantiate, f.Name)
	}
	s, err := f.New()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInstantiate, f.Name, err)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s: constructor returned nil", ErrInstantiate, f.Name)
	}
	return s, nil
}
