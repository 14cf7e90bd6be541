package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"ftviz/internal/tui"
)

// Action is a menu choice.
type Action int

const (
	ActionBacktest Action = iota + 1
	ActionVisualize
	ActionBoth
)

var actionLabels = []string{
	"Run backtest only",
	"Prepare visualization only",
	"Run backtest and prepare visualization",
}

// UI is the interactive surface the menu drives. tui.Options implements it.
type UI interface {
	Select(ctx context.Context, title string, items []string) (int, error)
	Prompt(ctx context.Context, label, placeholder string) (string, error)
}

var _ UI = tui.Options{}

// Interactive walks the operator through bot, strategy and action, then
// runs the chosen workflow. Backing out of any step returns
// tui.ErrCancelled.
func (o *Orchestrator) Interactive(ctx context.Context, ui UI) error {
	bots, err := o.Bots()
	if err != nil {
		return err
	}
	if len(bots) == 0 {
		return fmt.Errorf("no bots with a user_data directory under %s", o.project)
	}
	names := make([]string, len(bots))
	for i, b := range bots {
		names[i] = b.Name
	}
	i, err := ui.Select(ctx, "Available bots", names)
	if err != nil {
		return err
	}
	bot := bots[i]

	strategies, err := o.Strategies(bot)
	if err != nil {
		return err
	}
	if len(strategies) == 0 {
		return fmt.Errorf("no strategies found in %s", bot.UserData().StrategiesDir())
	}
	i, err = ui.Select(ctx, "Available strategies for "+bot.Name, strategies)
	if err != nil {
		return err
	}
	strat := strategies[i]

	i, err = ui.Select(ctx, "Action for "+strat, actionLabels)
	if err != nil {
		return err
	}
	action := Action(i + 1)

	if action == ActionBacktest || action == ActionBoth {
		timerange, err := ui.Prompt(ctx, "Timerange (optional, e.g. 20240101-20240301)", "YYYYMMDD-YYYYMMDD")
		if err != nil {
			return err
		}
		if err := o.RunBacktest(ctx, bot, strat, timerange); err != nil {
			return err
		}
	}
	if action == ActionVisualize || action == ActionBoth {
		return o.PrepareVisualization(ctx, bot, strat)
	}
	return nil
}

// IsCancelled reports whether err means the operator or a signal stopped
// the menu.
func IsCancelled(err error) bool {
	return errors.Is(err, tui.ErrCancelled) || errors.Is(err, context.Canceled)
}
