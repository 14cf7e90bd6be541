package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// PromptModel reads one line of text. Enter accepts (an empty value is
// allowed), esc and ctrl+c cancel.
type PromptModel struct {
	label string
	input textinput.Model

	done      bool
	cancelled bool
}

// NewPrompt builds a focused PromptModel.
func NewPrompt(label, placeholder string) PromptModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.CharLimit = 64
	ti.Focus()
	return PromptModel{label: label, input: ti}
}

// Value returns the entered text with surrounding spaces removed.
func (m PromptModel) Value() string { return strings.TrimSpace(m.input.Value()) }

// Cancelled reports whether the operator backed out.
func (m PromptModel) Cancelled() bool { return m.cancelled }

func (m PromptModel) Init() tea.Cmd { return textinput.Blink }

func (m PromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m PromptModel) View() string {
	if m.done || m.cancelled {
		return titleStyle.Render(m.label) + " " + m.Value() + "\n"
	}
	return titleStyle.Render(m.label) + "\n" + m.input.View() + "\n" + Dim("enter accept • esc cancel") + "\n"
}

// Prompt runs a PromptModel and returns the entered text.
func (o Options) Prompt(ctx context.Context, label, placeholder string) (string, error) {
	final, err := o.program(ctx, NewPrompt(label, placeholder)).Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			return "", ErrCancelled
		}
		return "", err
	}
	m := final.(PromptModel)
	if m.Cancelled() {
		return "", ErrCancelled
	}
	return m.Value(), nil
}
