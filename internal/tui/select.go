package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// SelectModel is a numbered single-choice list. Arrow keys (or j/k) move
// the cursor, enter picks, and a digit picks that item directly.
type SelectModel struct {
	title  string
	items  []string
	cursor int

	chosen    int
	cancelled bool
}

// NewSelect builds a SelectModel over items.
func NewSelect(title string, items []string) SelectModel {
	return SelectModel{title: title, items: items, chosen: -1}
}

// Chosen returns the picked index, or -1 when none was picked.
func (m SelectModel) Chosen() int { return m.chosen }

// Cancelled reports whether the operator quit without picking.
func (m SelectModel) Cancelled() bool { return m.cancelled }

func (m SelectModel) Init() tea.Cmd { return nil }

func (m SelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch s := key.String(); s {
	case "q", "esc", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.items) > 0 {
			m.chosen = m.cursor
			return m, tea.Quit
		}
	default:
		if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= len(m.items) {
			m.cursor = n - 1
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m SelectModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	for i, item := range m.items {
		line := fmt.Sprintf("%2d. %s", i+1, item)
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	if m.chosen < 0 && !m.cancelled {
		b.WriteString(Dim("↑/↓ move • enter select • 1-9 pick • q quit"))
		b.WriteString("\n")
	}
	return b.String()
}

// Options controls where widgets read keys and draw.
type Options struct {
	In  io.Reader
	Out io.Writer
}

func (o Options) program(ctx context.Context, m tea.Model) *tea.Program {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if o.In != nil {
		opts = append(opts, tea.WithInput(o.In))
	}
	if o.Out != nil {
		opts = append(opts, tea.WithOutput(o.Out))
	}
	return tea.NewProgram(m, opts...)
}

// Select runs a SelectModel and returns the picked index. ErrCancelled is
// returned when the operator quits; a cancelled ctx returns ctx.Err().
func (o Options) Select(ctx context.Context, title string, items []string) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("%s: nothing to choose from", title)
	}
	final, err := o.program(ctx, NewSelect(title, items)).Run()
	if err != nil {
		if ctx.Err() != nil {
			return -1, ctx.Err()
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			return -1, ErrCancelled
		}
		return -1, err
	}
	m := final.(SelectModel)
	if m.Cancelled() || m.Chosen() < 0 {
		return -1, ErrCancelled
	}
	return m.Chosen(), nil
}
