// Package tui holds the interactive terminal widgets of the orchestrator
// menu: a numbered list selector, a one-line prompt, and shared styles.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the operator backs out of a widget.
var ErrCancelled = errors.New("cancelled by user")

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 2)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
)

const ruleWidth = 60

// Header renders a section banner.
func Header(text string) string {
	rule := dimStyle.Render(strings.Repeat("=", ruleWidth))
	return "\n" + rule + "\n" + headerStyle.Render(text) + "\n" + rule
}

// Step renders a numbered pipeline step heading such as "[STEP 1/4]".
func Step(n, total int, text string) string {
	return titleStyle.Render(fmt.Sprintf("[STEP %d/%d]", n, total)) + " " + text
}

// Success renders a completion line.
func Success(text string) string { return successStyle.Render("[SUCCESS]") + " " + text }

// Failure renders an error line.
func Failure(text string) string { return errorStyle.Render("[ERROR]") + " " + text }

// Entry renders a labelled path in the summary.
func Entry(label string, lines ...string) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(label))
	for _, l := range lines {
		b.WriteString("\n   ")
		b.WriteString(pathStyle.Render(l))
	}
	return b.String()
}

// Dim renders secondary text.
func Dim(text string) string { return dimStyle.Render(text) }
