package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ErrCommandFailed is returned when an external command cannot be started or
// exits non-zero.
var ErrCommandFailed = errors.New("external command failed")

// Runner executes external commands.
type Runner interface {
	// Output runs the command in dir and returns its standard output.
	Output(ctx context.Context, dir, name string, args ...string) ([]byte, error)

	// Run runs the command in dir with its output streamed to the terminal.
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner runs commands as child processes. A cancelled context kills the
// child.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns an ExecRunner attached to the process's stdout and
// stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

func (r *ExecRunner) Output(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return out, commandError(name, args, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return commandError(name, args, err, "")
	}
	return nil
}

func commandError(name string, args []string, err error, stderr string) error {
	if stderr != "" {
		return fmt.Errorf("%w: %s: %v: %s", ErrCommandFailed, CommandLine(name, args...), err, stderr)
	}
	return fmt.Errorf("%w: %s: %v", ErrCommandFailed, CommandLine(name, args...), err)
}

// CommandLine renders a command for logs and messages.
func CommandLine(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
