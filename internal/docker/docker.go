// Package docker drives the container runtime CLI for the bots: resolving a
// bot's container, starting it with compose, and exec'ing commands inside.
package docker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gopkg.in/yaml.v3"

	"ftviz/internal/userdata"
)

// DefaultBinary is the container CLI invoked when none is configured.
const DefaultBinary = "docker"

// DefaultStartTimeout bounds the wait for a container after compose up.
const DefaultStartTimeout = 30 * time.Second

// ErrNoContainer is returned when a bot's container cannot be identified.
var ErrNoContainer = errors.New("could not determine container name")

// Client runs container CLI commands for bots.
type Client struct {
	binary       string
	runner       Runner
	log          *slog.Logger
	startTimeout time.Duration

	// newBackOff builds the retry policy used while a started container
	// comes up.
	newBackOff func() backoff.BackOff
}

// New creates a Client. Empty binary and zero startTimeout take the
// defaults.
func New(binary string, runner Runner, startTimeout time.Duration, log *slog.Logger) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	if startTimeout <= 0 {
		startTimeout = DefaultStartTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Client{binary: binary, runner: runner, log: log, startTimeout: startTimeout}
	c.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 500 * time.Millisecond
		b.MaxElapsedTime = c.startTimeout
		return b
	}
	return c
}

// compose is the part of docker-compose.yml the client reads.
type compose struct {
	Services yaml.Node `yaml:"services"`
}

// ComposeContainerName returns the container_name of the first service in
// the compose file that declares one, in file order.
func ComposeContainerName(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var doc compose
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}
	if doc.Services.Kind != yaml.MappingNode {
		return "", nil
	}
	for i := 0; i+1 < len(doc.Services.Content); i += 2 {
		var svc struct {
			ContainerName string `yaml:"container_name"`
		}
		if err := doc.Services.Content[i+1].Decode(&svc); err != nil {
			return "", fmt.Errorf("parsing service %q in %s: %w", doc.Services.Content[i].Value, path, err)
		}
		if svc.ContainerName != "" {
			return svc.ContainerName, nil
		}
	}
	return "", nil
}

// PS lists running container names, optionally narrowed by a name filter.
func (c *Client) PS(ctx context.Context, nameFilter string) ([]string, error) {
	args := []string{"ps"}
	if nameFilter != "" {
		args = append(args, "--filter", "name="+nameFilter)
	}
	args = append(args, "--format", "{{.Names}}")

	out, err := c.runner.Output(ctx, "", c.binary, args...)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// ContainerName resolves the bot's container: the compose file's
// container_name, else a running container whose name contains the bot
// name (underscores ignored), else the first running freqtrade container.
// An empty name means none was found.
func (c *Client) ContainerName(ctx context.Context, bot userdata.Bot) (string, error) {
	composeFile := bot.ComposeFile()
	name, err := ComposeContainerName(composeFile)
	if os.IsNotExist(err) {
		c.log.Error("docker-compose.yml not found", "dir", bot.Dir)
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if name != "" {
		return name, nil
	}

	c.log.Debug("container name not in docker-compose.yml, checking docker ps")
	names, err := c.PS(ctx, "")
	if err != nil {
		return "", err
	}
	return matchContainer(bot.Name, names), nil
}

func matchContainer(bot string, names []string) string {
	want := strings.ReplaceAll(bot, "_", "")
	for _, n := range names {
		if strings.Contains(strings.ReplaceAll(n, "_", ""), want) {
			return n
		}
	}
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), "freqtrade") {
			return n
		}
	}
	return ""
}

// IsRunning reports whether a container with exactly this name is running.
func (c *Client) IsRunning(ctx context.Context, name string) (bool, error) {
	names, err := c.PS(ctx, name)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ComposeUp starts the compose project in dir in the background.
func (c *Client) ComposeUp(ctx context.Context, dir string) error {
	c.log.Debug("running", "cmd", CommandLine(c.binary, "compose", "up", "-d"), "dir", dir)
	return c.runner.Run(ctx, dir, c.binary, "compose", "up", "-d")
}

// EnsureRunning returns the bot's running container, starting it with
// compose when needed.
func (c *Client) EnsureRunning(ctx context.Context, bot userdata.Bot) (string, error) {
	name, err := c.ContainerName(ctx, bot)
	if err != nil {
		return "", err
	}
	if name != "" {
		running, err := c.IsRunning(ctx, name)
		if err != nil {
			return "", err
		}
		if running {
			c.log.Info("container is running", "container", name)
			return name, nil
		}
	}

	c.log.Info("starting container", "bot", bot.Name)
	if err := c.ComposeUp(ctx, bot.Dir); err != nil {
		return "", err
	}

	op := func() error {
		name, err = c.ContainerName(ctx, bot)
		if err != nil {
			return backoff.Permanent(err)
		}
		if name == "" {
			return ErrNoContainer
		}
		running, err := c.IsRunning(ctx, name)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !running {
			return fmt.Errorf("container %s is not running yet", name)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return "", fmt.Errorf("waiting for %s container: %w", bot.Name, err)
	}

	c.log.Info("container started", "container", name)
	return name, nil
}

// Exec runs a command inside container with output streamed.
func (c *Client) Exec(ctx context.Context, container string, args ...string) error {
	full := append([]string{"exec", container}, args...)
	c.log.Debug("running", "cmd", CommandLine(c.binary, full...))
	return c.runner.Run(ctx, "", c.binary, full...)
}

// BacktestArgs is the engine command line for a trades-exporting backtest.
// An empty timerange is omitted.
func BacktestArgs(strategy, timeframe, timerange string) []string {
	args := []string{
		"freqtrade", "backtesting",
		"--export", "trades",
		"--strategy", strategy,
		"--timeframe", timeframe,
	}
	if timerange != "" {
		args = append(args, "--timerange", timerange)
	}
	return args
}
