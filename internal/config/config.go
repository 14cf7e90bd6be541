package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the tool configuration file read when none is given.
const DefaultPath = "ftviz.yaml"

// Extraction modes.
const (
	ExtractDocker = "docker"
	ExtractLocal  = "local"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the ftviz tools.
type Config struct {
	Project Project       `yaml:"project"`
	Docker  Docker        `yaml:"docker"`
	Extract ExtractConfig `yaml:"extract"`
	Convert ConvertConfig `yaml:"convert"`
	History History       `yaml:"history"`
	Logging Logging       `yaml:"logging"`
}

// Project locates the directory holding bots/.
type Project struct {
	Root string `yaml:"root"`
}

// Docker configures the container runtime CLI.
type Docker struct {
	Binary       string        `yaml:"binary"`
	StartTimeout time.Duration `yaml:"start_timeout"`
}

// ExtractConfig controls how the visualization pipeline runs the indicator
// extractor: "docker" execs the copied binary inside the bot container,
// "local" runs it in-process.
type ExtractConfig struct {
	Mode   string `yaml:"mode"`
	Binary string `yaml:"binary"`
}

// ConvertConfig bounds the per-bot converter fan-out.
type ConvertConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

// History holds the run history database location.
type History struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Project: Project{Root: "."},
		Docker:  Docker{Binary: "docker", StartTimeout: 30 * time.Second},
		Extract: ExtractConfig{Mode: ExtractDocker},
		Convert: ConvertConfig{MaxWorkers: 1},
		History: History{SQLitePath: ".ftviz/history.db"},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadDotEnv loads a .env file from the working directory without replacing
// variables already set. A missing file is not an error.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading .env: %w", err)
}

// Load reads the YAML configuration file at the given path over the
// defaults, and then applies environment variable overrides. A missing file
// leaves the defaults in place. The .env file is loaded first.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	switch cfg.Extract.Mode {
	case ExtractDocker, ExtractLocal:
	default:
		return nil, fmt.Errorf("extract.mode %q: want %q or %q", cfg.Extract.Mode, ExtractDocker, ExtractLocal)
	}

	return cfg, nil
}

// PathFromEnv returns FTVIZ_CONFIG when set, else DefaultPath. Call
// LoadDotEnv first so a value from .env is seen.
func PathFromEnv() string {
	if v := os.Getenv("FTVIZ_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FTVIZ_ROOT"); v != "" {
		cfg.Project.Root = v
	}

	if v := os.Getenv("DOCKER_BIN"); v != "" {
		cfg.Docker.Binary = v
	}

	if v := os.Getenv("FTVIZ_EXTRACT_MODE"); v != "" {
		cfg.Extract.Mode = v
	}

	if v := os.Getenv("FTVIZ_CONVERT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Convert.MaxWorkers = n
		}
	}

	if v := os.Getenv("FTVIZ_HISTORY_DB"); v != "" {
		cfg.History.SQLitePath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
