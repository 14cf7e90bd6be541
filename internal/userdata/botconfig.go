package userdata

import (
	"encoding/json"
	"fmt"
	"os"
)

// BotConfig is the read-only view of a bot's config.json the tools consume.
// Raw holds the full decoded document for strategies that read extra keys.
type BotConfig struct {
	Timeframe string   `json:"timeframe"`
	Timerange string   `json:"timerange"`
	Exchange  Exchange `json:"exchange"`

	Raw map[string]any `json:"-"`
}

// Exchange is the "exchange" block of config.json.
type Exchange struct {
	Name          string   `json:"name"`
	PairWhitelist []string `json:"pair_whitelist"`
}

// LoadBotConfig reads and decodes config.json at path.
func LoadBotConfig(path string) (*BotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBotConfig(data)
}

// LoadBotConfigOrEmpty behaves like LoadBotConfig but treats a missing file
// as an empty configuration.
func LoadBotConfigOrEmpty(path string) (*BotConfig, error) {
	cfg, err := LoadBotConfig(path)
	if os.IsNotExist(err) {
		return &BotConfig{Raw: map[string]any{}}, nil
	}
	return cfg, err
}

// ParseBotConfig decodes a config.json document.
func ParseBotConfig(data []byte) (*BotConfig, error) {
	cfg := &BotConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decoding bot config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg.Raw); err != nil {
		return nil, fmt.Errorf("decoding bot config: %w", err)
	}
	return cfg, nil
}

// TimeframeOr returns the configured timeframe or def when unset.
func (c *BotConfig) TimeframeOr(def string) string {
	if c != nil && c.Timeframe != "" {
		return c.Timeframe
	}
	return def
}

// FirstPair returns the first whitelisted pair.
func (c *BotConfig) FirstPair() (string, bool) {
	if c == nil || len(c.Exchange.PairWhitelist) == 0 {
		return "", false
	}
	return c.Exchange.PairWhitelist[0], true
}

// Section returns a top-level object from the raw document.
func (c *BotConfig) Section(key string) (map[string]any, bool) {
	if c == nil {
		return nil, false
	}
	m, ok := c.Raw[key].(map[string]any)
	return m, ok
}
