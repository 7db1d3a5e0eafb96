package app

import (
	"encoding/json"
	"fmt"
	"os"

	"relaymux/internal/config"
)

// loadConfig reads and decodes the inbox/outbox/rules JSON document;
// this is the one place in the module that touches the filesystem or a
// JSON parser for it, per spec.md §6's "the core does not read files or
// parse JSON itself."
func loadConfig(path string) (*config.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg config.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry.Attempts = config.DefaultRetryAttempts
	}
	if cfg.Rules.Fallback == "" {
		cfg.Rules.Fallback = config.FallbackForward
	}
	return &cfg, nil
}
