package core

import (
	"fmt"
	"strings"
	"time"
)

type APIConfig struct {
	URL     string        `koanf:"url" mapstructure:"url"`
	Timeout time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type StateConfig struct {
	ExtensionKeys []string `koanf:"extension_keys" mapstructure:"extension_keys"`
	MaxTokenBytes int      `koanf:"max_token_bytes" mapstructure:"max_token_bytes"`
}

type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`
	// ProviderID, when set, overrides the provider carried in incoming
	// state tokens for every authorized request.
	ProviderID string      `koanf:"provider_id" mapstructure:"provider_id"`
	API        APIConfig   `koanf:"api" mapstructure:"api"`
	State      StateConfig `koanf:"state" mapstructure:"state"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "onboard",
		API: APIConfig{
			URL:     "https://api.flatpeak.energy",
			Timeout: 30 * time.Second,
		},
		State: StateConfig{
			MaxTokenBytes: defaultMaxTokenBytes,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.API.URL) == "" {
		return fmt.Errorf("core: api.url is required")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("core: api.timeout must not be negative")
	}
	if c.State.MaxTokenBytes < 0 {
		return fmt.Errorf("core: state.max_token_bytes must not be negative")
	}
	for _, key := range c.State.ExtensionKeys {
		if isReservedStateKey(strings.TrimSpace(key)) {
			return fmt.Errorf("core: state.extension_keys must not shadow reserved key %q", key)
		}
	}
	return nil
}
