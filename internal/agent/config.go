package agent

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the agent's configuration, loadable from a YAML file with flag
// overrides on top.
type Config struct {
	PageURL   string        `yaml:"page_url"`
	ServerURL string        `yaml:"server_url"`
	Token     string        `yaml:"token"`
	Ceiling   int           `yaml:"ceiling"`
	Window    time.Duration `yaml:"window"`
	Debounce  time.Duration `yaml:"debounce"`
	Headless  bool          `yaml:"headless"`
}

// DefaultConfig returns the agent defaults.
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8080",
		Ceiling:   20,
		Window:    time.Minute,
		Debounce:  2 * time.Second,
		Headless:  true,
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields required to run.
func (c Config) Validate() error {
	if c.PageURL == "" {
		return fmt.Errorf("page_url is required")
	}
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if c.Token == "" {
		return fmt.Errorf("token is required")
	}
	return nil
}
