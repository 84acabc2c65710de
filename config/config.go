// Package config loads the yaml configuration consumed by the desk, the
// liaison and the feed. The core treats these values as opaque input from the
// embedding application; nothing here is persisted back.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Account AccountConfig `yaml:"account"`
	Desk    DeskConfig    `yaml:"desk"`
	Journal JournalConfig `yaml:"journal"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig describes the trading-server endpoint the feed connects to.
type ServerConfig struct {
	URL              string        `yaml:"url"`
	User             string        `yaml:"user"`
	ReconnectBackoff time.Duration `yaml:"reconnect_backoff"`
	PingInterval     time.Duration `yaml:"ping_interval"`
}

type AccountConfig struct {
	Currency     string  `yaml:"currency"`
	BaseUnitSize float64 `yaml:"base_unit_size"`
}

type DeskConfig struct {
	// ClockIncrement is how far the server clock advances per wall-clock
	// second while no server tick is arriving.
	ClockIncrement time.Duration `yaml:"clock_increment"`
	// BarTail is the number of bars kept per series when trimming.
	BarTail int `yaml:"bar_tail"`
}

type JournalConfig struct {
	// Path of the sqlite journal. Empty disables journaling.
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads and validates a yaml config file, filling unset fields from
// Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return errors.New("account.currency is required")
	}
	if c.Account.BaseUnitSize <= 0 {
		return errors.New("account.base_unit_size must be positive")
	}
	if c.Desk.ClockIncrement <= 0 {
		return errors.New("desk.clock_increment must be positive")
	}
	if c.Desk.BarTail < 0 {
		return errors.New("desk.bar_tail must not be negative")
	}
	if c.Server.ReconnectBackoff <= 0 {
		return errors.New("server.reconnect_backoff must be positive")
	}
	if c.Server.PingInterval <= 0 {
		return errors.New("server.ping_interval must be positive")
	}
	return nil
}

// Default returns the configuration used when a field is not set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ReconnectBackoff: 2 * time.Second,
			PingInterval:     20 * time.Second,
		},
		Account: AccountConfig{
			Currency:     "USD",
			BaseUnitSize: 1000,
		},
		Desk: DeskConfig{
			ClockIncrement: time.Second,
			BarTail:        300,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
