// Package config loads the relay's startup configuration: bind address,
// data directory, dev-fee policy, dev wallet pubkey, default room price,
// and the username claim fee. Load reads the YAML file from disk, then
// expands environment references, applies defaults and validates it.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// FeeConfig is the dev fee applied to every value transfer.
type FeeConfig struct {
	Mode  string `yaml:"mode"`  // "bps" | "percent"
	Value int64  `yaml:"value"`
}

// Config is the relay's full startup configuration.
type Config struct {
	LogLevel string `yaml:"logLevel"`

	Bind string `yaml:"bind"` // e.g. ":8080"

	DataDir string `yaml:"dataDir"`

	Fee FeeConfig `yaml:"fee"`

	DevWalletPubkey string `yaml:"devWalletPubkey"`

	DefaultRoomPrice string `yaml:"defaultRoomPrice"` // decimal string, XMR
	UsernameFee      string `yaml:"usernameFee"`      // decimal string, XMR

	ServerVersion string `yaml:"serverVersion"`

	InternalStats struct {
		Enable bool   `yaml:"enable"`
		Token  string `yaml:"token"`
	} `yaml:"internalStats"`
}

// Load reads path, environment-expands known string fields, applies
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	cfg.LogLevel = expandEnvDefault(cfg.LogLevel)
	cfg.Bind = expandEnvDefault(cfg.Bind)
	cfg.DataDir = expandEnvDefault(cfg.DataDir)
	cfg.DevWalletPubkey = expandEnvDefault(cfg.DevWalletPubkey)
	cfg.DefaultRoomPrice = expandEnvDefault(cfg.DefaultRoomPrice)
	cfg.UsernameFee = expandEnvDefault(cfg.UsernameFee)
	cfg.ServerVersion = expandEnvDefault(cfg.ServerVersion)
	cfg.InternalStats.Token = expandEnvDefault(cfg.InternalStats.Token)

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(c *Config) {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Bind == "" {
		c.Bind = ":8080"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Fee.Mode == "" {
		c.Fee.Mode = "bps"
	}
	if c.DefaultRoomPrice == "" {
		c.DefaultRoomPrice = "10.00000000"
	}
	if c.UsernameFee == "" {
		c.UsernameFee = "1.00000000"
	}
	if c.ServerVersion == "" {
		c.ServerVersion = "1.0.0"
	}
}

func validate(c *Config) error {
	if c.Bind == "" {
		return errors.New("bind is required")
	}
	if c.DataDir == "" {
		return errors.New("dataDir is required")
	}
	if c.Fee.Mode != "bps" && c.Fee.Mode != "percent" {
		return fmt.Errorf("fee.mode must be bps or percent, got %q", c.Fee.Mode)
	}
	if c.DevWalletPubkey == "" {
		return errors.New("devWalletPubkey is required")
	}
	return nil
}

// --- env expansion with ${VAR} and ${VAR:default} ---

var envRe = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvDefault replaces ${VAR} with os.Getenv("VAR"), and
// ${VAR:default} with the env value or "default" if unset.
func expandEnvDefault(s string) string {
	if s == "" {
		return s
	}
	return envRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := envRe.FindStringSubmatch(m)
		if len(parts) != 3 {
			return m
		}
		name := parts[1]
		def := parts[2]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return def
	})
}
