package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gzhole/permguard/internal/atomicfile"
	"github.com/gzhole/permguard/internal/gate"
)

const (
	DefaultConfigDir = ".permguard"
	ConfigFileName   = "config"
	ConfigFileType   = "yaml"
	DefaultLogFile   = "audit.jsonl"
	EnvPrefix        = "PERMGUARD"
)

type Config struct {
	ConfigDir string     `mapstructure:"-"`
	LogPath   string     `mapstructure:"log_path"`
	LogLevel  string     `mapstructure:"log_level"`
	Gate      GateConfig `mapstructure:"gate"`
}

// GateConfig is the persisted state of the justification gate.
type GateConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Scope   string `mapstructure:"scope"`
}

// Load reads ~/.permguard/config.yaml. A missing file means defaults;
// PERMGUARD_* environment variables override both (PERMGUARD_GATE_ENABLED
// for gate.enabled). A non-empty logPath overrides the configured one.
func Load(logPath string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return LoadFrom(filepath.Join(homeDir, DefaultConfigDir), logPath)
}

// LoadFrom is Load with an explicit config directory.
func LoadFrom(configDir, logPath string) (*Config, error) {
	if err := ensureDir(configDir); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileType)
	v.AddConfigPath(configDir)

	v.SetDefault("log_path", filepath.Join(configDir, DefaultLogFile))
	v.SetDefault("log_level", "warn")
	v.SetDefault("gate.enabled", true)
	v.SetDefault("gate.scope", string(gate.ScopeAsk))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{ConfigDir: configDir}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}
	if _, err := gate.ParseScope(cfg.Gate.Scope); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GateMode returns the gate as configured.
func (c *Config) GateMode() gate.Gate {
	scope, err := gate.ParseScope(c.Gate.Scope)
	if err != nil {
		scope = gate.ScopeAsk
	}
	return gate.Gate{Enabled: c.Gate.Enabled, Scope: scope}
}

func (c *Config) Path() string {
	return filepath.Join(c.ConfigDir, ConfigFileName+"."+ConfigFileType)
}

// SetGateEnabled persists gate.enabled, keeping the rest of the file.
func (c *Config) SetGateEnabled(enabled bool) error {
	if err := c.update("enabled", enabled); err != nil {
		return err
	}
	c.Gate.Enabled = enabled
	return nil
}

// SetGateScope persists gate.scope.
func (c *Config) SetGateScope(scope gate.Scope) error {
	if err := c.update("scope", string(scope)); err != nil {
		return err
	}
	c.Gate.Scope = string(scope)
	return nil
}

func (c *Config) update(gateKey string, value any) error {
	doc := map[string]any{}
	data, err := os.ReadFile(c.Path())
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to parse %s: %w", c.Path(), err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to read %s: %w", c.Path(), err)
	}

	section, ok := doc["gate"].(map[string]any)
	if !ok {
		section = map[string]any{}
	}
	section[gateKey] = value
	doc["gate"] = section

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := ensureDir(c.ConfigDir); err != nil {
		return err
	}
	if err := atomicfile.WriteFile(c.Path(), out, 0600); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}
