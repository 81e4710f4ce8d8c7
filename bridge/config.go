package bridge

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/salonpos/paxbridge/terminal"
)

const envPrefix = "PAXBRIDGE"

// Config is a configuration for the bridge application
type Config struct {
	HTTPAddr string `mapstructure:"http_addr" yaml:"http_addr"`
	// DefaultTimeout applies to terminals that do not set their own.
	DefaultTimeout time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	// LicenseURL enables license checks before each sale when set.
	LicenseURL string           `mapstructure:"license_url" yaml:"license_url,omitempty"`
	Terminals  []TerminalConfig `mapstructure:"terminals" yaml:"terminals"`
}

type TerminalConfig struct {
	ID         string        `mapstructure:"id" yaml:"id"`
	IP         string        `mapstructure:"ip" yaml:"ip"`
	Port       string        `mapstructure:"port" yaml:"port"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
	LicenseKey string        `mapstructure:"license_key" yaml:"license_key,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:       "localhost:9090",
		DefaultTimeout: terminal.DefaultTimeout,
		Terminals:      []TerminalConfig{},
	}
}

// LoadConfig reads a YAML file on top of the defaults. Scalar settings can
// be overridden with PAXBRIDGE_* variables, e.g. PAXBRIDGE_HTTP_ADDR. An
// empty path yields defaults plus environment.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_addr", cfg.HTTPAddr)
	v.SetDefault("default_timeout", cfg.DefaultTimeout)
	v.SetDefault("license_url", cfg.LicenseURL)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every terminal entry and rejects duplicate ids.
func (c *Config) Validate() error {
	if c.DefaultTimeout <= 0 {
		return fmt.Errorf("default_timeout must be positive")
	}
	seen := make(map[string]struct{}, len(c.Terminals))
	for i, tc := range c.Terminals {
		if tc.ID == "" {
			return fmt.Errorf("terminals[%d]: id is required", i)
		}
		if _, dup := seen[tc.ID]; dup {
			return fmt.Errorf("terminals[%d]: duplicate id %q", i, tc.ID)
		}
		seen[tc.ID] = struct{}{}

		if err := c.terminalConfig(tc).Validate(); err != nil {
			return fmt.Errorf("terminals[%d] (%s): %w", i, tc.ID, err)
		}
	}
	return nil
}

func (c *Config) terminalConfig(tc TerminalConfig) terminal.Config {
	port := tc.Port
	if port == "" {
		port = terminal.DefaultPort
	}
	timeout := tc.Timeout
	if timeout == 0 {
		timeout = c.DefaultTimeout
	}
	return terminal.Config{
		IP:         tc.IP,
		Port:       port,
		Timeout:    timeout,
		LicenseKey: tc.LicenseKey,
	}
}

// MarshalYAML writes durations as "2m0s" rather than nanoseconds.
func (c Config) MarshalYAML() (interface{}, error) {
	out := struct {
		HTTPAddr       string           `yaml:"http_addr"`
		DefaultTimeout string           `yaml:"default_timeout"`
		LicenseURL     string           `yaml:"license_url,omitempty"`
		Terminals      []TerminalConfig `yaml:"terminals"`
	}{c.HTTPAddr, c.DefaultTimeout.String(), c.LicenseURL, c.Terminals}
	return out, nil
}

func (tc TerminalConfig) MarshalYAML() (interface{}, error) {
	out := struct {
		ID         string `yaml:"id"`
		IP         string `yaml:"ip"`
		Port       string `yaml:"port"`
		Timeout    string `yaml:"timeout,omitempty"`
		LicenseKey string `yaml:"license_key,omitempty"`
	}{ID: tc.ID, IP: tc.IP, Port: tc.Port, LicenseKey: tc.LicenseKey}
	if tc.Timeout > 0 {
		out.Timeout = tc.Timeout.String()
	}
	return out, nil
}

// WriteDefault writes a starter config file with one example terminal.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	cfg.Terminals = append(cfg.Terminals, TerminalConfig{
		ID:   "front-desk",
		IP:   "192.168.1.50",
		Port: terminal.DefaultPort,
	})

	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
