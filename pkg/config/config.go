// Copyright 2024-2026 Aiku AI

// Package config loads the bot configuration from YAML and the environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.mau.fi/zeroconfig"
	"gopkg.in/yaml.v3"

	"github.com/aiku/khanterbridge/pkg/connector"
)

//go:embed example-config.yaml
var rawExampleConfig string

// ExampleConfig is the full example config, including the telegram block.
var ExampleConfig = strings.Replace(rawExampleConfig, "$TELEGRAM\n", indent(connector.ExampleConfig, "    "), 1)

const (
	defaultStorageDir = "./storage"
	defaultListen     = ":4000"
)

// DefaultModules are autoloaded when the config does not list any.
var DefaultModules = []string{"Basics", connector.ModuleName}

const defaultLogging = `
min_level: info
writers:
  - type: stdout
    format: pretty-colored
`

type Config struct {
	Discord  DiscordConfig     `yaml:"discord"`
	Telegram connector.Config  `yaml:"telegram"`
	Storage  StorageConfig     `yaml:"storage"`
	HTTP     HTTPConfig        `yaml:"http"`
	Modules  ModulesConfig     `yaml:"modules"`
	Logging  zeroconfig.Config `yaml:"logging"`
}

type DiscordConfig struct {
	Token string `yaml:"token"`
}

type StorageConfig struct {
	Directory string `yaml:"directory"`
}

type HTTPConfig struct {
	Listen      string `yaml:"listen"`
	ReadyMarker string `yaml:"ready_marker"`
	AdminToken  string `yaml:"admin_token"`
}

type ModulesConfig struct {
	Autoload []string `yaml:"autoload"`
}

// ConfigurationError lists required settings that are missing.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}

// Load reads the config file at path, applies environment overrides and
// fills defaults. A missing file is not an error: the example config is
// used so the bot can run from environment variables alone.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		data = []byte(ExampleConfig)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, os.LookupEnv)
}

// Parse decodes a config and applies overrides from lookupEnv.
func Parse(data []byte, lookupEnv func(string) (string, bool)) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyEnv(lookupEnv)
	if err := cfg.PostProcess(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides config values with the environment variables that are
// set and non-empty.
func (c *Config) ApplyEnv(lookupEnv func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		val, ok := lookupEnv(key)
		val = strings.TrimSpace(val)
		return val, ok && val != ""
	}
	if val, ok := get("DISCORD_TOKEN"); ok {
		c.Discord.Token = val
	}
	if val, ok := get("TELEGRAM_BOT_TOKEN"); ok {
		c.Telegram.Token = val
	}
	if val, ok := get("STORAGE_DIR"); ok {
		c.Storage.Directory = val
	}
	if val, ok := get("PORT"); ok {
		c.HTTP.Listen = listenWithPort(c.HTTP.Listen, val)
	}
	if val, ok := get("ADMIN_TOKEN"); ok {
		c.HTTP.AdminToken = val
	}
}

// PostProcess fills defaults and prepares nested configs.
func (c *Config) PostProcess() error {
	if c.Storage.Directory == "" {
		c.Storage.Directory = defaultStorageDir
	}
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = defaultListen
	}
	if c.Modules.Autoload == nil {
		c.Modules.Autoload = append([]string(nil), DefaultModules...)
	}
	if len(c.Logging.Writers) == 0 {
		if err := yaml.Unmarshal([]byte(defaultLogging), &c.Logging); err != nil {
			return fmt.Errorf("failed to apply default logging config: %w", err)
		}
	}
	if err := c.Telegram.PostProcess(); err != nil {
		return fmt.Errorf("invalid telegram config: %w", err)
	}
	return nil
}

// Validate reports every missing required credential.
func (c *Config) Validate() error {
	var missing []string
	if c.Discord.Token == "" {
		missing = append(missing, "discord.token (DISCORD_TOKEN)")
	}
	if c.Telegram.Token == "" && c.autoloads(connector.ModuleName) {
		missing = append(missing, "telegram.token (TELEGRAM_BOT_TOKEN)")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

func (c *Config) autoloads(name string) bool {
	for _, m := range c.Modules.Autoload {
		if strings.EqualFold(m, name) {
			return true
		}
	}
	return false
}

// Logger builds the logger described by the logging block.
func (c *Config) Logger() (*zerolog.Logger, error) {
	log, err := c.Logging.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}

// listenWithPort replaces the port of a listen address.
func listenWithPort(listen, port string) string {
	host := ""
	if i := strings.LastIndex(listen, ":"); i >= 0 {
		host = listen[:i]
	}
	return host + ":" + port
}

func indent(text, prefix string) string {
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			b.WriteString(prefix)
		}
		b.WriteString(line)
	}
	return b.String()
}
