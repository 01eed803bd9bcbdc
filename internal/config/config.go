package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const appName = "cursor-memory-mcp"

type Config struct {
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Watch  bool         `yaml:"watch" mapstructure:"watch"`

	v *viper.Viper
}

type ServerConfig struct {
	Name         string `yaml:"name" mapstructure:"name"`
	Instructions string `yaml:"instructions" mapstructure:"instructions"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name: appName,
			Instructions: "Call create_cursor_memory after finishing a task to record its summary " +
				"under the project's .cursor/rules directory.",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration. When configFile is empty, config.yaml is searched
// in the working directory and the user's config directory; a missing file is
// not an error. Environment variables prefixed CURSOR_MEMORY_ override file
// values (CURSOR_MEMORY_LOG_LEVEL for log.level).
func Load(configFile string) (*Config, error) {
	defaults := DefaultConfig()
	v := viper.New()

	v.SetDefault("server.name", defaults.Server.Name)
	v.SetDefault("server.instructions", defaults.Server.Instructions)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("watch", defaults.Watch)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, appName))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", appName))
		}
	}

	v.SetEnvPrefix("CURSOR_MEMORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading %s: %w", describe(configFile), err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.v = v
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func describe(configFile string) string {
	if configFile == "" {
		return "config.yaml"
	}
	return configFile
}

// File returns the config file in use, or "" when running on defaults.
func (c *Config) File() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// OnChange watches the config file and calls fn with the re-read
// configuration, or with the error that made it unusable. It does nothing
// when no file was loaded.
func (c *Config) OnChange(fn func(*Config, error)) {
	if c.File() == "" {
		return
	}
	v := c.v
	v.OnConfigChange(func(fsnotify.Event) {
		fn(decode(v))
	})
	v.WatchConfig()
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Name) == "" {
		return fmt.Errorf("config: server.name is required")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid (must be debug, info, warn, or error)", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format %q is invalid (must be text or json)", c.Log.Format)
	}
	return nil
}
