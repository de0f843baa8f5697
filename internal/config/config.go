// Package config loads the darkroom configuration.
// A missing config file is fine: every field has a default, so the zero
// config is a working config pointed at a local dev server.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full darkroom configuration.
type Config struct {
	API   APIConfig   `mapstructure:"api"`
	Queue QueueConfig `mapstructure:"queue"`
	Log   LogConfig   `mapstructure:"log"`
}

// APIConfig points the client at the image-library service.
type APIConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	TenantID string        `mapstructure:"tenant_id"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// QueueConfig tunes the outbox. Concurrency is a constant per process;
// there is deliberately no backoff knob because the queue never retries on
// its own.
type QueueConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	EventBuffer int `mapstructure:"event_buffer"`
}

// LogConfig controls the file logger. Level is the only setting that
// reloads live.
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

// Loader reads and watches a config file.
type Loader struct {
	v      *viper.Viper
	config *Config
}

// NewLoader creates a config loader.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// Load reads configPath, falling back to defaults when the file is absent.
// An empty configPath searches the working directory and ~/.config/darkroom.
func (l *Loader) Load(configPath string) (*Config, error) {
	if configPath != "" {
		l.v.SetConfigFile(configPath)
	} else {
		l.v.SetConfigName("darkroom")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("$HOME/.config/darkroom")
	}
	l.v.SetConfigType("yaml")
	l.v.SetEnvPrefix("darkroom")
	l.v.AutomaticEnv()

	l.v.SetDefault("api.base_url", "http://localhost:8380")
	l.v.SetDefault("api.tenant_id", "default")
	l.v.SetDefault("api.token", "")
	l.v.SetDefault("api.timeout", "30s")
	l.v.SetDefault("queue.concurrency", 3)
	l.v.SetDefault("queue.event_buffer", 16)
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.path", "darkroom.log")

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l.config = &cfg
	return &cfg, nil
}

// Get returns the last loaded config.
func (l *Loader) Get() *Config {
	return l.config
}

// Watch re-reads the file on change and hands the fresh config to onChange.
// Malformed edits keep the previous config.
func (l *Loader) Watch(onChange func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := l.v.Unmarshal(&cfg); err != nil {
			return
		}
		if err := cfg.Validate(); err != nil {
			return
		}
		l.config = &cfg
		onChange(&cfg)
	})
	l.v.WatchConfig()
}

// Validate rejects configs the queue cannot run with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if c.Queue.Concurrency < 1 {
		return fmt.Errorf("queue.concurrency must be at least 1, got %d", c.Queue.Concurrency)
	}
	return nil
}
