// Package config loads server configuration from defaults, an optional
// config file, and EBOOKSHELF_-prefixed environment variables, with
// hot-reload support.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	// LibraryPath is the root directory holding the book files.
	LibraryPath string `mapstructure:"library_path"`

	// Host is the address the SSE transport binds to.
	Host string `mapstructure:"host"`

	// Port is the port the SSE transport listens on.
	Port string `mapstructure:"port"`

	// Transport selects how the MCP server is exposed: "stdio" or "sse".
	Transport string `mapstructure:"transport"`

	// Search holds search tuning knobs.
	Search SearchConfig `mapstructure:"search"`
}

// SearchConfig holds search tuning knobs.
type SearchConfig struct {
	// ContextChars is the context-window radius around each match.
	ContextChars int `mapstructure:"context_chars"`

	// MaxResultsPerBook caps per-book matches in library-wide search.
	MaxResultsPerBook int `mapstructure:"max_results_per_book"`
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a config manager and loads the initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults, env bindings, and the config file.
func (cm *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	viper.SetDefault("library_path", defaults.LibraryPath)
	viper.SetDefault("host", defaults.Host)
	viper.SetDefault("port", defaults.Port)
	viper.SetDefault("transport", defaults.Transport)
	viper.SetDefault("search.context_chars", defaults.Search.ContextChars)
	viper.SetDefault("search.max_results_per_book", defaults.Search.MaxResultsPerBook)

	viper.SetEnvPrefix("EBOOKSHELF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.ebookshelf")
	}

	// The config file is optional.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of the config file.
func (cm *Manager) WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}
