package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from the given path. An empty path
// falls back to the default search locations; a missing file yields the
// default configuration.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return getDefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigNotFound, err)
	}

	config := getDefaultConfig()
	ext := filepath.Ext(configPath)

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: JSON parsing failed: %v", ErrInvalidFormat, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: YAML parsing failed: %v", ErrInvalidFormat, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config file format: %s", ErrInvalidFormat, ext)
	}

	fillDefaults(config)
	return config, nil
}

// SaveConfig writes the configuration to the given path
func SaveConfig(config *Config, configPath string) error {
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	ext := filepath.Ext(configPath)
	var data []byte
	var err error

	switch ext {
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		return fmt.Errorf("%w: unsupported config file format: %s", ErrInvalidFormat, ext)
	}

	if err != nil {
		return fmt.Errorf("config serialization failed: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getDefaultConfigPath resolves the default configuration file location.
// Priority: working directory, user config directory, system directory.
func getDefaultConfigPath() string {
	paths := []string{
		"./config.yaml",
		"./config.json",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".casewatch", "config.yaml"),
			filepath.Join(homeDir, ".casewatch", "config.json"),
		)
	}

	paths = append(paths,
		"/etc/casewatch/config.yaml",
		"/etc/casewatch/config.json",
	)

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "./config.yaml"
}

// fillDefaults populates sections a partial config file left out
func fillDefaults(config *Config) {
	if config.App == nil {
		config.App = NewAppConfig()
	}
	if config.Server == nil {
		config.Server = NewServerConfig()
	}
	if config.Scheduler == nil {
		config.Scheduler = NewSchedulerConfig()
	}
	if config.Dispatcher == nil {
		config.Dispatcher = NewDispatcherConfig()
	}
	if config.Database == nil {
		config.Database = NewDatabaseConfig()
	}
	if config.Notifier == nil {
		config.Notifier = NewNotifierConfig()
	}
	if len(config.Scheduler.IntervalMinutes) == 0 {
		config.Scheduler.IntervalMinutes = NewSchedulerConfig().IntervalMinutes
	}
}
