package config

// Config is the top-level configuration structure
type Config struct {
	App        *AppConfig        `json:"app" yaml:"app"`
	Server     *ServerConfig     `json:"server" yaml:"server"`
	Scheduler  *SchedulerConfig  `json:"scheduler" yaml:"scheduler"`
	Dispatcher *DispatcherConfig `json:"dispatcher" yaml:"dispatcher"`
	Database   *DatabaseConfig   `json:"database" yaml:"database"`
	Notifier   *NotifierConfig   `json:"notifier" yaml:"notifier"`
	Sources    []SourceConfig    `json:"sources" yaml:"sources"`
}

// getDefaultConfig returns a configuration with every section at its defaults
func getDefaultConfig() *Config {
	return &Config{
		App:        NewAppConfig(),
		Server:     NewServerConfig(),
		Scheduler:  NewSchedulerConfig(),
		Dispatcher: NewDispatcherConfig(),
		Database:   NewDatabaseConfig(),
		Notifier:   NewNotifierConfig(),
		Sources:    []SourceConfig{},
	}
}

// GetAppConfig returns the app section, defaulted when absent
func (c *Config) GetAppConfig() *AppConfig {
	if c.App != nil {
		return c.App
	}
	return NewAppConfig()
}

// GetSchedulerConfig returns the scheduler section, defaulted when absent
func (c *Config) GetSchedulerConfig() *SchedulerConfig {
	if c.Scheduler != nil {
		return c.Scheduler
	}
	return NewSchedulerConfig()
}

// GetDispatcherConfig returns the dispatcher section, defaulted when absent
func (c *Config) GetDispatcherConfig() *DispatcherConfig {
	if c.Dispatcher != nil {
		return c.Dispatcher
	}
	return NewDispatcherConfig()
}

// GetDatabaseConfig returns the database section, defaulted when absent
func (c *Config) GetDatabaseConfig() *DatabaseConfig {
	if c.Database != nil {
		return c.Database
	}
	return NewDatabaseConfig()
}

// GetServerConfig returns the server section, defaulted when absent
func (c *Config) GetServerConfig() *ServerConfig {
	if c.Server != nil {
		return c.Server
	}
	return NewServerConfig()
}

// GetNotifierConfig returns the notifier section, defaulted when absent
func (c *Config) GetNotifierConfig() *NotifierConfig {
	if c.Notifier != nil {
		return c.Notifier
	}
	return NewNotifierConfig()
}

// EnabledSources returns the configured sources with the enabled flag set
func (c *Config) EnabledSources() []SourceConfig {
	enabled := make([]SourceConfig, 0, len(c.Sources))
	for _, src := range c.Sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}
	return enabled
}

// FindSource looks a source up by key
func (c *Config) FindSource(key string) (SourceConfig, bool) {
	for _, src := range c.Sources {
		if src.Key == key {
			return src, true
		}
	}
	return SourceConfig{}, false
}
