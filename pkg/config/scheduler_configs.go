package config

// Frequency level names as they appear in configuration files. The
// interval mapping is configuration, not policy: the scheduler reads it
// from here and never infers intervals dynamically.
const (
	LevelCritical = "critical"
	LevelHigh     = "high"
	LevelNormal   = "normal"
	LevelLow      = "low"
	LevelMinimal  = "minimal"
)

// SchedulerConfig holds the adaptive scheduling configuration
type SchedulerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// IntervalMinutes maps each frequency level to its fixed run interval
	IntervalMinutes map[string]int `json:"interval_minutes" yaml:"interval_minutes"`

	// WindowHours bounds the metrics window used for classification
	WindowHours int `json:"window_hours" yaml:"window_hours"`

	// MaxCriticalSources caps how many sources may hold the critical
	// level concurrently system-wide
	MaxCriticalSources int `json:"max_critical_sources" yaml:"max_critical_sources"`

	// Policy thresholds
	ErrorRateCeiling float64 `json:"error_rate_ceiling" yaml:"error_rate_ceiling"`
	UrgencyThreshold float64 `json:"urgency_threshold" yaml:"urgency_threshold"`
	LoadThreshold    float64 `json:"load_threshold" yaml:"load_threshold"`

	// UpdateEvery and PruneEvery are cron specs for the background loop
	UpdateEvery string `json:"update_every" yaml:"update_every"`
	PruneEvery  string `json:"prune_every" yaml:"prune_every"`
}

// DispatcherConfig holds worker pool configuration
type DispatcherConfig struct {
	Workers int `json:"workers" yaml:"workers"`

	// TickEvery is the cron spec for dispatch ticks
	TickEvery string `json:"tick_every" yaml:"tick_every"`

	// CollectTimeout bounds a single collector invocation, seconds
	CollectTimeout int `json:"collect_timeout" yaml:"collect_timeout"`

	// BreakerThreshold is the consecutive-failure count that forces a
	// source down to minimal until its next success
	BreakerThreshold int `json:"breaker_threshold" yaml:"breaker_threshold"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port    int `json:"port" yaml:"port"`
	Address string `json:"address" yaml:"address"`

	// MutationTimeout / QueryTimeout bound command execution, seconds
	MutationTimeout int `json:"mutation_timeout" yaml:"mutation_timeout"`
	QueryTimeout    int `json:"query_timeout" yaml:"query_timeout"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	LogLevel    string `json:"log_level" yaml:"log_level"`
	LogPath     string `json:"log_path" yaml:"log_path"`
	Environment string `json:"environment" yaml:"environment"`
}

// DatabaseConfig holds the optional sqlite persistence settings. An
// empty path disables persistence and keeps everything in memory.
type DatabaseConfig struct {
	Path string `json:"path" yaml:"path"`
}

// NotifierConfig holds the optional Telegram operator alert settings
type NotifierConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	BotToken string `json:"bot_token" yaml:"bot_token"`
	ChatID   string `json:"chat_id" yaml:"chat_id"`
	Timeout  int    `json:"timeout" yaml:"timeout"`
}

// NewSchedulerConfig creates a scheduler configuration with defaults
// populated from environment variables
func NewSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Enabled: getEnvBool("SCHEDULER_ENABLED", true),
		IntervalMinutes: map[string]int{
			LevelCritical: 15,
			LevelHigh:     60,
			LevelNormal:   360,
			LevelLow:      1440,
			LevelMinimal:  4320,
		},
		WindowHours:        getEnvInt("SCHEDULER_WINDOW_HOURS", 168),
		MaxCriticalSources: getEnvInt("SCHEDULER_MAX_CRITICAL", 2),
		ErrorRateCeiling:   getEnvFloat("SCHEDULER_ERROR_CEILING", 0.3),
		UrgencyThreshold:   getEnvFloat("SCHEDULER_URGENCY_THRESHOLD", 0.9),
		LoadThreshold:      getEnvFloat("SCHEDULER_LOAD_THRESHOLD", 0.85),
		UpdateEvery:        getEnv("SCHEDULER_UPDATE_EVERY", "@every 10m"),
		PruneEvery:         getEnv("SCHEDULER_PRUNE_EVERY", "@every 1h"),
	}
}

// NewDispatcherConfig creates a dispatcher configuration with defaults
// populated from environment variables
func NewDispatcherConfig() *DispatcherConfig {
	return &DispatcherConfig{
		Workers:          getEnvInt("DISPATCHER_WORKERS", 4),
		TickEvery:        getEnv("DISPATCHER_TICK_EVERY", "@every 1m"),
		CollectTimeout:   getEnvInt("DISPATCHER_COLLECT_TIMEOUT", 120),
		BreakerThreshold: getEnvInt("DISPATCHER_BREAKER_THRESHOLD", 3),
	}
}

// NewServerConfig creates a server configuration with defaults populated
// from environment variables
func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getEnvInt("SERVER_PORT", 8080),
		Address:         getEnv("SERVER_ADDRESS", "0.0.0.0"),
		MutationTimeout: getEnvInt("SERVER_MUTATION_TIMEOUT", 120),
		QueryTimeout:    getEnvInt("SERVER_QUERY_TIMEOUT", 30),
	}
}

// NewAppConfig creates an application configuration with defaults
// populated from environment variables
func NewAppConfig() *AppConfig {
	return &AppConfig{
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogPath:     getEnv("LOG_PATH", ""),
		Environment: getEnv("ENVIRONMENT", "production"),
	}
}

// NewDatabaseConfig creates a database configuration with defaults
// populated from environment variables
func NewDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Path: getEnv("DATABASE_PATH", ""),
	}
}

// NewNotifierConfig creates a notifier configuration with defaults
// populated from environment variables. Disabled unless a bot token is
// provided.
func NewNotifierConfig() *NotifierConfig {
	token := getEnv("TELEGRAM_BOT_TOKEN", "")
	return &NotifierConfig{
		Enabled:  getEnvBool("TELEGRAM_ENABLED", token != ""),
		BotToken: token,
		ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		Timeout:  getEnvInt("TELEGRAM_TIMEOUT", 10),
	}
}
