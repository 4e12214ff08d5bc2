package config

import "fmt"

// requiredLevels are the frequency levels the interval table must cover
var requiredLevels = []string{LevelCritical, LevelHigh, LevelNormal, LevelLow, LevelMinimal}

// ValidateConfig validates the complete configuration
func (c *Config) ValidateConfig() error {
	if err := c.validateSchedulerConfig(); err != nil {
		return fmt.Errorf("%w: %v", ErrSchedulerConfig, err)
	}

	if err := c.validateDispatcherConfig(); err != nil {
		return fmt.Errorf("%w: %v", ErrDispatcherConfig, err)
	}

	if err := c.validateSourcesConfig(); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceConfig, err)
	}

	if err := c.validateServerConfig(); err != nil {
		return err
	}

	return nil
}

func (c *Config) validateSchedulerConfig() error {
	sc := c.GetSchedulerConfig()

	prev := 0
	for _, level := range requiredLevels {
		minutes, ok := sc.IntervalMinutes[level]
		if !ok {
			return fmt.Errorf("%w: interval_minutes.%s", ErrMissingRequired, level)
		}
		if minutes <= 0 {
			return fmt.Errorf("%w: interval_minutes.%s must be positive", ErrInvalidValue, level)
		}
		// Levels are ordered; a more aggressive level cannot have a
		// longer interval than a less aggressive one
		if minutes < prev {
			return fmt.Errorf("%w: interval_minutes.%s shorter than a more aggressive level", ErrInvalidValue, level)
		}
		prev = minutes
	}

	if sc.WindowHours <= 0 {
		return fmt.Errorf("%w: window_hours must be positive", ErrInvalidValue)
	}

	if sc.MaxCriticalSources < 0 {
		return fmt.Errorf("%w: max_critical_sources cannot be negative", ErrInvalidValue)
	}

	for name, v := range map[string]float64{
		"error_rate_ceiling": sc.ErrorRateCeiling,
		"urgency_threshold":  sc.UrgencyThreshold,
		"load_threshold":     sc.LoadThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0,1]", ErrInvalidValue, name)
		}
	}

	return nil
}

func (c *Config) validateDispatcherConfig() error {
	dc := c.GetDispatcherConfig()

	if dc.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidValue)
	}

	if dc.CollectTimeout <= 0 {
		return fmt.Errorf("%w: collect_timeout must be positive", ErrInvalidValue)
	}

	if dc.BreakerThreshold <= 0 {
		return fmt.Errorf("%w: breaker_threshold must be positive", ErrInvalidValue)
	}

	return nil
}

func (c *Config) validateSourcesConfig() error {
	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		if src.Key == "" {
			return fmt.Errorf("%w: sources[%d].key", ErrMissingRequired, i)
		}
		if src.Name == "" {
			return fmt.Errorf("%w: sources[%d].name", ErrMissingRequired, i)
		}
		if seen[src.Key] {
			return fmt.Errorf("%w: duplicate source key %q", ErrInvalidValue, src.Key)
		}
		seen[src.Key] = true
	}
	return nil
}

func (c *Config) validateServerConfig() error {
	sc := c.GetServerConfig()

	if sc.Port <= 0 || sc.Port > 65535 {
		return fmt.Errorf("%w: port must be within 1-65535", ErrInvalidValue)
	}

	return nil
}
