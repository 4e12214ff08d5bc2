package config

// SourceConfig describes one external data source. Sources are created
// at configuration load and immutable during a scheduling cycle.
type SourceConfig struct {
	Name      string           `json:"name" yaml:"name"`
	Key       string           `json:"key" yaml:"key"`
	Enabled   bool             `json:"enabled" yaml:"enabled"`
	Endpoints []EndpointConfig `json:"endpoints" yaml:"endpoints"`
}

// EndpointConfig describes one endpoint of a source. The scheduler core
// treats endpoints as opaque; the generic HTTP collector consumes them.
type EndpointConfig struct {
	URL            string  `json:"url" yaml:"url"`
	Method         string  `json:"method" yaml:"method"`
	MinDelay       float64 `json:"min_delay" yaml:"min_delay"` // seconds between requests
	MaxRetries     int     `json:"max_retries" yaml:"max_retries"`
	RetryDelay     float64 `json:"retry_delay" yaml:"retry_delay"` // seconds
	TimeoutSeconds int     `json:"timeout_seconds" yaml:"timeout_seconds"`
}
