package collector

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"casewatch/pkg/config"
	"casewatch/pkg/logger"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultEndpointTimeout = 30 * time.Second

// HTTPCollector polls a source's HTTP endpoints. Each endpoint keeps a
// content fingerprint between runs so changed records can be counted
// without a schema for the upstream payload. Requests are paced per
// endpoint and retried with backoff on transient failures.
type HTTPCollector struct {
	mu           sync.Mutex
	fingerprints map[string][32]byte
	limiters     map[string]*rate.Limiter
}

// NewHTTPCollector creates an HTTP collector with empty state
func NewHTTPCollector() *HTTPCollector {
	return &HTTPCollector{
		fingerprints: make(map[string][32]byte),
		limiters:     make(map[string]*rate.Limiter),
	}
}

// Collect fetches every endpoint of the source and reports how many
// responded and how many changed since the previous run
func (c *HTTPCollector) Collect(ctx context.Context, source config.SourceConfig) (*Result, error) {
	if !source.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrDisabled, source.Key)
	}
	if len(source.Endpoints) == 0 {
		return nil, fmt.Errorf("source %s has no endpoints configured", source.Key)
	}

	result := &Result{}
	var firstErr error

	for _, endpoint := range source.Endpoints {
		if err := c.waitTurn(ctx, endpoint); err != nil {
			return nil, err
		}

		body, err := c.fetch(ctx, endpoint)
		if err != nil {
			logger.Warn("Endpoint fetch failed",
				zap.String("source_key", source.Key),
				zap.String("url", endpoint.URL),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		result.RecordsProcessed++
		if c.changed(endpoint.URL, body) {
			result.RecordsChanged++
		}
		if urgency, ok := extractUrgency(body); ok && urgency > result.UrgencyScore {
			result.UrgencyScore = urgency
		}
	}

	if result.RecordsProcessed == 0 && firstErr != nil {
		return nil, fmt.Errorf("all endpoints failed for %s: %w", source.Key, firstErr)
	}

	return result, nil
}

// waitTurn blocks until the endpoint's pacing allows another request
func (c *HTTPCollector) waitTurn(ctx context.Context, endpoint config.EndpointConfig) error {
	if endpoint.MinDelay <= 0 {
		return nil
	}

	c.mu.Lock()
	limiter, ok := c.limiters[endpoint.URL]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Duration(endpoint.MinDelay)*time.Second), 1)
		c.limiters[endpoint.URL] = limiter
	}
	c.mu.Unlock()

	return limiter.Wait(ctx)
}

func (c *HTTPCollector) fetch(ctx context.Context, endpoint config.EndpointConfig) ([]byte, error) {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = endpoint.MaxRetries
	if endpoint.RetryDelay > 0 {
		client.RetryWaitMin = time.Duration(endpoint.RetryDelay) * time.Second
	}
	timeout := defaultEndpointTimeout
	if endpoint.TimeoutSeconds > 0 {
		timeout = time.Duration(endpoint.TimeoutSeconds) * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}

	method := endpoint.Method
	if method == "" {
		method = http.MethodGet
	}

	request, err := retryablehttp.NewRequest(method, endpoint.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", endpoint.URL, err)
	}
	request = request.WithContext(ctx)

	response, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", endpoint.URL, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from %s", response.StatusCode, endpoint.URL)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", endpoint.URL, err)
	}

	return body, nil
}

// changed records the body fingerprint and reports whether it differs
// from the previous run. A first fetch counts as changed.
func (c *HTTPCollector) changed(url string, body []byte) bool {
	sum := sha256.Sum256(body)

	c.mu.Lock()
	defer c.mu.Unlock()

	previous, seen := c.fingerprints[url]
	c.fingerprints[url] = sum
	return !seen || previous != sum
}

// extractUrgency pulls an urgency_score field out of a JSON object
// payload when the upstream provides one
func extractUrgency(body []byte) (float64, bool) {
	var payload struct {
		UrgencyScore *float64 `json:"urgency_score"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.UrgencyScore == nil {
		return 0, false
	}
	return *payload.UrgencyScore, true
}
