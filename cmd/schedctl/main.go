package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// schedctl is the operator CLI. It talks to a running server over the
// API; every flag maps onto one endpoint.
func main() {
	var (
		addr             = flag.String("addr", "http://127.0.0.1:8080", "server address")
		updateSchedules  = flag.Bool("update-schedules", false, "recompute all schedules and print the table")
		analyzeSource    = flag.String("analyze-source", "", "print the schedule one source would get, without committing it")
		currentSchedules = flag.Bool("current-schedules", false, "print the committed schedule table")
		stats            = flag.Bool("stats", false, "print the scheduling stats report")
		recordMetrics    = flag.String("record-metrics", "", "record a metrics sample, given as JSON")
		forceRun         = flag.String("force-run", "", "schedule an immediate run for a source")
		asJSON           = flag.Bool("json", false, "print schedules as JSON instead of text lines")
		timeout          = flag.Duration("timeout", 150*time.Second, "request timeout")
	)
	flag.Parse()

	cli := client{base: *addr, http: newHTTPClient(*timeout)}

	var err error
	switch {
	case *updateSchedules:
		err = cli.updateSchedules(*asJSON)
	case *analyzeSource != "":
		err = cli.analyzeSource(*analyzeSource)
	case *currentSchedules:
		err = cli.currentSchedules(*asJSON)
	case *stats:
		err = cli.stats()
	case *recordMetrics != "":
		err = cli.recordMetrics(*recordMetrics)
	case *forceRun != "":
		err = cli.forceRun(*forceRun)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "schedctl: %v\n", err)
		os.Exit(1)
	}
}

func newHTTPClient(timeout time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.Logger = nil
	c.RetryMax = 2
	c.HTTPClient = &http.Client{Timeout: timeout}
	return c
}

type client struct {
	base string
	http *retryablehttp.Client
}

func (c *client) updateSchedules(asJSON bool) error {
	body, err := c.do(http.MethodPost, "/api/v1/scheduler/update", nil)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(body)
	}
	return printScheduleLines(body)
}

func (c *client) currentSchedules(asJSON bool) error {
	if asJSON {
		body, err := c.do(http.MethodGet, "/api/v1/scheduler/schedules", nil)
		if err != nil {
			return err
		}
		return printJSON(body)
	}

	body, err := c.do(http.MethodGet, "/api/v1/scheduler/schedules?format=text", nil)
	if err != nil {
		return err
	}
	fmt.Print(string(body))
	return nil
}

func (c *client) analyzeSource(key string) error {
	body, err := c.do(http.MethodGet, "/api/v1/scheduler/schedules/"+key, nil)
	if err != nil {
		return err
	}
	return printJSON(body)
}

func (c *client) stats() error {
	body, err := c.do(http.MethodGet, "/api/v1/scheduler/stats", nil)
	if err != nil {
		return err
	}
	return printJSON(body)
}

func (c *client) recordMetrics(sampleJSON string) error {
	var sample struct {
		SourceKey string `json:"source_key"`
	}
	if err := json.Unmarshal([]byte(sampleJSON), &sample); err != nil {
		return fmt.Errorf("invalid sample JSON: %w", err)
	}
	if sample.SourceKey == "" {
		return fmt.Errorf("sample JSON must carry a source_key")
	}

	body, err := c.do(http.MethodPost,
		"/api/v1/sources/"+sample.SourceKey+"/metrics", []byte(sampleJSON))
	if err != nil {
		return err
	}
	return printJSON(body)
}

func (c *client) forceRun(key string) error {
	body, err := c.do(http.MethodPost, "/api/v1/sources/"+key+"/run", nil)
	if err != nil {
		return err
	}
	return printJSON(body)
}

func (c *client) do(method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequest(method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	return body, nil
}

// printScheduleLines renders a schedule table response as legacy lines
func printScheduleLines(body []byte) error {
	var envelope struct {
		Data []struct {
			SourceKey       string `json:"source_key"`
			Level           string `json:"frequency_level"`
			IntervalMinutes int    `json:"interval_minutes"`
			Reason          string `json:"reason"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("unexpected response shape: %w", err)
	}

	for _, entry := range envelope.Data {
		fmt.Printf("%s: %s (%d min) - %s\n",
			entry.SourceKey, entry.Level, entry.IntervalMinutes, entry.Reason)
	}
	return nil
}

func printJSON(body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return nil
	}
	fmt.Println(buf.String())
	return nil
}
