// Package main provides a standalone health probe for the NutriPlan engine.
// It queries the admin server and is meant for container health checks.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/nutriplan/engine/internal/infrastructure/config"
	"github.com/nutriplan/engine/pkg/healthcheck"
)

const (
	exitCodeSuccess = 0
	exitCodeFailure = 1
	exitCodeError   = 2
)

// Options holds command-line configuration
type Options struct {
	URL          string
	ConfigPath   string
	Mode         string
	Timeout      time.Duration
	RetryCount   int
	RetryDelay   time.Duration
	AllowDegrade bool
	Verbose      bool
	OutputFormat string
}

func main() {
	opts := parseFlags()

	if opts.URL == "" {
		url, err := urlFromConfig(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(exitCodeError)
		}
		opts.URL = url
	}

	os.Exit(run(opts))
}

// parseFlags parses command-line flags
func parseFlags() Options {
	opts := Options{}

	flag.StringVar(&opts.URL, "url", "", "Endpoint URL; derived from the admin config when empty")
	flag.StringVar(&opts.ConfigPath, "config", "", "Configuration file path")
	flag.StringVar(&opts.Mode, "mode", "health", "Probe: health, ready or live")
	flag.DurationVar(&opts.Timeout, "timeout", 5*time.Second, "Request timeout")
	flag.IntVar(&opts.RetryCount, "retry", 0, "Number of retries on failure")
	flag.DurationVar(&opts.RetryDelay, "retry-delay", time.Second, "Delay between retries")
	flag.BoolVar(&opts.AllowDegrade, "allow-degraded", true, "Treat degraded as passing")
	flag.BoolVar(&opts.Verbose, "verbose", false, "Print every check")
	flag.StringVar(&opts.OutputFormat, "format", "text", "Output format: text or json")

	flag.Parse()
	return opts
}

// urlFromConfig builds the probe URL from the admin and monitoring sections
func urlFromConfig(opts Options) (string, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return "", err
	}

	host := cfg.Admin.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	path := cfg.Monitoring.HealthPath
	switch opts.Mode {
	case "ready":
		path = cfg.Monitoring.ReadinessPath
	case "live":
		path = "/live"
	}
	return fmt.Sprintf("http://%s%s", config.AdminConfig{Host: host, Port: cfg.Admin.Port}.Addr(), path), nil
}

func run(opts Options) int {
	client := &http.Client{Timeout: opts.Timeout}

	var lastError error
	for attempt := 0; attempt <= opts.RetryCount; attempt++ {
		if attempt > 0 {
			if opts.Verbose {
				fmt.Printf("Retrying in %v... (attempt %d/%d)\n", opts.RetryDelay, attempt, opts.RetryCount)
			}
			time.Sleep(opts.RetryDelay)
		}

		resp, err := client.Get(opts.URL)
		if err != nil {
			lastError = err
			continue
		}

		code, err := handleResponse(resp, opts)
		if err != nil {
			lastError = err
			continue
		}
		if code == exitCodeSuccess || attempt == opts.RetryCount {
			return code
		}
	}

	fmt.Fprintf(os.Stderr, "Health check failed after %d attempts: %v\n", opts.RetryCount+1, lastError)
	return exitCodeError
}

// handleResponse decodes the body and maps the reported status to an exit code
func handleResponse(resp *http.Response, opts Options) (int, error) {
	defer resp.Body.Close()

	var body struct {
		Status string              `json:"status"`
		Checks []healthcheck.Check `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return exitCodeError, fmt.Errorf("failed to decode response: %w", err)
	}

	if opts.OutputFormat == "json" {
		data, _ := json.MarshalIndent(body, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Status: %s (HTTP %d)\n", body.Status, resp.StatusCode)
		if opts.Verbose {
			for _, check := range body.Checks {
				fmt.Printf("  %s: %s", check.Name, check.Status)
				if check.Message != "" {
					fmt.Printf(" (%s)", check.Message)
				}
				fmt.Println()
			}
		}
	}

	return exitCode(resp.StatusCode, healthcheck.Status(body.Status), opts.AllowDegrade), nil
}

func exitCode(httpStatus int, status healthcheck.Status, allowDegraded bool) int {
	if httpStatus >= http.StatusInternalServerError {
		return exitCodeFailure
	}
	switch status {
	case healthcheck.StatusHealthy:
		return exitCodeSuccess
	case healthcheck.StatusDegraded:
		if allowDegraded {
			return exitCodeSuccess
		}
		return exitCodeFailure
	case healthcheck.StatusUnhealthy:
		return exitCodeFailure
	}
	// liveness and readiness bodies carry alive or ready
	if httpStatus == http.StatusOK {
		return exitCodeSuccess
	}
	return exitCodeFailure
}
