package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds application-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string
	DatabaseURL           string
	TerminologyEndpoint   string
	WebSearchEndpoint     string
	WebSearchAPIKey       string
	LookupTimeoutSeconds  int
	BreakerFailures       int
	BreakerRecoverySecs   int
	LookupCacheSize       int
	TerminologyRateLimit  float64
	WebSearchRateLimit    float64
	Workers               int
	QueueSize             int
	WebhookURL            string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.TerminologyEndpoint, "terminology-endpoint", "", "clinical terminology search endpoint (empty = tier disabled)")
	fs.StringVar(&c.WebSearchEndpoint, "websearch-endpoint", "", "web search endpoint for the fallback lookup tier (empty = tier disabled)")
	fs.StringVar(&c.WebSearchAPIKey, "websearch-api-key", "", "API key for the web search endpoint")
	fs.IntVar(&c.LookupTimeoutSeconds, "lookup-timeout-seconds", 5, "per-call timeout for external lookup tiers (1..60)")
	fs.IntVar(&c.BreakerFailures, "breaker-failure-threshold", 3, "consecutive failures that open a lookup tier's circuit breaker (1..20)")
	fs.IntVar(&c.BreakerRecoverySecs, "breaker-recovery-seconds", 30, "seconds an open breaker waits before admitting a trial call (1..600)")
	fs.IntVar(&c.LookupCacheSize, "lookup-cache-size", 256, "LRU lookup cache capacity (0 disables caching)")
	fs.Float64Var(&c.TerminologyRateLimit, "terminology-rate-limit", 10, "terminology tier calls per second (0 = unlimited)")
	fs.Float64Var(&c.WebSearchRateLimit, "websearch-rate-limit", 2, "web search tier calls per second (0 = unlimited)")
	fs.IntVar(&c.Workers, "triage-workers", 4, "triage worker pool size (1..64)")
	fs.IntVar(&c.QueueSize, "triage-queue-size", 64, "pending triage run queue capacity (1..4096)")
	fs.StringVar(&c.WebhookURL, "webhook-url", "", "webhook URL for high-acuity result notifications (empty = disabled)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// API token is required, the triage API carries patient data
	if c.APIToken == "" {
		errs = append(errs, errors.New("API_TOKEN is required"))
	}

	// A web search endpoint is useless without its key
	if c.WebSearchEndpoint != "" && c.WebSearchAPIKey == "" {
		errs = append(errs, errors.New("WEBSEARCH_API_KEY is required when WEBSEARCH_ENDPOINT is set"))
	}

	if c.LookupTimeoutSeconds <= 0 || c.LookupTimeoutSeconds > 60 {
		errs = append(errs, fmt.Errorf("invalid LOOKUP_TIMEOUT_SECONDS %d (must be 1..60)", c.LookupTimeoutSeconds))
	}
	if c.BreakerFailures <= 0 || c.BreakerFailures > 20 {
		errs = append(errs, fmt.Errorf("invalid BREAKER_FAILURE_THRESHOLD %d (must be 1..20)", c.BreakerFailures))
	}
	if c.BreakerRecoverySecs <= 0 || c.BreakerRecoverySecs > 600 {
		errs = append(errs, fmt.Errorf("invalid BREAKER_RECOVERY_SECONDS %d (must be 1..600)", c.BreakerRecoverySecs))
	}
	if c.LookupCacheSize < 0 || c.LookupCacheSize > 100000 {
		errs = append(errs, fmt.Errorf("invalid LOOKUP_CACHE_SIZE %d (must be 0..100000)", c.LookupCacheSize))
	}
	if c.TerminologyRateLimit < 0 {
		errs = append(errs, fmt.Errorf("invalid TERMINOLOGY_RATE_LIMIT %v (must be >= 0)", c.TerminologyRateLimit))
	}
	if c.WebSearchRateLimit < 0 {
		errs = append(errs, fmt.Errorf("invalid WEBSEARCH_RATE_LIMIT %v (must be >= 0)", c.WebSearchRateLimit))
	}
	if c.Workers <= 0 || c.Workers > 64 {
		errs = append(errs, fmt.Errorf("invalid TRIAGE_WORKERS %d (must be 1..64)", c.Workers))
	}
	if c.QueueSize <= 0 || c.QueueSize > 4096 {
		errs = append(errs, fmt.Errorf("invalid TRIAGE_QUEUE_SIZE %d (must be 1..4096)", c.QueueSize))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
