package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		APIToken:              "test-token-123",
		LookupTimeoutSeconds:  5,
		BreakerFailures:       3,
		BreakerRecoverySecs:   30,
		LookupCacheSize:       256,
		TerminologyRateLimit:  10,
		WebSearchRateLimit:    2,
		Workers:               4,
		QueueSize:             64,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.LookupTimeoutSeconds != 5 {
		t.Errorf("LookupTimeoutSeconds = %d, want 5", c.LookupTimeoutSeconds)
	}
	if c.BreakerFailures != 3 {
		t.Errorf("BreakerFailures = %d, want 3", c.BreakerFailures)
	}
	if c.Workers != 4 {
		t.Errorf("Workers = %d, want 4", c.Workers)
	}
	if c.QueueSize != 64 {
		t.Errorf("QueueSize = %d, want 64", c.QueueSize)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-api-token", "tok-override",
		"-terminology-endpoint", "https://terms.example.com/search",
		"-websearch-endpoint", "https://search.example.com",
		"-websearch-api-key", "ws-key",
		"-triage-workers", "8",
		"-webhook-url", "https://hooks.example.com/triage",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.APIToken != "tok-override" {
		t.Errorf("APIToken = %q, want %q", c.APIToken, "tok-override")
	}
	if c.TerminologyEndpoint != "https://terms.example.com/search" {
		t.Errorf("TerminologyEndpoint = %q", c.TerminologyEndpoint)
	}
	if c.WebSearchAPIKey != "ws-key" {
		t.Errorf("WebSearchAPIKey = %q, want %q", c.WebSearchAPIKey, "ws-key")
	}
	if c.Workers != 8 {
		t.Errorf("Workers = %d, want 8", c.Workers)
	}
	if c.WebhookURL != "https://hooks.example.com/triage" {
		t.Errorf("WebhookURL = %q", c.WebhookURL)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	invalidate := func(mutate func(*Config)) Config {
		c := validBase()
		mutate(&c)
		return c
	}

	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "defaults are valid",
			cfg:     validBase(),
			wantErr: false,
		},
		{
			name: "minimum valid values",
			cfg: Config{
				DrainSeconds: 1, ShutdownBudgetSeconds: 2, APIPort: 1, APIToken: "t",
				LookupTimeoutSeconds: 1, BreakerFailures: 1, BreakerRecoverySecs: 1,
				Workers: 1, QueueSize: 1,
			},
			wantErr: false,
		},
		{
			name: "maximum valid values",
			cfg: Config{
				DrainSeconds: 299, ShutdownBudgetSeconds: 300, APIPort: 65535, APIToken: "t",
				LookupTimeoutSeconds: 60, BreakerFailures: 20, BreakerRecoverySecs: 600,
				LookupCacheSize: 100000, Workers: 64, QueueSize: 4096,
			},
			wantErr: false,
		},
		// DrainSeconds boundaries
		{
			name:      "drain zero",
			cfg:       invalidate(func(c *Config) { c.DrainSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain negative",
			cfg:       invalidate(func(c *Config) { c.DrainSeconds = -1 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name: "drain above max",
			cfg: invalidate(func(c *Config) {
				c.DrainSeconds = 301
				c.ShutdownBudgetSeconds = 300
			}),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		// ShutdownBudgetSeconds boundaries
		{
			name:      "budget zero",
			cfg:       invalidate(func(c *Config) { c.ShutdownBudgetSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget above max",
			cfg:       invalidate(func(c *Config) { c.ShutdownBudgetSeconds = 301 }),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		// Cross-field: budget vs drain
		{
			name:      "budget equals drain",
			cfg:       invalidate(func(c *Config) { c.ShutdownBudgetSeconds = 60 }),
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name:      "budget less than drain",
			cfg:       invalidate(func(c *Config) { c.ShutdownBudgetSeconds = 30 }),
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		// APIPort boundaries
		{
			name:      "port zero",
			cfg:       invalidate(func(c *Config) { c.APIPort = 0 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port above max",
			cfg:       invalidate(func(c *Config) { c.APIPort = 65536 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		// Required and dependent string fields
		{
			name:      "empty api token",
			cfg:       invalidate(func(c *Config) { c.APIToken = "" }),
			wantErr:   true,
			errSubstr: []string{"API_TOKEN"},
		},
		{
			name:      "websearch endpoint without key",
			cfg:       invalidate(func(c *Config) { c.WebSearchEndpoint = "https://search.example.com" }),
			wantErr:   true,
			errSubstr: []string{"WEBSEARCH_API_KEY"},
		},
		{
			name: "websearch endpoint with key",
			cfg: invalidate(func(c *Config) {
				c.WebSearchEndpoint = "https://search.example.com"
				c.WebSearchAPIKey = "k"
			}),
			wantErr: false,
		},
		// Lookup tier tuning boundaries
		{
			name:      "lookup timeout zero",
			cfg:       invalidate(func(c *Config) { c.LookupTimeoutSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"LOOKUP_TIMEOUT_SECONDS"},
		},
		{
			name:      "breaker threshold above max",
			cfg:       invalidate(func(c *Config) { c.BreakerFailures = 21 }),
			wantErr:   true,
			errSubstr: []string{"BREAKER_FAILURE_THRESHOLD"},
		},
		{
			name:      "breaker recovery zero",
			cfg:       invalidate(func(c *Config) { c.BreakerRecoverySecs = 0 }),
			wantErr:   true,
			errSubstr: []string{"BREAKER_RECOVERY_SECONDS"},
		},
		{
			name:      "negative cache size",
			cfg:       invalidate(func(c *Config) { c.LookupCacheSize = -1 }),
			wantErr:   true,
			errSubstr: []string{"LOOKUP_CACHE_SIZE"},
		},
		{
			name:    "zero cache size disables caching",
			cfg:     invalidate(func(c *Config) { c.LookupCacheSize = 0 }),
			wantErr: false,
		},
		{
			name:      "negative rate limit",
			cfg:       invalidate(func(c *Config) { c.TerminologyRateLimit = -1 }),
			wantErr:   true,
			errSubstr: []string{"TERMINOLOGY_RATE_LIMIT"},
		},
		// Worker pool boundaries
		{
			name:      "workers zero",
			cfg:       invalidate(func(c *Config) { c.Workers = 0 }),
			wantErr:   true,
			errSubstr: []string{"TRIAGE_WORKERS"},
		},
		{
			name:      "workers above max",
			cfg:       invalidate(func(c *Config) { c.Workers = 65 }),
			wantErr:   true,
			errSubstr: []string{"TRIAGE_WORKERS"},
		},
		{
			name:      "queue zero",
			cfg:       invalidate(func(c *Config) { c.QueueSize = 0 }),
			wantErr:   true,
			errSubstr: []string{"TRIAGE_QUEUE_SIZE"},
		},
		// Error accumulation: many fields invalid
		{
			name:    "all fields invalid",
			cfg:     Config{},
			wantErr: true,
			errSubstr: []string{
				"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "API_TOKEN",
				"LOOKUP_TIMEOUT_SECONDS", "BREAKER_FAILURE_THRESHOLD", "BREAKER_RECOVERY_SECONDS",
				"TRIAGE_WORKERS", "TRIAGE_QUEUE_SIZE",
			},
		},
		// Extreme values
		{
			name: "extreme negative values",
			cfg: invalidate(func(c *Config) {
				c.DrainSeconds = math.MinInt32
				c.ShutdownBudgetSeconds = math.MinInt32
				c.APIPort = math.MinInt32
			}),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	// Seeds: defaults, boundaries, extremes
	seeds := []struct {
		drain, budget, port, workers, queue int
		token                               string
	}{
		{60, 90, 8080, 4, 64, "tok"},
		{1, 2, 1, 1, 1, "t"},
		{299, 300, 65535, 64, 4096, "t"},
		{0, 0, 0, 0, 0, ""},
		{-1, -1, -1, -1, -1, ""},
		{150, 100, 8080, 4, 64, "t"},
		{math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, ""},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, ""},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.workers, s.queue, s.token)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port, workers, queue int, token string) {
		c := validBase()
		c.DrainSeconds = drain
		c.ShutdownBudgetSeconds = budget
		c.APIPort = port
		c.Workers = workers
		c.QueueSize = queue
		c.APIToken = token
		err := c.Validate()

		drainOK := drain >= 1 && drain <= 300
		budgetOK := budget >= 1 && budget <= 300
		portOK := port >= 1 && port <= 65535
		crossOK := budget > drain
		workersOK := workers >= 1 && workers <= 64
		queueOK := queue >= 1 && queue <= 4096
		tokenOK := token != ""

		allValid := drainOK && budgetOK && portOK && crossOK && workersOK && queueOK && tokenOK

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
