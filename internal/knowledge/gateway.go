package knowledge

import (
	"context"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/linnemanlabs/go-core/log"
	"golang.org/x/time/rate"

	"github.com/linnemanlabs/acuity/internal/textmatch"
)

// TierConfig describes one external lookup tier.
type TierConfig struct {
	Provider Provider

	// MinConfidence is the acceptance threshold: the tier's answer is used
	// only if at least one result reaches it. Higher-precision tiers carry
	// higher thresholds.
	MinConfidence float64

	// RateLimit caps calls per second to the provider. Zero means no limit.
	RateLimit rate.Limit
	Burst     int
}

// Options tune gateway behavior shared across tiers.
type Options struct {
	// CallTimeout bounds a single provider call. Distinct from the breaker
	// recovery timeout.
	CallTimeout time.Duration

	// FailureThreshold consecutive failures open a provider's breaker.
	FailureThreshold int

	// RecoveryTimeout is how long an open breaker waits before admitting a
	// trial call.
	RecoveryTimeout time.Duration

	// CacheSize is the LRU lookup cache capacity. Zero disables caching.
	CacheSize int
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.CallTimeout <= 0 {
		out.CallTimeout = 5 * time.Second
	}
	if out.FailureThreshold <= 0 {
		out.FailureThreshold = 3
	}
	if out.RecoveryTimeout <= 0 {
		out.RecoveryTimeout = 30 * time.Second
	}
	return out
}

type tier struct {
	provider      Provider
	minConfidence float64
	breaker       *Breaker
	limiter       *rate.Limiter
}

// Gateway tries lookup tiers in fixed order, each behind its own breaker and
// rate limiter, and falls back to the local table when every external tier
// is unavailable or below its acceptance threshold. Safe for concurrent use.
type Gateway struct {
	tiers   []tier
	local   Provider
	timeout time.Duration
	cache   *lru.Cache[string, []Result]
	logger  log.Logger
}

// NewGateway builds a gateway over the given tiers. local is the terminal
// provider; if nil the packaged condition table is used.
func NewGateway(lg log.Logger, opts Options, tiers []TierConfig, local Provider) *Gateway {
	if lg == nil {
		lg = log.Nop()
	}
	if local == nil {
		local = NewLocalProvider()
	}
	opts = opts.withDefaults()

	g := &Gateway{
		local:   local,
		timeout: opts.CallTimeout,
		logger:  lg,
	}
	if opts.CacheSize > 0 {
		// lru.New only errors on non-positive size
		g.cache, _ = lru.New[string, []Result](opts.CacheSize)
	}
	for _, tc := range tiers {
		if tc.Provider == nil {
			continue
		}
		t := tier{
			provider:      tc.Provider,
			minConfidence: tc.MinConfidence,
			breaker:       NewBreaker(opts.FailureThreshold, opts.RecoveryTimeout),
		}
		if tc.RateLimit > 0 {
			burst := tc.Burst
			if burst <= 0 {
				burst = 1
			}
			t.limiter = rate.NewLimiter(tc.RateLimit, burst)
		}
		g.tiers = append(g.tiers, t)
	}
	return g
}

// Lookup walks the tier chain and returns the first accepted answer along
// with the name of the tier that produced it. It cannot fail: the local
// table always answers.
func (g *Gateway) Lookup(ctx context.Context, query string) ([]Result, string) {
	key := textmatch.Fold(query)
	if g.cache != nil {
		if cached, ok := g.cache.Get(key); ok {
			return slices.Clone(cached), cached[0].Source
		}
	}

	for _, t := range g.tiers {
		results, err := g.call(ctx, t, query)
		if err != nil {
			g.logger.Warn(ctx, "lookup tier failed",
				"provider", t.provider.Name(),
				"breaker", t.breaker.State().String(),
				"error", err,
			)
			continue
		}
		if !accepted(results, t.minConfidence) {
			g.logger.Info(ctx, "lookup tier below confidence threshold",
				"provider", t.provider.Name(),
				"results", len(results),
				"min_confidence", t.minConfidence,
			)
			continue
		}
		g.put(key, results)
		return results, t.provider.Name()
	}

	// terminal tier, never fails
	results, _ := g.local.Lookup(ctx, query)
	if len(results) > 0 {
		g.put(key, results)
	}
	return results, g.local.Name()
}

// BreakerStates reports each external tier's breaker state, keyed by
// provider name.
func (g *Gateway) BreakerStates() map[string]BreakerState {
	out := make(map[string]BreakerState, len(g.tiers))
	for _, t := range g.tiers {
		out[t.provider.Name()] = t.breaker.State()
	}
	return out
}

func (g *Gateway) call(ctx context.Context, t tier, query string) ([]Result, error) {
	// exhausted rate allowance skips the tier without charging the breaker
	if t.limiter != nil && !t.limiter.Allow() {
		return nil, ErrUnavailable
	}
	if !t.breaker.Allow() {
		return nil, ErrUnavailable
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	results, err := t.provider.Lookup(cctx, query)
	if err != nil {
		t.breaker.Failure()
		return nil, err
	}
	t.breaker.Success()
	return results, nil
}

func (g *Gateway) put(key string, results []Result) {
	if g.cache != nil && len(results) > 0 {
		g.cache.Add(key, slices.Clone(results))
	}
}

func accepted(results []Result, minConfidence float64) bool {
	for _, r := range results {
		if r.Confidence >= minConfidence {
			return true
		}
	}
	return false
}
