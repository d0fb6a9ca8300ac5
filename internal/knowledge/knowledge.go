// Package knowledge wraps the external medical lookup providers behind a
// circuit breaker and an ordered fallback chain. Callers submit a text query
// and receive scored reference results; which provider answered is carried in
// the result source. The terminal tier is a local reference table that never
// fails, so a lookup always produces an answer even with every external
// provider down.
package knowledge

import (
	"context"
	"errors"
)

// Sources, in fallback order.
const (
	SourceTerminology = "terminology"
	SourceWebSearch   = "websearch"
	SourceLocal       = "local"
)

// ErrUnavailable is returned by a provider whose circuit is open or whose
// rate allowance is exhausted. The gateway treats it as "skip to next tier"
// without waiting out the call timeout.
var ErrUnavailable = errors.New("knowledge: provider unavailable")

// Result is one lookup hit. Confidence is the provider's own relevance
// estimate in [0,1]; tiers with higher precision get higher acceptance
// thresholds in the gateway.
type Result struct {
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet,omitempty"`
	Code       string  `json:"code,omitempty"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// Provider answers free-text medical queries.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, query string) ([]Result, error)
}
