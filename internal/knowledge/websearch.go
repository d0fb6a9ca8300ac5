package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/acuity/internal/textmatch"
)

// WebSearchProvider queries a general web-search API (Serper wire format)
// for clinical content. Lower precision than the terminology tier; callers
// are expected to filter non-clinical hits.
type WebSearchProvider struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewWebSearchProvider creates a provider against the given search endpoint.
func NewWebSearchProvider(endpoint, apiKey string) *WebSearchProvider {
	return &WebSearchProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (p *WebSearchProvider) Name() string { return SourceWebSearch }

// Lookup runs a medical-scoped search and slims the organic hits down to
// title/snippet pairs with an overlap-based confidence.
func (p *WebSearchProvider) Lookup(ctx context.Context, query string) ([]Result, error) {
	reqBody, err := json.Marshal(map[string]any{
		"q":   query + " medical condition diagnosis",
		"num": 10,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Organic []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"organic"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	out := make([]Result, 0, len(payload.Organic))
	for _, hit := range payload.Organic {
		if hit.Title == "" {
			continue
		}
		out = append(out, Result{
			Title:      hit.Title,
			Snippet:    hit.Snippet,
			Confidence: searchConfidence(query, hit.Title, hit.Snippet),
			Source:     SourceWebSearch,
		})
	}
	return out, nil
}

// searchConfidence estimates relevance from how many query words appear in
// the hit's title and snippet. Title hits count double.
func searchConfidence(query, title, snippet string) float64 {
	words := textmatch.Tokenize(query)
	if len(words) == 0 {
		return 0.3
	}
	var hits float64
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if textmatch.Contains(title, w) {
			hits += 2
		} else if textmatch.Contains(snippet, w) {
			hits++
		}
	}
	conf := 0.3 + 0.6*hits/float64(2*len(words))
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}
