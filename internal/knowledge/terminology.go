package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/linnemanlabs/acuity/internal/textmatch"
)

// TerminologyProvider queries a structured clinical-terminology service
// (NLM clinical tables wire format). It is the highest-precision tier.
type TerminologyProvider struct {
	endpoint   string
	maxResults int
	httpClient *http.Client
}

// NewTerminologyProvider creates a provider against the given search
// endpoint.
func NewTerminologyProvider(endpoint string) *TerminologyProvider {
	return &TerminologyProvider{
		endpoint:   endpoint,
		maxResults: 8,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (p *TerminologyProvider) Name() string { return SourceTerminology }

// Lookup queries the terminology service. The wire format is a four-element
// array: total count, term codes, an unused field map, and display rows.
func (p *TerminologyProvider) Lookup(ctx context.Context, query string) ([]Result, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("terms", query)
	q.Set("maxList", fmt.Sprintf("%d", p.maxResults))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("terminology lookup failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("terminology service returned %d: %s", resp.StatusCode, string(body))
	}

	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(payload) < 4 {
		return nil, fmt.Errorf("terminology response has %d elements, want 4", len(payload))
	}

	var codes []string
	if err := json.Unmarshal(payload[1], &codes); err != nil {
		return nil, fmt.Errorf("parse codes: %w", err)
	}
	var rows [][]string
	if err := json.Unmarshal(payload[3], &rows); err != nil {
		return nil, fmt.Errorf("parse display rows: %w", err)
	}

	out := make([]Result, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		var code string
		if i < len(codes) {
			code = codes[i]
		}
		out = append(out, Result{
			Title:      row[0],
			Code:       code,
			Confidence: termConfidence(query, row[0], len(out)),
			Source:     SourceTerminology,
		})
	}
	return out, nil
}

// termConfidence blends the service's rank ordering with direct word overlap
// between query and returned term.
func termConfidence(query, term string, rank int) float64 {
	conf := 0.9 - 0.05*float64(rank)
	if !textmatch.Similar(query, term) {
		conf -= 0.25
	}
	if conf < 0.2 {
		conf = 0.2
	}
	return conf
}
