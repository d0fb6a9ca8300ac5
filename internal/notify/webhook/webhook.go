// Package webhook forwards high-acuity triage results to a configured
// HTTP endpoint, typically a paging or case-management integration.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/acuity/internal/triage"
)

const httpTimeout = 10 * time.Second

// Notifier posts completed triage results to a webhook. Only results
// that warrant escalation (priority 1, or a failed run) are forwarded.
type Notifier struct {
	url    string
	client *http.Client
}

// New creates a webhook notifier. If url is empty, Notify is a no-op.
func New(url string) *Notifier {
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: httpTimeout},
	}
}

// payload is the wire format posted to the webhook.
type payload struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	UrgencyLevel   string    `json:"urgency_level,omitempty"`
	Priority       int       `json:"priority,omitempty"`
	RiskScore      float64   `json:"risk_score,omitempty"`
	Action         string    `json:"recommended_action,omitempty"`
	DegradedStages []string  `json:"degraded_stages,omitempty"`
	Error          string    `json:"error,omitempty"`
	CompletedAt    time.Time `json:"completed_at"`
	DurationS      float64   `json:"duration_seconds"`
}

// Notify posts the result to the configured webhook. Results below
// escalation priority are skipped without error.
func (n *Notifier) Notify(ctx context.Context, result *triage.Result) error {
	if n.url == "" {
		return nil
	}
	if !escalates(result) {
		return nil
	}

	p := payload{
		ID:             result.ID,
		Status:         string(result.Status),
		DegradedStages: result.DegradedStages(),
		Error:          result.Error,
		CompletedAt:    result.CompletedAt,
		DurationS:      result.Duration,
	}
	if rec := result.Recommendation; rec != nil {
		p.UrgencyLevel = rec.UrgencyLevel
		p.Priority = rec.Priority
		p.RiskScore = rec.RiskScore
		p.Action = rec.RecommendedAction
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: url is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook: endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func escalates(r *triage.Result) bool {
	if r.Status == triage.StatusFailed {
		return true
	}
	return r.Recommendation != nil && r.Recommendation.Priority == 1
}
