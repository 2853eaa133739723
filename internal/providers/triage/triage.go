// Package triage adapts the Hatching Triage sandbox search API to the
// common provider contract. Triage scores samples 1-10 rather than
// exposing per-engine detection stats, so its results carry a verdict and
// raw evidence but no engine counts.
package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/repscan/app-scanner/internal/providers"
	"github.com/repscan/app-scanner/internal/scan"
)

// ProviderID identifies Triage in results and logs.
const ProviderID = "triage"

const defaultBaseURL = "https://api.tria.ge/v0"

// Score thresholds for mapping Triage's 1-10 scale onto verdicts.
const (
	maliciousScore  = 8
	suspiciousScore = 5
)

// Client is the Triage adapter.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests to point the
// client at a fake server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// NewClient creates a Triage adapter. An empty apiKey produces an
// unconfigured client that short-circuits every lookup.
func NewClient(apiKey string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the provider identifier.
func (c *Client) ID() string { return ProviderID }

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// searchResponse is the typed shape of a Triage search result page.
type searchResponse struct {
	Data []sample `json:"data"`
}

type sample struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Score  int    `json:"score"`
}

// LookupHash searches Triage for analyses of a file digest. An empty
// result set is the "not found" outcome; otherwise the highest sample
// score decides the verdict.
func (c *Client) LookupHash(ctx context.Context, sha256 string) scan.ProviderResult {
	if !c.Configured() {
		return providers.NotConfiguredResult(ProviderID)
	}

	endpoint := fmt.Sprintf("%s/search?query=%s", c.baseURL, url.QueryEscape("sha256:"+sha256))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return c.softFail(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.softFail(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return scan.ProviderResult{Provider: ProviderID, Found: false}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return c.softFail(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.softFail(fmt.Errorf("failed to read response: %w", err))
	}

	var search searchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return c.softFail(fmt.Errorf("failed to decode response: %w", err))
	}

	if len(search.Data) == 0 {
		return scan.ProviderResult{Provider: ProviderID, Found: false}
	}

	maxScore := 0
	for _, s := range search.Data {
		if s.Score > maxScore {
			maxScore = s.Score
		}
	}

	return scan.ProviderResult{
		Provider: ProviderID,
		Found:    true,
		Verdict:  verdictForScore(maxScore),
		Raw:      json.RawMessage(body),
	}
}

func verdictForScore(score int) scan.Verdict {
	switch {
	case score >= maliciousScore:
		return scan.VerdictMalicious
	case score >= suspiciousScore:
		return scan.VerdictSuspicious
	default:
		return scan.VerdictClean
	}
}

func (c *Client) softFail(err error) scan.ProviderResult {
	c.logger.Warn("Triage lookup failed", zap.Error(err))
	return scan.ProviderResult{
		Provider: ProviderID,
		Found:    false,
		Error:    fmt.Sprintf("triage: %v", err),
	}
}
