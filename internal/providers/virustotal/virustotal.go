// Package virustotal adapts the VirusTotal v3 API to the common provider
// contract. It supports both digest (file) and URL lookups.
package virustotal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/repscan/app-scanner/internal/providers"
	"github.com/repscan/app-scanner/internal/scan"
)

// ProviderID identifies VirusTotal in results and logs.
const ProviderID = "virustotal"

const defaultBaseURL = "https://www.virustotal.com/api/v3"

// Client is the VirusTotal adapter.
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

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a VirusTotal adapter. An empty apiKey produces an
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

// vtObject is the typed shape of a VirusTotal v3 object response. Only the
// fields the pipeline depends on are modeled; the full payload is kept as
// raw evidence.
type vtObject struct {
	Data struct {
		ID         string       `json:"id"`
		Attributes vtAttributes `json:"attributes"`
	} `json:"data"`
}

type vtAttributes struct {
	LastAnalysisStats vtAnalysisStats `json:"last_analysis_stats"`
}

type vtAnalysisStats struct {
	Malicious        int `json:"malicious"`
	Suspicious       int `json:"suspicious"`
	Harmless         int `json:"harmless"`
	Undetected       int `json:"undetected"`
	Timeout          int `json:"timeout"`
	ConfirmedTimeout int `json:"confirmed-timeout"`
	Failure          int `json:"failure"`
	TypeUnsupported  int `json:"type-unsupported"`
}

// total sums every category, harmless and undetected included. Evidence
// display depends on this exact definition of "total engines".
func (s vtAnalysisStats) total() int {
	return s.Malicious + s.Suspicious + s.Harmless + s.Undetected +
		s.Timeout + s.ConfirmedTimeout + s.Failure + s.TypeUnsupported
}

// LookupHash queries VirusTotal for a file digest.
func (c *Client) LookupHash(ctx context.Context, sha256 string) scan.ProviderResult {
	return c.lookup(ctx, fmt.Sprintf("%s/files/%s", c.baseURL, sha256))
}

// LookupURL queries VirusTotal for a URL. VirusTotal addresses URLs by the
// unpadded base64 of the raw URL string.
func (c *Client) LookupURL(ctx context.Context, rawurl string) scan.ProviderResult {
	urlID := base64.StdEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(rawurl))
	return c.lookup(ctx, fmt.Sprintf("%s/urls/%s", c.baseURL, urlID))
}

func (c *Client) lookup(ctx context.Context, endpoint string) scan.ProviderResult {
	if !c.Configured() {
		return providers.NotConfiguredResult(ProviderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return c.softFail(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("x-apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and cancellations land here; both degrade to a
		// soft failure like any other network error.
		return c.softFail(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	// A 404 means VirusTotal has no record for this identifier. That is
	// a valid, common outcome, not an error.
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

	var obj vtObject
	if err := json.Unmarshal(body, &obj); err != nil {
		return c.softFail(fmt.Errorf("failed to decode response: %w", err))
	}

	stats := obj.Data.Attributes.LastAnalysisStats
	verdict := scan.VerdictClean
	if stats.Malicious > 0 {
		verdict = scan.VerdictMalicious
	}

	return scan.ProviderResult{
		Provider:       ProviderID,
		Found:          true,
		Verdict:        verdict,
		DetectionCount: stats.Malicious,
		TotalEngines:   stats.total(),
		Raw:            json.RawMessage(body),
	}
}

func (c *Client) softFail(err error) scan.ProviderResult {
	c.logger.Warn("VirusTotal lookup failed", zap.Error(err))
	return scan.ProviderResult{
		Provider: ProviderID,
		Found:    false,
		Error:    fmt.Sprintf("virustotal: %v", err),
	}
}
