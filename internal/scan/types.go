package scan

import (
	"encoding/json"
	"fmt"
)

// Verdict is the categorical risk classification used throughout the
// pipeline, both for the local heuristic and for provider results.
type Verdict string

const (
	// VerdictMalicious indicates confirmed malicious content
	VerdictMalicious Verdict = "malicious"
	// VerdictSuspicious indicates content that warrants caution
	VerdictSuspicious Verdict = "suspicious"
	// VerdictClean indicates no detections were reported
	VerdictClean Verdict = "clean"
	// VerdictUnknown indicates no usable signal is available
	VerdictUnknown Verdict = "unknown"
)

// TargetKind discriminates the two kinds of scan targets.
type TargetKind string

const (
	// TargetFile is a file submitted as raw bytes
	TargetFile TargetKind = "file"
	// TargetURL is a URL submitted as a string
	TargetURL TargetKind = "url"
)

// Target is what a caller submitted for scanning. It is immutable once
// created and owned exclusively by a single orchestration call.
type Target struct {
	Kind     TargetKind
	Bytes    []byte
	Filename string
	URL      string
}

// DisplayName returns the name shown to the user for this target.
func (t Target) DisplayName() string {
	if t.Kind == TargetURL {
		return t.URL
	}
	return t.Filename
}

// LocalAssessment is the heuristic assessment computed locally from file
// bytes. URL targets have no local assessment.
type LocalAssessment struct {
	// FileName is the display name the caller provided
	FileName string `json:"file_name"`
	// SHA256 is the lowercase hex digest of the full content
	SHA256 string `json:"sha256"`
	// SizeBytes is the content length
	SizeBytes int `json:"size_bytes"`
	// Tags are format tags derived from leading bytes
	Tags []string `json:"tags"`
	// Verdict is the local heuristic verdict (suspicious or unknown only)
	Verdict Verdict `json:"verdict"`
	// ScannedAt is when the assessment was produced (unix seconds)
	ScannedAt int64 `json:"scanned_at"`
}

// ProviderResult is the normalized outcome of one external reputation
// lookup. Exactly one instance exists per provider queried per scan.
type ProviderResult struct {
	// Provider identifies which adapter produced this result
	Provider string `json:"provider"`
	// Found reports whether the provider had a record for the identifier
	Found bool `json:"found"`
	// Verdict is the provider's classification; empty when Found is false
	// or Error is set
	Verdict Verdict `json:"verdict,omitempty"`
	// DetectionCount is the number of engines flagging the identifier
	DetectionCount int `json:"detection_count,omitempty"`
	// TotalEngines is the total number of engines consulted
	TotalEngines int `json:"total_engines,omitempty"`
	// Error describes a soft failure (network, auth, parse, missing key)
	Error string `json:"error,omitempty"`
	// Raw preserves the provider's native response for evidence display
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Validate checks the invariants between the result fields.
func (r ProviderResult) Validate() error {
	if r.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if r.Error != "" && r.Verdict != "" {
		return fmt.Errorf("verdict must be absent when error is set")
	}
	if !r.Found && r.Verdict != "" && r.Verdict != VerdictUnknown {
		return fmt.Errorf("verdict %q not allowed when record was not found", r.Verdict)
	}
	return nil
}

// Result is the aggregate record returned to the caller for one scan. Its
// JSON field names are caller contract: any rendering layer consumes the
// flat structure directly.
type Result struct {
	// ID uniquely identifies this scan
	ID string `json:"id"`
	// URL is set for URL targets
	URL string `json:"url,omitempty"`
	// FileName, SHA256, SizeBytes and Tags are set for file targets
	FileName  string   `json:"file_name,omitempty"`
	SHA256    string   `json:"sha256,omitempty"`
	SizeBytes int      `json:"size_bytes,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	// Local is the full local assessment, when one exists
	Local *LocalAssessment `json:"local,omitempty"`
	// Providers holds one entry per provider that was queried
	Providers []ProviderResult `json:"external"`
	// FinalVerdict is the aggregated verdict
	FinalVerdict Verdict `json:"final_verdict"`
	// Narrative is the optional generated guidance text
	Narrative string `json:"ai_analysis,omitempty"`
	// NarrativeError is set when narrative generation failed
	NarrativeError string `json:"ai_error,omitempty"`
	// ScannedAt is when the scan completed (unix seconds)
	ScannedAt int64 `json:"scanned_at"`
}

// FirstEvidence returns the first provider result that found a record, or
// nil when none did. Narrative generation uses it for the detection ratio.
func (r *Result) FirstEvidence() *ProviderResult {
	for i := range r.Providers {
		if r.Providers[i].Found {
			return &r.Providers[i]
		}
	}
	return nil
}

// ToJSON serializes the result for storage or transport.
func (r *Result) ToJSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal scan result: %w", err)
	}
	return string(data), nil
}

// FromJSON restores a result serialized with ToJSON.
func FromJSON(data string) (*Result, error) {
	var result Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan result: %w", err)
	}
	return &result, nil
}
