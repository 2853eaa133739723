package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/repscan/app-scanner/internal/scan"
)

func TestBuildPrompt(t *testing.T) {
	req := Request{
		Verdict:     scan.VerdictMalicious,
		DisplayName: "invoice.exe",
		TargetKind:  scan.TargetFile,
		Evidence:    &EvidenceSummary{Provider: "virustotal", DetectionCount: 42, TotalEngines: 70},
	}

	prompt := BuildPrompt(req)

	assert.Contains(t, prompt, `"invoice.exe"`)
	assert.Contains(t, prompt, `"malicious"`)
	assert.Contains(t, prompt, "42 out of 70 engines")
	assert.Contains(t, prompt, "Risk Level")
	assert.Contains(t, prompt, "Prevention Tips")
	assert.NotContains(t, prompt, "adult-content")
}

func TestBuildPrompt_URLGetsAdultContentNote(t *testing.T) {
	prompt := BuildPrompt(Request{
		Verdict:     scan.VerdictUnknown,
		DisplayName: "https://example.com",
		TargetKind:  scan.TargetURL,
	})

	assert.Contains(t, prompt, "Additional Note")
	assert.Contains(t, prompt, "mental health professional")
}

func TestGenerate_UnconfiguredReturnsPlaceholder(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("", "", time.Second, zap.NewNop(), WithBaseURL(srv.URL))

	got, err := g.Generate(context.Background(), Request{Verdict: scan.VerdictClean})

	assert.NoError(t, err)
	assert.Equal(t, Placeholder, got)
	assert.Equal(t, 0, calls)
}

func TestGenerate_ReturnsModelText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-3.5-turbo", req.Model)
		assert.Len(t, req.Messages, 1)
		assert.True(t, strings.Contains(req.Messages[0].Content, "cybersecurity professional"))

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"**Risk Level:** Low"}}]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("sk-test", "", 5*time.Second, zap.NewNop(), WithBaseURL(srv.URL))

	got, err := g.Generate(context.Background(), Request{
		Verdict:     scan.VerdictClean,
		DisplayName: "notes.txt",
		TargetKind:  scan.TargetFile,
	})

	assert.NoError(t, err)
	assert.Equal(t, "**Risk Level:** Low", got)
}

func TestGenerate_FailureModes(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "empty choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices":[]}`))
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			g := NewOpenAIGenerator("sk-test", "", time.Second, zap.NewNop(), WithBaseURL(srv.URL))

			_, err := g.Generate(context.Background(), Request{Verdict: scan.VerdictClean})
			assert.Error(t, err)
		})
	}
}
