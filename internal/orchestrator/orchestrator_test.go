package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/repscan/app-scanner/internal/narrative"
	"github.com/repscan/app-scanner/internal/providers"
	"github.com/repscan/app-scanner/internal/scan"
)

// mockProvider is a hash- and URL-capable provider backed by testify mock.
type mockProvider struct {
	mock.Mock
	id         string
	configured bool
}

func (m *mockProvider) ID() string       { return m.id }
func (m *mockProvider) Configured() bool { return m.configured }

func (m *mockProvider) LookupHash(ctx context.Context, sha256 string) scan.ProviderResult {
	args := m.Called(ctx, sha256)
	return args.Get(0).(scan.ProviderResult)
}

func (m *mockProvider) LookupURL(ctx context.Context, rawurl string) scan.ProviderResult {
	args := m.Called(ctx, rawurl)
	return args.Get(0).(scan.ProviderResult)
}

// mockGenerator is a narrative generator backed by testify mock.
type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, req narrative.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func registryWith(ps ...providers.Provider) *providers.Registry {
	r := providers.NewRegistry()
	for _, p := range ps {
		r.Register(p)
	}
	return r
}

func TestScanFile_PEHeaderWithProviderNotFound(t *testing.T) {
	// End-to-end: PE header + provider has no record -> falls back to
	// the local suspicious verdict.
	p := &mockProvider{id: "virustotal", configured: true}
	p.On("LookupHash", mock.Anything, mock.Anything).
		Return(scan.ProviderResult{Provider: "virustotal", Found: false})

	o := New(registryWith(p), nil, zap.NewNop())

	result, err := o.ScanFile(context.Background(), []byte{0x4D, 0x5A, 0x90, 0x00}, "setup.exe")

	assert.NoError(t, err)
	assert.Equal(t, scan.VerdictSuspicious, result.FinalVerdict)
	assert.Contains(t, result.Tags, scan.TagPEExecutable)
	assert.Len(t, result.Providers, 1)
	p.AssertExpectations(t)
}

func TestScanFile_ProviderCleanWins(t *testing.T) {
	p := &mockProvider{id: "virustotal", configured: true}
	p.On("LookupHash", mock.Anything, mock.Anything).Return(scan.ProviderResult{
		Provider:       "virustotal",
		Found:          true,
		Verdict:        scan.VerdictClean,
		DetectionCount: 0,
		TotalEngines:   70,
	})

	o := New(registryWith(p), nil, zap.NewNop())

	result, err := o.ScanFile(context.Background(), []byte("plain document"), "notes.txt")

	assert.NoError(t, err)
	assert.Equal(t, scan.VerdictClean, result.FinalVerdict)
	assert.Equal(t, scan.VerdictUnknown, result.Local.Verdict)
}

func TestScanFile_MaliciousWinsAcrossProviders(t *testing.T) {
	clean := &mockProvider{id: "virustotal", configured: true}
	clean.On("LookupHash", mock.Anything, mock.Anything).
		Return(scan.ProviderResult{Provider: "virustotal", Found: true, Verdict: scan.VerdictClean})

	bad := &mockProvider{id: "triage", configured: true}
	bad.On("LookupHash", mock.Anything, mock.Anything).
		Return(scan.ProviderResult{Provider: "triage", Found: true, Verdict: scan.VerdictMalicious})

	// Run with both registration orders; the outcome must not depend on
	// which provider is queried or finishes first.
	for _, reg := range []*providers.Registry{registryWith(clean, bad), registryWith(bad, clean)} {
		o := New(reg, nil, zap.NewNop())
		result, err := o.ScanFile(context.Background(), []byte("content"), "file.bin")
		assert.NoError(t, err)
		assert.Equal(t, scan.VerdictMalicious, result.FinalVerdict)
		assert.Len(t, result.Providers, 2)
	}
}

func TestScanFile_NoProviderConfigured(t *testing.T) {
	p := &mockProvider{id: "virustotal", configured: false}

	o := New(registryWith(p), nil, zap.NewNop())

	_, err := o.ScanFile(context.Background(), []byte("content"), "file.bin")

	assert.ErrorIs(t, err, ErrNotConfigured)
	// Refused before doing any work: the adapter was never invoked.
	p.AssertNotCalled(t, "LookupHash", mock.Anything, mock.Anything)
}

func TestScanFile_EmptyContentRejected(t *testing.T) {
	p := &mockProvider{id: "virustotal", configured: true}

	o := New(registryWith(p), nil, zap.NewNop())

	_, err := o.ScanFile(context.Background(), nil, "empty.bin")

	assert.ErrorIs(t, err, ErrInvalidInput)
	p.AssertNotCalled(t, "LookupHash", mock.Anything, mock.Anything)
}

func TestScanFile_DefaultFilename(t *testing.T) {
	p := &mockProvider{id: "virustotal", configured: true}
	p.On("LookupHash", mock.Anything, mock.Anything).
		Return(scan.ProviderResult{Provider: "virustotal", Found: false})

	o := New(registryWith(p), nil, zap.NewNop())

	result, err := o.ScanFile(context.Background(), []byte("content"), "")

	assert.NoError(t, err)
	assert.Equal(t, "uploaded_file", result.FileName)
}

func TestScanURL_LocalVerdictDefaultsToUnknown(t *testing.T) {
	p := &mockProvider{id: "virustotal", configured: true}
	p.On("LookupURL", mock.Anything, "https://example.com").
		Return(scan.ProviderResult{Provider: "virustotal", Found: false})

	o := New(registryWith(p), nil, zap.NewNop())

	result, err := o.ScanURL(context.Background(), "https://example.com")

	assert.NoError(t, err)
	assert.Equal(t, scan.VerdictUnknown, result.FinalVerdict)
	assert.Nil(t, result.Local)
	assert.Equal(t, "https://example.com", result.URL)
}

func TestScanURL_EmptyRejected(t *testing.T) {
	p := &mockProvider{id: "virustotal", configured: true}

	o := New(registryWith(p), nil, zap.NewNop())

	_, err := o.ScanURL(context.Background(), "")

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestScanFile_NarrativeFailureNeverChangesVerdict(t *testing.T) {
	p := &mockProvider{id: "virustotal", configured: true}
	p.On("LookupHash", mock.Anything, mock.Anything).
		Return(scan.ProviderResult{Provider: "virustotal", Found: true, Verdict: scan.VerdictMalicious})

	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("model unavailable"))

	o := New(registryWith(p), gen, zap.NewNop())

	result, err := o.ScanFile(context.Background(), []byte("content"), "file.bin")

	assert.NoError(t, err)
	assert.Equal(t, scan.VerdictMalicious, result.FinalVerdict)
	assert.Empty(t, result.Narrative)
	assert.Equal(t, "model unavailable", result.NarrativeError)
}

func TestScanFile_NarrativeReceivesFinalVerdictAndEvidence(t *testing.T) {
	p := &mockProvider{id: "virustotal", configured: true}
	p.On("LookupHash", mock.Anything, mock.Anything).Return(scan.ProviderResult{
		Provider:       "virustotal",
		Found:          true,
		Verdict:        scan.VerdictMalicious,
		DetectionCount: 42,
		TotalEngines:   70,
	})

	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req narrative.Request) bool {
		return req.Verdict == scan.VerdictMalicious &&
			req.DisplayName == "dropper.exe" &&
			req.Evidence != nil &&
			req.Evidence.DetectionCount == 42 &&
			req.Evidence.TotalEngines == 70
	})).Return("guidance text", nil)

	o := New(registryWith(p), gen, zap.NewNop())

	result, err := o.ScanFile(context.Background(), []byte("content"), "dropper.exe")

	assert.NoError(t, err)
	assert.Equal(t, "guidance text", result.Narrative)
	gen.AssertExpectations(t)
}

func TestScanFile_ProviderSoftFailureStillYieldsVerdict(t *testing.T) {
	broken := &mockProvider{id: "triage", configured: true}
	broken.On("LookupHash", mock.Anything, mock.Anything).
		Return(scan.ProviderResult{Provider: "triage", Error: "triage: request failed"})

	working := &mockProvider{id: "virustotal", configured: true}
	working.On("LookupHash", mock.Anything, mock.Anything).
		Return(scan.ProviderResult{Provider: "virustotal", Found: true, Verdict: scan.VerdictClean})

	o := New(registryWith(broken, working), nil, zap.NewNop())

	result, err := o.ScanFile(context.Background(), []byte("content"), "file.bin")

	assert.NoError(t, err)
	assert.Equal(t, scan.VerdictClean, result.FinalVerdict)
	assert.Len(t, result.Providers, 2)
}
