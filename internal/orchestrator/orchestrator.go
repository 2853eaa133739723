// Package orchestrator wires the fingerprinter, the provider adapters and
// the narrative generator into the two scan entry points callers use.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/repscan/app-scanner/internal/narrative"
	"github.com/repscan/app-scanner/internal/providers"
	"github.com/repscan/app-scanner/internal/scan"
)

var (
	// ErrNotConfigured is returned when no provider with the required
	// capability has a credential. This is a setup problem, not a scan
	// failure, and is raised before any work is done.
	ErrNotConfigured = errors.New("no reputation provider configured")

	// ErrInvalidInput is returned for empty files or empty URLs, before
	// any provider call.
	ErrInvalidInput = errors.New("invalid scan input")
)

// Orchestrator runs the verdict-aggregation pipeline. All collaborators
// are injected; it holds no mutable state of its own, so concurrent scans
// need no locking.
type Orchestrator struct {
	registry  *providers.Registry
	generator narrative.Generator
	logger    *zap.Logger
}

// New creates an orchestrator. generator may be nil, in which case scans
// complete without a narrative.
func New(registry *providers.Registry, generator narrative.Generator, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		registry:  registry,
		generator: generator,
		logger:    logger,
	}
}

// ScanFile fingerprints the content, queries every configured digest
// provider in parallel, aggregates the verdicts and attaches a narrative.
func (o *Orchestrator) ScanFile(ctx context.Context, content []byte, filename string) (*scan.Result, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if filename == "" {
		filename = "uploaded_file"
	}

	lookupers := o.registry.HashLookupers()
	if len(lookupers) == 0 {
		return nil, ErrNotConfigured
	}

	local := scan.Fingerprint(content, filename)
	o.logger.Info("Scanning file",
		zap.String("file_name", filename),
		zap.String("sha256", local.SHA256),
		zap.Int("size_bytes", local.SizeBytes),
		zap.Int("providers", len(lookupers)))

	// Fan out one lookup per provider and join on all of them before
	// aggregating: the precedence rule must see every outcome to pick
	// the most severe verdict.
	results := make([]scan.ProviderResult, len(lookupers))
	var wg sync.WaitGroup
	for i, p := range lookupers {
		wg.Add(1)
		go func(i int, p providers.HashLookuper) {
			defer wg.Done()
			results[i] = p.LookupHash(ctx, local.SHA256)
		}(i, p)
	}
	wg.Wait()

	result := &scan.Result{
		ID:        uuid.NewString(),
		FileName:  local.FileName,
		SHA256:    local.SHA256,
		SizeBytes: local.SizeBytes,
		Tags:      local.Tags,
		Local:     &local,
		Providers: results,
		ScannedAt: time.Now().Unix(),
	}
	result.FinalVerdict = scan.Aggregate(local.Verdict, results)

	o.attachNarrative(ctx, result, scan.TargetFile, filename)
	return result, nil
}

// ScanURL queries every configured URL provider in parallel and aggregates
// the verdicts. URLs have no local heuristic; the local verdict defaults
// to unknown.
func (o *Orchestrator) ScanURL(ctx context.Context, rawurl string) (*scan.Result, error) {
	if rawurl == "" {
		return nil, fmt.Errorf("%w: empty url", ErrInvalidInput)
	}

	lookupers := o.registry.URLLookupers()
	if len(lookupers) == 0 {
		return nil, ErrNotConfigured
	}

	o.logger.Info("Scanning URL",
		zap.String("url", rawurl),
		zap.Int("providers", len(lookupers)))

	results := make([]scan.ProviderResult, len(lookupers))
	var wg sync.WaitGroup
	for i, p := range lookupers {
		wg.Add(1)
		go func(i int, p providers.URLLookuper) {
			defer wg.Done()
			results[i] = p.LookupURL(ctx, rawurl)
		}(i, p)
	}
	wg.Wait()

	result := &scan.Result{
		ID:        uuid.NewString(),
		URL:       rawurl,
		Providers: results,
		ScannedAt: time.Now().Unix(),
	}
	result.FinalVerdict = scan.Aggregate(scan.VerdictUnknown, results)

	o.attachNarrative(ctx, result, scan.TargetURL, rawurl)
	return result, nil
}

// attachNarrative runs narrative generation strictly after aggregation.
// Failures are recorded on the result and logged; they never fail the
// scan and never change the verdict.
func (o *Orchestrator) attachNarrative(ctx context.Context, result *scan.Result, kind scan.TargetKind, displayName string) {
	if o.generator == nil {
		return
	}

	req := narrative.Request{
		Verdict:     result.FinalVerdict,
		DisplayName: displayName,
		TargetKind:  kind,
	}
	if ev := result.FirstEvidence(); ev != nil {
		req.Evidence = &narrative.EvidenceSummary{
			Provider:       ev.Provider,
			DetectionCount: ev.DetectionCount,
			TotalEngines:   ev.TotalEngines,
		}
	}

	text, err := o.generator.Generate(ctx, req)
	if err != nil {
		o.logger.Warn("Narrative generation failed",
			zap.String("scan_id", result.ID),
			zap.Error(err))
		result.NarrativeError = err.Error()
		return
	}
	result.Narrative = text
}
