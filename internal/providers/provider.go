// Package providers defines the common contract for external reputation
// services and the registry the orchestrator queries them through.
package providers

import (
	"context"

	"github.com/repscan/app-scanner/internal/scan"
)

// Provider is the base interface every reputation adapter implements.
type Provider interface {
	// ID returns the stable identifier used in results and logs.
	ID() string

	// Configured reports whether the adapter has a usable credential.
	// Unconfigured adapters never perform network I/O.
	Configured() bool
}

// HashLookuper is implemented by providers that can look up a file by its
// SHA-256 digest.
type HashLookuper interface {
	Provider

	// LookupHash queries the provider for a digest. It never returns an
	// error: soft failures are reported inside the ProviderResult.
	LookupHash(ctx context.Context, sha256 string) scan.ProviderResult
}

// URLLookuper is implemented by providers that can look up a URL.
type URLLookuper interface {
	Provider

	// LookupURL queries the provider for a URL. It never returns an
	// error: soft failures are reported inside the ProviderResult.
	LookupURL(ctx context.Context, rawurl string) scan.ProviderResult
}

// NotConfiguredResult is the shared short-circuit result for adapters that
// are missing their credential.
func NotConfiguredResult(id string) scan.ProviderResult {
	return scan.ProviderResult{
		Provider: id,
		Found:    false,
		Error:    id + " not configured",
	}
}
