// Package store provides the short-lived, single-read scan result store:
// a Put followed by exactly one successful TakeOnce, after which the entry
// is gone. It is a handoff cache keyed by session, not a persistence
// layer; nothing survives the first read or the TTL.
package store

import (
	"context"
	"errors"

	"github.com/repscan/app-scanner/internal/scan"
)

// Common errors
var (
	// ErrNotFound is returned when no entry exists for the key, either
	// because none was stored, it expired, or it was already taken.
	ErrNotFound = errors.New("result not found")
)

// ResultStore defines the single-read contract for stashing scan results.
type ResultStore interface {
	// Put stores a result under the given key, replacing any previous
	// entry for that key.
	Put(ctx context.Context, key string, result *scan.Result) error

	// TakeOnce retrieves and removes the result for the key. A second
	// call for the same key returns ErrNotFound.
	TakeOnce(ctx context.Context, key string) (*scan.Result, error)

	// Close closes the store connection.
	Close() error
}

// Key builds the store key for a session's pending result.
func Key(sessionID string) string {
	return "scan:result:" + sessionID
}
