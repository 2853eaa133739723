package store

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/repscan/app-scanner/internal/scan"
)

// ValkeyStore implements ResultStore on a Valkey server. Single-read
// semantics come from GETDEL; expiry from the SET EX ttl, so untaken
// results clean themselves up server-side.
type ValkeyStore struct {
	client valkey.Client
	cfg    *Config
}

// NewValkeyStore connects to the configured Valkey server.
func NewValkeyStore(cfg *Config) (*ValkeyStore, error) {
	if cfg == nil || cfg.Address == "" {
		return nil, fmt.Errorf("store address is required")
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{cfg.Address},
		Username:    cfg.Username,
		Password:    cfg.Password,
		SelectDB:    cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	return &ValkeyStore{client: client, cfg: cfg}, nil
}

// Put stores a serialized result under the key with the configured TTL.
func (s *ValkeyStore) Put(ctx context.Context, key string, result *scan.Result) error {
	data, err := result.ToJSON()
	if err != nil {
		return err
	}

	builder := s.client.B().Set().Key(key).Value(data)
	var cmd valkey.Completed
	if s.cfg.TTL > 0 {
		cmd = builder.Ex(s.cfg.TTL).Build()
	} else {
		cmd = builder.Build()
	}

	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

// TakeOnce retrieves and removes the result for the key in one atomic
// GETDEL.
func (s *ValkeyStore) TakeOnce(ctx context.Context, key string) (*scan.Result, error) {
	data, err := s.client.Do(ctx, s.client.B().Getdel().Key(key).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to take result: %w", err)
	}
	return scan.FromJSON(data)
}

// Close closes the Valkey client connection.
func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}
