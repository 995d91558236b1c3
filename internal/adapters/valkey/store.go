package valkey

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/trainboard/internal/core/domain"
)

// Key holds the cached location record.
const Key = "trainboard:userLocation"

// Store implements ports.LocationStore using Valkey (Redis-compatible).
// Records expire server-side after domain.LocationExpiry.
type Store struct {
	client valkey.Client
	key    string
}

// New creates a new Valkey-backed location store.
func New(addr string) (*Store, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Store{client: client, key: Key}, nil
}

// Load returns the record, or nil when the key is missing or expired.
func (s *Store) Load(ctx context.Context) (*domain.CachedLocation, error) {
	b, err := s.client.Do(ctx, s.client.B().Get().Key(s.key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("valkey get %s: %w", s.key, err)
	}
	return decode(b)
}

// Save stores rec with the location expiry as TTL.
func (s *Store) Save(ctx context.Context, rec domain.CachedLocation) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}
	cmd := s.client.B().Set().Key(s.key).Value(string(b)).Ex(domain.LocationExpiry).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set %s: %w", s.key, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (s *Store) Close() {
	s.client.Close()
}

func decode(b []byte) (*domain.CachedLocation, error) {
	var rec domain.CachedLocation
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode location: %w", err)
	}
	return &rec, nil
}
