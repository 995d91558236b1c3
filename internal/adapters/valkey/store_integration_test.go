//go:build integration
// +build integration

package valkey

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/samirrijal/trainboard/internal/core/domain"
)

func setupStore(t *testing.T) *Store {
	addr := os.Getenv("TRAINBOARD_VALKEY_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	s, err := New(addr)
	if err != nil {
		t.Fatalf("connect valkey: %v", err)
	}
	s.key = "trainboard:test:" + t.Name()
	t.Cleanup(func() {
		s.client.Do(context.Background(), s.client.B().Del().Key(s.key).Build())
		s.Close()
	})
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	rec, err := s.Load(ctx)
	if err != nil || rec != nil {
		t.Fatalf("expected empty store, got %+v (%v)", rec, err)
	}

	want := domain.NewCachedLocation(domain.Coordinate{Lat: 40.75, Lng: -73.98}, time.Now())
	if err := s.Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || *got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	ttl, err := s.client.Do(ctx, s.client.B().Ttl().Key(s.key).Build()).AsInt64()
	if err != nil {
		t.Fatal(err)
	}
	if ttl <= 0 || ttl > int64(domain.LocationExpiry/time.Second) {
		t.Errorf("expected ttl within the location expiry, got %ds", ttl)
	}
}
