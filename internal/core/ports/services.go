package ports

import (
	"context"

	"github.com/samirrijal/trainboard/internal/core/domain"
)

// LocationStore persists the single cached location record.
// Load returns (nil, nil) when nothing is stored.
type LocationStore interface {
	Load(ctx context.Context) (*domain.CachedLocation, error)
	Save(ctx context.Context, rec domain.CachedLocation) error
}

// Geolocator requests a one-shot position fix from the device.
// Failures are reported as *domain.GeoError.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (domain.Coordinate, error)
}

// IPLocator estimates the position from the caller's public IP.
type IPLocator interface {
	Locate(ctx context.Context) (domain.Coordinate, error)
}

// StationLookup finds stations near a point, closest first.
type StationLookup interface {
	NearbyStations(ctx context.Context, at domain.Coordinate, radiusMiles float64) ([]domain.Stop, error)
}

// ArrivalLookup fetches upcoming arrivals for a batch of stops.
type ArrivalLookup interface {
	Arrivals(ctx context.Context, stopIDs []string) ([]domain.StationArrivals, error)
}

// SnapshotPublisher broadcasts tracker snapshots to a message broker.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap domain.Snapshot) error
}
