package usecases

import (
	"context"
	"log/slog"

	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/core/ports"
	"github.com/samirrijal/trainboard/internal/pkg/metrics"
)

// StationFinder queries the backend for stations near a coordinate.
type StationFinder struct {
	lookup ports.StationLookup
}

// NewStationFinder creates a new StationFinder.
func NewStationFinder(lookup ports.StationLookup) *StationFinder {
	return &StationFinder{lookup: lookup}
}

// Effective returns the coordinate and radius actually queried for the
// given inputs. Demo mode always maps to the demo origin and radius.
func (f *StationFinder) Effective(at *domain.Coordinate, r domain.Radius) (domain.Coordinate, float64, bool) {
	if r.Demo {
		return domain.DemoOrigin, domain.DemoRadiusMiles, true
	}
	if at == nil || r.Miles <= 0 {
		return domain.Coordinate{}, 0, false
	}
	return *at, r.Miles, true
}

// Find returns nearby stops in backend order. A failed lookup is logged
// and reported as an empty result.
func (f *StationFinder) Find(ctx context.Context, at *domain.Coordinate, r domain.Radius) []domain.Stop {
	loc, miles, ok := f.Effective(at, r)
	if !ok {
		return []domain.Stop{}
	}

	stops, err := f.lookup.NearbyStations(ctx, loc, miles)
	if err != nil {
		slog.Warn("find nearest stations", "location", loc.String(), "radius", miles, "error", err)
		metrics.StationsFound.Set(0)
		return []domain.Stop{}
	}
	if stops == nil {
		stops = []domain.Stop{}
	}

	metrics.StationsFound.Set(float64(len(stops)))
	slog.Debug("stations found", "location", loc.String(), "radius", miles, "count", len(stops))
	return stops
}
