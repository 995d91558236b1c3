package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/core/usecases"
)

func TestStationFinder_Find(t *testing.T) {
	lookup := &mockStations{
		nearbyFn: func(ctx context.Context, at domain.Coordinate, miles float64) ([]domain.Stop, error) {
			// deliberately not sorted by distance; order must be kept
			return []domain.Stop{
				{StopID: "631", StopName: "Grand Central-42 St", Distance: 0.3},
				{StopID: "101", StopName: "Times Sq-42 St", Distance: 0.2},
			}, nil
		},
	}
	at := domain.Coordinate{Lat: 40.75, Lng: -73.98}

	stops := usecases.NewStationFinder(lookup).Find(context.Background(), &at, domain.Radius{Miles: 0.5})

	if len(stops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(stops))
	}
	if stops[0].StopID != "631" || stops[1].StopID != "101" {
		t.Errorf("expected backend order [631 101], got [%s %s]", stops[0].StopID, stops[1].StopID)
	}
	call := lookup.lastCall()
	if call.at != at || call.miles != 0.5 {
		t.Errorf("expected lookup at %v r=0.5, got %v r=%v", at, call.at, call.miles)
	}
}

func TestStationFinder_DemoIsIdempotent(t *testing.T) {
	anywhere := []*domain.Coordinate{
		nil,
		{Lat: 40.75, Lng: -73.98},
		{Lat: 51.5, Lng: -0.12},
		{Lat: -33.86, Lng: 151.2},
	}
	for _, at := range anywhere {
		lookup := &mockStations{}
		finder := usecases.NewStationFinder(lookup)

		finder.Find(context.Background(), at, domain.DemoRadius)

		call := lookup.lastCall()
		if call.at != domain.DemoOrigin {
			t.Errorf("input %v: expected demo origin, got %v", at, call.at)
		}
		if call.miles != domain.DemoRadiusMiles {
			t.Errorf("input %v: expected radius %v, got %v", at, domain.DemoRadiusMiles, call.miles)
		}
	}
}

func TestStationFinder_FailureLooksLikeNoStations(t *testing.T) {
	lookup := &mockStations{
		nearbyFn: func(ctx context.Context, at domain.Coordinate, miles float64) ([]domain.Stop, error) {
			return nil, errors.New("backend returned 502")
		},
	}
	at := domain.Coordinate{Lat: 40.75, Lng: -73.98}

	stops := usecases.NewStationFinder(lookup).Find(context.Background(), &at, domain.Radius{Miles: 1})

	if stops == nil || len(stops) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", stops)
	}
	if lookup.callCount() != 1 {
		t.Errorf("expected a single attempt, got %d", lookup.callCount())
	}
}

func TestStationFinder_NoLocationNoCall(t *testing.T) {
	lookup := &mockStations{}
	finder := usecases.NewStationFinder(lookup)

	stops := finder.Find(context.Background(), nil, domain.Radius{Miles: 0.5})

	if len(stops) != 0 {
		t.Errorf("expected no stops, got %d", len(stops))
	}
	if lookup.callCount() != 0 {
		t.Errorf("expected no lookup without a location, got %d", lookup.callCount())
	}
}
