package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/pkg/upstream"
)

func TestNearbyStations(t *testing.T) {
	var got stopsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/trains/stops/api" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`[
			{"stopId":"631","stopName":"Grand Central-42 St","distance":0.3},
			{"stopId":"101","stopName":"Times Sq-42 St","distance":0.2}
		]`))
	}))
	defer srv.Close()

	stops, err := New(srv.URL+"/", time.Second).NearbyStations(context.Background(),
		domain.Coordinate{Lat: 40.75, Lng: -73.98}, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	if got.Lat != 40.75 || got.Lon != -73.98 || got.Distance != 0.5 {
		t.Errorf("unexpected request body %+v", got)
	}
	if len(stops) != 2 || stops[0].StopID != "631" || stops[1].StopName != "Times Sq-42 St" {
		t.Errorf("unexpected stops %#v", stops)
	}
}

func TestNearbyStations_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).NearbyStations(context.Background(), domain.Coordinate{}, 1)

	var se *upstream.StatusError
	if !errors.As(err, &se) || se.Code != 500 {
		t.Fatalf("expected status error 500, got %v", err)
	}
	if se.Service != "stations" {
		t.Errorf("expected service stations, got %q", se.Service)
	}
}

func TestArrivals(t *testing.T) {
	var got arrivalsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trains/api" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`[
			{"stopId":"101","southbound":[{"arrivalTime":"12:05","tripId":"T1","routeId":"R1"}],"northbound":[]},
			{"stopId":"631"}
		]`))
	}))
	defer srv.Close()

	out, err := New(srv.URL, time.Second).Arrivals(context.Background(), []string{"101", "631"})
	if err != nil {
		t.Fatal(err)
	}

	if len(got.StopIDs) != 2 || got.StopIDs[0] != "101" || got.StopIDs[1] != "631" {
		t.Errorf("expected one batched request for [101 631], got %v", got.StopIDs)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(out))
	}
	if out[0].Southbound[0].TripID != "T1" || out[0].Southbound[0].RouteID != "R1" {
		t.Errorf("unexpected train %#v", out[0].Southbound[0])
	}
	if out[1].Southbound == nil || out[1].Northbound == nil {
		t.Error("expected missing directions to decode as empty lists")
	}
	if !out[1].Empty() {
		t.Error("expected station 631 to be empty")
	}
}
