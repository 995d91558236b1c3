// Package backend talks to the trains backend: the proximity station search
// and the batched arrivals endpoint.
package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/pkg/upstream"
)

const (
	stopsPath    = "/trains/stops/api"
	arrivalsPath = "/trains/api"
)

type stopsRequest struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Distance float64 `json:"distance"`
}

type arrivalsRequest struct {
	StopIDs []string `json:"stopIds"`
}

// Client implements ports.StationLookup and ports.ArrivalLookup.
type Client struct {
	baseURL  string
	stations *upstream.Client
	arrivals *upstream.Client
}

// New creates a backend client for baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		stations: upstream.New("stations", timeout),
		arrivals: upstream.New("arrivals", timeout),
	}
}

// NearbyStations returns the stops within radiusMiles of at, in backend order.
func (c *Client) NearbyStations(ctx context.Context, at domain.Coordinate, radiusMiles float64) ([]domain.Stop, error) {
	var stops []domain.Stop
	err := c.stations.PostJSON(ctx, c.baseURL+stopsPath, stopsRequest{
		Lat:      at.Lat,
		Lon:      at.Lng,
		Distance: radiusMiles,
	}, &stops)
	if err != nil {
		return nil, fmt.Errorf("find nearest stations: %w", err)
	}
	if stops == nil {
		stops = []domain.Stop{}
	}
	return stops, nil
}

// Arrivals fetches upcoming trains for all stopIDs in one request.
func (c *Client) Arrivals(ctx context.Context, stopIDs []string) ([]domain.StationArrivals, error) {
	var out []domain.StationArrivals
	if err := c.arrivals.PostJSON(ctx, c.baseURL+arrivalsPath, arrivalsRequest{StopIDs: stopIDs}, &out); err != nil {
		return nil, fmt.Errorf("fetch train data: %w", err)
	}
	for i := range out {
		if out[i].Southbound == nil {
			out[i].Southbound = []domain.Train{}
		}
		if out[i].Northbound == nil {
			out[i].Northbound = []domain.Train{}
		}
	}
	if out == nil {
		out = []domain.StationArrivals{}
	}
	return out, nil
}
