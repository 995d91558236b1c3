// Package ipgeo approximates the caller's position from their public IP.
package ipgeo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/pkg/upstream"
)

// DefaultURL is the ipapi.co JSON endpoint.
const DefaultURL = "https://ipapi.co/json/"

var errNoCoordinates = errors.New("ip lookup returned no coordinates")

type ipapiResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}

// Locator implements ports.IPLocator against ipapi.co.
type Locator struct {
	url    string
	client *upstream.Client
}

// New creates a Locator. An empty url uses DefaultURL.
func New(url string, timeout time.Duration) *Locator {
	if url == "" {
		url = DefaultURL
	}
	return &Locator{url: url, client: upstream.New("ipgeo", timeout)}
}

// Locate returns the approximate coordinate of the public IP.
func (l *Locator) Locate(ctx context.Context) (domain.Coordinate, error) {
	var resp ipapiResponse
	if err := l.client.GetJSON(ctx, l.url, &resp); err != nil {
		return domain.Coordinate{}, fmt.Errorf("ip geolocation: %w", err)
	}
	// ipapi.co reports rate limiting and reserved ranges with 200 + error flag
	if resp.Error {
		return domain.Coordinate{}, fmt.Errorf("ip geolocation: %s", resp.Reason)
	}
	if resp.Latitude == nil || resp.Longitude == nil {
		return domain.Coordinate{}, errNoCoordinates
	}
	loc := domain.Coordinate{Lat: *resp.Latitude, Lng: *resp.Longitude}
	if !loc.Valid() {
		return domain.Coordinate{}, fmt.Errorf("ip geolocation: coordinate out of range %s", loc)
	}
	return loc, nil
}
