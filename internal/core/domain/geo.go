package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// LocationExpiry is how long a cached device fix stays usable.
const LocationExpiry = 5 * time.Minute

// DemoRadiusMiles is the search radius used in demo mode.
const DemoRadiusMiles = 0.25

// DemoOrigin is the fixed demonstration coordinate (Grand Central).
var DemoOrigin = Coordinate{Lat: 40.7527, Lng: -73.9772}

// Coordinate is a latitude/longitude pair (WGS 84).
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lng)
}

// Valid reports whether the coordinate lies within WGS 84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// CachedLocation is the single persisted location record.
type CachedLocation struct {
	Location  Coordinate `json:"location"`
	Timestamp int64      `json:"timestamp"` // unix milliseconds
}

// NewCachedLocation stamps loc with now.
func NewCachedLocation(loc Coordinate, now time.Time) CachedLocation {
	return CachedLocation{Location: loc, Timestamp: now.UnixMilli()}
}

// Age returns how old the record is at now.
func (c CachedLocation) Age(now time.Time) time.Duration {
	return time.Duration(now.UnixMilli()-c.Timestamp) * time.Millisecond
}

// Valid reports whether the record is still fresh at now.
func (c CachedLocation) Valid(now time.Time) bool {
	return c.Age(now) < LocationExpiry
}

// LocationSource records where a coordinate came from.
type LocationSource string

const (
	SourceNone   LocationSource = "none"
	SourceDemo   LocationSource = "demo"
	SourceManual LocationSource = "manual"
	SourceCache  LocationSource = "cache"
	SourceDevice LocationSource = "device"
	SourceIP     LocationSource = "ip"
)

// Resolution is the outcome of resolving the user's location.
// Location is nil when every source failed.
type Resolution struct {
	Location           *Coordinate    `json:"location"`
	Source             LocationSource `json:"source"`
	UsedFallbackDenied bool           `json:"usedFallbackDenied"`
	UsedIPFallback     bool           `json:"usedIpFallback"`
}

// Radius is a station search radius in miles, or the demo sentinel.
type Radius struct {
	Miles float64
	Demo  bool
}

// DemoRadius is the "demo" sentinel.
var DemoRadius = Radius{Demo: true}

// ParseRadius accepts a positive number of miles or the literal "demo".
func ParseRadius(s string) (Radius, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "demo") {
		return DemoRadius, nil
	}
	miles, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Radius{}, fmt.Errorf("parse radius %q: %w", s, err)
	}
	if !(miles > 0) || math.IsInf(miles, 0) {
		return Radius{}, fmt.Errorf("radius must be a positive number of miles, got %v", miles)
	}
	return Radius{Miles: miles}, nil
}

func (r Radius) String() string {
	if r.Demo {
		return "demo"
	}
	return strconv.FormatFloat(r.Miles, 'f', -1, 64)
}

// MarshalText lets a Radius travel as "demo" or a plain number in JSON.
func (r Radius) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Radius) UnmarshalText(b []byte) error {
	parsed, err := ParseRadius(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
