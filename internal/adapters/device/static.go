package device

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/core/ports"
)

// Static reports a pinned position, for kiosks with a known location.
type Static struct {
	Location domain.Coordinate
}

func (s Static) CurrentPosition(ctx context.Context) (domain.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinate{}, &domain.GeoError{Reason: domain.GeoTimeout, Err: err}
	}
	return s.Location, nil
}

// Options configures New.
type Options struct {
	GPSDAddr string
	Location domain.Coordinate
	Timeout  time.Duration
}

// New returns the geolocator for driver: "gpsd", "static" or "none".
// "none" returns a nil Geolocator, meaning the capability is absent.
func New(driver string, opts Options) (ports.Geolocator, error) {
	switch driver {
	case "gpsd":
		return NewGPSD(opts.GPSDAddr, opts.Timeout), nil
	case "static":
		return Static{Location: opts.Location}, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown device driver %q", driver)
	}
}
