// Package device provides device geolocation drivers: a gpsd client for
// hardware receivers and a pinned static position.
package device

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/samirrijal/trainboard/internal/core/domain"
)

// DefaultGPSDAddr is where gpsd listens by default.
const DefaultGPSDAddr = "localhost:2947"

const watchCommand = `?WATCH={"enable":true,"json":true};` + "\n"

// gpsd report, only the fields we read.
type report struct {
	Class   string            `json:"class"`
	Mode    int               `json:"mode"`
	Lat     *float64          `json:"lat"`
	Lon     *float64          `json:"lon"`
	Devices []json.RawMessage `json:"devices"`
}

// GPSD implements ports.Geolocator against a gpsd daemon.
type GPSD struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

// NewGPSD creates a gpsd client. timeout bounds one position request.
func NewGPSD(addr string, timeout time.Duration) *GPSD {
	if addr == "" {
		addr = DefaultGPSDAddr
	}
	return &GPSD{addr: addr, timeout: timeout}
}

// CurrentPosition waits for the first 2D or 3D fix.
func (g *GPSD) CurrentPosition(ctx context.Context) (domain.Coordinate, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	conn, err := g.dialer.DialContext(ctx, "tcp", g.addr)
	if err != nil {
		return domain.Coordinate{}, classify(ctx, fmt.Errorf("dial gpsd: %w", err))
	}
	defer conn.Close()

	// unblock reads when ctx ends
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := io.WriteString(conn, watchCommand); err != nil {
		return domain.Coordinate{}, classify(ctx, fmt.Errorf("watch: %w", err))
	}

	dec := json.NewDecoder(bufio.NewReader(conn))
	for {
		var r report
		if err := dec.Decode(&r); err != nil {
			return domain.Coordinate{}, classify(ctx, fmt.Errorf("read gpsd: %w", err))
		}
		switch r.Class {
		case "DEVICES":
			if len(r.Devices) == 0 {
				return domain.Coordinate{}, &domain.GeoError{
					Reason: domain.GeoUnavailable,
					Err:    errors.New("gpsd has no receivers attached"),
				}
			}
		case "TPV":
			if r.Mode >= 2 && r.Lat != nil && r.Lon != nil {
				return domain.Coordinate{Lat: *r.Lat, Lng: *r.Lon}, nil
			}
		}
	}
}

func classify(ctx context.Context, err error) error {
	var ne net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &domain.GeoError{Reason: domain.GeoTimeout, Err: err}
	}
	return &domain.GeoError{Reason: domain.GeoUnavailable, Err: err}
}
