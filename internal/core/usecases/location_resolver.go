package usecases

import (
	"context"
	"log/slog"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/core/ports"
	"github.com/samirrijal/trainboard/internal/pkg/metrics"
)

// LocationResolver determines the user's coordinates from the cached record,
// the device, or the caller's IP, in that order.
type LocationResolver struct {
	store  ports.LocationStore
	device ports.Geolocator // nil when the device has no geolocation capability
	ip     ports.IPLocator
	clock  clock.Clock
}

// NewLocationResolver creates a LocationResolver. device may be nil.
func NewLocationResolver(store ports.LocationStore, device ports.Geolocator, ip ports.IPLocator, clk clock.Clock) *LocationResolver {
	if clk == nil {
		clk = clock.New()
	}
	return &LocationResolver{store: store, device: device, ip: ip, clock: clk}
}

// Resolve never fails: when every source is exhausted the returned
// Resolution has a nil Location.
func (r *LocationResolver) Resolve(ctx context.Context) domain.Resolution {
	if loc, ok := r.cached(ctx); ok {
		metrics.LocationResolutions.WithLabelValues(string(domain.SourceCache)).Inc()
		return domain.Resolution{Location: &loc, Source: domain.SourceCache}
	}

	var res domain.Resolution
	if r.device != nil {
		loc, err := r.device.CurrentPosition(ctx)
		if err == nil {
			r.remember(ctx, loc)
			metrics.LocationResolutions.WithLabelValues(string(domain.SourceDevice)).Inc()
			return domain.Resolution{Location: &loc, Source: domain.SourceDevice}
		}
		reason := domain.GeoReason(err)
		metrics.DeviceFailures.WithLabelValues(string(reason)).Inc()
		slog.Warn("device geolocation failed, falling back to ip", "reason", reason, "error", err)
		res.UsedFallbackDenied = true
	} else {
		slog.Info("device geolocation not available, using ip lookup")
	}

	// IP fixes are coarse and stay out of the cache so a later run
	// still asks the device first.
	if r.ip != nil {
		loc, err := r.ip.Locate(ctx)
		if err == nil {
			res.Location = &loc
			res.Source = domain.SourceIP
			res.UsedIPFallback = true
			metrics.LocationResolutions.WithLabelValues(string(domain.SourceIP)).Inc()
			return res
		}
		slog.Warn("ip geolocation failed", "error", err)
	}

	res.Source = domain.SourceNone
	metrics.LocationResolutions.WithLabelValues(string(domain.SourceNone)).Inc()
	return res
}

// ResolveDemo returns the fixed demonstration origin without touching the
// cache or any locator.
func (r *LocationResolver) ResolveDemo() domain.Resolution {
	loc := domain.DemoOrigin
	return domain.Resolution{Location: &loc, Source: domain.SourceDemo}
}

func (r *LocationResolver) cached(ctx context.Context) (domain.Coordinate, bool) {
	if r.store == nil {
		return domain.Coordinate{}, false
	}
	rec, err := r.store.Load(ctx)
	if err != nil {
		slog.Warn("read cached location", "error", err)
		return domain.Coordinate{}, false
	}
	if rec == nil {
		return domain.Coordinate{}, false
	}
	now := r.clock.Now()
	if !rec.Valid(now) {
		slog.Debug("cached location expired", "age", rec.Age(now).String())
		return domain.Coordinate{}, false
	}
	return rec.Location, true
}

func (r *LocationResolver) remember(ctx context.Context, loc domain.Coordinate) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(ctx, domain.NewCachedLocation(loc, r.clock.Now())); err != nil {
		slog.Warn("save cached location", "error", err)
	}
}
