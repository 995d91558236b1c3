package gtfsrt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/facebookgo/clock"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/proto"

	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/pkg/upstream"
)

// ArrivalTimeLayout is how arrival times are rendered, in New York time.
const ArrivalTimeLayout = "15:04"

var errAllFeedsFailed = errors.New("all gtfs-rt feeds failed")

type arrival struct {
	at    time.Time
	train domain.Train
}

// Source implements ports.ArrivalLookup from GTFS-RT trip updates.
type Source struct {
	feeds  []string
	client *upstream.Client
	clock  clock.Clock
	loc    *time.Location
}

// New creates a Source. An empty feeds list uses DefaultFeeds.
func New(feeds []string, timeout time.Duration, clk clock.Clock) *Source {
	if len(feeds) == 0 {
		feeds = DefaultFeeds
	}
	if clk == nil {
		clk = clock.New()
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &Source{
		feeds:  feeds,
		client: upstream.New("gtfsrt", timeout),
		clock:  clk,
		loc:    loc,
	}
}

// Arrivals returns upcoming trains for stopIDs, one entry per requested stop
// in request order. Platform ids "<stop>N" and "<stop>S" map to northbound
// and southbound. Feeds that fail are skipped unless every feed fails.
func (s *Source) Arrivals(ctx context.Context, stopIDs []string) ([]domain.StationArrivals, error) {
	wanted := make(map[string]bool, len(stopIDs))
	for _, id := range stopIDs {
		wanted[id] = true
	}

	var (
		mu     sync.Mutex
		msgs   []*gtfs.FeedMessage
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFeeds)
	for _, url := range s.feeds {
		g.Go(func() error {
			feed, err := s.fetchFeed(gctx, url)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				slog.Warn("gtfs-rt feed failed", "url", url, "error", err)
				return nil
			}
			msgs = append(msgs, feed)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failed == len(s.feeds) {
		return nil, errAllFeedsFailed
	}

	north, south := s.collect(msgs, wanted)

	out := make([]domain.StationArrivals, 0, len(stopIDs))
	for _, id := range stopIDs {
		out = append(out, domain.StationArrivals{
			StopID:     id,
			Southbound: trains(south[id]),
			Northbound: trains(north[id]),
		})
	}
	return out, nil
}

func (s *Source) fetchFeed(ctx context.Context, url string) (*gtfs.FeedMessage, error) {
	body, err := s.client.Do(ctx, fasthttp.MethodGet, url, nil, nil)
	if err != nil {
		return nil, err
	}
	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("unmarshal protobuf: %w", err)
	}
	return feed, nil
}

// collect groups future stop-time updates for wanted stops by direction.
func (s *Source) collect(msgs []*gtfs.FeedMessage, wanted map[string]bool) (north, south map[string][]arrival) {
	north = make(map[string][]arrival)
	south = make(map[string][]arrival)
	now := s.clock.Now()

	for _, feed := range msgs {
		for _, entity := range feed.GetEntity() {
			tu := entity.GetTripUpdate()
			if tu == nil {
				continue
			}
			trip := tu.GetTrip()

			for _, stu := range tu.GetStopTimeUpdate() {
				platform := stu.GetStopId()
				if len(platform) < 2 {
					continue
				}
				base, dir := platform[:len(platform)-1], platform[len(platform)-1:]
				if !wanted[base] {
					continue
				}

				ts := stu.GetArrival().GetTime()
				if ts == 0 {
					ts = stu.GetDeparture().GetTime()
				}
				if ts == 0 {
					continue
				}
				at := time.Unix(ts, 0)
				if at.Before(now) {
					continue
				}

				a := arrival{at: at, train: domain.Train{
					ArrivalTime: at.In(s.loc).Format(ArrivalTimeLayout),
					TripID:      trip.GetTripId(),
					RouteID:     strings.TrimSpace(trip.GetRouteId()),
				}}
				switch dir {
				case "N":
					north[base] = append(north[base], a)
				case "S":
					south[base] = append(south[base], a)
				}
			}
		}
	}
	return north, south
}

func trains(as []arrival) []domain.Train {
	sort.SliceStable(as, func(i, j int) bool { return as[i].at.Before(as[j].at) })
	out := make([]domain.Train, len(as))
	for i, a := range as {
		out[i] = a.train
	}
	return out
}
