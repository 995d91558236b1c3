package usecases

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/core/ports"
)

// ErrTrackerClosed is returned when inputs change after Close.
var ErrTrackerClosed = errors.New("tracker closed")

// TrackerDeps holds the collaborators of a Tracker.
type TrackerDeps struct {
	Resolver  *LocationResolver
	Finder    *StationFinder
	Poller    *ArrivalPoller
	Publisher ports.SnapshotPublisher // optional
	Clock     clock.Clock
	Radius    domain.Radius
	SessionID string
}

// Tracker is one live board: it resolves a location, finds nearby
// stations and keeps their arrivals fresh on the countdown.
type Tracker struct {
	resolver  *LocationResolver
	finder    *StationFinder
	poller    *ArrivalPoller
	countdown *Countdown
	publisher ports.SnapshotPublisher
	clock     clock.Clock
	sessionID string

	mu            sync.Mutex
	ctx           context.Context
	radius        domain.Radius
	resolution    domain.Resolution
	resolved      bool
	manualGen     uint64
	stations      []domain.Stop
	stationsReady bool
	noTrainsFound bool
	inputGen      uint64
	closed        bool
	subs          map[int]func(domain.Snapshot)
	nextSub       int

	// resolving coalesces concurrent reloads onto one Resolve call.
	resolving singleflight.Group
	// publishMu keeps snapshots reaching subscribers in capture order.
	publishMu sync.Mutex

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewTracker wires a tracker. It does nothing until Start.
func NewTracker(deps TrackerDeps) *Tracker {
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	sessionID := deps.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	t := &Tracker{
		resolver:  deps.Resolver,
		finder:    deps.Finder,
		poller:    deps.Poller,
		publisher: deps.Publisher,
		clock:     clk,
		sessionID: sessionID,
		radius:    deps.Radius,
		ctx:       context.Background(),
		subs:      make(map[int]func(domain.Snapshot)),
	}
	t.countdown = NewCountdown(clk, t.onEpoch)
	t.countdown.Subscribe(func(domain.CountdownState) { t.publish() })
	t.poller.OnUpdate(t.onArrivals)
	return t
}

// SessionID identifies this tracker in published snapshots.
func (t *Tracker) SessionID() string { return t.sessionID }

// Countdown exposes the tracker's scheduler.
func (t *Tracker) Countdown() *Countdown { return t.countdown }

// Start resolves the location in the background and begins the countdown.
// ctx scopes the network calls; it is not used to stop the countdown.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()

	t.countdown.Start(context.WithoutCancel(ctx))
	t.spawnReload()
}

// SetRadius changes the search radius and reloads stations.
func (t *Tracker) SetRadius(r domain.Radius) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTrackerClosed
	}
	t.radius = r
	t.mu.Unlock()

	t.spawnReload()
	return nil
}

// SetLocation overrides the resolved location and reloads stations.
// Manual locations are not written to the location cache.
func (t *Tracker) SetLocation(loc domain.Coordinate) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTrackerClosed
	}
	t.resolution = domain.Resolution{Location: &loc, Source: domain.SourceManual}
	t.resolved = true
	t.manualGen++
	t.mu.Unlock()

	t.spawnReload()
	return nil
}

// Subscribe registers fn for every snapshot change. The returned function
// removes the subscription.
func (t *Tracker) Subscribe(fn func(domain.Snapshot)) (cancel func()) {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Snapshot returns the current board state.
func (t *Tracker) Snapshot() domain.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Wait blocks until background lookups and fetches have settled.
func (t *Tracker) Wait() {
	t.wg.Wait()
	t.poller.Wait()
}

// Close stops the countdown and ignores any result still in flight.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.inputGen++
		t.subs = make(map[int]func(domain.Snapshot))
		t.mu.Unlock()

		t.countdown.Stop()
		t.poller.Close()
	})
}

func (t *Tracker) spawnReload() {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.reload()
	}()
}

// reload clears the board, resolves the location if needed and looks up
// stations for the current inputs. Results for superseded inputs are dropped.
func (t *Tracker) reload() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.inputGen++
	gen := t.inputGen
	ctx := t.ctx
	radius := t.radius
	needResolve := !radius.Demo && (!t.resolved || t.resolution.Location == nil)
	t.stations = nil
	t.stationsReady = false
	t.noTrainsFound = false
	t.poller.Reset()
	t.mu.Unlock()
	t.publish()

	if needResolve {
		t.resolving.Do("resolve", func() (interface{}, error) {
			t.resolve(ctx)
			return nil, nil
		})
		t.mu.Lock()
		superseded := t.closed || gen != t.inputGen
		t.mu.Unlock()
		if superseded {
			return
		}
		t.publish()
	}

	t.mu.Lock()
	at := t.resolution.Location
	t.mu.Unlock()

	if _, _, ok := t.finder.Effective(at, radius); !ok {
		slog.Info("no location available, waiting for input", "session", t.sessionID)
		return
	}

	stops := t.finder.Find(ctx, at, radius)

	t.mu.Lock()
	if t.closed || gen != t.inputGen {
		t.mu.Unlock()
		slog.Debug("discarding stale station lookup", "session", t.sessionID)
		return
	}
	t.stations = stops
	t.stationsReady = true
	t.poller.Trigger(ctx, domain.StopIDs(stops))
	t.mu.Unlock()
	t.publish()
}

// resolve runs one location resolution unless a usable location already
// exists. A manual location set meanwhile wins over the result.
func (t *Tracker) resolve(ctx context.Context) {
	t.mu.Lock()
	if t.closed || (t.resolved && t.resolution.Location != nil) {
		t.mu.Unlock()
		return
	}
	manual := t.manualGen
	t.mu.Unlock()

	res := t.resolver.Resolve(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.manualGen != manual {
		return
	}
	t.resolution = res
	t.resolved = true
}

func (t *Tracker) onEpoch(epoch uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || !t.stationsReady {
		return
	}
	slog.Debug("refreshing arrivals", "session", t.sessionID, "epoch", epoch)
	t.poller.Trigger(t.ctx, domain.StopIDs(t.stations))
}

func (t *Tracker) onArrivals(result []domain.StationArrivals) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if result != nil {
		t.noTrainsFound = noTrains(result)
	}
	t.mu.Unlock()
	t.publish()
}

func (t *Tracker) publish() {
	t.publishMu.Lock()
	defer t.publishMu.Unlock()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	snap := t.snapshotLocked()
	ctx := t.ctx
	subs := make([]func(domain.Snapshot), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	if t.publisher != nil {
		if err := t.publisher.PublishSnapshot(ctx, snap); err != nil {
			slog.Warn("publish snapshot", "session", t.sessionID, "error", err)
		}
	}
}

func (t *Tracker) snapshotLocked() domain.Snapshot {
	res := t.resolution
	if t.radius.Demo {
		res = t.resolver.ResolveDemo()
	}
	if res.Source == "" {
		res.Source = domain.SourceNone
	}

	stations := t.stations
	if stations == nil {
		stations = []domain.Stop{}
	}

	return domain.Snapshot{
		SessionID:          t.sessionID,
		Location:           res.Location,
		LocationSource:     res.Source,
		UsedFallbackDenied: res.UsedFallbackDenied,
		UsedIPFallback:     res.UsedIPFallback,
		Radius:             t.radius,
		Stations:           stations,
		NoTrainsFound:      t.noTrainsFound,
		Arrivals:           t.poller.Result(),
		Countdown:          t.countdown.State(),
		UpdatedAt:          t.clock.Now(),
	}
}

func noTrains(result []domain.StationArrivals) bool {
	for _, s := range result {
		if !s.Empty() {
			return false
		}
	}
	return true
}
