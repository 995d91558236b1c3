package usecases_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/samirrijal/trainboard/internal/core/domain"
)

// --- Mock LocationStore ---

type mockStore struct {
	mu     sync.Mutex
	rec    *domain.CachedLocation
	loadFn func(ctx context.Context) (*domain.CachedLocation, error)
	saved  []domain.CachedLocation
	loads  atomic.Int32
}

func (m *mockStore) Load(ctx context.Context) (*domain.CachedLocation, error) {
	m.loads.Add(1)
	if m.loadFn != nil {
		return m.loadFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return nil, nil
	}
	rec := *m.rec
	return &rec, nil
}

func (m *mockStore) Save(ctx context.Context, rec domain.CachedLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, rec)
	m.rec = &rec
	return nil
}

func (m *mockStore) savedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

// --- Mock Geolocator ---

type mockDevice struct {
	positionFn func(ctx context.Context) (domain.Coordinate, error)
	calls      atomic.Int32
}

func (m *mockDevice) CurrentPosition(ctx context.Context) (domain.Coordinate, error) {
	m.calls.Add(1)
	if m.positionFn != nil {
		return m.positionFn(ctx)
	}
	return domain.Coordinate{}, &domain.GeoError{Reason: domain.GeoUnavailable}
}

// --- Mock IPLocator ---

type mockIP struct {
	locateFn func(ctx context.Context) (domain.Coordinate, error)
	calls    atomic.Int32
}

func (m *mockIP) Locate(ctx context.Context) (domain.Coordinate, error) {
	m.calls.Add(1)
	if m.locateFn != nil {
		return m.locateFn(ctx)
	}
	return domain.Coordinate{}, context.DeadlineExceeded
}

// --- Mock StationLookup ---

type stationCall struct {
	at    domain.Coordinate
	miles float64
}

type mockStations struct {
	mu       sync.Mutex
	nearbyFn func(ctx context.Context, at domain.Coordinate, miles float64) ([]domain.Stop, error)
	calls    []stationCall
}

func (m *mockStations) NearbyStations(ctx context.Context, at domain.Coordinate, miles float64) ([]domain.Stop, error) {
	m.mu.Lock()
	m.calls = append(m.calls, stationCall{at: at, miles: miles})
	fn := m.nearbyFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, at, miles)
	}
	return nil, nil
}

func (m *mockStations) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockStations) lastCall() stationCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

// --- Mock ArrivalLookup ---

type mockArrivals struct {
	mu         sync.Mutex
	arrivalsFn func(ctx context.Context, stopIDs []string) ([]domain.StationArrivals, error)
	calls      [][]string
}

func (m *mockArrivals) Arrivals(ctx context.Context, stopIDs []string) ([]domain.StationArrivals, error) {
	m.mu.Lock()
	m.calls = append(m.calls, stopIDs)
	fn := m.arrivalsFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, stopIDs)
	}
	return []domain.StationArrivals{}, nil
}

func (m *mockArrivals) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockArrivals) call(i int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[i]
}

// --- Mock SnapshotPublisher ---

type mockPublisher struct {
	mu    sync.Mutex
	snaps []domain.Snapshot
}

func (m *mockPublisher) PublishSnapshot(ctx context.Context, snap domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps = append(m.snaps, snap)
	return nil
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snaps)
}
