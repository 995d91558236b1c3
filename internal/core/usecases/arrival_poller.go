package usecases

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/core/ports"
	"github.com/samirrijal/trainboard/internal/pkg/metrics"
)

// ArrivalPoller fetches arrivals for a set of stops each time it is
// triggered. It owns no timer: callers trigger it on a station change or
// when the refresh epoch advances.
//
// Every trigger starts a new generation. Only the response belonging to
// the latest generation is applied; slower responses for earlier triggers
// are dropped.
type ArrivalPoller struct {
	lookup ports.ArrivalLookup

	mu     sync.Mutex
	gen    uint64
	result []domain.StationArrivals
	closed bool

	notifyMu sync.Mutex
	onUpdate func([]domain.StationArrivals)

	wg sync.WaitGroup
}

// NewArrivalPoller creates a new ArrivalPoller.
func NewArrivalPoller(lookup ports.ArrivalLookup) *ArrivalPoller {
	return &ArrivalPoller{lookup: lookup}
}

// OnUpdate registers the single subscriber notified with the latest result
// whenever a result is applied.
func (p *ArrivalPoller) OnUpdate(fn func([]domain.StationArrivals)) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	p.onUpdate = fn
}

// Trigger starts one fetch for stopIDs. An empty set resolves to an empty
// result immediately without a network call.
func (p *ArrivalPoller) Trigger(ctx context.Context, stopIDs []string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.gen++
	gen := p.gen

	if len(stopIDs) == 0 {
		p.result = []domain.StationArrivals{}
		p.wg.Add(1)
		p.mu.Unlock()
		metrics.ArrivalFetches.WithLabelValues("skipped").Inc()
		go func() {
			defer p.wg.Done()
			p.notify()
		}()
		return
	}

	p.wg.Add(1)
	p.mu.Unlock()

	ids := append([]string(nil), stopIDs...)
	go p.fetch(ctx, gen, ids)
}

// Result returns the last applied arrivals, or nil while nothing has been
// applied since the last Reset.
func (p *ArrivalPoller) Result() []domain.StationArrivals {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Reset clears the current result and invalidates in-flight fetches.
func (p *ArrivalPoller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.result = nil
}

// Close invalidates in-flight fetches and ignores further triggers.
func (p *ArrivalPoller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.closed = true
}

// Wait blocks until all started fetches have finished.
func (p *ArrivalPoller) Wait() {
	p.wg.Wait()
}

func (p *ArrivalPoller) fetch(ctx context.Context, gen uint64, stopIDs []string) {
	defer p.wg.Done()

	data, err := p.lookup.Arrivals(ctx, stopIDs)

	p.mu.Lock()
	if err != nil {
		p.mu.Unlock()
		metrics.ArrivalFetches.WithLabelValues("error").Inc()
		slog.Warn("fetch train data", "stops", len(stopIDs), "error", err)
		return
	}
	if p.closed || gen != p.gen {
		p.mu.Unlock()
		metrics.ArrivalFetches.WithLabelValues("stale").Inc()
		slog.Debug("discarding stale arrivals", "generation", gen)
		return
	}
	if data == nil {
		data = []domain.StationArrivals{}
	}
	p.result = data
	p.mu.Unlock()

	metrics.ArrivalFetches.WithLabelValues("applied").Inc()
	p.notify()
}

// notify hands the subscriber the latest result rather than the one that
// triggered it, so out-of-order notifications cannot surface older data.
func (p *ArrivalPoller) notify() {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	if p.onUpdate != nil {
		p.onUpdate(p.Result())
	}
}
