package usecases

import (
	"context"
	"sync"
	"time"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/pkg/metrics"
)

// Countdown drives the refresh cycle: it counts down from
// domain.CountdownSeconds once per second and, on the tick after zero,
// advances the refresh epoch and starts over.
type Countdown struct {
	clock   clock.Clock
	onEpoch func(epoch uint64)

	mu         sync.Mutex
	state      domain.CountdownState
	subscriber func(domain.CountdownState)
	started    bool
	cancel     context.CancelFunc
	done       chan struct{}

	stopOnce sync.Once
}

// NewCountdown creates a stopped countdown. onEpoch is called once per
// completed cycle with the new epoch.
func NewCountdown(clk clock.Clock, onEpoch func(epoch uint64)) *Countdown {
	if clk == nil {
		clk = clock.New()
	}
	return &Countdown{
		clock:   clk,
		onEpoch: onEpoch,
		state:   domain.CountdownState{SecondsRemaining: domain.CountdownSeconds},
	}
}

// Subscribe sets the single callback invoked after every tick.
func (c *Countdown) Subscribe(fn func(domain.CountdownState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriber = fn
}

// State returns the current countdown state.
func (c *Countdown) State() domain.CountdownState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Tick advances the state machine by one second.
func (c *Countdown) Tick() domain.CountdownState {
	c.mu.Lock()
	wrapped := false
	if c.state.SecondsRemaining == 0 {
		c.state.RefreshEpoch++
		c.state.SecondsRemaining = domain.CountdownSeconds
		wrapped = true
	} else {
		c.state.SecondsRemaining--
	}
	st := c.state
	sub := c.subscriber
	c.mu.Unlock()

	metrics.SecondsRemaining.Set(float64(st.SecondsRemaining))
	if wrapped {
		metrics.RefreshEpoch.Set(float64(st.RefreshEpoch))
		if c.onEpoch != nil {
			c.onEpoch(st.RefreshEpoch)
		}
	}
	if sub != nil {
		sub(st)
	}
	return st
}

// Start begins ticking once per second until Stop or ctx is done.
// Starting twice, or after Stop, is a no-op.
func (c *Countdown) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	ticker := c.clock.Ticker(time.Second)
	done := c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				c.Tick()
			}
		}
	}()
}

// Stop halts the ticker and waits for the loop to exit. No tick fires
// after Stop returns. Safe to call more than once.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.started = true
		cancel, done := c.cancel, c.done
		c.mu.Unlock()

		if cancel != nil {
			cancel()
			<-done
		}
	})
}
