package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trainboard/internal/core/usecases"
)

// Pinger is a dependency that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds everything the status server reads from.
type Dependencies struct {
	Tracker *usecases.Tracker
	Store   Pinger     // location store, optional
	NATS    *nats.Conn // optional; the WebSocket relays from it when set
	Version string
}
