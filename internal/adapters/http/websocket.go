package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/trainboard/internal/adapters/nats"
	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/pkg/metrics"
)

const wsPingInterval = 30 * time.Second

// latest is a one-slot mailbox that keeps only the newest payload, so a
// slow client never holds up the countdown.
type latest struct {
	mu   sync.Mutex
	data []byte
	wake chan struct{}
}

func newLatest() *latest {
	return &latest{wake: make(chan struct{}, 1)}
}

func (l *latest) put(data []byte) {
	l.mu.Lock()
	l.data = data
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *latest) take() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	data := l.data
	l.data = nil
	return data
}

// WebSocketHandler streams board snapshots to the client. The current
// snapshot is sent on connect; later ones are relayed from NATS when a
// connection is configured, otherwise straight from the tracker.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		box := newLatest()
		if data, err := json.Marshal(deps.Tracker.Snapshot()); err == nil {
			box.put(data)
		}

		unsubscribe, err := subscribeSnapshots(deps, box)
		if err != nil {
			slog.Error("ws subscribe", "remote", remoteAddr, "error", err)
			return
		}
		defer unsubscribe()

		// Writer: snapshots and keep-alive pings.
		done := make(chan struct{})
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-box.wake:
					data := box.take()
					if data == nil {
						continue
					}
					if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
						return
					}
				case <-ticker.C:
					if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		// Reader: only needed to notice the client going away.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}

		close(done)
		<-writerDone
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}

func subscribeSnapshots(deps *Dependencies, box *latest) (func(), error) {
	if deps.NATS != nil {
		sub, err := deps.NATS.Subscribe(natsadapter.SnapshotSubject(deps.Tracker.SessionID()), func(msg *nats.Msg) {
			box.put(msg.Data)
		})
		if err != nil {
			return nil, err
		}
		return func() { _ = sub.Unsubscribe() }, nil
	}

	cancel := deps.Tracker.Subscribe(func(snap domain.Snapshot) {
		data, err := json.Marshal(snap)
		if err != nil {
			return
		}
		box.put(data)
	})
	return cancel, nil
}
