package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trainboard/internal/core/domain"
)

const (
	// SnapshotStream retains the latest snapshot of every session.
	SnapshotStream = "TRAINBOARD_SNAPSHOTS"
	// SnapshotPrefix is the subject prefix; the session id follows.
	SnapshotPrefix = "trainboard.snapshot."
	// AllSnapshots matches every session.
	AllSnapshots = SnapshotPrefix + "*"
)

// SnapshotSubject returns the subject snapshots of sessionID are published on.
func SnapshotSubject(sessionID string) string {
	// NATS tokens cannot contain dots or wildcards
	r := strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")
	return SnapshotPrefix + r.Replace(sessionID)
}

func snapshotStreamConfig() *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:              SnapshotStream,
		Subjects:          []string{AllSnapshots},
		Retention:         nats.LimitsPolicy,
		MaxMsgsPerSubject: 1,
		MaxAge:            1 * time.Hour,
		Storage:           nats.MemoryStorage,
		Discard:           nats.DiscardOld,
	}
}

// Publisher implements ports.SnapshotPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the snapshot stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := snapshotStreamConfig()
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist: try update
		if _, err := js.UpdateStream(cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishSnapshot publishes snap on its session subject.
func (p *Publisher) PublishSnapshot(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SnapshotSubject(snap.SessionID), data, nats.Context(ctx))
	return err
}

// Conn exposes the underlying connection for relays and health checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("trainboard"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
