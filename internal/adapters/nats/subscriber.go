package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trainboard/internal/core/domain"
)

// Subscriber follows snapshots published by other trainboard processes.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeSnapshots delivers the latest retained snapshot of each matching
// session and then every new one. An empty sessionID follows all sessions.
func (s *Subscriber) SubscribeSnapshots(ctx context.Context, sessionID string, handler func(ctx context.Context, snap domain.Snapshot) error) error {
	subject := AllSnapshots
	if sessionID != "" {
		subject = SnapshotSubject(sessionID)
	}

	sub, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
		snap, err := DecodeSnapshot(msg.Data)
		if err != nil {
			slog.Warn("drop malformed snapshot", "subject", msg.Subject, "error", err)
			return
		}
		if err := handler(ctx, snap); err != nil {
			slog.Warn("snapshot handler", "subject", msg.Subject, "error", err)
		}
	},
		nats.DeliverLastPerSubject(),
		nats.AckNone(),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}

// DecodeSnapshot parses a published snapshot.
func DecodeSnapshot(data []byte) (domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
