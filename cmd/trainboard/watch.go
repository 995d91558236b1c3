package main

import (
	"context"
	"fmt"

	natsadapter "github.com/samirrijal/trainboard/internal/adapters/nats"
	"github.com/samirrijal/trainboard/internal/adapters/terminal"
	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/pkg/config"
)

// watch mirrors the board of a running tracker from NATS. An empty session
// follows whichever tracker publishes.
func watch(ctx context.Context, cfg *config.Config, session string) error {
	if cfg.NATS.URL == "" {
		return fmt.Errorf("watch needs nats.url")
	}

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		return err
	}
	defer sub.Close()

	board := terminal.NewStdout()
	err = sub.SubscribeSnapshots(ctx, session, func(ctx context.Context, snap domain.Snapshot) error {
		board.Update(snap)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	<-ctx.Done()
	return nil
}
