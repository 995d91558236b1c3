package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/trainboard/internal/core/domain"
	"github.com/samirrijal/trainboard/internal/core/usecases"
)

func arrivalsFor(stopID, tripID string) []domain.StationArrivals {
	return []domain.StationArrivals{{
		StopID:     stopID,
		Southbound: []domain.Train{{ArrivalTime: "12:05", TripID: tripID, RouteID: "R1"}},
		Northbound: []domain.Train{},
	}}
}

func TestArrivalPoller_EmptyStopsNoFetch(t *testing.T) {
	lookup := &mockArrivals{}
	poller := usecases.NewArrivalPoller(lookup)

	poller.Trigger(context.Background(), nil)

	result := poller.Result()
	if result == nil || len(result) != 0 {
		t.Fatalf("expected empty result immediately, got %#v", result)
	}
	poller.Wait()
	if lookup.callCount() != 0 {
		t.Errorf("expected zero fetches, got %d", lookup.callCount())
	}
}

func TestArrivalPoller_BatchedFetch(t *testing.T) {
	lookup := &mockArrivals{
		arrivalsFn: func(ctx context.Context, stopIDs []string) ([]domain.StationArrivals, error) {
			return arrivalsFor("101", "T1"), nil
		},
	}
	poller := usecases.NewArrivalPoller(lookup)
	updates := make(chan []domain.StationArrivals, 4)
	poller.OnUpdate(func(r []domain.StationArrivals) { updates <- r })

	if poller.Result() != nil {
		t.Fatal("expected nil result before the first fetch")
	}

	poller.Trigger(context.Background(), []string{"101", "631"})
	poller.Wait()

	if lookup.callCount() != 1 {
		t.Fatalf("expected 1 batched fetch, got %d", lookup.callCount())
	}
	if ids := lookup.call(0); len(ids) != 2 || ids[0] != "101" || ids[1] != "631" {
		t.Errorf("expected [101 631], got %v", ids)
	}
	result := poller.Result()
	if len(result) != 1 || result[0].Southbound[0].TripID != "T1" {
		t.Errorf("unexpected result %#v", result)
	}
	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Error("expected an update notification")
	}
}

func TestArrivalPoller_ErrorKeepsLastGoodData(t *testing.T) {
	fail := false
	lookup := &mockArrivals{
		arrivalsFn: func(ctx context.Context, stopIDs []string) ([]domain.StationArrivals, error) {
			if fail {
				return nil, errors.New("Network response was not ok")
			}
			return arrivalsFor("101", "T1"), nil
		},
	}
	poller := usecases.NewArrivalPoller(lookup)

	poller.Trigger(context.Background(), []string{"101"})
	poller.Wait()
	fail = true
	poller.Trigger(context.Background(), []string{"101"})
	poller.Wait()

	result := poller.Result()
	if len(result) != 1 || result[0].Southbound[0].TripID != "T1" {
		t.Fatalf("expected previous data to survive a failed fetch, got %#v", result)
	}
}

func TestArrivalPoller_StaleResponseRejected(t *testing.T) {
	release := make(chan struct{})
	lookup := &mockArrivals{
		arrivalsFn: func(ctx context.Context, stopIDs []string) ([]domain.StationArrivals, error) {
			if stopIDs[0] == "old" {
				<-release
				return arrivalsFor("old", "SLOW"), nil
			}
			return arrivalsFor("new", "FAST"), nil
		},
	}
	poller := usecases.NewArrivalPoller(lookup)

	poller.Trigger(context.Background(), []string{"old"})
	poller.Trigger(context.Background(), []string{"new"})

	// let the newer request land first
	deadline := time.After(time.Second)
	for poller.Result() == nil {
		select {
		case <-deadline:
			t.Fatal("newer response never applied")
		case <-time.After(time.Millisecond):
		}
	}
	close(release)
	poller.Wait()

	result := poller.Result()
	if len(result) != 1 || result[0].StopID != "new" {
		t.Fatalf("expected newer response to win, got %#v", result)
	}
}

func TestArrivalPoller_ResetAndClose(t *testing.T) {
	release := make(chan struct{})
	lookup := &mockArrivals{
		arrivalsFn: func(ctx context.Context, stopIDs []string) ([]domain.StationArrivals, error) {
			<-release
			return arrivalsFor("101", "T1"), nil
		},
	}
	poller := usecases.NewArrivalPoller(lookup)

	poller.Trigger(context.Background(), []string{"101"})
	poller.Reset()
	close(release)
	poller.Wait()
	if poller.Result() != nil {
		t.Fatalf("expected result from before Reset to be dropped, got %#v", poller.Result())
	}

	poller.Close()
	poller.Trigger(context.Background(), []string{"101"})
	poller.Wait()
	if lookup.callCount() != 1 {
		t.Errorf("expected no fetch after Close, got %d calls", lookup.callCount())
	}
}
