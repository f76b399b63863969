package registry

import (
	"errors"
	"testing"

	"github.com/patcharin/perkstream/internal/event"
)

func TestGlobalBroadcastWithoutSubscribers(t *testing.T) {
	t.Parallel()

	g := NewGlobalChannel()
	n, err := g.Broadcast(event.Heartbeat())
	if !errors.Is(err, ErrNoSubscribers) {
		t.Fatalf("expected ErrNoSubscribers, got %v", err)
	}
	if n != 0 {
		t.Fatalf("subscriber count = %d, want 0", n)
	}
}

func TestGlobalBroadcastReachesAllSubscribers(t *testing.T) {
	t.Parallel()

	g := NewGlobalChannel()
	ch1, cancel1 := g.Subscribe()
	ch2, cancel2 := g.Subscribe()
	defer cancel1()
	defer cancel2()

	n, err := g.Broadcast(event.SlipUploaded("booking-1", "slip-1"))
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if n != 2 {
		t.Fatalf("subscriber count = %d, want 2", n)
	}

	for i, ch := range []<-chan event.Event{ch1, ch2} {
		select {
		case got := <-ch:
			if got.Type != event.TypeSlipUploaded {
				t.Fatalf("subscriber %d got %s, want slip_uploaded", i+1, got.Type)
			}
		default:
			t.Fatalf("subscriber %d did not receive the event", i+1)
		}
	}
}

func TestGlobalCancelStopsDelivery(t *testing.T) {
	t.Parallel()

	g := NewGlobalChannel()
	ch, cancel := g.Subscribe()
	_, cancel2 := g.Subscribe()
	defer cancel2()

	cancel()
	cancel() // idempotent

	if _, open := <-ch; open {
		t.Fatal("cancelled subscriber channel should be closed")
	}

	n, err := g.Broadcast(event.Heartbeat())
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if n != 1 {
		t.Fatalf("subscriber count = %d, want 1 after cancel", n)
	}
}

func TestRegistryGlobalChannelIndependentOfConnections(t *testing.T) {
	t.Parallel()

	r := New(0)
	_, userCh := r.AddClient("u1")

	sub, cancel := r.SubscribeGlobal()
	defer cancel()

	if _, err := r.BroadcastGlobal(event.Heartbeat()); err != nil {
		t.Fatalf("BroadcastGlobal: %v", err)
	}

	select {
	case <-sub:
	default:
		t.Fatal("global subscriber did not receive the event")
	}
	select {
	case ev := <-userCh:
		t.Fatalf("per-user connection should not see global events, got %v", ev)
	default:
	}
}
