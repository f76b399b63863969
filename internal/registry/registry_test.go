package registry

import (
	"sync"
	"testing"

	"github.com/patcharin/perkstream/internal/event"
)

func TestAddAndRemoveClient(t *testing.T) {
	t.Parallel()

	r := New(0)
	connID, ch := r.AddClient("user-123")
	if connID == "" {
		t.Fatal("AddClient returned empty connection id")
	}
	if ch == nil {
		t.Fatal("AddClient returned nil channel")
	}
	if !r.IsUserConnected("user-123") {
		t.Fatal("user should be connected after AddClient")
	}
	if got := r.ClientCount("user-123"); got != 1 {
		t.Fatalf("ClientCount = %d, want 1", got)
	}

	r.RemoveClient("user-123", connID)
	if r.IsUserConnected("user-123") {
		t.Fatal("user should be disconnected after RemoveClient")
	}
	if got := r.ClientCount("user-123"); got != 0 {
		t.Fatalf("ClientCount = %d, want 0", got)
	}

	if _, open := <-ch; open {
		t.Fatal("channel should be closed after RemoveClient")
	}
}

func TestRemoveClientIdempotent(t *testing.T) {
	t.Parallel()

	r := New(0)
	// Never-added connection: no error, no state change.
	r.RemoveClient("ghost", "no-such-conn")
	if got := r.UserCount(); got != 0 {
		t.Fatalf("UserCount = %d, want 0", got)
	}

	connID, _ := r.AddClient("u1")
	r.RemoveClient("u1", connID)
	r.RemoveClient("u1", connID) // second removal is a no-op
	if got := r.TotalClientCount(); got != 0 {
		t.Fatalf("TotalClientCount = %d, want 0", got)
	}
}

func TestEmptyUserEntryPruned(t *testing.T) {
	t.Parallel()

	r := New(0)
	connID, _ := r.AddClient("u1")
	r.RemoveClient("u1", connID)

	// Verify against the internal map, not just the count API: the outer
	// entry must be gone, not retained as an empty inner map.
	r.mu.RLock()
	_, present := r.users["u1"]
	size := len(r.users)
	r.mu.RUnlock()
	if present || size != 0 {
		t.Fatalf("user entry should be pruned, present=%v outer size=%d", present, size)
	}
}

func TestSendToUserFansOutToAllConnections(t *testing.T) {
	t.Parallel()

	r := New(0)
	_, chA1 := r.AddClient("userA")
	_, chA2 := r.AddClient("userA")
	_, chB := r.AddClient("userB")

	ev := event.Notification(map[string]any{"msg": "hi"})
	r.SendToUser("userA", ev)

	for i, ch := range []<-chan event.Event{chA1, chA2} {
		select {
		case got := <-ch:
			if got.Type != event.TypeNotification {
				t.Fatalf("connection %d got type %s, want notification", i, got.Type)
			}
		default:
			t.Fatalf("connection %d for userA did not receive the event", i)
		}
	}

	select {
	case got := <-chB:
		t.Fatalf("userB should not receive userA's event, got %v", got)
	default:
	}
}

func TestSendToUserWithoutConnectionsIsNoOp(t *testing.T) {
	t.Parallel()

	r := New(0)
	// Must return without error and without observable effect.
	r.SendToUser("nobody", event.Heartbeat())
	if got := r.UserCount(); got != 0 {
		t.Fatalf("UserCount = %d, want 0", got)
	}
}

func TestSendToUserPreservesOrder(t *testing.T) {
	t.Parallel()

	r := New(0)
	_, ch := r.AddClient("u1")

	for i := 0; i < 5; i++ {
		r.SendToUser("u1", event.Notification(map[string]any{"seq": i}))
	}
	for i := 0; i < 5; i++ {
		got := <-ch
		data := got.Data.(map[string]any)
		if data["seq"] != i {
			t.Fatalf("event %d out of order: got seq %v", i, data["seq"])
		}
	}
}

func TestSendToUsers(t *testing.T) {
	t.Parallel()

	r := New(0)
	_, ch1 := r.AddClient("u1")
	_, ch2 := r.AddClient("u2")
	_, ch3 := r.AddClient("u3")

	r.SendToUsers([]string{"u1", "u2"}, event.Heartbeat())

	for i, ch := range []<-chan event.Event{ch1, ch2} {
		select {
		case <-ch:
		default:
			t.Fatalf("target user %d did not receive the event", i+1)
		}
	}
	select {
	case <-ch3:
		t.Fatal("u3 was not targeted and should not receive the event")
	default:
	}
}

func TestBroadcastAll(t *testing.T) {
	t.Parallel()

	r := New(0)
	_, ch1 := r.AddClient("u1")
	_, ch2 := r.AddClient("u2")
	removedID, chRemoved := r.AddClient("u2")
	r.RemoveClient("u2", removedID)

	if got := r.ClientCount("u2"); got != 1 {
		t.Fatalf("ClientCount(u2) = %d, want 1", got)
	}

	r.BroadcastAll(event.Heartbeat())

	for i, ch := range []<-chan event.Event{ch1, ch2} {
		select {
		case <-ch:
		default:
			t.Fatalf("registered connection %d did not receive broadcast", i+1)
		}
	}
	select {
	case ev, open := <-chRemoved:
		if open {
			t.Fatalf("removed connection should not receive broadcast, got %v", ev)
		}
	default:
	}
}

func TestFullBufferDropsEventWithoutBlocking(t *testing.T) {
	t.Parallel()

	r := New(2)
	_, ch := r.AddClient("u1")
	_, healthy := r.AddClient("u1")

	// Saturate the first connection's buffer, then keep publishing.
	for i := 0; i < 5; i++ {
		r.SendToUser("u1", event.Notification(map[string]any{"seq": i}))
	}

	if got := len(ch); got != 2 {
		t.Fatalf("saturated connection holds %d events, want 2", got)
	}
	if got := len(healthy); got != 2 {
		// Both channels share the same capacity; the point is that the
		// publisher never blocked while one was full.
		t.Fatalf("healthy connection holds %d events, want 2", got)
	}
}

func TestDeliveryToOneUserIsIndependent(t *testing.T) {
	t.Parallel()

	r := New(1)
	_, full := r.AddClient("u1")
	_, fresh := r.AddClient("u2")

	r.SendToUser("u1", event.Heartbeat()) // fills u1's single slot
	r.BroadcastAll(event.Notification(map[string]any{"msg": "x"}))

	if got := len(full); got != 1 {
		t.Fatalf("full connection holds %d events, want 1", got)
	}
	select {
	case got := <-fresh:
		if got.Type != event.TypeNotification {
			t.Fatalf("u2 got %s, want notification", got.Type)
		}
	default:
		t.Fatal("u2 should receive the broadcast despite u1 being saturated")
	}
}

func TestCountsUnderConcurrentChurn(t *testing.T) {
	t.Parallel()

	r := New(0)
	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, _ := r.AddClient("churn")
				r.SendToUser("churn", event.Heartbeat())
				r.RemoveClient("churn", id)
			}
		}()
	}
	wg.Wait()

	if r.IsUserConnected("churn") {
		t.Fatal("all connections were removed; user should be absent")
	}
	if got := r.TotalClientCount(); got != 0 {
		t.Fatalf("TotalClientCount = %d, want 0", got)
	}
}

func TestConnectionIDsUnique(t *testing.T) {
	t.Parallel()

	r := New(0)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, _ := r.AddClient("u1")
		if seen[id] {
			t.Fatalf("duplicate connection id %s", id)
		}
		seen[id] = true
	}
}
