// Package registry tracks live per-user client connections and fans
// realtime events out to them.
package registry

import (
	"crypto/rand"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/patcharin/perkstream/internal/event"
)

// DefaultChannelCapacity is the buffered event capacity of each client
// connection channel.
const DefaultChannelCapacity = 100

// NewConnectionID generates a new ULID-based connection identifier.
func NewConnectionID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// client is one live subscription: its identity plus the channel the
// stream handler reads from. The registry owns the channel; the handler
// holds only the receive side.
type client struct {
	id     string
	userID string
	ch     chan event.Event
}

// Registry is a concurrency-safe map of user ID to that user's live
// client connections. Publish operations never block and never fail the
// caller: a connection whose buffer is full simply misses the event.
type Registry struct {
	mu       sync.RWMutex
	users    map[string]map[string]*client
	capacity int
	global   *GlobalChannel
}

// New creates a Registry. capacity is the per-connection channel buffer;
// zero or negative selects DefaultChannelCapacity.
func New(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultChannelCapacity
	}
	return &Registry{
		users:    make(map[string]map[string]*client),
		capacity: capacity,
		global:   NewGlobalChannel(),
	}
}

// AddClient registers a new connection for userID and returns its
// connection ID together with the channel the caller should read events
// from. It never fails.
func (r *Registry) AddClient(userID string) (string, <-chan event.Event) {
	c := &client{
		id:     NewConnectionID(),
		userID: userID,
		ch:     make(chan event.Event, r.capacity),
	}

	r.mu.Lock()
	conns := r.users[userID]
	if conns == nil {
		conns = make(map[string]*client)
		r.users[userID] = conns
	}
	conns[c.id] = c
	r.mu.Unlock()

	log.Printf("client connected: user=%s conn=%s", userID, c.id)
	return c.id, c.ch
}

// RemoveClient removes the connection and closes its channel. A user
// whose last connection is removed is pruned entirely so the map never
// retains empty entries. Removing an unknown connection is a no-op.
func (r *Registry) RemoveClient(userID, connID string) {
	r.mu.Lock()
	conns, ok := r.users[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	c, ok := conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.users, userID)
	}
	close(c.ch)
	r.mu.Unlock()

	log.Printf("client disconnected: user=%s conn=%s", userID, connID)
}

// deliver attempts a non-blocking push to a single connection. A full
// buffer drops the event rather than stalling the publisher.
func deliver(c *client, ev event.Event) bool {
	select {
	case c.ch <- ev:
		return true
	default:
		log.Printf("DEBUG: dropping %s event for user=%s conn=%s: buffer full", ev.Type, c.userID, c.id)
		return false
	}
}

// SendToUser pushes ev to every connection of userID. Fire-and-forget:
// delivery is not guaranteed and failures never surface to the caller.
func (r *Registry) SendToUser(userID string, ev event.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns, ok := r.users[userID]
	if !ok {
		log.Printf("DEBUG: no active connections for user=%s, %s event not delivered", userID, ev.Type)
		return
	}
	for _, c := range conns {
		deliver(c, ev)
	}
}

// SendToUsers pushes ev to every connection of each listed user. Not
// atomic across users; a drop for one user does not affect the others.
func (r *Registry) SendToUsers(userIDs []string, ev event.Event) {
	for _, id := range userIDs {
		r.SendToUser(id, ev)
	}
}

// BroadcastAll pushes ev to every connection of every user, with the
// same non-blocking drop-on-full semantics as SendToUser.
func (r *Registry) BroadcastAll(ev event.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sent, dropped int
	for _, conns := range r.users {
		for _, c := range conns {
			if deliver(c, ev) {
				sent++
			} else {
				dropped++
			}
		}
	}
	log.Printf("broadcast %s event: sent=%d dropped=%d", ev.Type, sent, dropped)
}

// ClientCount returns the number of live connections for userID.
func (r *Registry) ClientCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID])
}

// TotalClientCount returns the number of live connections across all users.
func (r *Registry) TotalClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, conns := range r.users {
		total += len(conns)
	}
	return total
}

// UserCount returns the number of users with at least one live connection.
func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// IsUserConnected reports whether userID has any live connection.
func (r *Registry) IsUserConnected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// SubscribeGlobal registers a subscriber on the registry's global
// broadcast channel. See GlobalChannel.
func (r *Registry) SubscribeGlobal() (<-chan event.Event, func()) {
	return r.global.Subscribe()
}

// BroadcastGlobal publishes ev on the global channel and returns the
// number of live subscribers, or ErrNoSubscribers when nobody listens.
func (r *Registry) BroadcastGlobal(ev event.Event) (int, error) {
	return r.global.Broadcast(ev)
}
