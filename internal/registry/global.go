package registry

import (
	"errors"
	"sync"

	"github.com/patcharin/perkstream/internal/event"
)

// ErrNoSubscribers is returned by GlobalChannel.Broadcast when no
// subscriber is live at send time. Callers may treat it as informational
// rather than a fault.
var ErrNoSubscribers = errors.New("no global subscribers")

// GlobalChannel is a process-wide broadcast path for events not scoped to
// any single user, independent of the per-user registry. Subscribers are
// anonymous: no identity is tracked beyond the channel itself.
type GlobalChannel struct {
	mu   sync.Mutex
	subs map[chan event.Event]struct{}
}

// NewGlobalChannel creates an empty global channel.
func NewGlobalChannel() *GlobalChannel {
	return &GlobalChannel{
		subs: make(map[chan event.Event]struct{}),
	}
}

// Subscribe registers a new subscriber and returns its event channel plus
// a cancel function that must be called when the subscriber goes away.
// Cancel is idempotent.
func (g *GlobalChannel) Subscribe() (<-chan event.Event, func()) {
	ch := make(chan event.Event, DefaultChannelCapacity)

	g.mu.Lock()
	g.subs[ch] = struct{}{}
	g.mu.Unlock()

	cancel := func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if _, ok := g.subs[ch]; ok {
			delete(g.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Broadcast pushes ev to every live subscriber without blocking; a
// subscriber with a full buffer misses the event. It returns how many
// subscribers were live at send time, or ErrNoSubscribers when zero.
func (g *GlobalChannel) Broadcast(ev event.Event) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.subs) == 0 {
		return 0, ErrNoSubscribers
	}
	for ch := range g.subs {
		select {
		case ch <- ev:
		default:
			// Lagging subscriber; the next event will catch it up.
		}
	}
	return len(g.subs), nil
}
