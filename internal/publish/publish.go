// Package publish is the surface business logic uses to emit realtime
// events. It holds no state of its own and is safe for concurrent use.
package publish

import (
	"github.com/patcharin/perkstream/internal/event"
	"github.com/patcharin/perkstream/internal/registry"
)

// Publisher wraps a connection registry with one helper per event kind.
// All sends are fire-and-forget: delivery is best-effort and failures
// never surface to the caller.
type Publisher struct {
	reg *registry.Registry
}

// New creates a Publisher over reg.
func New(reg *registry.Registry) *Publisher {
	return &Publisher{reg: reg}
}

// Notification sends a notification event to all of a user's connections.
func (p *Publisher) Notification(userID string, data any) {
	p.reg.SendToUser(userID, event.Notification(data))
}

// LoyaltyUpdate sends a points/tier change event to a user.
func (p *Publisher) LoyaltyUpdate(userID string, points int, tier string, totalNights int) {
	p.reg.SendToUser(userID, event.LoyaltyUpdate(points, tier, totalNights))
}

// CouponAssigned sends a coupon assignment event to a user.
func (p *Publisher) CouponAssigned(userID string, data any) {
	p.reg.SendToUser(userID, event.CouponAssigned(data))
}

// SlipUploaded broadcasts a payment-slip upload event to every connected
// client. Slips are reviewed by staff, so this is an admin-facing signal.
func (p *Publisher) SlipUploaded(bookingID, slipID string) {
	p.reg.BroadcastAll(event.SlipUploaded(bookingID, slipID))
}

// Broadcast sends an event of the given type to every connected client
// and mirrors it on the global channel for in-process observers. A global
// channel without subscribers is a normal, ignorable outcome.
func (p *Publisher) Broadcast(t event.Type, data any) {
	ev := event.New(t, data)
	p.reg.BroadcastAll(ev)
	// Zero in-process subscribers is fine; the per-connection broadcast
	// above already reached the clients.
	_, _ = p.reg.BroadcastGlobal(ev)
}
