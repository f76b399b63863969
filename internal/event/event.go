// Package event defines the realtime event types streamed to clients and
// their Server-Sent Events wire framing.
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies the kind of a realtime event. The set is closed; the
// string value is the SSE "event:" tag seen by clients.
type Type string

const (
	TypeNotification   Type = "notification"
	TypeLoyaltyUpdate  Type = "loyalty_update"
	TypeCouponAssigned Type = "coupon_assigned"
	TypeConnected      Type = "connected"
	TypeHeartbeat      Type = "heartbeat"
	TypeSlipUploaded   Type = "slip_uploaded"
)

// Types returns all supported event types in wire-tag order.
func Types() []Type {
	return []Type{
		TypeNotification,
		TypeLoyaltyUpdate,
		TypeCouponAssigned,
		TypeConnected,
		TypeHeartbeat,
		TypeSlipUploaded,
	}
}

// TypeStrings returns the wire tags of all supported event types.
func TypeStrings() []string {
	types := Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// Valid reports whether t is one of the supported event types.
func (t Type) Valid() bool {
	switch t {
	case TypeNotification, TypeLoyaltyUpdate, TypeCouponAssigned,
		TypeConnected, TypeHeartbeat, TypeSlipUploaded:
		return true
	}
	return false
}

// Event is an immutable realtime event. Data is opaque to the delivery
// subsystem; callers decide its shape per type.
type Event struct {
	Type Type `json:"event"`
	Data any  `json:"data"`
}

// New creates an event of the given type with the given payload.
func New(t Type, data any) Event {
	return Event{Type: t, Data: data}
}

// Notification creates a notification event with a caller-defined payload.
func Notification(data any) Event {
	return New(TypeNotification, data)
}

// LoyaltyUpdate creates a loyalty points/tier change event.
func LoyaltyUpdate(points int, tier string, totalNights int) Event {
	return New(TypeLoyaltyUpdate, map[string]any{
		"currentPoints": points,
		"tier":          tier,
		"totalNights":   totalNights,
		"timestamp":     time.Now().UnixMilli(),
	})
}

// CouponAssigned creates a coupon assignment event with a caller-defined payload.
func CouponAssigned(data any) Event {
	return New(TypeCouponAssigned, data)
}

// Connected creates the synthetic event sent as the first frame of every stream.
func Connected(message string) Event {
	return New(TypeConnected, map[string]any{"message": message})
}

// Heartbeat creates a keep-alive event with an empty payload.
func Heartbeat() Event {
	return New(TypeHeartbeat, map[string]any{})
}

// SlipUploaded creates a payment-slip upload event for admin consumers.
func SlipUploaded(bookingID, slipID string) Event {
	return New(TypeSlipUploaded, map[string]any{
		"bookingId": bookingID,
		"slipId":    slipID,
		"timestamp": time.Now().UnixMilli(),
	})
}

// MarshalSSE renders the event in SSE wire format: an "event:" line, a
// "data:" line holding the JSON payload, and a blank-line terminator.
// A payload that cannot be serialized degrades to an empty JSON object.
func (e Event) MarshalSSE() []byte {
	data, err := json.Marshal(e.Data)
	if err != nil {
		data = []byte("{}")
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, data))
}
