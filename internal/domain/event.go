package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event that occurred.
// Events are immutable facts about something that happened.
type Event struct {
	ID        uuid.UUID
	Type      string
	Timestamp time.Time
	EntityID  string
	Data      map[string]any
}

// Event type constants
const (
	EventPartnerCreated       = "partner.created"
	EventPartnerUpdated       = "partner.updated"
	EventPartnerDeleted       = "partner.deleted"
	EventPartnerStatusChanged = "partner.status_changed"
	EventOrderCreated         = "order.created"
	EventOrderUpdated         = "order.updated"
	EventOrderDeleted         = "order.deleted"
	EventOrderStatusChanged   = "order.status_changed"
)

// NewEvent creates a new domain event.
func NewEvent(eventType string, entityID string, data map[string]any) Event {
	if data == nil {
		data = make(map[string]any)
	}
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		EntityID:  entityID,
		Data:      data,
	}
}

// PartnerStatusChangedEvent records a legal partner status transition.
func PartnerStatusChangedEvent(p *Partner, from PartnerStatus) Event {
	return NewEvent(EventPartnerStatusChanged, p.ID, map[string]any{
		"from": string(from),
		"to":   string(p.Status),
	})
}

// OrderStatusChangedEvent records a legal purchase order status transition.
func OrderStatusChangedEvent(o *PurchaseOrder, from OrderStatus) Event {
	return NewEvent(EventOrderStatusChanged, o.ID, map[string]any{
		"from":      string(from),
		"to":        string(o.Status),
		"partnerId": o.PartnerID,
	})
}
