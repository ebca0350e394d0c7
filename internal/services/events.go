package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cbw-coffee/api/internal/domain"
)

// OrderEventType names lifecycle events published after a committed mutation.
type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "order.created"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
	OrderEventCancelled     OrderEventType = "order.cancelled"
)

// OrderEvent is the message body consumers receive. It carries no address or
// contact data.
type OrderEvent struct {
	EventID     string             `json:"eventId"`
	Type        OrderEventType     `json:"type"`
	OrderID     string             `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	CustomerID  string             `json:"customerId"`
	FromStatus  domain.OrderStatus `json:"fromStatus,omitempty"`
	ToStatus    domain.OrderStatus `json:"toStatus"`
	GrandTotal  int64              `json:"grandTotal"`
	Currency    string             `json:"currency"`
	ActorRole   domain.ActorRole   `json:"actorRole"`
	ActorID     string             `json:"actorId,omitempty"`
	OccurredAt  time.Time          `json:"occurredAt"`
}

// OrderEventPublisher delivers order events to downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

func newOrderEvent(kind OrderEventType, order domain.Order, from domain.OrderStatus, actor domain.OrderActor, at time.Time) OrderEvent {
	return OrderEvent{
		EventID:     uuid.NewString(),
		Type:        kind,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		FromStatus:  from,
		ToStatus:    order.Status,
		GrandTotal:  order.Pricing.GrandTotal,
		Currency:    order.Currency,
		ActorRole:   actor.Role,
		ActorID:     actor.ID,
		OccurredAt:  at,
	}
}
