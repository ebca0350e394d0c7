package domain

import "time"

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPendingConfirmation is the initial state of every placed order.
	OrderStatusPendingConfirmation OrderStatus = "PENDING_CONFIRMATION"
	// OrderStatusConfirmed indicates the shop accepted the order.
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	// OrderStatusPreparing indicates beans are being roasted or packed.
	OrderStatusPreparing OrderStatus = "PREPARING"
	// OrderStatusOutForDelivery indicates the order left the shop.
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	// OrderStatusDelivered indicates the order reached the customer.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled indicates the order was cancelled before delivery.
	OrderStatusCancelled OrderStatus = "CANCELLED"
	// OrderStatusRefunded indicates the order was refunded.
	OrderStatusRefunded OrderStatus = "REFUNDED"
)

// Valid reports whether the status is a known lifecycle state.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPendingConfirmation, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are permitted out of the status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// RestoresStock reports whether entering the status returns reserved stock to the catalog.
func (s OrderStatus) RestoresStock() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// PaymentMethod lists accepted payment methods.
type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "COD"
	PaymentMethodCard PaymentMethod = "CARD"
)

// PaymentStatus tracks settlement of an order payment.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// FulfillmentType describes how the order reaches the customer.
type FulfillmentType string

const (
	FulfillmentDelivery FulfillmentType = "DELIVERY"
	FulfillmentPickup   FulfillmentType = "PICKUP"
)

// Order is the persisted order aggregate. Items and Fulfillment.Address are snapshots taken at
// placement time; History is append-only and its last entry always matches Status.
type Order struct {
	ID          string
	OrderNumber string
	CustomerID  string
	Currency    string
	Items       []OrderItem
	Pricing     OrderPricing
	Payment     OrderPayment
	Fulfillment OrderFulfillment
	Status      OrderStatus
	History     []OrderHistoryEntry
	AdminNotes  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderItem snapshots a purchased variant. Amounts are minor currency units.
type OrderItem struct {
	ProductID    string
	VariantID    string
	ProductName  string
	VariantLabel string
	WeightGrams  int
	SKU          string
	UnitPrice    int64
	Quantity     int
	LineTotal    int64
}

// OrderPricing holds server computed totals in minor currency units.
type OrderPricing struct {
	Subtotal    int64
	Discount    int64
	DeliveryFee int64
	VAT         int64
	GrandTotal  int64
}

// OrderPayment stores the payment method and settlement state.
type OrderPayment struct {
	Method        PaymentMethod
	Status        PaymentStatus
	Provider      string
	TransactionID string
}

// OrderFulfillment captures the fulfilment choice with an optional address snapshot.
type OrderFulfillment struct {
	Type    FulfillmentType
	Address *AddressSnapshot
	Notes   string
}

// AddressSnapshot is a copy of the delivery address at order time.
type AddressSnapshot struct {
	Name         string
	Phone        string
	Street       string
	City         string
	Emirate      string
	Building     string
	Apartment    string
	Instructions string
}

// OrderHistoryEntry records a single status change.
type OrderHistoryEntry struct {
	Status    OrderStatus
	At        time.Time
	ActorRole ActorRole
	ActorID   string
	Note      string
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	cp := o
	if o.Items != nil {
		cp.Items = append([]OrderItem(nil), o.Items...)
	}
	if o.History != nil {
		cp.History = append([]OrderHistoryEntry(nil), o.History...)
	}
	if o.Fulfillment.Address != nil {
		addr := *o.Fulfillment.Address
		cp.Fulfillment.Address = &addr
	}
	return cp
}

// LastHistoryEntry returns the most recent history entry.
func (o Order) LastHistoryEntry() (OrderHistoryEntry, bool) {
	if len(o.History) == 0 {
		return OrderHistoryEntry{}, false
	}
	return o.History[len(o.History)-1], true
}
