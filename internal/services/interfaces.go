package services

import (
	"context"
	"time"

	"github.com/cbw-coffee/api/internal/domain"
)

// OrderService places orders and drives them through their lifecycle.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	AdvanceStatus(ctx context.Context, cmd AdvanceStatusCommand) (OrderStatusChange, error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error)
	UpdateAdminNotes(ctx context.Context, cmd UpdateAdminNotesCommand) (OrderNotesChange, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	// GetCustomerOrder returns ErrOrderNotFound when the order belongs to someone else.
	GetCustomerOrder(ctx context.Context, customerID, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// CounterService hands out human readable sequence numbers.
type CounterService interface {
	NextOrderNumber(ctx context.Context) (string, error)
	// PeekOrderNumber returns the number the next order would receive without consuming it.
	PeekOrderNumber(ctx context.Context) (string, error)
}

// CatalogService serves the public product catalog.
type CatalogService interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
	UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error)
}

// AuditLogService records admin actions. Record never fails the caller.
type AuditLogService interface {
	Record(ctx context.Context, record AuditLogRecord)
	List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error)
}

// Commands --------------------------------------------------------------------

type CreateOrderCommand struct {
	CustomerID  string
	Items       []OrderLineRequest
	Fulfillment FulfillmentRequest
	Payment     PaymentRequest
}

type OrderLineRequest struct {
	ProductID string
	VariantID string
	Quantity  int
}

type FulfillmentRequest struct {
	Type    domain.FulfillmentType
	Address *domain.AddressSnapshot
	Notes   string
}

type PaymentRequest struct {
	Method domain.PaymentMethod
}

type AdvanceStatusCommand struct {
	OrderID string
	Status  domain.OrderStatus
	Actor   domain.OrderActor
	Note    string
}

// OrderStatusChange carries the order before and after a status update.
type OrderStatusChange struct {
	Before domain.Order
	After  domain.Order
}

type CancelOrderCommand struct {
	CustomerID string
	OrderID    string
	Reason     string
}

type UpdateAdminNotesCommand struct {
	OrderID string
	Notes   string
	Actor   domain.OrderActor
}

type OrderNotesChange struct {
	Before string
	Order  domain.Order
}

type OrderListFilter struct {
	CustomerID string
	Status     []domain.OrderStatus
	// Search matches order numbers by prefix, case-insensitively.
	Search     string
	From       *time.Time
	To         *time.Time
	Pagination domain.Pagination
}

type ProductListFilter struct {
	Category   domain.ProductCategory
	Pagination domain.Pagination
}

// AuditLogRecord is the input to AuditLogService.Record.
type AuditLogRecord struct {
	Actor      string
	ActorType  string
	Action     string
	TargetRef  string
	Severity   string
	RequestID  string
	OccurredAt time.Time
	Metadata   map[string]any
	Diff       map[string]AuditLogDiff
	IPAddress  string
	UserAgent  string
}

type AuditLogDiff struct {
	Before any
	After  any
}

type AuditLogFilter struct {
	TargetRef  string
	Actor      string
	Action     string
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}
