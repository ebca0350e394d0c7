package repositories

import (
	"context"
	"time"

	domain "github.com/cbw-coffee/api/internal/domain"
)

// Registry hands out every repository backed by one datastore.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Orders() OrderRepository
	OrderStore() OrderStore
	Counters() CounterRepository
	AuditLogs() AuditLogRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository reads catalog products and lets operators maintain them.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
	Upsert(ctx context.Context, product domain.Product) error
}

// OrderRepository provides read access to persisted orders for customers and admins.
// Mutations go through OrderStore so they share a transaction with stock and counter writes.
type OrderRepository interface {
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// OrderStore runs order mutations atomically across product, counter and order documents.
// The callback may be invoked more than once when the backend retries on contention, so it must
// not carry side effects outside the transaction.
type OrderStore interface {
	RunOrderTx(ctx context.Context, fn func(ctx context.Context, tx OrderTx) error) error
}

// OrderTx is the transactional view handed to OrderStore callbacks. All reads (GetProducts,
// GetOrder, NextSequence) must happen before the first write.
type OrderTx interface {
	// GetProducts loads the given products. Missing IDs are absent from the result.
	GetProducts(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	// NextSequence increments counterID and returns the new value. It reads and then writes the
	// counter, so it must be the last read of the transaction.
	NextSequence(ctx context.Context, counterID string) (int64, error)
	// SetVariantStock overwrites stock quantities for the listed variants of a product.
	SetVariantStock(ctx context.Context, productID string, stock map[string]int, updatedAt time.Time) error
	CreateOrder(ctx context.Context, order domain.Order) error
	UpdateOrder(ctx context.Context, order domain.Order) error
}

// AuditLogRepository persists immutable audit trail entries.
type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
	List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Current(ctx context.Context, counterID string) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// Filter DTOs shared across repositories ------------------------------------

type ProductListFilter struct {
	Category   domain.ProductCategory
	ActiveOnly bool
	Pagination domain.Pagination
}

type OrderListFilter struct {
	CustomerID        string
	Status            []domain.OrderStatus
	OrderNumberPrefix string
	DateRange         domain.RangeQuery[time.Time]
	Pagination        domain.Pagination
}

type AuditLogFilter struct {
	TargetRef  string
	Actor      string
	Action     string
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}

// CounterConfig captures optional settings for counters.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}
