package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/cbw-coffee/api/internal/platform/firestore"
	"github.com/cbw-coffee/api/internal/repositories"
)

// Registry builds every Firestore repository over one provider.
type Registry struct {
	provider *pfirestore.Provider
	products *ProductRepository
	orders   *OrderRepository
	store    *OrderStore
	counters *CounterRepository
	audit    *AuditLogRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs the repositories. txOpts tune the order transaction.
func NewRegistry(provider *pfirestore.Provider, txOpts ...pfirestore.TxOption) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry: provider is required")
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	store, err := NewOrderStore(provider, txOpts...)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}
	audit, err := NewAuditLogRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{
		provider: provider,
		products: products,
		orders:   orders,
		store:    store,
		counters: counters,
		audit:    audit,
	}, nil
}

func (r *Registry) Products() repositories.ProductRepository   { return r.products }
func (r *Registry) Orders() repositories.OrderRepository       { return r.orders }
func (r *Registry) OrderStore() repositories.OrderStore        { return r.store }
func (r *Registry) Counters() repositories.CounterRepository   { return r.counters }
func (r *Registry) AuditLogs() repositories.AuditLogRepository { return r.audit }

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	return r.provider.Close(ctx)
}
