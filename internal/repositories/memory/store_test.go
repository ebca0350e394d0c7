package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/repositories"
)

func sampleProduct(id string, stock int) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     "Colombia " + id,
		Category: domain.ProductCategoryAmerica,
		Active:   true,
		Variants: map[string]domain.ProductVariant{
			"var_250": {ID: "var_250", Label: "250g", Price: 5500, StockQty: stock, Active: true},
		},
		VariantOrder: []string{"var_250"},
	}
}

func TestRunOrderTxAppliesWritesOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Products().Upsert(ctx, sampleProduct("prd_1", 4)))

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	err := store.RunOrderTx(ctx, func(ctx context.Context, tx repositories.OrderTx) error {
		products, err := tx.GetProducts(ctx, []string{"prd_1", "prd_missing"})
		require.NoError(t, err)
		require.Len(t, products, 1)

		seq, err := tx.NextSequence(ctx, "orders:2026")
		require.NoError(t, err)
		assert.Equal(t, int64(1), seq)

		require.NoError(t, tx.SetVariantStock(ctx, "prd_1", map[string]int{"var_250": 1}, now))
		return tx.CreateOrder(ctx, domain.Order{ID: "ord_1", CustomerID: "cust_1", CreatedAt: now})
	})
	require.NoError(t, err)

	product, err := store.Products().FindByID(ctx, "prd_1")
	require.NoError(t, err)
	assert.Equal(t, 1, product.Variants["var_250"].StockQty)
	assert.Equal(t, now, product.UpdatedAt)

	_, err = store.Orders().FindByID(ctx, "ord_1")
	require.NoError(t, err)

	current, err := store.Counters().Current(ctx, "orders:2026")
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)
}

func TestRunOrderTxDiscardsWritesOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Products().Upsert(ctx, sampleProduct("prd_1", 4)))

	boom := errors.New("boom")
	err := store.RunOrderTx(ctx, func(ctx context.Context, tx repositories.OrderTx) error {
		if _, err := tx.NextSequence(ctx, "orders:2026"); err != nil {
			return err
		}
		if err := tx.SetVariantStock(ctx, "prd_1", map[string]int{"var_250": 0}, time.Now()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	product, err := store.Products().FindByID(ctx, "prd_1")
	require.NoError(t, err)
	assert.Equal(t, 4, product.Variants["var_250"].StockQty)

	_, err = store.Counters().Current(ctx, "orders:2026")
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.True(t, repoErr.IsNotFound())
}

func TestRunOrderTxRejectsReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Products().Upsert(ctx, sampleProduct("prd_1", 4)))

	err := store.RunOrderTx(ctx, func(ctx context.Context, tx repositories.OrderTx) error {
		if err := tx.SetVariantStock(ctx, "prd_1", map[string]int{"var_250": 3}, time.Now()); err != nil {
			return err
		}
		_, err := tx.GetProducts(ctx, []string{"prd_1"})
		return err
	})
	require.ErrorIs(t, err, errReadAfterWrite)
}

func TestSetVariantStockValidatesTargets(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Products().Upsert(ctx, sampleProduct("prd_1", 4)))

	cases := map[string]struct {
		productID string
		stock     map[string]int
		code      repositories.InventoryErrorCode
	}{
		"missing product": {"prd_x", map[string]int{"var_250": 1}, repositories.InventoryErrorProductNotFound},
		"missing variant": {"prd_1", map[string]int{"var_x": 1}, repositories.InventoryErrorVariantNotFound},
		"negative stock":  {"prd_1", map[string]int{"var_250": -1}, repositories.InventoryErrorInsufficientStock},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := store.RunOrderTx(ctx, func(ctx context.Context, tx repositories.OrderTx) error {
				return tx.SetVariantStock(ctx, tc.productID, tc.stock, time.Now())
			})
			var invErr *repositories.InventoryError
			require.ErrorAs(t, err, &invErr)
			assert.Equal(t, tc.code, invErr.Code)
		})
	}
}

func TestFailTransactions(t *testing.T) {
	store := NewStore()
	store.FailTransactions(ErrUnavailable)

	called := false
	err := store.RunOrderTx(context.Background(), func(context.Context, repositories.OrderTx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, called)

	store.FailTransactions(nil)
	require.NoError(t, store.RunOrderTx(context.Background(), func(context.Context, repositories.OrderTx) error { return nil }))
}

func TestCounterConfigureAndExhaustion(t *testing.T) {
	ctx := context.Background()
	counters := NewStore().Counters()

	initial := int64(8)
	maxValue := int64(9)
	require.NoError(t, counters.Configure(ctx, "orders:2026", repositories.CounterConfig{Step: 1, MaxValue: &maxValue, InitialValue: &initial}))

	v, err := counters.Next(ctx, "orders:2026", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)

	_, err = counters.Next(ctx, "orders:2026", 1)
	assert.True(t, repositories.IsCounterExhausted(err))

	reset := int64(0)
	require.NoError(t, counters.Configure(ctx, "orders:2026", repositories.CounterConfig{InitialValue: &reset}))
	current, err := counters.Current(ctx, "orders:2026")
	require.NoError(t, err)
	assert.Equal(t, int64(9), current, "initial value only applies to new counters")
}

func TestOrderListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		status := domain.OrderStatusPendingConfirmation
		if i%2 == 0 {
			status = domain.OrderStatusDelivered
		}
		order := domain.Order{
			ID:          fmt.Sprintf("ord_%d", i),
			OrderNumber: fmt.Sprintf("CBW-2026-%06d", i),
			CustomerID:  "cust_1",
			Status:      status,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, store.RunOrderTx(ctx, func(ctx context.Context, tx repositories.OrderTx) error {
			return tx.CreateOrder(ctx, order)
		}))
	}

	page, err := store.Orders().List(ctx, repositories.OrderListFilter{CustomerID: "cust_1", Pagination: domain.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "ord_5", page.Items[0].ID)
	assert.NotEmpty(t, page.NextPageToken)

	next, err := store.Orders().List(ctx, repositories.OrderListFilter{CustomerID: "cust_1", Pagination: domain.Pagination{PageSize: 2, PageToken: page.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, next.Items, 2)
	assert.Equal(t, "ord_3", next.Items[0].ID)

	delivered, err := store.Orders().List(ctx, repositories.OrderListFilter{Status: []domain.OrderStatus{domain.OrderStatusDelivered}})
	require.NoError(t, err)
	assert.Len(t, delivered.Items, 2)

	prefixed, err := store.Orders().List(ctx, repositories.OrderListFilter{OrderNumberPrefix: "CBW-2026-000003"})
	require.NoError(t, err)
	require.Len(t, prefixed.Items, 1)
	assert.Equal(t, "ord_3", prefixed.Items[0].ID)

	other, err := store.Orders().List(ctx, repositories.OrderListFilter{CustomerID: "cust_2"})
	require.NoError(t, err)
	assert.Empty(t, other.Items)
}
