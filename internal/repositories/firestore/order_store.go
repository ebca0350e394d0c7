package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cbw-coffee/api/internal/domain"
	pfirestore "github.com/cbw-coffee/api/internal/platform/firestore"
	"github.com/cbw-coffee/api/internal/repositories"
)

// OrderStore runs order mutations in a single Firestore transaction spanning the products,
// counters and orders collections. Firestore retries the callback on contention.
type OrderStore struct {
	provider *pfirestore.Provider
	products *pfirestore.BaseRepository[productDocument]
	orders   *pfirestore.BaseRepository[orderDocument]
	counters *pfirestore.BaseRepository[counterDocument]
	txOpts   []pfirestore.TxOption
}

// NewOrderStore constructs the transactional store. txOpts are applied to every transaction.
func NewOrderStore(provider *pfirestore.Provider, txOpts ...pfirestore.TxOption) (*OrderStore, error) {
	if provider == nil {
		return nil, errors.New("order store requires firestore provider")
	}
	return &OrderStore{
		provider: provider,
		products: pfirestore.NewBaseRepository[productDocument](provider, productsCollection),
		orders:   pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection),
		counters: pfirestore.NewBaseRepository[counterDocument](provider, countersCollection),
		txOpts:   txOpts,
	}, nil
}

// RunOrderTx implements repositories.OrderStore.
func (s *OrderStore) RunOrderTx(ctx context.Context, fn func(ctx context.Context, tx repositories.OrderTx) error) error {
	if fn == nil {
		return errors.New("order store: transaction function is nil")
	}
	return s.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &orderTx{store: s, tx: tx})
	}, s.txOpts...)
}

type orderTx struct {
	store *OrderStore
	tx    *firestore.Transaction
}

func (t *orderTx) GetProducts(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	if len(productIDs) == 0 {
		return map[string]domain.Product{}, nil
	}
	refs := make([]*firestore.DocumentRef, 0, len(productIDs))
	for _, id := range productIDs {
		ref, err := t.store.products.DocumentRef(ctx, id)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	snaps, err := t.tx.GetAll(refs)
	if err != nil {
		return nil, pfirestore.WrapError("products.getAll", err)
	}
	out := make(map[string]domain.Product, len(snaps))
	for _, snap := range snaps {
		if snap == nil || !snap.Exists() {
			continue
		}
		doc, err := pfirestore.Decode[productDocument](snap)
		if err != nil {
			return nil, err
		}
		out[doc.ID] = decodeProduct(doc.ID, doc.Data)
	}
	return out, nil
}

func (t *orderTx) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	ref, err := t.store.orders.DocumentRef(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	snap, err := t.tx.Get(ref)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.get", err)
	}
	doc, err := pfirestore.Decode[orderDocument](snap)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc.ID, doc.Data), nil
}

// NextSequence reads and bumps the counter document inside the transaction. An aborted
// transaction leaves the counter untouched, so numbers are never skipped or reused.
func (t *orderTx) NextSequence(ctx context.Context, counterID string) (int64, error) {
	ref, err := t.store.counters.DocumentRef(ctx, counterID)
	if err != nil {
		return 0, err
	}
	doc, exists, err := readCounter(t.tx, ref, counterID)
	if err != nil {
		return 0, err
	}
	next, err := advanceCounter(&doc, counterID, 1, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if !exists {
		return next, t.tx.Create(ref, doc)
	}
	return next, t.tx.Set(ref, doc)
}

func (t *orderTx) SetVariantStock(ctx context.Context, productID string, stock map[string]int, updatedAt time.Time) error {
	ref, err := t.store.products.DocumentRef(ctx, productID)
	if err != nil {
		return err
	}
	updates := make([]firestore.Update, 0, len(stock)+1)
	for variantID, qty := range stock {
		if qty < 0 {
			return repositories.NewInventoryError(repositories.InventoryErrorInsufficientStock,
				fmt.Sprintf("stock for %s/%s would be negative", productID, variantID), nil)
		}
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{"variants", variantID, "stockQty"}, Value: qty})
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: updatedAt.UTC()})
	return t.tx.Update(ref, updates)
}

func (t *orderTx) CreateOrder(ctx context.Context, order domain.Order) error {
	ref, err := t.store.orders.DocumentRef(ctx, order.ID)
	if err != nil {
		return err
	}
	return t.tx.Create(ref, encodeOrder(order))
}

func (t *orderTx) UpdateOrder(ctx context.Context, order domain.Order) error {
	ref, err := t.store.orders.DocumentRef(ctx, order.ID)
	if err != nil {
		return err
	}
	return t.tx.Set(ref, encodeOrder(order))
}

func readCounter(tx *firestore.Transaction, ref *firestore.DocumentRef, counterID string) (counterDocument, bool, error) {
	snap, err := tx.Get(ref)
	switch status.Code(err) {
	case codes.OK:
	case codes.NotFound:
		return counterDocument{}, false, nil
	default:
		return counterDocument{}, false, pfirestore.WrapError("counters.get", err)
	}
	var doc counterDocument
	if err := snap.DataTo(&doc); err != nil {
		return counterDocument{}, false, fmt.Errorf("firestore counters decode %s: %w", counterID, err)
	}
	return doc, true, nil
}

func advanceCounter(doc *counterDocument, counterID string, step int64, now time.Time) (int64, error) {
	increment := step
	if increment <= 0 {
		increment = doc.Step
	}
	if increment <= 0 {
		increment = 1
	}
	next := doc.CurrentValue + increment
	if doc.MaxValue != nil && next > *doc.MaxValue {
		return 0, repositories.NewCounterError(counterID, repositories.CounterErrorExhausted,
			fmt.Sprintf("exceeded max value %d", *doc.MaxValue), nil)
	}
	doc.CurrentValue = next
	if doc.Step <= 0 {
		doc.Step = increment
	}
	doc.UpdatedAt = now
	return next, nil
}
