// Package memory provides process-local implementations of the repository contracts. Order
// transactions are serialised on a single lock and staged writes are applied only when the
// callback succeeds, so the package mirrors the atomicity of the Firestore store for tests and
// local development.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/platform/pagination"
	"github.com/cbw-coffee/api/internal/repositories"
)

// Error implements repositories.RepositoryError.
type Error struct {
	op          string
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *Error) Error() string       { return e.op + ": " + e.msg }
func (e *Error) IsNotFound() bool    { return e.notFound }
func (e *Error) IsConflict() bool    { return e.conflict }
func (e *Error) IsUnavailable() bool { return e.unavailable }

func notFound(op, id string) error {
	return &Error{op: op, msg: id + " not found", notFound: true}
}

func conflict(op, msg string) error {
	return &Error{op: op, msg: msg, conflict: true}
}

// ErrUnavailable can be injected with FailTransactions to simulate a storage outage.
var ErrUnavailable error = &Error{op: "memory", msg: "store unavailable", unavailable: true}

var errReadAfterWrite = errors.New("memory: transactional reads must precede writes")

// Store holds catalog, order, counter and audit data in memory.
type Store struct {
	mu       sync.Mutex
	products map[string]domain.Product
	orders   map[string]domain.Order
	counters map[string]counterState
	audit    []domain.AuditLogEntry
	txErr    error
}

type counterState struct {
	value int64
	step  int64
	max   *int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		products: make(map[string]domain.Product),
		orders:   make(map[string]domain.Order),
		counters: make(map[string]counterState),
	}
}

// FailTransactions makes every subsequent RunOrderTx return err without running the callback.
// Pass nil to restore normal behaviour.
func (s *Store) FailTransactions(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txErr = err
}

// Products exposes the store as a ProductRepository.
func (s *Store) Products() repositories.ProductRepository { return productRepo{s} }

// Orders exposes the store as an OrderRepository.
func (s *Store) Orders() repositories.OrderRepository { return orderRepo{s} }

// Counters exposes the store as a CounterRepository.
func (s *Store) Counters() repositories.CounterRepository { return counterRepo{s} }

// AuditLogs exposes the store as an AuditLogRepository.
func (s *Store) AuditLogs() repositories.AuditLogRepository { return auditRepo{s} }

// OrderStore exposes the store's transactional side.
func (s *Store) OrderStore() repositories.OrderStore { return s }

// Close is a no-op; it lets the store stand in for a repositories.Registry.
func (s *Store) Close(context.Context) error { return nil }

var _ repositories.Registry = (*Store)(nil)

// RunOrderTx implements repositories.OrderStore.
func (s *Store) RunOrderTx(ctx context.Context, fn func(ctx context.Context, tx repositories.OrderTx) error) error {
	if fn == nil {
		return errors.New("memory: transaction function is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txErr != nil {
		return s.txErr
	}

	tx := &orderTx{store: s, stock: make(map[string]stockWrite)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

type stockWrite struct {
	levels    map[string]int
	updatedAt time.Time
}

type orderTx struct {
	store    *Store
	wrote    bool
	stock    map[string]stockWrite
	counters map[string]counterState
	created  []domain.Order
	updated  []domain.Order
}

func (tx *orderTx) read() error {
	if tx.wrote {
		return errReadAfterWrite
	}
	return nil
}

func (tx *orderTx) GetProducts(_ context.Context, productIDs []string) (map[string]domain.Product, error) {
	if err := tx.read(); err != nil {
		return nil, err
	}
	out := make(map[string]domain.Product, len(productIDs))
	for _, id := range productIDs {
		if product, ok := tx.store.products[id]; ok {
			out[id] = product.Clone()
		}
	}
	return out, nil
}

func (tx *orderTx) GetOrder(_ context.Context, orderID string) (domain.Order, error) {
	if err := tx.read(); err != nil {
		return domain.Order{}, err
	}
	order, ok := tx.store.orders[orderID]
	if !ok {
		return domain.Order{}, notFound("order.get", orderID)
	}
	return order.Clone(), nil
}

func (tx *orderTx) NextSequence(_ context.Context, counterID string) (int64, error) {
	if err := tx.read(); err != nil {
		return 0, err
	}
	state := tx.store.counters[counterID]
	if tx.counters != nil {
		if staged, ok := tx.counters[counterID]; ok {
			state = staged
		}
	}
	next, err := state.advance(counterID, 1)
	if err != nil {
		return 0, err
	}
	if tx.counters == nil {
		tx.counters = make(map[string]counterState)
	}
	tx.counters[counterID] = next
	return next.value, nil
}

func (tx *orderTx) SetVariantStock(_ context.Context, productID string, stock map[string]int, updatedAt time.Time) error {
	tx.wrote = true
	product, ok := tx.store.products[productID]
	if !ok {
		return repositories.NewInventoryError(repositories.InventoryErrorProductNotFound, productID, nil)
	}
	write := tx.stock[productID]
	if write.levels == nil {
		write.levels = make(map[string]int, len(stock))
	}
	for variantID, qty := range stock {
		if _, ok := product.Variant(variantID); !ok {
			return repositories.NewInventoryError(repositories.InventoryErrorVariantNotFound, productID+"/"+variantID, nil)
		}
		if qty < 0 {
			return repositories.NewInventoryError(repositories.InventoryErrorInsufficientStock, productID+"/"+variantID, nil)
		}
		write.levels[variantID] = qty
	}
	write.updatedAt = updatedAt
	tx.stock[productID] = write
	return nil
}

func (tx *orderTx) CreateOrder(_ context.Context, order domain.Order) error {
	tx.wrote = true
	if _, exists := tx.store.orders[order.ID]; exists {
		return conflict("order.create", order.ID+" already exists")
	}
	tx.created = append(tx.created, order.Clone())
	return nil
}

func (tx *orderTx) UpdateOrder(_ context.Context, order domain.Order) error {
	tx.wrote = true
	if _, exists := tx.store.orders[order.ID]; !exists {
		return notFound("order.update", order.ID)
	}
	tx.updated = append(tx.updated, order.Clone())
	return nil
}

func (tx *orderTx) apply() {
	s := tx.store
	for productID, write := range tx.stock {
		product := s.products[productID].Clone()
		for variantID, qty := range write.levels {
			variant := product.Variants[variantID]
			variant.StockQty = qty
			product.Variants[variantID] = variant
		}
		product.UpdatedAt = write.updatedAt
		s.products[productID] = product
	}
	for id, state := range tx.counters {
		s.counters[id] = state
	}
	for _, order := range tx.created {
		s.orders[order.ID] = order
	}
	for _, order := range tx.updated {
		s.orders[order.ID] = order
	}
}

func (c counterState) advance(counterID string, step int64) (counterState, error) {
	if step <= 0 {
		step = c.step
	}
	if step <= 0 {
		step = 1
	}
	next := c
	next.value += step
	if c.max != nil && next.value > *c.max {
		return counterState{}, repositories.NewCounterError(counterID, repositories.CounterErrorExhausted, fmt.Sprintf("max value %d reached", *c.max), nil)
	}
	return next, nil
}

// Products ---------------------------------------------------------------------

type productRepo struct{ s *Store }

func (r productRepo) FindByID(_ context.Context, productID string) (domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	product, ok := r.s.products[productID]
	if !ok {
		return domain.Product{}, notFound("product.get", productID)
	}
	return product.Clone(), nil
}

func (r productRepo) List(_ context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	r.s.mu.Lock()
	items := make([]domain.Product, 0, len(r.s.products))
	for _, product := range r.s.products {
		if filter.ActiveOnly && !product.Active {
			continue
		}
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		items = append(items, product.Clone())
	}
	r.s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].ID < items[j].ID
	})
	return pageByKey(items, filter.Pagination, func(p domain.Product) (string, string) { return p.Name, p.ID })
}

func (r productRepo) Upsert(_ context.Context, product domain.Product) error {
	if strings.TrimSpace(product.ID) == "" {
		return errors.New("memory: product id is required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[product.ID] = product.Clone()
	return nil
}

// Orders -----------------------------------------------------------------------

type orderRepo struct{ s *Store }

func (r orderRepo) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order, ok := r.s.orders[orderID]
	if !ok {
		return domain.Order{}, notFound("order.get", orderID)
	}
	return order.Clone(), nil
}

func (r orderRepo) List(_ context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	statuses := make(map[domain.OrderStatus]struct{}, len(filter.Status))
	for _, status := range filter.Status {
		statuses[status] = struct{}{}
	}

	r.s.mu.Lock()
	items := make([]domain.Order, 0)
	for _, order := range r.s.orders {
		if filter.CustomerID != "" && order.CustomerID != filter.CustomerID {
			continue
		}
		if len(statuses) > 0 {
			if _, ok := statuses[order.Status]; !ok {
				continue
			}
		}
		if filter.OrderNumberPrefix != "" && !strings.HasPrefix(order.OrderNumber, filter.OrderNumberPrefix) {
			continue
		}
		if from := filter.DateRange.From; from != nil && order.CreatedAt.Before(*from) {
			continue
		}
		if to := filter.DateRange.To; to != nil && order.CreatedAt.After(*to) {
			continue
		}
		items = append(items, order.Clone())
	}
	r.s.mu.Unlock()

	sortNewestFirst(items, func(o domain.Order) (time.Time, string) { return o.CreatedAt, o.ID })
	return pageByTime(items, filter.Pagination, func(o domain.Order) (time.Time, string) { return o.CreatedAt, o.ID })
}

// Counters ---------------------------------------------------------------------

type counterRepo struct{ s *Store }

func (r counterRepo) Next(_ context.Context, counterID string, step int64) (int64, error) {
	if strings.TrimSpace(counterID) == "" {
		return 0, repositories.NewCounterError(counterID, repositories.CounterErrorInvalidInput, "counter id is required", nil)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	next, err := r.s.counters[counterID].advance(counterID, step)
	if err != nil {
		return 0, err
	}
	r.s.counters[counterID] = next
	return next.value, nil
}

func (r counterRepo) Current(_ context.Context, counterID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	state, ok := r.s.counters[counterID]
	if !ok {
		return 0, notFound("counter.get", counterID)
	}
	return state.value, nil
}

func (r counterRepo) Configure(_ context.Context, counterID string, cfg repositories.CounterConfig) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	state, exists := r.s.counters[counterID]
	if cfg.Step > 0 {
		state.step = cfg.Step
	}
	if cfg.MaxValue != nil {
		maxValue := *cfg.MaxValue
		state.max = &maxValue
	}
	if cfg.InitialValue != nil && !exists {
		state.value = *cfg.InitialValue
	}
	r.s.counters[counterID] = state
	return nil
}

// Audit log --------------------------------------------------------------------

type auditRepo struct{ s *Store }

func (r auditRepo) Append(_ context.Context, entry domain.AuditLogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, entry)
	return nil
}

func (r auditRepo) List(_ context.Context, filter repositories.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	r.s.mu.Lock()
	items := make([]domain.AuditLogEntry, 0, len(r.s.audit))
	for _, entry := range r.s.audit {
		if filter.TargetRef != "" && entry.TargetRef != filter.TargetRef {
			continue
		}
		if filter.Actor != "" && entry.Actor != filter.Actor {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if from := filter.DateRange.From; from != nil && entry.CreatedAt.Before(*from) {
			continue
		}
		if to := filter.DateRange.To; to != nil && entry.CreatedAt.After(*to) {
			continue
		}
		items = append(items, entry)
	}
	r.s.mu.Unlock()

	key := func(e domain.AuditLogEntry) (time.Time, string) { return e.CreatedAt, e.ID }
	sortNewestFirst(items, key)
	return pageByTime(items, filter.Pagination, key)
}

// Paging helpers ---------------------------------------------------------------

func sortNewestFirst[T any](items []T, key func(T) (time.Time, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi > idj
	})
}

func pageByTime[T any](items []T, page domain.Pagination, key func(T) (time.Time, string)) (domain.CursorPage[T], error) {
	cursor, err := pagination.DecodeToken(page.PageToken)
	if err != nil {
		return domain.CursorPage[T]{}, err
	}
	start := 0
	if !cursor.IsZero() {
		start = len(items)
		for i, item := range items {
			at, id := key(item)
			if at.Before(cursor.CreatedAt) || (at.Equal(cursor.CreatedAt) && id < cursor.ID) {
				start = i
				break
			}
		}
	}
	return slicePage(items, start, page.PageSize, func(last T) pagination.Cursor {
		at, id := key(last)
		return pagination.Cursor{CreatedAt: at, ID: id}
	})
}

func pageByKey[T any](items []T, page domain.Pagination, key func(T) (string, string)) (domain.CursorPage[T], error) {
	cursor, err := pagination.DecodeToken(page.PageToken)
	if err != nil {
		return domain.CursorPage[T]{}, err
	}
	start := 0
	if !cursor.IsZero() {
		start = len(items)
		for i, item := range items {
			k, id := key(item)
			if k > cursor.Key || (k == cursor.Key && id > cursor.ID) {
				start = i
				break
			}
		}
	}
	return slicePage(items, start, page.PageSize, func(last T) pagination.Cursor {
		k, id := key(last)
		return pagination.Cursor{Key: k, ID: id}
	})
}

func slicePage[T any](items []T, start, size int, cursorOf func(T) pagination.Cursor) (domain.CursorPage[T], error) {
	size = pagination.Normalize(size)
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	result := domain.CursorPage[T]{Items: items[start:end]}
	if end < len(items) && end > start {
		token, err := pagination.EncodeToken(cursorOf(items[end-1]))
		if err != nil {
			return domain.CursorPage[T]{}, err
		}
		result.NextPageToken = token
	}
	return result, nil
}
