package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/platform/observability"
	"github.com/cbw-coffee/api/internal/platform/textutil"
	"github.com/cbw-coffee/api/internal/repositories"
)

const (
	orderIDPrefix          = "ord_"
	defaultMaxLineQuantity = 99
	maxHistoryNoteLength   = 500
	maxAdminNotesLength    = 2000
	maxFulfilmentNotes     = 500
	maxAddressFieldLength  = 200

	orderPlacedNote       = "Order placed"
	customerCancelledNote = "Cancelled by customer"
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders          repositories.OrderRepository
	Store           repositories.OrderStore
	Pricing         domain.PricingPolicy
	NumberPrefix    string
	MaxLineQuantity int
	Clock           func() time.Time
	IDGenerator     func() string
	Events          OrderEventPublisher
	Metrics         *observability.OrderMetrics
	Logger          func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders       repositories.OrderRepository
	store        repositories.OrderStore
	pricing      domain.PricingPolicy
	numberPrefix string
	maxQuantity  int
	clock        func() time.Time
	newID        func() string
	events       OrderEventPublisher
	metrics      *observability.OrderMetrics
	logger       func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Store == nil {
		return nil, errors.New("order service: order store is required")
	}
	prefix := strings.ToUpper(strings.TrimSpace(deps.NumberPrefix))
	if prefix == "" {
		return nil, errors.New("order service: order number prefix is required")
	}
	if strings.TrimSpace(deps.Pricing.Currency) == "" {
		return nil, errors.New("order service: pricing currency is required")
	}

	maxQuantity := deps.MaxLineQuantity
	if maxQuantity <= 0 {
		maxQuantity = defaultMaxLineQuantity
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:       deps.Orders,
		store:        deps.Store,
		pricing:      deps.Pricing,
		numberPrefix: prefix,
		maxQuantity:  maxQuantity,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:   idGen,
		events:  deps.Events,
		metrics: deps.Metrics,
		logger:  logger,
	}, nil
}

type orderLine struct {
	productID string
	variantID string
	quantity  int
}

func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	customerID := strings.TrimSpace(cmd.CustomerID)
	if customerID == "" {
		return domain.Order{}, fmt.Errorf("%w: customer id is required", ErrOrderInvalidInput)
	}
	lines, err := s.normalizeLines(cmd.Items)
	if err != nil {
		return domain.Order{}, err
	}
	fulfillment, err := normalizeFulfillment(cmd.Fulfillment)
	if err != nil {
		return domain.Order{}, err
	}
	method := domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(string(cmd.Payment.Method))))
	if method != domain.PaymentMethodCOD && method != domain.PaymentMethodCard {
		return domain.Order{}, fmt.Errorf("%w: unsupported payment method %q", ErrOrderInvalidInput, cmd.Payment.Method)
	}

	now := s.now()
	orderID := s.nextOrderID()

	var created domain.Order
	err = s.store.RunOrderTx(ctx, func(ctx context.Context, tx repositories.OrderTx) error {
		products, err := tx.GetProducts(ctx, distinctProductIDs(lines))
		if err != nil {
			return err
		}
		items, priced, stock, err := reserveLines(products, lines)
		if err != nil {
			return err
		}
		seq, err := tx.NextSequence(ctx, OrderCounterID(now.Year()))
		if err != nil {
			return err
		}
		number, err := FormatOrderNumber(s.numberPrefix, now.Year(), seq)
		if err != nil {
			return err
		}

		for _, productID := range sortedKeys(stock) {
			if err := tx.SetVariantStock(ctx, productID, stock[productID], now); err != nil {
				return err
			}
		}

		order := domain.Order{
			ID:          orderID,
			OrderNumber: number,
			CustomerID:  customerID,
			Currency:    s.pricing.Currency,
			Items:       items,
			Pricing:     s.pricing.Price(priced, fulfillment.Type),
			Payment: domain.OrderPayment{
				Method: method,
				Status: domain.PaymentStatusPending,
			},
			Fulfillment: fulfillment,
			Status:      domain.OrderStatusPendingConfirmation,
			History: []domain.OrderHistoryEntry{{
				Status:    domain.OrderStatusPendingConfirmation,
				At:        now,
				ActorRole: domain.ActorRoleCustomer,
				ActorID:   customerID,
				Note:      orderPlacedNote,
			}},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			s.metrics.StockConflict(ctx, stockErr.ProductID)
		}
		return domain.Order{}, s.mapTxError(err)
	}

	s.metrics.OrderCreated(ctx, string(created.Payment.Method), string(created.Fulfillment.Type), created.Pricing.GrandTotal)
	s.logger(ctx, "order.created", map[string]any{
		"orderId":     created.ID,
		"orderNumber": created.OrderNumber,
		"grandTotal":  created.Pricing.GrandTotal,
		"items":       len(created.Items),
	})
	s.publishEvent(ctx, newOrderEvent(OrderEventCreated, created, "", domain.OrderActor{ID: customerID, Role: domain.ActorRoleCustomer}, now))

	return created, nil
}

func (s *orderService) AdvanceStatus(ctx context.Context, cmd AdvanceStatusCommand) (OrderStatusChange, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return OrderStatusChange{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	actor, err := normalizeActor(cmd.Actor)
	if err != nil {
		return OrderStatusChange{}, err
	}
	target := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(string(cmd.Status))))
	if !target.Valid() {
		return OrderStatusChange{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Status)
	}

	return s.transition(ctx, transitionRequest{
		orderID:    orderID,
		target:     target,
		actor:      actor,
		note:       textutil.SingleLine(cmd.Note, maxHistoryNoteLength),
		refundPaid: target == domain.OrderStatusRefunded,
	})
}

func (s *orderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error) {
	customerID := strings.TrimSpace(cmd.CustomerID)
	orderID := strings.TrimSpace(cmd.OrderID)
	if customerID == "" || orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: customer id and order id are required", ErrOrderInvalidInput)
	}
	note := textutil.SingleLine(cmd.Reason, maxHistoryNoteLength)
	if note == "" {
		note = customerCancelledNote
	}

	change, err := s.transition(ctx, transitionRequest{
		orderID: orderID,
		target:  domain.OrderStatusCancelled,
		actor:   domain.OrderActor{ID: customerID, Role: domain.ActorRoleCustomer},
		note:    note,
		guard: func(order domain.Order) error {
			if order.CustomerID != customerID {
				return ErrOrderNotFound
			}
			if !canCustomerCancel(order.Status) {
				return fmt.Errorf("%w: order is %s", ErrOrderCancellationNotAllowed, order.Status)
			}
			return nil
		},
		refundPaid: true,
	})
	if err != nil {
		return domain.Order{}, err
	}
	return change.After, nil
}

func (s *orderService) UpdateAdminNotes(ctx context.Context, cmd UpdateAdminNotesCommand) (OrderNotesChange, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return OrderNotesChange{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !cmd.Actor.Role.IsAdmin() {
		return OrderNotesChange{}, fmt.Errorf("%w: admin actor required", ErrOrderInvalidInput)
	}
	if utf8.RuneCountInString(cmd.Notes) > maxAdminNotesLength {
		return OrderNotesChange{}, fmt.Errorf("%w: admin notes exceed %d characters", ErrOrderInvalidInput, maxAdminNotesLength)
	}
	notes := textutil.PlainText(cmd.Notes, maxAdminNotesLength)
	now := s.now()

	var change OrderNotesChange
	err := s.store.RunOrderTx(ctx, func(ctx context.Context, tx repositories.OrderTx) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		updated := order.Clone()
		updated.AdminNotes = notes
		updated.UpdatedAt = now
		if err := tx.UpdateOrder(ctx, updated); err != nil {
			return err
		}
		change = OrderNotesChange{Before: order.AdminNotes, Order: updated}
		return nil
	})
	if err != nil {
		return OrderNotesChange{}, s.mapTxError(err)
	}
	return change, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) GetCustomerOrder(ctx context.Context, customerID, orderID string) (domain.Order, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.Order{}, fmt.Errorf("%w: customer id is required", ErrOrderInvalidInput)
	}
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	// Foreign orders are indistinguishable from missing ones.
	if order.CustomerID != customerID {
		return domain.Order{}, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error) {
	repoFilter := repositories.OrderListFilter{
		CustomerID:        strings.TrimSpace(filter.CustomerID),
		OrderNumberPrefix: strings.ToUpper(strings.TrimSpace(filter.Search)),
		Pagination:        filter.Pagination,
	}
	for _, status := range filter.Status {
		normalized := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(string(status))))
		if !normalized.Valid() {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, status)
		}
		repoFilter.Status = append(repoFilter.Status, normalized)
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return domain.CursorPage[domain.Order]{}, fmt.Errorf("%w: from must not be after to", ErrOrderInvalidInput)
	}
	if filter.From != nil {
		from := filter.From.UTC()
		repoFilter.DateRange.From = &from
	}
	if filter.To != nil {
		to := filter.To.UTC()
		repoFilter.DateRange.To = &to
	}

	page, err := s.orders.List(ctx, repoFilter)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

type transitionRequest struct {
	orderID string
	target  domain.OrderStatus
	actor   domain.OrderActor
	note    string
	// guard runs against the freshly read order before the transition is validated.
	guard func(domain.Order) error
	// refundPaid flips a PAID payment to REFUNDED as part of the transition.
	refundPaid bool
}

type skippedRestock struct {
	productID string
	variantID string
	quantity  int
}

func (s *orderService) transition(ctx context.Context, req transitionRequest) (OrderStatusChange, error) {
	now := s.now()

	var (
		change  OrderStatusChange
		skipped []skippedRestock
	)
	err := s.store.RunOrderTx(ctx, func(ctx context.Context, tx repositories.OrderTx) error {
		skipped = nil

		order, err := tx.GetOrder(ctx, req.orderID)
		if err != nil {
			return err
		}
		if req.guard != nil {
			if err := req.guard(order); err != nil {
				return err
			}
		}
		if err := checkTransition(order.Status, req.target, req.actor.Role); err != nil {
			return err
		}

		restock := req.target.RestoresStock() && !order.Status.RestoresStock()
		var products map[string]domain.Product
		if restock {
			products, err = tx.GetProducts(ctx, orderProductIDs(order))
			if err != nil {
				return err
			}
		}

		note := req.note
		if note == "" {
			note = defaultTransitionNote(order.Status, req.target)
		}
		updated := order.Clone()
		updated.Status = req.target
		updated.UpdatedAt = now
		updated.History = append(updated.History, domain.OrderHistoryEntry{
			Status:    req.target,
			At:        now,
			ActorRole: req.actor.Role,
			ActorID:   req.actor.ID,
			Note:      note,
		})
		if req.refundPaid && updated.Payment.Status == domain.PaymentStatusPaid {
			updated.Payment.Status = domain.PaymentStatusRefunded
		}

		if restock {
			stock, missing := restoreStock(products, order.Items)
			for _, productID := range sortedKeys(stock) {
				if err := tx.SetVariantStock(ctx, productID, stock[productID], now); err != nil {
					return err
				}
			}
			skipped = missing
		}

		if err := tx.UpdateOrder(ctx, updated); err != nil {
			return err
		}
		change = OrderStatusChange{Before: order, After: updated}
		return nil
	})
	if err != nil {
		return OrderStatusChange{}, s.mapTxError(err)
	}

	for _, miss := range skipped {
		s.logger(ctx, "order.stock.restore.skipped", map[string]any{
			"orderId":   change.After.ID,
			"productId": miss.productID,
			"variantId": miss.variantID,
			"quantity":  miss.quantity,
		})
	}

	from, to := change.Before.Status, change.After.Status
	s.metrics.StatusChanged(ctx, string(from), string(to))
	s.logger(ctx, "order.status.changed", map[string]any{
		"orderId":   change.After.ID,
		"from":      string(from),
		"to":        string(to),
		"actorRole": string(req.actor.Role),
	})
	kind := OrderEventStatusChanged
	if to == domain.OrderStatusCancelled {
		kind = OrderEventCancelled
	}
	s.publishEvent(ctx, newOrderEvent(kind, change.After, from, req.actor, now))

	return change, nil
}

func (s *orderService) normalizeLines(items []OrderLineRequest) ([]orderLine, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrOrderInvalidInput)
	}
	lines := make([]orderLine, 0, len(items))
	index := make(map[string]int, len(items))
	for i, item := range items {
		productID := strings.TrimSpace(item.ProductID)
		variantID := strings.TrimSpace(item.VariantID)
		if productID == "" || variantID == "" {
			return nil, fmt.Errorf("%w: item %d requires product and variant ids", ErrOrderInvalidInput, i)
		}
		if item.Quantity < 1 || item.Quantity > s.maxQuantity {
			return nil, fmt.Errorf("%w: item %d quantity must be between 1 and %d", ErrOrderInvalidInput, i, s.maxQuantity)
		}
		key := productID + "/" + variantID
		if pos, ok := index[key]; ok {
			lines[pos].quantity += item.Quantity
			if lines[pos].quantity > s.maxQuantity {
				return nil, fmt.Errorf("%w: combined quantity for %s exceeds %d", ErrOrderInvalidInput, variantID, s.maxQuantity)
			}
			continue
		}
		index[key] = len(lines)
		lines = append(lines, orderLine{productID: productID, variantID: variantID, quantity: item.Quantity})
	}
	return lines, nil
}

func normalizeFulfillment(req FulfillmentRequest) (domain.OrderFulfillment, error) {
	kind := domain.FulfillmentType(strings.ToUpper(strings.TrimSpace(string(req.Type))))
	result := domain.OrderFulfillment{
		Type:  kind,
		Notes: textutil.PlainText(req.Notes, maxFulfilmentNotes),
	}
	switch kind {
	case domain.FulfillmentPickup:
		return result, nil
	case domain.FulfillmentDelivery:
	default:
		return domain.OrderFulfillment{}, fmt.Errorf("%w: unknown fulfillment type %q", ErrOrderInvalidInput, req.Type)
	}

	if req.Address == nil {
		return domain.OrderFulfillment{}, fmt.Errorf("%w: address is missing", ErrOrderInvalidFulfillment)
	}
	addr := domain.AddressSnapshot{
		Name:         textutil.SingleLine(req.Address.Name, maxAddressFieldLength),
		Phone:        textutil.SingleLine(req.Address.Phone, maxAddressFieldLength),
		Street:       textutil.SingleLine(req.Address.Street, maxAddressFieldLength),
		City:         textutil.SingleLine(req.Address.City, maxAddressFieldLength),
		Emirate:      textutil.SingleLine(req.Address.Emirate, maxAddressFieldLength),
		Building:     textutil.SingleLine(req.Address.Building, maxAddressFieldLength),
		Apartment:    textutil.SingleLine(req.Address.Apartment, maxAddressFieldLength),
		Instructions: textutil.PlainText(req.Address.Instructions, maxFulfilmentNotes),
	}
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"name", addr.Name},
		{"phone", addr.Phone},
		{"street", addr.Street},
		{"city", addr.City},
		{"emirate", addr.Emirate},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return domain.OrderFulfillment{}, fmt.Errorf("%w: missing %s", ErrOrderInvalidFulfillment, strings.Join(missing, ", "))
	}
	result.Address = &addr
	return result, nil
}

func normalizeActor(actor domain.OrderActor) (domain.OrderActor, error) {
	actor.ID = strings.TrimSpace(actor.ID)
	switch actor.Role {
	case domain.ActorRoleCustomer, domain.ActorRoleSystem:
	default:
		if !actor.Role.IsAdmin() {
			return domain.OrderActor{}, fmt.Errorf("%w: unknown actor role %q", ErrOrderInvalidInput, actor.Role)
		}
	}
	if actor.ID == "" && actor.Role != domain.ActorRoleSystem {
		return domain.OrderActor{}, fmt.Errorf("%w: actor id is required", ErrOrderInvalidInput)
	}
	return actor, nil
}

// reserveLines prices each line against the transactional product snapshot and computes the
// post-order stock level of every touched variant.
func reserveLines(products map[string]domain.Product, lines []orderLine) ([]domain.OrderItem, []domain.PricedLine, map[string]map[string]int, error) {
	items := make([]domain.OrderItem, 0, len(lines))
	priced := make([]domain.PricedLine, 0, len(lines))
	stock := make(map[string]map[string]int)

	for _, line := range lines {
		product, ok := products[line.productID]
		if !ok || !product.Active {
			return nil, nil, nil, fmt.Errorf("%w: %s", ErrOrderProductNotFound, line.productID)
		}
		variant, ok := product.Variant(line.variantID)
		if !ok || !variant.Active {
			return nil, nil, nil, fmt.Errorf("%w: %s/%s", ErrOrderVariantNotFound, line.productID, line.variantID)
		}
		if variant.StockQty < line.quantity {
			return nil, nil, nil, &InsufficientStockError{
				ProductID: product.ID,
				VariantID: variant.ID,
				SKU:       variant.SKU,
				Requested: line.quantity,
				Available: variant.StockQty,
			}
		}

		pl := domain.PricedLine{UnitPrice: variant.Price, Quantity: line.quantity}
		priced = append(priced, pl)
		items = append(items, domain.OrderItem{
			ProductID:    product.ID,
			VariantID:    variant.ID,
			ProductName:  product.Name,
			VariantLabel: variant.Label,
			WeightGrams:  variant.WeightGrams,
			SKU:          variant.SKU,
			UnitPrice:    variant.Price,
			Quantity:     line.quantity,
			LineTotal:    pl.LineTotal(),
		})

		if stock[product.ID] == nil {
			stock[product.ID] = make(map[string]int)
		}
		stock[product.ID][variant.ID] = variant.StockQty - line.quantity
	}
	return items, priced, stock, nil
}

// restoreStock adds line quantities back onto the current variant stock. Lines whose product or
// variant no longer exists are returned as skipped.
func restoreStock(products map[string]domain.Product, items []domain.OrderItem) (map[string]map[string]int, []skippedRestock) {
	stock := make(map[string]map[string]int)
	var skipped []skippedRestock
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			skipped = append(skipped, skippedRestock{item.ProductID, item.VariantID, item.Quantity})
			continue
		}
		variant, ok := product.Variant(item.VariantID)
		if !ok {
			skipped = append(skipped, skippedRestock{item.ProductID, item.VariantID, item.Quantity})
			continue
		}
		if stock[product.ID] == nil {
			stock[product.ID] = make(map[string]int)
		}
		current, seen := stock[product.ID][variant.ID]
		if !seen {
			current = variant.StockQty
		}
		stock[product.ID][variant.ID] = current + item.Quantity
	}
	return stock, skipped
}

func distinctProductIDs(lines []orderLine) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.productID]; ok {
			continue
		}
		seen[line.productID] = struct{}{}
		ids = append(ids, line.productID)
	}
	return ids
}

func orderProductIDs(order domain.Order) []string {
	seen := make(map[string]struct{}, len(order.Items))
	ids := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// mapTxError keeps domain errors raised inside a transaction callback and translates storage
// failures into service errors.
func (s *orderService) mapTxError(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrOrderInvalidInput,
		ErrOrderProductNotFound,
		ErrOrderVariantNotFound,
		ErrOrderInsufficientStock,
		ErrOrderNotFound,
		ErrOrderInvalidTransition,
		ErrOrderCancellationNotAllowed,
		ErrCounterExhausted,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	if repositories.IsCounterExhausted(err) {
		return fmt.Errorf("%w: %v", ErrCounterExhausted, err)
	}
	return s.mapRepositoryError(err)
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict(), repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
	}

	return err
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) nextOrderID() string {
	return orderIDPrefix + strings.ToLower(s.newID())
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   string(event.Type),
			"order":  event.OrderID,
			"error":  err.Error(),
			"status": string(event.ToStatus),
		})
	}
}
