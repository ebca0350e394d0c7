package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/platform/auth"
	"github.com/cbw-coffee/api/internal/platform/httpx"
	"github.com/cbw-coffee/api/internal/platform/pagination"
	"github.com/cbw-coffee/api/internal/services"
)

const (
	maxOrderCreateBodySize = 16 * 1024
	maxOrderCancelBodySize = 4 * 1024
)

type createOrderRequest struct {
	Items       []createOrderItemRequest `json:"items"`
	Fulfillment fulfilmentRequest        `json:"fulfillment"`
	Payment     paymentRequest           `json:"payment"`
}

type createOrderItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type fulfilmentRequest struct {
	Type    string          `json:"type"`
	Address *addressPayload `json:"address"`
	Notes   string          `json:"notes"`
}

type paymentRequest struct {
	Method string `json:"method"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

// OrderHandlers exposes the storefront order endpoints for signed-in customers.
type OrderHandlers struct {
	authn       *auth.CustomerAuthenticator
	orders      services.OrderService
	idempotency func(http.Handler) http.Handler
	limiter     rateLimiter
}

type OrderHandlerOption func(*OrderHandlers)

// WithOrderIdempotency wraps order placement with the given idempotency middleware.
func WithOrderIdempotency(mw func(http.Handler) http.Handler) OrderHandlerOption {
	return func(h *OrderHandlers) { h.idempotency = mw }
}

// WithOrderCreateLimit caps how many orders a customer may place per window.
func WithOrderCreateLimit(limit int, window time.Duration, clock func() time.Time) OrderHandlerOption {
	return func(h *OrderHandlers) { h.limiter = newFixedWindowLimiter(limit, window, clock) }
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.CustomerAuthenticator, orders services.OrderService, opts ...OrderHandlerOption) *OrderHandlers {
	h := &OrderHandlers{authn: authn, orders: orders}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireCustomer())
	}
	create := r.With(limitPerCaller(h.limiter))
	if h.idempotency != nil {
		create = create.With(h.idempotency)
	}
	create.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/cancel", h.cancelOrder)
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.customer(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := httpx.DecodeJSON(r, maxOrderCreateBodySize, &req, false); err != nil {
		httpx.WriteDecodeError(ctx, w, err)
		return
	}

	method := domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.Payment.Method)))
	switch method {
	case domain.PaymentMethodCOD:
	case domain.PaymentMethodCard:
		httpx.WriteError(ctx, w, httpx.NewError("card_not_supported", "card payments are not available yet, choose cash on delivery", http.StatusBadRequest))
		return
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payment.method must be COD", http.StatusBadRequest))
		return
	}

	fulfilment := domain.FulfillmentType(strings.ToUpper(strings.TrimSpace(req.Fulfillment.Type)))
	if fulfilment == domain.FulfillmentDelivery && req.Fulfillment.Address == nil {
		httpx.WriteError(ctx, w, httpx.NewError("address_required", "delivery orders require an address", http.StatusBadRequest))
		return
	}

	cmd := services.CreateOrderCommand{
		CustomerID: identity.Subject,
		Items:      make([]services.OrderLineRequest, 0, len(req.Items)),
		Fulfillment: services.FulfillmentRequest{
			Type:  fulfilment,
			Notes: req.Fulfillment.Notes,
		},
		Payment: services.PaymentRequest{Method: method},
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, services.OrderLineRequest(item))
	}
	if addr := req.Fulfillment.Address; addr != nil {
		snapshot := domain.AddressSnapshot(*addr)
		cmd.Fulfillment.Address = &snapshot
	}

	order, err := h.orders.CreateOrder(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/orders/"+order.ID)
	httpx.WriteJSON(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order, false)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.customer(w, r)
	if !ok {
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	filter := services.OrderListFilter{
		CustomerID: identity.Subject,
		Pagination: domain.Pagination{PageSize: params.PageSize, PageToken: params.PageToken},
	}
	for _, status := range parseFilterValues(r.URL.Query()["status"]) {
		filter.Status = append(filter.Status, domain.OrderStatus(status))
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderList(page))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.customer(w, r)
	if !ok {
		return
	}
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetCustomerOrder(ctx, identity.Subject, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order, false)})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.customer(w, r)
	if !ok {
		return
	}
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req cancelOrderRequest
	if err := httpx.DecodeJSON(r, maxOrderCancelBodySize, &req, true); err != nil {
		httpx.WriteDecodeError(ctx, w, err)
		return
	}

	order, err := h.orders.CancelOrder(ctx, services.CancelOrderCommand{
		CustomerID: identity.Subject,
		OrderID:    orderID,
		Reason:     req.Reason,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order, false)})
}

func (h *OrderHandlers) customer(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity.Role != domain.ActorRoleCustomer {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}
