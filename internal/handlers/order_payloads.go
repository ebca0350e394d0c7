package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/platform/httpx"
	"github.com/cbw-coffee/api/internal/platform/pagination"
	"github.com/cbw-coffee/api/internal/services"
)

type orderListResponse struct {
	Items         []orderSummaryPayload `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

type orderSummaryPayload struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	Currency    string `json:"currency"`
	GrandTotal  int64  `json:"grand_total"`
	ItemCount   int    `json:"item_count"`
	CreatedAt   string `json:"created_at"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID            string                 `json:"id"`
	OrderNumber   string                 `json:"order_number"`
	CustomerID    string                 `json:"customer_id"`
	Status        string                 `json:"status"`
	Currency      string                 `json:"currency"`
	Items         []orderItemPayload     `json:"items"`
	Pricing       orderPricingPayload    `json:"pricing"`
	Payment       orderPaymentPayload    `json:"payment"`
	Fulfillment   orderFulfilmentPayload `json:"fulfillment"`
	StatusHistory []orderHistoryPayload  `json:"status_history"`
	AdminNotes    string                 `json:"admin_notes,omitempty"`
	CreatedAt     string                 `json:"created_at"`
	UpdatedAt     string                 `json:"updated_at,omitempty"`
}

type orderItemPayload struct {
	ProductID    string `json:"product_id"`
	VariantID    string `json:"variant_id"`
	ProductName  string `json:"product_name"`
	VariantLabel string `json:"variant_label"`
	WeightGrams  int    `json:"weight_grams"`
	SKU          string `json:"sku"`
	UnitPrice    int64  `json:"unit_price"`
	Quantity     int    `json:"quantity"`
	LineTotal    int64  `json:"line_total"`
}

type orderPricingPayload struct {
	Subtotal    int64 `json:"subtotal"`
	Discount    int64 `json:"discount"`
	DeliveryFee int64 `json:"delivery_fee"`
	VAT         int64 `json:"vat"`
	GrandTotal  int64 `json:"grand_total"`
}

type orderPaymentPayload struct {
	Method string `json:"method"`
	Status string `json:"status"`
}

type orderFulfilmentPayload struct {
	Type    string          `json:"type"`
	Address *addressPayload `json:"address,omitempty"`
	Notes   string          `json:"notes,omitempty"`
}

type addressPayload struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Street       string `json:"street"`
	City         string `json:"city"`
	Emirate      string `json:"emirate"`
	Building     string `json:"building,omitempty"`
	Apartment    string `json:"apartment,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type orderHistoryPayload struct {
	Status    string `json:"status"`
	At        string `json:"at"`
	ActorRole string `json:"actor_role"`
	ActorID   string `json:"actor_id,omitempty"`
	Note      string `json:"note,omitempty"`
}

func buildOrderSummary(order domain.Order) orderSummaryPayload {
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
	}
	return orderSummaryPayload{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Currency:    order.Currency,
		GrandTotal:  order.Pricing.GrandTotal,
		ItemCount:   count,
		CreatedAt:   formatTime(order.CreatedAt),
	}
}

// buildOrderPayload renders an order. Admin notes are only included for back-office callers.
func buildOrderPayload(order domain.Order, includeAdminNotes bool) orderPayload {
	payload := orderPayload{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Status:      string(order.Status),
		Currency:    order.Currency,
		Items:       make([]orderItemPayload, 0, len(order.Items)),
		Pricing: orderPricingPayload{
			Subtotal:    order.Pricing.Subtotal,
			Discount:    order.Pricing.Discount,
			DeliveryFee: order.Pricing.DeliveryFee,
			VAT:         order.Pricing.VAT,
			GrandTotal:  order.Pricing.GrandTotal,
		},
		Payment: orderPaymentPayload{
			Method: string(order.Payment.Method),
			Status: string(order.Payment.Status),
		},
		Fulfillment: orderFulfilmentPayload{
			Type:  string(order.Fulfillment.Type),
			Notes: order.Fulfillment.Notes,
		},
		StatusHistory: make([]orderHistoryPayload, 0, len(order.History)),
		CreatedAt:     formatTime(order.CreatedAt),
		UpdatedAt:     formatTime(order.UpdatedAt),
	}
	if includeAdminNotes {
		payload.AdminNotes = order.AdminNotes
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload(item))
	}
	if addr := order.Fulfillment.Address; addr != nil {
		encoded := addressPayload(*addr)
		payload.Fulfillment.Address = &encoded
	}
	for _, entry := range order.History {
		payload.StatusHistory = append(payload.StatusHistory, orderHistoryPayload{
			Status:    string(entry.Status),
			At:        formatTime(entry.At),
			ActorRole: string(entry.ActorRole),
			ActorID:   entry.ActorID,
			Note:      entry.Note,
		})
	}
	return payload
}

func buildOrderList(page domain.CursorPage[domain.Order]) orderListResponse {
	items := make([]orderSummaryPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderSummary(order))
	}
	return orderListResponse{Items: items, NextPageToken: strings.TrimSpace(page.NextPageToken)}
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var stockErr *services.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", stockErr.Error(), http.StatusConflict).WithDetails(map[string]any{
			"product_id": stockErr.ProductID,
			"variant_id": stockErr.VariantID,
			"sku":        stockErr.SKU,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		}))
	case errors.Is(err, services.ErrOrderProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrOrderVariantNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("variant_not_found", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrOrderInvalidFulfillment):
		httpx.WriteError(ctx, w, httpx.NewError("address_required", "delivery orders require a complete address", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderInvalidInput),
		errors.Is(err, pagination.ErrInvalidPageSize),
		errors.Is(err, pagination.ErrInvalidPageToken):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderCancellationNotAllowed):
		httpx.WriteError(ctx, w, httpx.NewError("cancellation_not_allowed", "order can no longer be cancelled", http.StatusConflict))
	case errors.Is(err, services.ErrCounterExhausted):
		httpx.WriteError(ctx, w, httpx.NewError("order_numbers_exhausted", "no order numbers left for this year", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrOrderUnavailable), errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("unavailable", "service temporarily unavailable, retry shortly", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process order request", http.StatusInternalServerError))
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTimeParam accepts RFC3339 timestamps or plain dates. A plain date used as an upper
// bound covers the whole day.
func parseTimeParam(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}

func parseFilterValues(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
