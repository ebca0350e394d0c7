package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/services"
)

type pagedOrderService struct {
	services.OrderService
	pages   map[string]domain.CursorPage[domain.Order]
	filters []services.OrderListFilter
	err     error
}

func (s *pagedOrderService) ListOrders(_ context.Context, filter services.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	s.filters = append(s.filters, filter)
	if s.err != nil {
		return domain.CursorPage[domain.Order]{}, s.err
	}
	return s.pages[filter.Pagination.PageToken], nil
}

func exportOrder(number string, status domain.OrderStatus, total int64) domain.Order {
	return domain.Order{
		ID:          "ord_" + number,
		OrderNumber: number,
		Status:      status,
		Items:       []domain.OrderItem{{Quantity: 2}, {Quantity: 1}},
		Payment:     domain.OrderPayment{Method: domain.PaymentMethodCOD, Status: domain.PaymentStatusPending},
		Fulfillment: domain.OrderFulfillment{
			Type:    domain.FulfillmentDelivery,
			Address: &domain.AddressSnapshot{Emirate: "Dubai"},
		},
		Pricing:   domain.OrderPricing{Subtotal: 13000, DeliveryFee: 1500, VAT: 725, GrandTotal: total},
		CreatedAt: time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC),
	}
}

func TestExportFilter(t *testing.T) {
	filter, err := exportFilter("2025-06-01", "2025-06-30", []string{"confirmed", " delivered "})
	require.NoError(t, err)
	assert.Equal(t, exportPageSize, filter.Pagination.PageSize)
	require.NotNil(t, filter.From)
	require.NotNil(t, filter.To)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *filter.From)
	assert.Equal(t, time.Date(2025, 6, 30, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC), *filter.To)
	assert.Equal(t, []domain.OrderStatus{domain.OrderStatusConfirmed, domain.OrderStatusDelivered}, filter.Status)

	_, err = exportFilter("06/01/2025", "", nil)
	assert.Error(t, err)
	_, err = exportFilter("2025-06-30", "2025-06-01", nil)
	assert.Error(t, err)
	_, err = exportFilter("", "", []string{"shipped"})
	assert.Error(t, err)
}

func TestCollectOrdersFollowsTokens(t *testing.T) {
	svc := &pagedOrderService{pages: map[string]domain.CursorPage[domain.Order]{
		"":   {Items: []domain.Order{exportOrder("CBW-2025-000003", domain.OrderStatusConfirmed, 15225)}, NextPageToken: "t1"},
		"t1": {Items: []domain.Order{exportOrder("CBW-2025-000002", domain.OrderStatusDelivered, 15225)}, NextPageToken: "t2"},
		"t2": {Items: []domain.Order{exportOrder("CBW-2025-000001", domain.OrderStatusDelivered, 8000)}},
	}}
	orders, err := collectOrders(context.Background(), svc, services.OrderListFilter{Pagination: domain.Pagination{PageSize: 1}})
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "CBW-2025-000001", orders[2].OrderNumber)
	require.Len(t, svc.filters, 3)
	assert.Equal(t, "t2", svc.filters[2].Pagination.PageToken)

	svc.err = errors.New("unavailable")
	_, err = collectOrders(context.Background(), svc, services.OrderListFilter{})
	assert.Error(t, err)
}

func TestWriteOrdersWorkbook(t *testing.T) {
	orders := []domain.Order{
		exportOrder("CBW-2025-000002", domain.OrderStatusDelivered, 15225),
		exportOrder("CBW-2025-000001", domain.OrderStatusDelivered, 8000),
		exportOrder("CBW-2025-000003", domain.OrderStatusCancelled, 15225),
	}
	var buf bytes.Buffer
	require.NoError(t, writeOrdersWorkbook(&buf, orders, message.NewPrinter(language.English)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ordersSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(ordersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Order Number", rows[0][0])
	assert.Equal(t, "CBW-2025-000002", rows[1][0])
	assert.Equal(t, "2025-06-02 08:30", rows[1][1])
	assert.Equal(t, "DELIVERED", rows[1][2])
	assert.Equal(t, "Dubai", rows[1][6])
	assert.Equal(t, "3", rows[1][7])
	assert.Contains(t, rows[1][13], "152.25")
	assert.Contains(t, rows[1][13], "AED")

	raw, err := f.GetCellValue(ordersSheet, "M2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "152.25", raw)

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"CANCELLED", "1"}, summary[1][:2])
	assert.Equal(t, []string{"DELIVERED", "2"}, summary[2][:2])
	assert.Contains(t, summary[2][2], "232.25")
}

func TestFormatAED(t *testing.T) {
	printer := message.NewPrinter(language.English)
	assert.Contains(t, formatAED(printer, 15225), "152.25")
	assert.Contains(t, formatAED(printer, 1500), "15.00")
}
