package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/platform/auth"
	"github.com/cbw-coffee/api/internal/services"
)

type stubOrderService struct {
	createFn  func(context.Context, services.CreateOrderCommand) (domain.Order, error)
	advanceFn func(context.Context, services.AdvanceStatusCommand) (services.OrderStatusChange, error)
	cancelFn  func(context.Context, services.CancelOrderCommand) (domain.Order, error)
	notesFn   func(context.Context, services.UpdateAdminNotesCommand) (services.OrderNotesChange, error)
	getFn     func(context.Context, string) (domain.Order, error)
	getOwnFn  func(context.Context, string, string) (domain.Order, error)
	listFn    func(context.Context, services.OrderListFilter) (domain.CursorPage[domain.Order], error)
}

var errNotStubbed = errors.New("not implemented")

func (s *stubOrderService) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Order{}, errNotStubbed
}

func (s *stubOrderService) AdvanceStatus(ctx context.Context, cmd services.AdvanceStatusCommand) (services.OrderStatusChange, error) {
	if s.advanceFn != nil {
		return s.advanceFn(ctx, cmd)
	}
	return services.OrderStatusChange{}, errNotStubbed
}

func (s *stubOrderService) CancelOrder(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, cmd)
	}
	return domain.Order{}, errNotStubbed
}

func (s *stubOrderService) UpdateAdminNotes(ctx context.Context, cmd services.UpdateAdminNotesCommand) (services.OrderNotesChange, error) {
	if s.notesFn != nil {
		return s.notesFn(ctx, cmd)
	}
	return services.OrderNotesChange{}, errNotStubbed
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return domain.Order{}, errNotStubbed
}

func (s *stubOrderService) GetCustomerOrder(ctx context.Context, customerID, orderID string) (domain.Order, error) {
	if s.getOwnFn != nil {
		return s.getOwnFn(ctx, customerID, orderID)
	}
	return domain.Order{}, errNotStubbed
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

type stubAuditService struct {
	records []services.AuditLogRecord
	listFn  func(context.Context, services.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error)
}

func (s *stubAuditService) Record(_ context.Context, record services.AuditLogRecord) {
	s.records = append(s.records, record)
}

func (s *stubAuditService) List(ctx context.Context, filter services.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.AuditLogEntry]{}, nil
}

func withIdentity(identity *auth.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity != nil {
				r = r.WithContext(auth.WithIdentity(r.Context(), identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func customerIdentity(uid string) *auth.Identity {
	return &auth.Identity{Subject: uid, Role: domain.ActorRoleCustomer}
}

var (
	_ services.OrderService    = (*stubOrderService)(nil)
	_ services.AuditLogService = (*stubAuditService)(nil)
)
