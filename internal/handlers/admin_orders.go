package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/platform/auth"
	"github.com/cbw-coffee/api/internal/platform/httpx"
	"github.com/cbw-coffee/api/internal/platform/pagination"
	"github.com/cbw-coffee/api/internal/services"
)

const maxAdminOrderBodySize = 8 * 1024

type adminStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type adminNotesRequest struct {
	AdminNotes *string `json:"admin_notes"`
}

// AdminOrderHandlers exposes back-office order management under /admin/orders.
type AdminOrderHandlers struct {
	authn  *auth.AdminAuthenticator
	orders services.OrderService
	audit  services.AuditLogService
}

// NewAdminOrderHandlers constructs admin order handlers. audit may be nil.
func NewAdminOrderHandlers(authn *auth.AdminAuthenticator, orders services.OrderService, audit services.AuditLogService) *AdminOrderHandlers {
	return &AdminOrderHandlers{authn: authn, orders: orders, audit: audit}
}

// Routes registers the admin order endpoints on the /admin group.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/orders", func(orders chi.Router) {
		if h.authn != nil {
			orders.Use(h.authn.RequireAdmin(domain.ActorRoleOwner, domain.ActorRoleManager, domain.ActorRoleStaff))
		}
		orders.Get("/", h.listOrders)
		orders.Get("/{orderID}", h.getOrder)
		orders.Get("/{orderID}/audit-logs", h.listAuditLogs)
		orders.Patch("/{orderID}/status", h.updateStatus)
		orders.Patch("/{orderID}/admin-notes", h.updateAdminNotes)
	})
}

func (h *AdminOrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.admin(w, r); !ok {
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	query := r.URL.Query()
	filter := services.OrderListFilter{
		Search:     strings.TrimSpace(query.Get("search")),
		Pagination: domain.Pagination{PageSize: params.PageSize, PageToken: params.PageToken},
	}
	for _, status := range parseFilterValues(query["status"]) {
		filter.Status = append(filter.Status, domain.OrderStatus(status))
	}
	if raw := strings.TrimSpace(query.Get("from")); raw != "" {
		from, err := parseTimeParam(raw, false)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "from must be a date or RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(query.Get("to")); raw != "" {
		to, err := parseTimeParam(raw, true)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "to must be a date or RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		filter.To = &to
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderList(page))
}

func (h *AdminOrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.admin(w, r); !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order, true)})
}

func (h *AdminOrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.admin(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req adminStatusRequest
	if err := httpx.DecodeJSON(r, maxAdminOrderBodySize, &req, false); err != nil {
		httpx.WriteDecodeError(ctx, w, err)
		return
	}
	target := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !target.Valid() {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid order status", http.StatusBadRequest))
		return
	}

	change, err := h.orders.AdvanceStatus(ctx, services.AdvanceStatusCommand{
		OrderID: orderID,
		Status:  target,
		Actor:   identity.Actor(),
		Note:    req.Note,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	h.record(r, identity, services.AuditActionOrderStatusUpdate, change.After.ID, map[string]services.AuditLogDiff{
		"status":        {Before: string(change.Before.Status), After: string(change.After.Status)},
		"paymentStatus": {Before: string(change.Before.Payment.Status), After: string(change.After.Payment.Status)},
	}, map[string]any{"orderNumber": change.After.OrderNumber, "note": strings.TrimSpace(req.Note)})

	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(change.After, true)})
}

func (h *AdminOrderHandlers) updateAdminNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.admin(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req adminNotesRequest
	if err := httpx.DecodeJSON(r, maxAdminOrderBodySize, &req, false); err != nil {
		httpx.WriteDecodeError(ctx, w, err)
		return
	}
	if req.AdminNotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "admin_notes is required", http.StatusBadRequest))
		return
	}

	change, err := h.orders.UpdateAdminNotes(ctx, services.UpdateAdminNotesCommand{
		OrderID: orderID,
		Notes:   *req.AdminNotes,
		Actor:   identity.Actor(),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	h.record(r, identity, services.AuditActionOrderAdminNote, change.Order.ID, map[string]services.AuditLogDiff{
		"adminNotes": {Before: change.Before, After: change.Order.AdminNotes},
	}, map[string]any{"orderNumber": change.Order.OrderNumber})

	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(change.Order, true)})
}

type auditLogListResponse struct {
	Items         []auditLogPayload `json:"items"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

type auditLogPayload struct {
	ID        string         `json:"id"`
	Actor     string         `json:"actor"`
	ActorType string         `json:"actor_type"`
	Action    string         `json:"action"`
	Diff      map[string]any `json:"diff,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
}

func (h *AdminOrderHandlers) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.admin(w, r); !ok {
		return
	}
	if h.audit == nil {
		httpx.WriteError(ctx, w, httpx.NewError("audit_unavailable", "audit log unavailable", http.StatusServiceUnavailable))
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	page, err := h.audit.List(ctx, services.AuditLogFilter{
		TargetRef:  orderTargetRef(orderID),
		Pagination: domain.Pagination{PageSize: params.PageSize, PageToken: params.PageToken},
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	resp := auditLogListResponse{Items: make([]auditLogPayload, 0, len(page.Items)), NextPageToken: page.NextPageToken}
	for _, entry := range page.Items {
		resp.Items = append(resp.Items, auditLogPayload{
			ID:        entry.ID,
			Actor:     entry.Actor,
			ActorType: entry.ActorType,
			Action:    entry.Action,
			Diff:      entry.Diff,
			Metadata:  entry.Metadata,
			CreatedAt: formatTime(entry.CreatedAt),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AdminOrderHandlers) record(r *http.Request, identity *auth.Identity, action, orderID string, diff map[string]services.AuditLogDiff, metadata map[string]any) {
	if h.audit == nil {
		return
	}
	h.audit.Record(r.Context(), services.AuditLogRecord{
		Actor:     identity.Subject,
		ActorType: "admin",
		Action:    action,
		TargetRef: orderTargetRef(orderID),
		RequestID: middleware.GetReqID(r.Context()),
		Metadata:  metadata,
		Diff:      diff,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
}

func (h *AdminOrderHandlers) admin(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || !identity.IsAdmin() {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "admin authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return "", false
	}
	return orderID, true
}

func orderTargetRef(orderID string) string {
	return "/orders/" + orderID
}
