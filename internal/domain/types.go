package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// AuditLogEntry stores normalized audit information for admin use.
type AuditLogEntry struct {
	ID        string
	Actor     string
	ActorType string
	Action    string
	TargetRef string
	Metadata  map[string]any
	Diff      map[string]any
	IPHash    string
	UserAgent string
	Severity  string
	RequestID string
	CreatedAt time.Time
}

// ActorRole identifies who initiated an order mutation.
type ActorRole string

const (
	// ActorRoleCustomer marks actions taken by the owning customer.
	ActorRoleCustomer ActorRole = "CUSTOMER"
	// ActorRoleOwner is the highest admin role.
	ActorRoleOwner ActorRole = "OWNER"
	// ActorRoleManager manages catalog and orders.
	ActorRoleManager ActorRole = "MANAGER"
	// ActorRoleStaff handles day to day fulfilment.
	ActorRoleStaff ActorRole = "STAFF"
	// ActorRoleSystem marks automated mutations.
	ActorRoleSystem ActorRole = "SYSTEM"
)

// IsAdmin reports whether the role belongs to back office staff.
func (r ActorRole) IsAdmin() bool {
	switch r {
	case ActorRoleOwner, ActorRoleManager, ActorRoleStaff:
		return true
	default:
		return false
	}
}

// OrderActor identifies the principal responsible for a mutation.
type OrderActor struct {
	ID   string
	Role ActorRole
}

// Health status values reported by readiness checks.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
	HealthStatusError    = "error"
)

// SystemHealthCheck records the outcome of a single dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	Environment string
	GeneratedAt time.Time
}
