package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/platform/textutil"
	"github.com/cbw-coffee/api/internal/repositories"
)

// Audit actions written by admin order endpoints.
const (
	AuditActionOrderStatusUpdate = "ORDER_STATUS_UPDATE"
	AuditActionOrderAdminNote    = "ORDER_ADMIN_NOTE"
)

const (
	defaultAuditSeverity = "info"
	ipHashPrefix         = "sha256:"
	auditIDPrefix        = "aud_"
)

// AuditLogServiceDeps bundles constructor inputs for the audit writer service.
type AuditLogServiceDeps struct {
	Repository  repositories.AuditLogRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
	// HashSalt is mixed into IP address hashes so stored values cannot be reversed by lookup.
	HashSalt string
}

type auditLogService struct {
	repo     repositories.AuditLogRepository
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
	hashSalt string
}

// NewAuditLogService creates an audit log writer backed by the supplied repository.
func NewAuditLogService(deps AuditLogServiceDeps) (AuditLogService, error) {
	if deps.Repository == nil {
		return nil, errors.New("audit log service: repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &auditLogService{
		repo:     deps.Repository,
		clock:    func() time.Time { return clock().UTC() },
		newID:    idGen,
		logger:   logger,
		hashSalt: deps.HashSalt,
	}, nil
}

// Record persists an audit entry. Failures are logged and swallowed so the primary mutation,
// which has already committed, is still reported as successful.
func (s *auditLogService) Record(ctx context.Context, record AuditLogRecord) {
	entry := s.buildEntry(record)
	if entry.Action == "" || entry.TargetRef == "" {
		s.logger(ctx, "audit.record.skipped", map[string]any{
			"action": entry.Action,
			"target": entry.TargetRef,
			"error":  ErrAuditLogInvalidInput.Error(),
		})
		return
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger(ctx, "audit.record.failed", map[string]any{
			"action": entry.Action,
			"target": entry.TargetRef,
			"error":  err.Error(),
		})
	}
}

func (s *auditLogService) List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	page, err := s.repo.List(ctx, repositories.AuditLogFilter{
		TargetRef:  strings.TrimSpace(filter.TargetRef),
		Actor:      strings.TrimSpace(filter.Actor),
		Action:     strings.ToUpper(strings.TrimSpace(filter.Action)),
		DateRange:  filter.DateRange,
		Pagination: filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[domain.AuditLogEntry]{}, fmt.Errorf("%w: %v", ErrAuditLogRepositoryFail, err)
	}
	return page, nil
}

func (s *auditLogService) buildEntry(record AuditLogRecord) domain.AuditLogEntry {
	occurred := record.OccurredAt
	if occurred.IsZero() {
		occurred = s.clock()
	}

	entry := domain.AuditLogEntry{
		ID:        auditIDPrefix + strings.ToLower(s.newID()),
		Actor:     textutil.SingleLine(record.Actor, 160),
		ActorType: normalizeActorType(record.ActorType),
		Action:    strings.ToUpper(textutil.SingleLine(record.Action, 120)),
		TargetRef: textutil.SingleLine(record.TargetRef, 200),
		Severity:  normalizeSeverity(record.Severity),
		RequestID: textutil.SingleLine(record.RequestID, 128),
		UserAgent: textutil.SingleLine(record.UserAgent, 256),
		CreatedAt: occurred.UTC(),
	}
	if meta := sanitizeAuditMap(record.Metadata); len(meta) > 0 {
		entry.Metadata = meta
	}
	if len(record.Diff) > 0 {
		diff := make(map[string]any, len(record.Diff))
		for key, change := range record.Diff {
			key = textutil.SingleLine(key, 80)
			if key == "" {
				continue
			}
			diff[key] = map[string]any{
				"before": sanitizeAuditValue(change.Before),
				"after":  sanitizeAuditValue(change.After),
			}
		}
		if len(diff) > 0 {
			entry.Diff = diff
		}
	}
	if ip := strings.TrimSpace(record.IPAddress); ip != "" {
		sum := sha256.Sum256([]byte(s.hashSalt + ip))
		entry.IPHash = ipHashPrefix + hex.EncodeToString(sum[:])
	}
	return entry
}

func normalizeActorType(actorType string) string {
	switch normalized := strings.ToLower(strings.TrimSpace(actorType)); normalized {
	case "admin", "customer", "system":
		return normalized
	default:
		return "unknown"
	}
}

func normalizeSeverity(severity string) string {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "warn", "warning":
		return "warn"
	case "error":
		return "error"
	default:
		return defaultAuditSeverity
	}
}

func sanitizeAuditMap(values map[string]any) map[string]any {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]any, len(values))
	for key, value := range values {
		key = textutil.SingleLine(key, 80)
		if key == "" {
			continue
		}
		out[key] = sanitizeAuditValue(value)
	}
	return out
}

func sanitizeAuditValue(value any) any {
	switch v := value.(type) {
	case string:
		return textutil.PlainText(v, 2000)
	case fmt.Stringer:
		return textutil.PlainText(v.String(), 2000)
	case map[string]any:
		return sanitizeAuditMap(v)
	default:
		return v
	}
}
