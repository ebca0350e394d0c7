package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	"github.com/cbw-coffee/api/internal/domain"
	pfirestore "github.com/cbw-coffee/api/internal/platform/firestore"
	"github.com/cbw-coffee/api/internal/platform/pagination"
	"github.com/cbw-coffee/api/internal/repositories"
)

const auditLogsCollection = "auditLogs"

// AuditLogRepository persists audit entries. Entries are write-once.
type AuditLogRepository struct {
	base *pfirestore.BaseRepository[auditLogDocument]
}

func NewAuditLogRepository(provider *pfirestore.Provider) (*AuditLogRepository, error) {
	if provider == nil {
		return nil, errors.New("audit log repository requires firestore provider")
	}
	return &AuditLogRepository{base: pfirestore.NewBaseRepository[auditLogDocument](provider, auditLogsCollection)}, nil
}

func (r *AuditLogRepository) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	id := strings.TrimSpace(entry.ID)
	if id == "" {
		return errors.New("audit log repository: entry id is required")
	}
	return r.base.Create(ctx, id, auditLogDocument{
		Actor:     entry.Actor,
		ActorType: entry.ActorType,
		Action:    entry.Action,
		TargetRef: entry.TargetRef,
		Metadata:  entry.Metadata,
		Diff:      entry.Diff,
		IPHash:    entry.IPHash,
		UserAgent: entry.UserAgent,
		Severity:  entry.Severity,
		RequestID: entry.RequestID,
		CreatedAt: entry.CreatedAt.UTC(),
	})
}

// List returns entries newest first.
func (r *AuditLogRepository) List(ctx context.Context, filter repositories.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.AuditLogEntry]{}, err
	}
	size := pagination.Normalize(filter.Pagination.PageSize)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.TargetRef != "" {
			q = q.Where("targetRef", "==", filter.TargetRef)
		}
		if filter.Actor != "" {
			q = q.Where("actor", "==", filter.Actor)
		}
		if filter.Action != "" {
			q = q.Where("action", "==", filter.Action)
		}
		if from := filter.DateRange.From; from != nil {
			q = q.Where("createdAt", ">=", from.UTC())
		}
		if to := filter.DateRange.To; to != nil {
			q = q.Where("createdAt", "<=", to.UTC())
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if !cursor.IsZero() {
			q = q.StartAfter(cursor.CreatedAt, cursor.ID)
		}
		return q.Limit(size + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.AuditLogEntry]{}, err
	}

	page := domain.CursorPage[domain.AuditLogEntry]{Items: make([]domain.AuditLogEntry, 0, len(docs))}
	for i, doc := range docs {
		if i == size {
			last := page.Items[size-1]
			if page.NextPageToken, err = pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}); err != nil {
				return domain.CursorPage[domain.AuditLogEntry]{}, err
			}
			break
		}
		page.Items = append(page.Items, domain.AuditLogEntry{
			ID:        doc.ID,
			Actor:     doc.Data.Actor,
			ActorType: doc.Data.ActorType,
			Action:    doc.Data.Action,
			TargetRef: doc.Data.TargetRef,
			Metadata:  doc.Data.Metadata,
			Diff:      doc.Data.Diff,
			IPHash:    doc.Data.IPHash,
			UserAgent: doc.Data.UserAgent,
			Severity:  doc.Data.Severity,
			RequestID: doc.Data.RequestID,
			CreatedAt: doc.Data.CreatedAt,
		})
	}
	return page, nil
}
