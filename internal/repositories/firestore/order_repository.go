package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/cbw-coffee/api/internal/domain"
	pfirestore "github.com/cbw-coffee/api/internal/platform/firestore"
	"github.com/cbw-coffee/api/internal/platform/pagination"
	"github.com/cbw-coffee/api/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository implements read access to the orders collection.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{base: pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection)}, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.base.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc.ID, doc.Data), nil
}

// List returns orders newest first. An order number prefix switches the query to an order number
// range, in which case results are ordered by order number descending and the date range is
// applied to the fetched page.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}
	size := pagination.Normalize(filter.Pagination.PageSize)
	prefix := strings.TrimSpace(filter.OrderNumberPrefix)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.CustomerID != "" {
			q = q.Where("customerId", "==", filter.CustomerID)
		}
		switch len(filter.Status) {
		case 0:
		case 1:
			q = q.Where("status", "==", string(filter.Status[0]))
		default:
			statuses := make([]string, 0, len(filter.Status))
			for _, s := range filter.Status {
				statuses = append(statuses, string(s))
			}
			q = q.Where("status", "in", statuses)
		}

		if prefix != "" {
			q = q.Where("orderNumber", ">=", prefix).Where("orderNumber", "<", prefix+"\uf8ff").
				OrderBy("orderNumber", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
			if !cursor.IsZero() {
				q = q.StartAfter(cursor.Key, cursor.ID)
			}
			return q.Limit(size + 1)
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
		return domain.CursorPage[domain.Order]{}, err
	}

	page := domain.CursorPage[domain.Order]{Items: make([]domain.Order, 0, len(docs))}
	hasMore := len(docs) > size
	if hasMore {
		docs = docs[:size]
	}
	for _, doc := range docs {
		order := decodeOrder(doc.ID, doc.Data)
		if prefix != "" && !withinRange(order, filter.DateRange) {
			continue
		}
		page.Items = append(page.Items, order)
	}
	if hasMore {
		last := decodeOrder(docs[len(docs)-1].ID, docs[len(docs)-1].Data)
		next := pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
		if prefix != "" {
			next = pagination.Cursor{Key: last.OrderNumber, ID: last.ID}
		}
		if page.NextPageToken, err = pagination.EncodeToken(next); err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
	}
	return page, nil
}

func withinRange(order domain.Order, r domain.RangeQuery[time.Time]) bool {
	if r.From != nil && order.CreatedAt.Before(*r.From) {
		return false
	}
	if r.To != nil && order.CreatedAt.After(*r.To) {
		return false
	}
	return true
}
