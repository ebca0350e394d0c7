package firestore

import (
	"time"

	"github.com/cbw-coffee/api/internal/domain"
)

type productDocument struct {
	Name         string                     `firestore:"name"`
	Slug         string                     `firestore:"slug"`
	Category     string                     `firestore:"category"`
	Region       string                     `firestore:"region,omitempty"`
	Roast        string                     `firestore:"roast,omitempty"`
	Description  string                     `firestore:"description,omitempty"`
	TastingNotes string                     `firestore:"tastingNotes,omitempty"`
	Image        string                     `firestore:"image,omitempty"`
	Bestseller   bool                       `firestore:"bestseller"`
	Active       bool                       `firestore:"active"`
	Variants     map[string]variantDocument `firestore:"variants"`
	VariantOrder []string                   `firestore:"variantOrder"`
	CreatedAt    time.Time                  `firestore:"createdAt"`
	UpdatedAt    time.Time                  `firestore:"updatedAt"`
}

type variantDocument struct {
	Label          string `firestore:"label"`
	WeightGrams    int    `firestore:"weightGrams"`
	SKU            string `firestore:"sku"`
	Price          int64  `firestore:"price"`
	CompareAtPrice *int64 `firestore:"compareAtPrice,omitempty"`
	StockQty       int    `firestore:"stockQty"`
	Active         bool   `firestore:"active"`
}

func encodeProduct(p domain.Product) productDocument {
	doc := productDocument{
		Name:         p.Name,
		Slug:         p.Slug,
		Category:     string(p.Category),
		Region:       p.Region,
		Roast:        string(p.Roast),
		Description:  p.Description,
		TastingNotes: p.TastingNotes,
		Image:        p.Image,
		Bestseller:   p.Bestseller,
		Active:       p.Active,
		Variants:     make(map[string]variantDocument, len(p.Variants)),
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
	}
	for _, v := range p.OrderedVariants() {
		doc.Variants[v.ID] = variantDocument{
			Label:          v.Label,
			WeightGrams:    v.WeightGrams,
			SKU:            v.SKU,
			Price:          v.Price,
			CompareAtPrice: v.CompareAtPrice,
			StockQty:       v.StockQty,
			Active:         v.Active,
		}
		doc.VariantOrder = append(doc.VariantOrder, v.ID)
	}
	return doc
}

func decodeProduct(id string, doc productDocument) domain.Product {
	p := domain.Product{
		ID:           id,
		Name:         doc.Name,
		Slug:         doc.Slug,
		Category:     domain.ProductCategory(doc.Category),
		Region:       doc.Region,
		Roast:        domain.RoastLevel(doc.Roast),
		Description:  doc.Description,
		TastingNotes: doc.TastingNotes,
		Image:        doc.Image,
		Bestseller:   doc.Bestseller,
		Active:       doc.Active,
		Variants:     make(map[string]domain.ProductVariant, len(doc.Variants)),
		VariantOrder: append([]string(nil), doc.VariantOrder...),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
	for variantID, v := range doc.Variants {
		p.Variants[variantID] = domain.ProductVariant{
			ID:             variantID,
			Label:          v.Label,
			WeightGrams:    v.WeightGrams,
			SKU:            v.SKU,
			Price:          v.Price,
			CompareAtPrice: v.CompareAtPrice,
			StockQty:       v.StockQty,
			Active:         v.Active,
		}
	}
	return p
}

type orderDocument struct {
	OrderNumber string              `firestore:"orderNumber"`
	CustomerID  string              `firestore:"customerId"`
	Currency    string              `firestore:"currency"`
	Items       []orderItemDocument `firestore:"items"`
	Pricing     pricingDocument     `firestore:"pricing"`
	Payment     paymentDocument     `firestore:"payment"`
	Fulfillment fulfillmentDocument `firestore:"fulfillment"`
	Status      string              `firestore:"status"`
	History     []historyDocument   `firestore:"statusHistory"`
	AdminNotes  string              `firestore:"adminNotes,omitempty"`
	CreatedAt   time.Time           `firestore:"createdAt"`
	UpdatedAt   time.Time           `firestore:"updatedAt"`
}

type orderItemDocument struct {
	ProductID    string `firestore:"productId"`
	VariantID    string `firestore:"variantId"`
	ProductName  string `firestore:"productName"`
	VariantLabel string `firestore:"variantLabel"`
	WeightGrams  int    `firestore:"weightGrams"`
	SKU          string `firestore:"sku"`
	UnitPrice    int64  `firestore:"unitPrice"`
	Quantity     int    `firestore:"quantity"`
	LineTotal    int64  `firestore:"lineTotal"`
}

type pricingDocument struct {
	Subtotal    int64 `firestore:"subtotal"`
	Discount    int64 `firestore:"discount"`
	DeliveryFee int64 `firestore:"deliveryFee"`
	VAT         int64 `firestore:"vat"`
	GrandTotal  int64 `firestore:"grandTotal"`
}

type paymentDocument struct {
	Method        string `firestore:"method"`
	Status        string `firestore:"status"`
	Provider      string `firestore:"provider,omitempty"`
	TransactionID string `firestore:"transactionId,omitempty"`
}

type fulfillmentDocument struct {
	Type    string           `firestore:"type"`
	Address *addressDocument `firestore:"address,omitempty"`
	Notes   string           `firestore:"notes,omitempty"`
}

type addressDocument struct {
	Name         string `firestore:"name"`
	Phone        string `firestore:"phone"`
	Street       string `firestore:"street"`
	City         string `firestore:"city"`
	Emirate      string `firestore:"emirate"`
	Building     string `firestore:"building,omitempty"`
	Apartment    string `firestore:"apartment,omitempty"`
	Instructions string `firestore:"instructions,omitempty"`
}

type historyDocument struct {
	Status    string    `firestore:"status"`
	At        time.Time `firestore:"at"`
	ActorRole string    `firestore:"actorRole"`
	ActorID   string    `firestore:"actorId,omitempty"`
	Note      string    `firestore:"note,omitempty"`
}

func encodeOrder(o domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Currency:    o.Currency,
		Items:       make([]orderItemDocument, 0, len(o.Items)),
		Pricing:     pricingDocument(o.Pricing),
		Payment: paymentDocument{
			Method:        string(o.Payment.Method),
			Status:        string(o.Payment.Status),
			Provider:      o.Payment.Provider,
			TransactionID: o.Payment.TransactionID,
		},
		Fulfillment: fulfillmentDocument{Type: string(o.Fulfillment.Type), Notes: o.Fulfillment.Notes},
		Status:      string(o.Status),
		History:     make([]historyDocument, 0, len(o.History)),
		AdminNotes:  o.AdminNotes,
		CreatedAt:   o.CreatedAt.UTC(),
		UpdatedAt:   o.UpdatedAt.UTC(),
	}
	for _, item := range o.Items {
		doc.Items = append(doc.Items, orderItemDocument(item))
	}
	if addr := o.Fulfillment.Address; addr != nil {
		encoded := addressDocument(*addr)
		doc.Fulfillment.Address = &encoded
	}
	for _, h := range o.History {
		doc.History = append(doc.History, historyDocument{
			Status:    string(h.Status),
			At:        h.At.UTC(),
			ActorRole: string(h.ActorRole),
			ActorID:   h.ActorID,
			Note:      h.Note,
		})
	}
	return doc
}

func decodeOrder(id string, doc orderDocument) domain.Order {
	o := domain.Order{
		ID:          id,
		OrderNumber: doc.OrderNumber,
		CustomerID:  doc.CustomerID,
		Currency:    doc.Currency,
		Items:       make([]domain.OrderItem, 0, len(doc.Items)),
		Pricing:     domain.OrderPricing(doc.Pricing),
		Payment: domain.OrderPayment{
			Method:        domain.PaymentMethod(doc.Payment.Method),
			Status:        domain.PaymentStatus(doc.Payment.Status),
			Provider:      doc.Payment.Provider,
			TransactionID: doc.Payment.TransactionID,
		},
		Fulfillment: domain.OrderFulfillment{Type: domain.FulfillmentType(doc.Fulfillment.Type), Notes: doc.Fulfillment.Notes},
		Status:      domain.OrderStatus(doc.Status),
		History:     make([]domain.OrderHistoryEntry, 0, len(doc.History)),
		AdminNotes:  doc.AdminNotes,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	for _, item := range doc.Items {
		o.Items = append(o.Items, domain.OrderItem(item))
	}
	if addr := doc.Fulfillment.Address; addr != nil {
		decoded := domain.AddressSnapshot(*addr)
		o.Fulfillment.Address = &decoded
	}
	for _, h := range doc.History {
		o.History = append(o.History, domain.OrderHistoryEntry{
			Status:    domain.OrderStatus(h.Status),
			At:        h.At,
			ActorRole: domain.ActorRole(h.ActorRole),
			ActorID:   h.ActorID,
			Note:      h.Note,
		})
	}
	return o
}

type auditLogDocument struct {
	Actor     string         `firestore:"actor"`
	ActorType string         `firestore:"actorType"`
	Action    string         `firestore:"action"`
	TargetRef string         `firestore:"targetRef"`
	Metadata  map[string]any `firestore:"metadata,omitempty"`
	Diff      map[string]any `firestore:"diff,omitempty"`
	IPHash    string         `firestore:"ipHash,omitempty"`
	UserAgent string         `firestore:"userAgent,omitempty"`
	Severity  string         `firestore:"severity"`
	RequestID string         `firestore:"requestId,omitempty"`
	CreatedAt time.Time      `firestore:"createdAt"`
}

type counterDocument struct {
	CurrentValue int64     `firestore:"currentValue"`
	Step         int64     `firestore:"step"`
	MaxValue     *int64    `firestore:"maxValue,omitempty"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}
