package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/platform/httpx"
	"github.com/cbw-coffee/api/internal/platform/pagination"
	"github.com/cbw-coffee/api/internal/services"
)

// CatalogHandlers serves the public product catalog.
type CatalogHandlers struct {
	catalog services.CatalogService
}

func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes registers the /products endpoints.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/{productID}", h.getProduct)
}

type productListResponse struct {
	Items         []productPayload `json:"items"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

type productResponse struct {
	Product productPayload `json:"product"`
}

type productPayload struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Slug         string           `json:"slug"`
	Category     string           `json:"category"`
	Region       string           `json:"region,omitempty"`
	Roast        string           `json:"roast,omitempty"`
	Description  string           `json:"description,omitempty"`
	TastingNotes string           `json:"tasting_notes,omitempty"`
	Image        string           `json:"image,omitempty"`
	Bestseller   bool             `json:"bestseller"`
	InStock      bool             `json:"in_stock"`
	Variants     []variantPayload `json:"variants"`
}

type variantPayload struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	WeightGrams    int    `json:"weight_grams"`
	SKU            string `json:"sku"`
	Price          int64  `json:"price"`
	CompareAtPrice *int64 `json:"compare_at_price,omitempty"`
	StockQty       int    `json:"stock_qty"`
	InStock        bool   `json:"in_stock"`
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog unavailable", http.StatusServiceUnavailable))
		return
	}
	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	page, err := h.catalog.ListProducts(ctx, services.ProductListFilter{
		Category:   domain.ProductCategory(strings.TrimSpace(r.URL.Query().Get("category"))),
		Pagination: domain.Pagination{PageSize: params.PageSize, PageToken: params.PageToken},
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	resp := productListResponse{Items: make([]productPayload, 0, len(page.Items)), NextPageToken: page.NextPageToken}
	for _, product := range page.Items {
		resp.Items = append(resp.Items, buildProductPayload(product))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog unavailable", http.StatusServiceUnavailable))
		return
	}
	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

// buildProductPayload hides inactive variants from shoppers.
func buildProductPayload(product domain.Product) productPayload {
	payload := productPayload{
		ID:           product.ID,
		Name:         product.Name,
		Slug:         product.Slug,
		Category:     string(product.Category),
		Region:       product.Region,
		Roast:        string(product.Roast),
		Description:  product.Description,
		TastingNotes: product.TastingNotes,
		Image:        product.Image,
		Bestseller:   product.Bestseller,
		InStock:      product.InStock(),
		Variants:     []variantPayload{},
	}
	for _, v := range product.OrderedVariants() {
		if !v.Active {
			continue
		}
		payload.Variants = append(payload.Variants, variantPayload{
			ID:             v.ID,
			Label:          v.Label,
			WeightGrams:    v.WeightGrams,
			SKU:            v.SKU,
			Price:          v.Price,
			CompareAtPrice: v.CompareAtPrice,
			StockQty:       v.StockQty,
			InStock:        v.Purchasable(),
		})
	}
	return payload
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogInvalidInput),
		errors.Is(err, pagination.ErrInvalidPageSize),
		errors.Is(err, pagination.ErrInvalidPageToken):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogUnavailable), errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("unavailable", "catalog temporarily unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to load catalog", http.StatusInternalServerError))
	}
}
