package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/services"
)

type stubCatalogService struct {
	product domain.Product
	filter  services.ProductListFilter
	err     error
}

func (s *stubCatalogService) GetProduct(_ context.Context, productID string) (domain.Product, error) {
	if s.err != nil {
		return domain.Product{}, s.err
	}
	if productID != s.product.ID {
		return domain.Product{}, fmt.Errorf("%w: %s", services.ErrCatalogNotFound, productID)
	}
	return s.product, nil
}

func (s *stubCatalogService) ListProducts(_ context.Context, filter services.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	s.filter = filter
	if s.err != nil {
		return domain.CursorPage[domain.Product]{}, s.err
	}
	return domain.CursorPage[domain.Product]{Items: []domain.Product{s.product}}, nil
}

func (s *stubCatalogService) UpsertProduct(_ context.Context, product domain.Product) (domain.Product, error) {
	return product, nil
}

func catalogProduct() domain.Product {
	return domain.Product{
		ID:       "prd_1",
		Name:     "Huila",
		Category: domain.ProductCategoryAmerica,
		Active:   true,
		Variants: map[string]domain.ProductVariant{
			"var_250": {ID: "var_250", Label: "250g", Price: 5500, StockQty: 0, Active: true},
			"var_1kg": {ID: "var_1kg", Label: "1kg", Price: 19000, StockQty: 4, Active: false},
		},
		VariantOrder: []string{"var_250", "var_1kg"},
	}
}

func newCatalogRouter(svc services.CatalogService) chi.Router {
	router := chi.NewRouter()
	router.Route("/products", NewCatalogHandlers(svc).Routes)
	return router
}

func TestCatalogHandlersHideInactiveVariants(t *testing.T) {
	router := newCatalogRouter(&stubCatalogService{product: catalogProduct()})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/prd_1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp productResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Product.Variants) != 1 || resp.Product.Variants[0].ID != "var_250" {
		t.Fatalf("expected only the active variant, got %+v", resp.Product.Variants)
	}
	if resp.Product.InStock {
		t.Fatalf("product with only inactive stock must not be in stock")
	}
}

func TestCatalogHandlersListAndErrors(t *testing.T) {
	svc := &stubCatalogService{product: catalogProduct()}
	router := newCatalogRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products?category=america&page_size=10", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if svc.filter.Category != domain.ProductCategoryAmerica || svc.filter.Pagination.PageSize != 10 {
		t.Fatalf("unexpected filter %+v", svc.filter)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/prd_missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	svc.err = fmt.Errorf("%w: unknown category", services.ErrCatalogInvalidInput)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products?category=mars", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	svc.err = services.ErrCatalogUnavailable
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
