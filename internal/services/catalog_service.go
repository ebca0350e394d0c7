package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/platform/textutil"
	"github.com/cbw-coffee/api/internal/repositories"
)

const (
	productIDPrefix = "prd_"
	variantIDPrefix = "var_"
)

var slugSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Products    repositories.ProductRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type catalogService struct {
	repo  repositories.ProductRepository
	clock func() time.Time
	newID func() string
}

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &catalogService{
		repo:  deps.Products,
		clock: func() time.Time { return clock().UTC() },
		newID: idGen,
	}, nil
}

// GetProduct returns an active product. Inactive products are reported as missing.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return domain.Product{}, mapCatalogError(err)
	}
	if !product.Active {
		return domain.Product{}, fmt.Errorf("%w: %s", ErrCatalogNotFound, productID)
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error) {
	category := domain.ProductCategory(strings.ToLower(strings.TrimSpace(string(filter.Category))))
	if category == domain.ProductCategoryAll {
		category = ""
	}
	if category != "" && !category.Valid() {
		return domain.CursorPage[domain.Product]{}, fmt.Errorf("%w: unknown category %q", ErrCatalogInvalidInput, filter.Category)
	}
	page, err := s.repo.List(ctx, repositories.ProductListFilter{
		Category:   category,
		ActiveOnly: true,
		Pagination: filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[domain.Product]{}, mapCatalogError(err)
	}
	return page, nil
}

// UpsertProduct validates and stores a product, assigning IDs to the product and any variant
// that lacks one.
func (s *catalogService) UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	product = product.Clone()
	now := s.clock()

	product.ID = strings.TrimSpace(product.ID)
	if product.ID == "" {
		product.ID = productIDPrefix + strings.ToLower(s.newID())
	}
	product.Name = textutil.SingleLine(product.Name, 120)
	if product.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	}
	product.Slug = normalizeSlug(product.Slug, product.Name)
	product.Category = domain.ProductCategory(strings.ToLower(strings.TrimSpace(string(product.Category))))
	if !product.Category.Valid() {
		return domain.Product{}, fmt.Errorf("%w: unknown category %q", ErrCatalogInvalidInput, product.Category)
	}
	if !product.Roast.Valid() {
		return domain.Product{}, fmt.Errorf("%w: unknown roast %q", ErrCatalogInvalidInput, product.Roast)
	}
	product.Description = textutil.PlainText(product.Description, 4000)
	product.TastingNotes = textutil.SingleLine(product.TastingNotes, 200)
	product.Region = textutil.SingleLine(product.Region, 120)

	if len(product.Variants) == 0 {
		return domain.Product{}, fmt.Errorf("%w: at least one variant is required", ErrCatalogInvalidInput)
	}
	variants := make(map[string]domain.ProductVariant, len(product.Variants))
	order := make([]string, 0, len(product.Variants))
	for _, variant := range product.OrderedVariants() {
		variant.ID = strings.TrimSpace(variant.ID)
		if variant.ID == "" {
			variant.ID = variantIDPrefix + strings.ToLower(s.newID())
		}
		if err := validateVariant(variant); err != nil {
			return domain.Product{}, err
		}
		variants[variant.ID] = variant
		order = append(order, variant.ID)
	}
	product.Variants = variants
	product.VariantOrder = order

	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	if err := s.repo.Upsert(ctx, product); err != nil {
		return domain.Product{}, mapCatalogError(err)
	}
	return product, nil
}

func validateVariant(v domain.ProductVariant) error {
	switch {
	case strings.TrimSpace(v.Label) == "":
		return fmt.Errorf("%w: variant %s label is required", ErrCatalogInvalidInput, v.ID)
	case strings.TrimSpace(v.SKU) == "":
		return fmt.Errorf("%w: variant %s sku is required", ErrCatalogInvalidInput, v.ID)
	case v.Price <= 0:
		return fmt.Errorf("%w: variant %s price must be positive", ErrCatalogInvalidInput, v.ID)
	case v.StockQty < 0:
		return fmt.Errorf("%w: variant %s stock must not be negative", ErrCatalogInvalidInput, v.ID)
	case v.WeightGrams < 0:
		return fmt.Errorf("%w: variant %s weight must not be negative", ErrCatalogInvalidInput, v.ID)
	case v.CompareAtPrice != nil && *v.CompareAtPrice < v.Price:
		return fmt.Errorf("%w: variant %s compare-at price below price", ErrCatalogInvalidInput, v.ID)
	}
	return nil
}

func normalizeSlug(slug, name string) string {
	source := strings.TrimSpace(slug)
	if source == "" {
		source = name
	}
	return strings.Trim(slugSanitizer.ReplaceAllString(strings.ToLower(source), "-"), "-")
}

func mapCatalogError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCatalogNotFound, err)
		case repoErr.IsUnavailable(), repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
	}
	return err
}
