package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/repositories"
	"github.com/cbw-coffee/api/internal/repositories/memory"
	"github.com/cbw-coffee/api/internal/services"
)

const sampleCatalog = `
products:
  - id: prd_yirgacheffe
    name: Yirgacheffe
    category: africa
    region: Ethiopia
    roast: Light
    bestseller: true
    variants:
      - id: var_yirg_250
        label: 250g
        weight_grams: 250
        sku: YIR-250
        price: 6500
        stock_qty: 20
      - id: var_yirg_1kg
        label: 1kg
        weight_grams: 1000
        sku: YIR-1KG
        price: 22000
        compare_at_price: 24000
        stock_qty: 4
        active: false
  - id: prd_huila
    name: Huila
    category: america
    active: false
    variants:
      - id: var_huila_250
        label: 250g
        sku: HUI-250
        price: 5500
`

func TestParseCatalog(t *testing.T) {
	products, err := parseCatalog(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, products, 2)

	yirg := products[0]
	assert.Equal(t, "prd_yirgacheffe", yirg.ID)
	assert.Equal(t, domain.ProductCategoryAfrica, yirg.Category)
	assert.Equal(t, domain.RoastLight, yirg.Roast)
	assert.True(t, yirg.Active)
	assert.Equal(t, []string{"var_yirg_250", "var_yirg_1kg"}, yirg.VariantOrder)
	assert.True(t, yirg.Variants["var_yirg_250"].Active)
	assert.False(t, yirg.Variants["var_yirg_1kg"].Active)
	require.NotNil(t, yirg.Variants["var_yirg_1kg"].CompareAtPrice)
	assert.Equal(t, int64(24000), *yirg.Variants["var_yirg_1kg"].CompareAtPrice)

	assert.False(t, products[1].Active)
}

func TestParseCatalogRejections(t *testing.T) {
	cases := map[string]string{
		"empty":              "products: []",
		"unknown field":      "products:\n  - id: p\n    colour: red\n",
		"missing id":         "products:\n  - name: X\n",
		"duplicate product":  "products:\n  - id: p\n  - id: p\n",
		"missing variant id": "products:\n  - id: p\n    variants:\n      - label: 250g\n",
		"duplicate variant":  "products:\n  - id: p\n    variants:\n      - id: v\n      - id: v\n",
		"malformed":          "products: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseCatalog(strings.NewReader(raw))
			assert.Error(t, err)
		})
	}
}

func TestSeedCatalogContinuesPastInvalidProducts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: store.Products(),
		Clock:    func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	products, err := parseCatalog(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	bad := products[1].Clone()
	bad.ID = "prd_bad"
	bad.Category = "moon"
	products = append(products, bad)

	written, err := seedCatalog(ctx, catalog, products, zap.NewNop())
	assert.Equal(t, 2, written)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrCatalogInvalidInput)
	assert.Contains(t, err.Error(), "prd_bad")

	saved, err := store.Products().FindByID(ctx, "prd_yirgacheffe")
	require.NoError(t, err)
	assert.Equal(t, "yirgacheffe", saved.Slug)
	assert.Equal(t, 20, saved.Variants["var_yirg_250"].StockQty)

	// A second run updates in place.
	written, err = seedCatalog(ctx, catalog, products[:2], zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	page, err := store.Products().List(ctx, repositories.ProductListFilter{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}
