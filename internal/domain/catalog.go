package domain

import (
	"sort"
	"time"
)

// ProductCategory groups products by origin for storefront navigation.
type ProductCategory string

const (
	ProductCategoryAfrica  ProductCategory = "africa"
	ProductCategoryAmerica ProductCategory = "america"
	ProductCategoryAsia    ProductCategory = "asia"
	ProductCategoryPremium ProductCategory = "premium"
	ProductCategoryAll     ProductCategory = "all"
)

// Valid reports whether the category is one of the known values.
func (c ProductCategory) Valid() bool {
	switch c {
	case ProductCategoryAfrica, ProductCategoryAmerica, ProductCategoryAsia, ProductCategoryPremium, ProductCategoryAll:
		return true
	default:
		return false
	}
}

// RoastLevel describes how dark the beans are roasted.
type RoastLevel string

const (
	RoastLight  RoastLevel = "Light"
	RoastMedium RoastLevel = "Medium"
	RoastDark   RoastLevel = "Dark"
)

// Valid reports whether the roast level is recognised. Empty is allowed.
func (r RoastLevel) Valid() bool {
	switch r {
	case "", RoastLight, RoastMedium, RoastDark:
		return true
	default:
		return false
	}
}

// Product is a catalog entry. Variants are keyed by variant ID; VariantOrder keeps display order.
type Product struct {
	ID           string
	Name         string
	Slug         string
	Category     ProductCategory
	Region       string
	Roast        RoastLevel
	Description  string
	TastingNotes string
	Image        string
	Bestseller   bool
	Active       bool
	Variants     map[string]ProductVariant
	VariantOrder []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProductVariant is a purchasable SKU of a product with its own price and stock.
// Price and CompareAtPrice are minor currency units.
type ProductVariant struct {
	ID             string
	Label          string
	WeightGrams    int
	SKU            string
	Price          int64
	CompareAtPrice *int64
	StockQty       int
	Active         bool
}

// Purchasable reports whether the variant can currently be ordered at all.
func (v ProductVariant) Purchasable() bool {
	return v.Active && v.StockQty > 0
}

// Variant resolves a variant by ID.
func (p Product) Variant(id string) (ProductVariant, bool) {
	if p.Variants == nil {
		return ProductVariant{}, false
	}
	v, ok := p.Variants[id]
	return v, ok
}

// InStock is true when any active variant has positive stock.
func (p Product) InStock() bool {
	for _, v := range p.Variants {
		if v.Purchasable() {
			return true
		}
	}
	return false
}

// OrderedVariants returns variants in display order. Variants missing from VariantOrder are
// appended sorted by ID so the result is deterministic.
func (p Product) OrderedVariants() []ProductVariant {
	if len(p.Variants) == 0 {
		return nil
	}
	out := make([]ProductVariant, 0, len(p.Variants))
	seen := make(map[string]struct{}, len(p.Variants))
	for _, id := range p.VariantOrder {
		if v, ok := p.Variants[id]; ok {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, v)
		}
	}
	if len(out) == len(p.Variants) {
		return out
	}
	rest := make([]string, 0, len(p.Variants)-len(out))
	for id := range p.Variants {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		out = append(out, p.Variants[id])
	}
	return out
}

// Clone returns a deep copy so callers can mutate stock without aliasing the source map.
func (p Product) Clone() Product {
	cp := p
	if p.Variants != nil {
		cp.Variants = make(map[string]ProductVariant, len(p.Variants))
		for id, v := range p.Variants {
			if v.CompareAtPrice != nil {
				price := *v.CompareAtPrice
				v.CompareAtPrice = &price
			}
			cp.Variants[id] = v
		}
	}
	if p.VariantOrder != nil {
		cp.VariantOrder = append([]string(nil), p.VariantOrder...)
	}
	return cp
}
