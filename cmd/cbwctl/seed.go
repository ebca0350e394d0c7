package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/services"
)

// catalogFile is the YAML seed layout. Prices are fils.
type catalogFile struct {
	Products []catalogProduct `yaml:"products"`
}

type catalogProduct struct {
	ID           string           `yaml:"id"`
	Name         string           `yaml:"name"`
	Slug         string           `yaml:"slug"`
	Category     string           `yaml:"category"`
	Region       string           `yaml:"region"`
	Roast        string           `yaml:"roast"`
	Description  string           `yaml:"description"`
	TastingNotes string           `yaml:"tasting_notes"`
	Image        string           `yaml:"image"`
	Bestseller   bool             `yaml:"bestseller"`
	Active       *bool            `yaml:"active"`
	Variants     []catalogVariant `yaml:"variants"`
}

type catalogVariant struct {
	ID             string `yaml:"id"`
	Label          string `yaml:"label"`
	WeightGrams    int    `yaml:"weight_grams"`
	SKU            string `yaml:"sku"`
	Price          int64  `yaml:"price"`
	CompareAtPrice *int64 `yaml:"compare_at_price"`
	StockQty       int    `yaml:"stock_qty"`
	Active         *bool  `yaml:"active"`
}

func seedCmd(flags *globalFlags) *cobra.Command {
	var (
		file   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert the product catalog from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			raw, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer raw.Close()

			products, err := parseCatalog(raw)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%d products parsed; nothing written\n", len(products))
				return nil
			}

			e, err := newEnv(ctx, flags)
			if err != nil {
				return err
			}
			defer e.Close()

			container, err := e.container(ctx)
			if err != nil {
				return err
			}
			written, err := seedCatalog(ctx, container.Services.Catalog, products, e.logger)
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d products upserted\n", written, len(products))
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "catalog.yaml", "catalog YAML file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and validate the file without writing")
	return cmd
}

// parseCatalog decodes the seed file. Product and variant IDs are required so re-running a seed
// updates documents in place instead of duplicating them.
func parseCatalog(r io.Reader) ([]domain.Product, error) {
	var file catalogFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Products) == 0 {
		return nil, errors.New("parse catalog: no products")
	}

	products := make([]domain.Product, 0, len(file.Products))
	seen := make(map[string]struct{}, len(file.Products))
	for i, entry := range file.Products {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("parse catalog: product %d has no id", i+1)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate product id %s", id)
		}
		seen[id] = struct{}{}

		product := domain.Product{
			ID:           id,
			Name:         entry.Name,
			Slug:         entry.Slug,
			Category:     domain.ProductCategory(entry.Category),
			Region:       entry.Region,
			Roast:        domain.RoastLevel(entry.Roast),
			Description:  entry.Description,
			TastingNotes: entry.TastingNotes,
			Image:        entry.Image,
			Bestseller:   entry.Bestseller,
			Active:       boolOr(entry.Active, true),
			Variants:     make(map[string]domain.ProductVariant, len(entry.Variants)),
			VariantOrder: make([]string, 0, len(entry.Variants)),
		}
		for j, v := range entry.Variants {
			vid := strings.TrimSpace(v.ID)
			if vid == "" {
				return nil, fmt.Errorf("parse catalog: product %s variant %d has no id", id, j+1)
			}
			if _, dup := product.Variants[vid]; dup {
				return nil, fmt.Errorf("parse catalog: product %s repeats variant %s", id, vid)
			}
			product.Variants[vid] = domain.ProductVariant{
				ID:             vid,
				Label:          v.Label,
				WeightGrams:    v.WeightGrams,
				SKU:            v.SKU,
				Price:          v.Price,
				CompareAtPrice: v.CompareAtPrice,
				StockQty:       v.StockQty,
				Active:         boolOr(v.Active, true),
			}
			product.VariantOrder = append(product.VariantOrder, vid)
		}
		products = append(products, product)
	}
	return products, nil
}

// seedCatalog upserts every product and keeps going past validation failures so one bad entry
// does not block the rest. The joined error lists every failure.
func seedCatalog(ctx context.Context, catalog services.CatalogService, products []domain.Product, logger *zap.Logger) (int, error) {
	var (
		written int
		errs    []error
	)
	for _, product := range products {
		saved, err := catalog.UpsertProduct(ctx, product)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return written, err
			}
			logger.Warn("seed: product rejected", zap.String("product_id", product.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", product.ID, err))
			continue
		}
		logger.Info("seed: product upserted", zap.String("product_id", saved.ID), zap.Int("variants", len(saved.Variants)))
		written++
	}
	return written, errors.Join(errs...)
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
