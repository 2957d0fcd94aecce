// Package inventory computes one stock row per item variant.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nospicy/possync/internal/reference"
	pkgerrors "github.com/nospicy/possync/pkg/errors"
	"github.com/nospicy/possync/pkg/logger"
	"github.com/nospicy/possync/pkg/loyverse"
	"github.com/shopspring/decimal"
)

// Source is the slice of the POS API the extractor reads.
type Source interface {
	Suppliers(ctx context.Context) ([]loyverse.Supplier, error)
	Stores(ctx context.Context) ([]loyverse.Store, error)
	Categories(ctx context.Context) ([]loyverse.Category, error)
	InventoryLevels(ctx context.Context, storeID string) ([]loyverse.InventoryLevel, error)
	Items(ctx context.Context) ([]loyverse.Item, error)
}

// Gate is the run window check.
type Gate interface {
	IsWithin(now time.Time) bool
	NextRun(now time.Time) time.Time
	Format(t time.Time) string
}

// Record is one inventory row for an item variant.
type Record struct {
	SKU         string
	ItemName    string
	VariantName *string
	Category    string
	Stock       decimal.Decimal
	Cost        decimal.Decimal
	Price       decimal.Decimal
	TotalCost   decimal.Decimal
	TotalPrice  decimal.Decimal
	Available   bool
	Barcode     *string
	Reference   *string
	TrackStock  bool
	LastUpdated time.Time
	Supplier    *string
}

// Result is the outcome of one extraction. Skipped is set when the gate was
// closed and no API call was made.
type Result struct {
	Records         []Record
	Warnings        []string
	SkippedVariants int
	Skipped         bool
	NextRun         time.Time
}

type ExtractorParams struct {
	Source Source
	Gate   Gate
	Policy StockPolicy
	Logger *logger.Logger
	Now    func() time.Time
}

type Extractor struct {
	src    Source
	gate   Gate
	policy StockPolicy
	logg   *logger.Logger
	now    func() time.Time
}

func NewExtractor(params ExtractorParams) (*Extractor, error) {
	if params.Source == nil {
		return nil, errors.New("inventory source required")
	}
	if params.Gate == nil {
		return nil, errors.New("schedule gate required")
	}
	policy := params.Policy
	if policy == "" {
		policy = StockLastWins
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Extractor{src: params.Source, gate: params.Gate, policy: policy, logg: logg, now: now}, nil
}

// Extract builds the inventory snapshot. Outside the run window it returns an
// empty, skipped result without touching the API.
func (e *Extractor) Extract(ctx context.Context) (Result, error) {
	now := e.now()
	if !e.gate.IsWithin(now) {
		next := e.gate.NextRun(now)
		e.logg.Info(e.logg.WithField(ctx, "next_run", e.gate.Format(next)), "outside run window, inventory skipped")
		return Result{Skipped: true, NextRun: next}, nil
	}

	suppliers, err := e.src.Suppliers(ctx)
	if err != nil {
		return Result{}, classify(fmt.Errorf("fetch suppliers: %w", err))
	}
	stores, err := e.src.Stores(ctx)
	if err != nil {
		return Result{}, classify(fmt.Errorf("fetch stores: %w", err))
	}
	categories, err := e.src.Categories(ctx)
	if err != nil {
		return Result{}, classify(fmt.Errorf("fetch categories: %w", err))
	}

	stock := newStockMap(e.policy)
	for _, store := range stores {
		levels, err := e.src.InventoryLevels(ctx, store.ID)
		if err != nil {
			return Result{}, classify(fmt.Errorf("fetch inventory for store %s: %w", store.ID, err))
		}
		stock.add(levels)
	}

	items, err := e.src.Items(ctx)
	if err != nil {
		return Result{}, classify(fmt.Errorf("fetch items: %w", err))
	}

	res := build(items, reference.CategoryNames(categories), reference.SupplierNames(suppliers), stock)
	for _, w := range res.Warnings {
		e.logg.Warn(ctx, w)
	}
	e.logg.Info(e.logg.WithFields(ctx, map[string]any{
		"suppliers":        len(suppliers),
		"stores":           len(stores),
		"stock_levels":     stock.len(),
		"items":            len(items),
		"records":          len(res.Records),
		"skipped_variants": res.SkippedVariants,
		"stock_policy":     string(e.policy),
	}), "inventory extracted")
	return res, nil
}

// build joins items with the lookups. Items without variants yield a warning
// and no record; variants without a store entry are skipped.
func build(items []loyverse.Item, categories, suppliers map[string]string, stock *stockMap) Result {
	if stock == nil {
		stock = newStockMap(StockLastWins)
	}
	var res Result
	for _, item := range items {
		if len(item.Variants) == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("item %q has no variants", item.ItemName))
			continue
		}
		category := reference.ResolveCategory(categories, item.CategoryID)
		supplier := supplierName(suppliers, item.PrimarySupplierID)

		for _, v := range item.Variants {
			if len(v.Stores) == 0 {
				res.SkippedVariants++
				continue
			}
			store := v.Stores[0]
			qty := stock.get(v.VariantID)
			price := unitPrice(store, v)

			sku := v.SKU
			if sku == "" {
				sku = item.Handle
			}
			res.Records = append(res.Records, Record{
				SKU:         sku,
				ItemName:    item.ItemName,
				VariantName: nonEmpty(v.Option1Value),
				Category:    category,
				Stock:       qty,
				Cost:        v.Cost,
				Price:       price,
				TotalCost:   qty.Mul(v.Cost),
				TotalPrice:  qty.Mul(price),
				Available:   store.AvailableForSale,
				Barcode:     v.Barcode,
				Reference:   v.ReferenceVariantID,
				TrackStock:  item.TrackStock,
				LastUpdated: item.UpdatedAt,
				Supplier:    supplier,
			})
		}
	}
	return res
}

// unitPrice prefers a non-zero store price over the variant default.
func unitPrice(store loyverse.VariantStore, v loyverse.Variant) decimal.Decimal {
	if store.Price != nil && !store.Price.IsZero() {
		return *store.Price
	}
	if v.DefaultPrice != nil {
		return *v.DefaultPrice
	}
	return decimal.Zero
}

func supplierName(suppliers map[string]string, id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	if name, ok := suppliers[*id]; ok && name != "" {
		return &name
	}
	raw := *id
	return &raw
}

func nonEmpty(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}

func classify(err error) error {
	if pkgerrors.IsAuthorization(err) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inventory extraction failed")
}
