// Package reference builds the id to name lookups used to enrich receipts and
// inventory rows. Lookups are rebuilt on every call and never cached.
package reference

import (
	"context"
	"errors"
	"fmt"

	"github.com/nospicy/possync/pkg/logger"
	"github.com/nospicy/possync/pkg/loyverse"
)

// Uncategorized is used when an item has no category or the category is unknown.
const Uncategorized = "Uncategorized"

// Source is the slice of the POS API the joiner reads.
type Source interface {
	Categories(ctx context.Context) ([]loyverse.Category, error)
	Items(ctx context.Context) ([]loyverse.Item, error)
}

type Joiner struct {
	src  Source
	logg *logger.Logger
}

func NewJoiner(src Source, logg *logger.Logger) (*Joiner, error) {
	if src == nil {
		return nil, errors.New("reference source required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Joiner{src: src, logg: logg}, nil
}

// ItemCategories fetches every category and every item and returns a map of
// item id to category name. The map is complete before it is returned.
func (j *Joiner) ItemCategories(ctx context.Context) (map[string]string, error) {
	categories, err := j.src.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	byID := CategoryNames(categories)

	items, err := j.src.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}

	out := make(map[string]string, len(items))
	for _, item := range items {
		out[item.ID] = ResolveCategory(byID, item.CategoryID)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"categories": len(byID),
		"items":      len(out),
	}), "reference data loaded")
	return out, nil
}

// CategoryNames indexes categories by id.
func CategoryNames(categories []loyverse.Category) map[string]string {
	out := make(map[string]string, len(categories))
	for _, c := range categories {
		out[c.ID] = c.Name
	}
	return out
}

// SupplierNames indexes suppliers by id.
func SupplierNames(suppliers []loyverse.Supplier) map[string]string {
	out := make(map[string]string, len(suppliers))
	for _, s := range suppliers {
		out[s.ID] = s.Name
	}
	return out
}

// ResolveCategory looks up id in names, falling back to Uncategorized for a
// nil id, an unknown id or an empty name.
func ResolveCategory(names map[string]string, id *string) string {
	if id == nil {
		return Uncategorized
	}
	if name := names[*id]; name != "" {
		return name
	}
	return Uncategorized
}
