package loyverse

import (
	"context"
	"net/url"
	"time"
)

// Receipts returns every receipt created inside [from, to].
func (c *Client) Receipts(ctx context.Context, from, to time.Time) ([]Receipt, error) {
	params := url.Values{}
	params.Set("created_at_min", from.UTC().Format(time.RFC3339))
	params.Set("created_at_max", to.UTC().Format(time.RFC3339))
	return FetchAll[Receipt](ctx, c, "receipts", "receipts", params)
}

func (c *Client) Items(ctx context.Context) ([]Item, error) {
	return FetchAll[Item](ctx, c, "items", "items", nil)
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	return FetchAll[Category](ctx, c, "categories", "categories", nil)
}

func (c *Client) Suppliers(ctx context.Context) ([]Supplier, error) {
	return FetchAll[Supplier](ctx, c, "suppliers", "suppliers", nil)
}

func (c *Client) Stores(ctx context.Context) ([]Store, error) {
	return FetchAll[Store](ctx, c, "stores", "stores", nil)
}

// InventoryLevels returns stock levels for one store.
func (c *Client) InventoryLevels(ctx context.Context, storeID string) ([]InventoryLevel, error) {
	params := url.Values{}
	params.Set("store_id", storeID)
	return FetchAll[InventoryLevel](ctx, c, "inventory", "inventory_levels", params)
}
