package loyverse

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is one sale or refund as returned by the receipts endpoint.
type Receipt struct {
	ReceiptNumber       string     `json:"receipt_number"`
	ReceiptType         string     `json:"receipt_type"`
	ReceiptDate         time.Time  `json:"receipt_date"`
	CreatedAt           time.Time  `json:"created_at"`
	CancelledAt         *time.Time `json:"cancelled_at"`
	StoreID             string     `json:"store_id"`
	EmployeeName        *string    `json:"employee_name"`
	CustomerPhoneNumber *string    `json:"customer_phone_number"`
	LineItems           []LineItem `json:"line_items"`
	Payments            []Payment  `json:"payments"`
}

// Cancelled reports whether the receipt carries a cancellation marker.
func (r Receipt) Cancelled() bool {
	return r.CancelledAt != nil
}

type LineItem struct {
	ID            string          `json:"id"`
	ItemID        string          `json:"item_id"`
	VariantID     string          `json:"variant_id"`
	ItemName      string          `json:"item_name"`
	VariantName   *string         `json:"variant_name"`
	SKU           string          `json:"sku"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	TotalDiscount decimal.Decimal `json:"total_discount"`

	// Category is not sent by the API; it is filled in by enrichment.
	Category string `json:"-"`
}

// NetAmount is quantity * price - total_discount.
func (li LineItem) NetAmount() decimal.Decimal {
	return li.Quantity.Mul(li.Price).Sub(li.TotalDiscount)
}

type Payment struct {
	PaymentTypeID string          `json:"payment_type_id"`
	Type          string          `json:"type"`
	Name          string          `json:"name"`
	MoneyAmount   decimal.Decimal `json:"money_amount"`
}

// DisplayName prefers the configured payment name over the type code.
func (p Payment) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Type
}

type Item struct {
	ID                string    `json:"id"`
	Handle            string    `json:"handle"`
	ItemName          string    `json:"item_name"`
	ReferenceID       *string   `json:"reference_id"`
	CategoryID        *string   `json:"category_id"`
	TrackStock        bool      `json:"track_stock"`
	PrimarySupplierID *string   `json:"primary_supplier_id"`
	Variants          []Variant `json:"variants"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Variant struct {
	VariantID          string           `json:"variant_id"`
	ItemID             string           `json:"item_id"`
	SKU                string           `json:"sku"`
	ReferenceVariantID *string          `json:"reference_variant_id"`
	Option1Value       *string          `json:"option1_value"`
	Barcode            *string          `json:"barcode"`
	Cost               decimal.Decimal  `json:"cost"`
	DefaultPrice       *decimal.Decimal `json:"default_price"`
	Stores             []VariantStore   `json:"stores"`
}

// VariantStore is the per-store pricing entry nested in a variant.
type VariantStore struct {
	StoreID          string           `json:"store_id"`
	PricingType      string           `json:"pricing_type"`
	Price            *decimal.Decimal `json:"price"`
	AvailableForSale bool             `json:"available_for_sale"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Supplier struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Store struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// InventoryLevel is the on-hand quantity of a variant in one store.
type InventoryLevel struct {
	VariantID string          `json:"variant_id"`
	StoreID   string          `json:"store_id"`
	InStock   decimal.Decimal `json:"in_stock"`
	UpdatedAt time.Time       `json:"updated_at"`
}
