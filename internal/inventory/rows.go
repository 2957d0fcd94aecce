package inventory

import "time"

const (
	placeholder = "-"
	yes         = "Yes"
	no          = "No"
	dateLayout  = "2006-01-02 15:04:05"
)

// Header is the first row of the stock sheet.
var Header = []string{
	"SKU",
	"Item",
	"Variant",
	"Category",
	"Stock",
	"Cost",
	"Price",
	"Total cost",
	"Total price",
	"Available",
	"Barcode",
	"Reference",
	"Track stock",
	"Last updated",
	"Supplier",
}

// NumericColumns are Stock, Cost, Price, Total cost and Total price.
var NumericColumns = []int{4, 5, 6, 7, 8}

// Rows renders records in Header order. Timestamps are shown in loc.
func Rows(records []Record, loc *time.Location) [][]any {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		lastUpdated := placeholder
		if !r.LastUpdated.IsZero() {
			lastUpdated = r.LastUpdated.In(loc).Format(dateLayout)
		}
		rows = append(rows, []any{
			r.SKU,
			r.ItemName,
			orPlaceholder(r.VariantName),
			r.Category,
			r.Stock.InexactFloat64(),
			r.Cost.InexactFloat64(),
			r.Price.InexactFloat64(),
			r.TotalCost.InexactFloat64(),
			r.TotalPrice.InexactFloat64(),
			yesNo(r.Available),
			orPlaceholder(r.Barcode),
			orPlaceholder(r.Reference),
			yesNo(r.TrackStock),
			lastUpdated,
			orPlaceholder(r.Supplier),
		})
	}
	return rows
}

func yesNo(v bool) string {
	if v {
		return yes
	}
	return no
}

func orPlaceholder(v *string) string {
	if v == nil || *v == "" {
		return placeholder
	}
	return *v
}
