package sales

import (
	"strings"
	"time"

	"github.com/nospicy/possync/pkg/loyverse"
)

const (
	defaultEmployee = "Not specified"
	placeholder     = "-"
	dateLayout      = "2006-01-02 15:04:05"

	statusCompleted = "completed"
	statusCancelled = "cancelled"
)

// Header is the first row of the sales sheet.
var Header = []string{
	"Date",
	"Receipt",
	"Status",
	"Item",
	"Variant",
	"SKU",
	"Category",
	"Quantity",
	"Unit price",
	"Discount",
	"Net amount",
	"Payment method",
	"Employee",
	"Customer",
}

// NumericColumns are the zero-based Header positions that get a number format.
var NumericColumns = []int{7, 8, 9, 10}

// Rows flattens enriched receipts into one row per line item. Dates are
// rendered in loc.
func Rows(receipts []loyverse.Receipt, loc *time.Location) [][]any {
	if loc == nil {
		loc = time.UTC
	}
	var rows [][]any
	for _, r := range receipts {
		payment := paymentMethods(r.Payments)
		status := statusCompleted
		if r.Cancelled() {
			status = statusCancelled
		}
		for _, li := range r.LineItems {
			rows = append(rows, []any{
				r.ReceiptDate.In(loc).Format(dateLayout),
				r.ReceiptNumber,
				status,
				li.ItemName,
				valueOr(li.VariantName, placeholder),
				li.SKU,
				li.Category,
				li.Quantity.InexactFloat64(),
				li.Price.InexactFloat64(),
				li.TotalDiscount.InexactFloat64(),
				li.NetAmount().InexactFloat64(),
				payment,
				valueOr(r.EmployeeName, defaultEmployee),
				valueOr(r.CustomerPhoneNumber, placeholder),
			})
		}
	}
	return rows
}

func paymentMethods(payments []loyverse.Payment) string {
	names := make([]string, 0, len(payments))
	for _, p := range payments {
		names = append(names, p.DisplayName())
	}
	return strings.Join(names, ", ")
}

func valueOr(v *string, fallback string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return fallback
	}
	return *v
}
