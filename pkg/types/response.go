// Package types holds the JSON shapes returned by the sync trigger API.
package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// SyncSummary describes one pipeline run. Times are RFC3339 and omitted when
// the run never reached that point.
type SyncSummary struct {
	RunID            string `json:"run_id"`
	Trigger          string `json:"trigger"`
	Skipped          bool   `json:"skipped"`
	NextRun          string `json:"next_run,omitempty"`
	Attempts         int    `json:"attempts"`
	WindowFrom       string `json:"window_from,omitempty"`
	WindowTo         string `json:"window_to,omitempty"`
	Receipts         int    `json:"receipts"`
	LineItems        int    `json:"line_items"`
	SalesRows        int    `json:"sales_rows"`
	InventoryRows    int    `json:"inventory_rows"`
	InventorySkipped bool   `json:"inventory_skipped"`
	Warnings         int    `json:"warnings"`
	DurationMS       int64  `json:"duration_ms"`
}

// SyncFailure is the error detail of a failed run.
type SyncFailure struct {
	Error   string      `json:"error"`
	Summary SyncSummary `json:"summary"`
}
