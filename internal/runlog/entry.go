package runlog

import (
	"time"

	"cloud.google.com/go/bigquery"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"

	timestampLayout = "02.01.2006 15:04:05"
	noError         = "-"
)

// Header is the first row of the log sheet.
var Header = []string{
	"Timestamp",
	"Run ID",
	"Trigger",
	"Outcome",
	"Receipts",
	"Line items",
	"Inventory rows",
	"Window from",
	"Window to",
	"Duration (s)",
	"Error",
}

// Entry is one audit record of a pipeline run.
type Entry struct {
	RunID           string
	StartedAt       time.Time
	Trigger         string
	Outcome         string
	Receipts        int
	LineItems       int
	InventoryRows   int
	WindowFrom      time.Time
	WindowTo        time.Time
	DurationSeconds int64
	Error           string
}

// Row renders the entry in Header order with times shown in loc.
func (e Entry) Row(loc *time.Location) []any {
	return []any{
		formatTime(e.StartedAt, loc),
		e.RunID,
		e.Trigger,
		e.Outcome,
		e.Receipts,
		e.LineItems,
		e.InventoryRows,
		formatTime(e.WindowFrom, loc),
		formatTime(e.WindowTo, loc),
		e.DurationSeconds,
		e.Error,
	}
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return noError
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(timestampLayout)
}

// Save implements bigquery.ValueSaver. The run id doubles as the insert id so
// a retried insert does not duplicate the row.
func (e Entry) Save() (map[string]bigquery.Value, string, error) {
	row := map[string]bigquery.Value{
		"run_id":           e.RunID,
		"started_at":       e.StartedAt.UTC(),
		"trigger":          e.Trigger,
		"outcome":          e.Outcome,
		"receipts":         e.Receipts,
		"line_items":       e.LineItems,
		"inventory_rows":   e.InventoryRows,
		"duration_seconds": e.DurationSeconds,
		"error":            e.Error,
	}
	if !e.WindowFrom.IsZero() {
		row["window_from"] = e.WindowFrom.UTC()
	}
	if !e.WindowTo.IsZero() {
		row["window_to"] = e.WindowTo.UTC()
	}
	return row, e.RunID, nil
}
