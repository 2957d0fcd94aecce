package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nospicy/possync/internal/inventory"
	"github.com/nospicy/possync/internal/reference"
	"github.com/nospicy/possync/internal/report"
	"github.com/nospicy/possync/internal/runlog"
	"github.com/nospicy/possync/internal/sales"
	"github.com/nospicy/possync/internal/schedule"
	"github.com/nospicy/possync/pkg/config"
	pkgerrors "github.com/nospicy/possync/pkg/errors"
	"github.com/nospicy/possync/pkg/loyverse"
	"github.com/nospicy/possync/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ict = time.FixedZone("ICT", 7*60*60)

var apiPages = map[string]string{
	"/v1.0/categories": `{"categories":[{"id":"c1","name":"Drinks"}],"cursor":null}`,
	"/v1.0/items": `{"items":[
		{"id":"cola","handle":"cola","item_name":"Cola","category_id":"c1","track_stock":true,
		 "variants":[{"variant_id":"v1","sku":"10001","cost":0.4,"default_price":1.5,"stores":[{"store_id":"s1","price":1.5,"available_for_sale":true}]}]},
		{"id":"fee","item_name":"Service fee","variants":[]}],"cursor":null}`,
	"/v1.0/receipts": `{"receipts":[{"receipt_number":"1-1001","receipt_date":"2024-03-10T07:00:00Z",
		"line_items":[{"item_id":"cola","item_name":"Cola","quantity":2,"price":1.5,"total_discount":0},
		              {"item_id":"gone","item_name":"Old stock","quantity":1,"price":3,"total_discount":0.5}],
		"payments":[{"type":"CASH","name":"Cash"}]}],"cursor":null}`,
	"/v1.0/suppliers": `{"suppliers":[],"cursor":null}`,
	"/v1.0/stores":    `{"stores":[{"id":"s1","name":"Main"}],"cursor":null}`,
	"/v1.0/inventory": `{"inventory_levels":[{"variant_id":"v1","store_id":"s1","in_stock":12}],"cursor":null}`,
}

// fakeAPI serves apiPages; failures maps a path to the statuses returned on
// its successive calls before it starts answering normally.
type fakeAPI struct {
	mu       sync.Mutex
	failures map[string][]int
	calls    map[string]int
}

func (f *fakeAPI) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	path := req.URL.Path
	f.calls[path]++
	if queue := f.failures[path]; len(queue) > 0 {
		f.failures[path] = queue[1:]
		return respond(queue[0], `{"errors":[]}`), nil
	}
	return respond(http.StatusOK, apiPages[path]), nil
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

// sheetStore serves both the report writer and the log sink.
type sheetStore struct {
	ids   map[string]int64
	cells map[string][][]any
}

func newSheetStore() *sheetStore {
	return &sheetStore{ids: map[string]int64{}, cells: map[string][][]any{}}
}

func (s *sheetStore) EnsureSheet(_ context.Context, title string) (int64, bool, error) {
	if id, ok := s.ids[title]; ok {
		return id, false, nil
	}
	s.ids[title] = int64(len(s.ids))
	return s.ids[title], true, nil
}

func (s *sheetStore) Clear(_ context.Context, title string) error {
	s.cells[title] = nil
	return nil
}

func (s *sheetStore) WriteHeader(_ context.Context, title string, header []string) error {
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	if len(s.cells[title]) == 0 {
		s.cells[title] = [][]any{row}
		return nil
	}
	s.cells[title][0] = row
	return nil
}

func (s *sheetStore) WriteRows(_ context.Context, title string, rows [][]any) error {
	body := s.cells[title]
	if len(body) == 0 {
		body = [][]any{nil}
	}
	s.cells[title] = append(body[:1], rows...)
	return nil
}

func (s *sheetStore) AppendRows(_ context.Context, title string, rows [][]any) error {
	s.cells[title] = append(s.cells[title], rows...)
	return nil
}

func (s *sheetStore) ReadRange(_ context.Context, title, _ string) ([][]any, error) {
	if len(s.cells[title]) == 0 {
		return nil, nil
	}
	return [][]any{{s.cells[title][0][0]}}, nil
}

func (s *sheetStore) FormatNumberColumns(context.Context, int64, []int, int, string) error {
	return nil
}

// logRows returns the log sheet without its header.
func (s *sheetStore) logRows() [][]any {
	rows := s.cells["Logs"]
	if len(rows) == 0 {
		return nil
	}
	return rows[1:]
}

type harness struct {
	api      *fakeAPI
	store    *sheetStore
	sleeps   []time.Duration
	pipeline *Pipeline
	registry *prometheus.Registry
}

type harnessOpts struct {
	hour          int
	inventoryHour int
	failures      map[string][]int
	maxAttempts   int
	sleep         func(ctx context.Context, d time.Duration) error
}

func newHarness(t *testing.T, opts harnessOpts) *harness {
	t.Helper()
	h := &harness{api: &fakeAPI{failures: opts.failures}, store: newSheetStore(), registry: prometheus.NewRegistry()}

	client, err := loyverse.NewClient("token", loyverse.WithBaseURL("http://loyverse.test/v1.0"), loyverse.WithHTTPClient(&http.Client{Transport: h.api}))
	require.NoError(t, err)

	gate, err := schedule.NewWindow(ict, 13, 1)
	require.NoError(t, err)
	now := func() time.Time { return time.Date(2024, 3, 10, opts.hour, 0, 0, 0, ict) }
	invHour := opts.inventoryHour
	if invHour == 0 {
		invHour = opts.hour
	}

	joiner, err := reference.NewJoiner(client, nil)
	require.NoError(t, err)
	salesEx, err := sales.NewExtractor(joiner, client, nil)
	require.NoError(t, err)
	invEx, err := inventory.NewExtractor(inventory.ExtractorParams{
		Source: client,
		Gate:   gate,
		Now:    func() time.Time { return time.Date(2024, 3, 10, invHour, 0, 0, 0, ict) },
	})
	require.NoError(t, err)
	writer, err := report.NewWriter(report.WriterParams{Store: h.store, SalesSheet: "Sales", StockSheet: "Stock", Location: ict})
	require.NoError(t, err)
	logSink, err := runlog.NewSheetSink(h.store, "Logs", ict)
	require.NoError(t, err)
	window, err := sales.NewWindowPolicy(config.WindowTrailingMonths, 1, time.Time{}, ict)
	require.NoError(t, err)

	sleep := opts.sleep
	if sleep == nil {
		sleep = func(_ context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		}
	}

	h.pipeline, err = New(Params{
		Gate:        gate,
		Window:      window,
		Sales:       salesEx,
		Inventory:   invEx,
		Writer:      writer,
		LogSinks:    []runlog.Sink{logSink},
		Metrics:     metrics.NewSyncMetrics(h.registry),
		Location:    ict,
		MaxAttempts: opts.maxAttempts,
		RetryDelay:  5 * time.Minute,
		Now:         now,
		Sleep:       sleep,
	})
	require.NoError(t, err)
	return h
}

func TestRunSkipsOutsideWindow(t *testing.T) {
	h := newHarness(t, harnessOpts{hour: 9})

	res, err := h.pipeline.Run(context.Background(), runlog.TriggerCron)
	require.NoError(t, err)

	assert.True(t, res.Skipped)
	assert.True(t, time.Date(2024, 3, 10, 13, 0, 0, 0, ict).Equal(res.NextRun))
	assert.Zero(t, res.Attempts)
	assert.Empty(t, h.store.cells, "a skipped run writes nothing, not even a log row")
	assert.Zero(t, h.api.count("/v1.0/receipts"))
}

func TestRunWritesReportsAndSuccessRow(t *testing.T) {
	h := newHarness(t, harnessOpts{hour: 15})

	res, err := h.pipeline.Run(context.Background(), runlog.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, res.Receipts)
	assert.Equal(t, 2, res.LineItems)
	assert.Equal(t, 2, res.SalesRows)
	assert.Equal(t, 1, res.InventoryRows)
	assert.Equal(t, 1, res.Warnings, "the item without variants is reported")

	salesRows := h.store.cells["Sales"]
	require.Len(t, salesRows, 3)
	assert.Equal(t, "Drinks", salesRows[1][6])
	assert.Equal(t, reference.Uncategorized, salesRows[2][6])

	stockRows := h.store.cells["Stock"]
	require.Len(t, stockRows, 2)
	assert.Equal(t, 12.0, stockRows[1][4])
	assert.Equal(t, 4.8, stockRows[1][7])

	logs := h.store.logRows()
	require.Len(t, logs, 1)
	assert.Equal(t, "manual", logs[0][2])
	assert.Equal(t, "success", logs[0][3])
	assert.Equal(t, "-", logs[0][10])
}

func TestRunAuthorizationFailureIsFatalWithoutRetry(t *testing.T) {
	h := newHarness(t, harnessOpts{hour: 15, failures: map[string][]int{"/v1.0/categories": {http.StatusUnauthorized}}})

	res, err := h.pipeline.Run(context.Background(), runlog.TriggerCron)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrFatal)
	assert.True(t, IsHalt(err))
	assert.True(t, pkgerrors.IsAuthorization(err))
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, h.sleeps, "authorization failures are never retried")
	assert.Equal(t, 1, h.api.count("/v1.0/categories"))

	logs := h.store.logRows()
	require.Len(t, logs, 1)
	assert.Equal(t, "error", logs[0][3])
	assert.Contains(t, logs[0][10], "UNAUTHORIZED")
}

func TestRunExhaustsRetriesOnRepeatedUnavailable(t *testing.T) {
	unavailable := []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable}
	h := newHarness(t, harnessOpts{hour: 15, maxAttempts: 3, failures: map[string][]int{"/v1.0/receipts": unavailable}})

	res, err := h.pipeline.Run(context.Background(), runlog.TriggerCron)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.False(t, errors.Is(err, ErrFatal))
	assert.True(t, IsHalt(err))
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, h.api.count("/v1.0/receipts"))
	assert.Equal(t, []time.Duration{5 * time.Minute, 5 * time.Minute}, h.sleeps)

	logs := h.store.logRows()
	require.Len(t, logs, 1, "retried attempts write no log rows")
	assert.Equal(t, "error", logs[0][3])
	assert.Empty(t, h.store.cells["Sales"])
}

func TestRunRecoversAfterTransientFailure(t *testing.T) {
	h := newHarness(t, harnessOpts{hour: 15, failures: map[string][]int{"/v1.0/stores": {http.StatusTooManyRequests}}})

	res, err := h.pipeline.Run(context.Background(), runlog.TriggerCron)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Attempts)
	assert.Len(t, h.sleeps, 1)
	logs := h.store.logRows()
	require.Len(t, logs, 1)
	assert.Equal(t, "success", logs[0][3])
	assert.Len(t, h.store.cells["Sales"], 3, "sales sheet is replaced, not duplicated, by the retry")
}

func TestRunCanceledDuringRetryDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHarness(t, harnessOpts{
		hour:     15,
		failures: map[string][]int{"/v1.0/receipts": {http.StatusBadGateway}},
		sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	})

	_, err := h.pipeline.Run(ctx, runlog.TriggerCron)
	require.ErrorIs(t, err, context.Canceled)

	logs := h.store.logRows()
	require.Len(t, logs, 1)
	assert.Equal(t, "error", logs[0][3])
}

func TestRunSingleAttemptCopy(t *testing.T) {
	h := newHarness(t, harnessOpts{hour: 15, failures: map[string][]int{"/v1.0/receipts": {http.StatusServiceUnavailable}}})

	res, err := h.pipeline.WithMaxAttempts(1).Run(context.Background(), runlog.TriggerAPI)
	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, h.sleeps)
}

func TestRunLeavesStockSheetWhenInventoryGateCloses(t *testing.T) {
	h := newHarness(t, harnessOpts{hour: 0, inventoryHour: 1})

	res, err := h.pipeline.Run(context.Background(), runlog.TriggerCron)
	require.NoError(t, err)

	assert.True(t, res.InventorySkipped)
	assert.NotContains(t, h.store.cells, "Stock")
	assert.Zero(t, h.api.count("/v1.0/inventory"))
	require.Len(t, h.store.logRows(), 1)
}

func TestRunRecordsMetrics(t *testing.T) {
	h := newHarness(t, harnessOpts{hour: 15})

	_, err := h.pipeline.Run(context.Background(), runlog.TriggerCron)
	require.NoError(t, err)

	mfs, err := h.registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["possync_runs_total"])
	assert.True(t, names["possync_rows_written_total"])
	assert.True(t, names["possync_attempts_total"])
}

func TestJobAdapter(t *testing.T) {
	h := newHarness(t, harnessOpts{hour: 15})
	job := NewJob(h.pipeline, runlog.TriggerCron)

	assert.Equal(t, "pos-sync", job.Name())
	require.NoError(t, job.Run(context.Background()))
	logs := h.store.logRows()
	require.Len(t, logs, 1)
	assert.Equal(t, "cron", logs[0][2])
}

func TestIsHaltIgnoresOtherErrors(t *testing.T) {
	assert.False(t, IsHalt(nil))
	assert.False(t, IsHalt(context.Canceled))
	assert.False(t, IsHalt(errors.New("sheet busy")))
}

func TestNewValidatesParams(t *testing.T) {
	_, err := New(Params{})
	assert.Error(t, err)
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
