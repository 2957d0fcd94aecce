package loyverse

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/nospicy/possync/pkg/errors"
)

func TestFetchAllFollowsCursorInOrder(t *testing.T) {
	pages := map[string]string{
		"":   `{"categories":[{"id":"c1","name":"Drinks"}],"cursor":"p2"}`,
		"p2": `{"categories":[{"id":"c2","name":"Food"}],"cursor":"p3"}`,
		"p3": `{"categories":[{"id":"c3","name":"Snacks"}],"cursor":null}`,
	}

	var cursors []string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Authorization") != "Bearer secret" {
			t.Fatalf("missing bearer token")
		}
		if got := req.URL.Query().Get("limit"); got != "250" {
			t.Fatalf("expected limit=250, got %q", got)
		}
		cursor := req.URL.Query().Get("cursor")
		cursors = append(cursors, cursor)
		return jsonResponse(http.StatusOK, pages[cursor]), nil
	})

	client := newTestClient(t, rt)
	got, err := client.Categories(context.Background())
	if err != nil {
		t.Fatalf("categories: %v", err)
	}

	if len(cursors) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(cursors))
	}
	if cursors[0] != "" || cursors[1] != "p2" || cursors[2] != "p3" {
		t.Fatalf("unexpected cursor sequence %v", cursors)
	}
	if len(got) != 3 || got[0].Name != "Drinks" || got[1].Name != "Food" || got[2].Name != "Snacks" {
		t.Fatalf("unexpected categories %+v", got)
	}
}

func TestFetchAllStopsOnMissingOrEmptyCursor(t *testing.T) {
	for name, body := range map[string]string{
		"missing": `{"stores":[{"id":"s1","name":"Main"}]}`,
		"empty":   `{"stores":[{"id":"s1","name":"Main"}],"cursor":""}`,
	} {
		t.Run(name, func(t *testing.T) {
			calls := 0
			rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
				calls++
				return jsonResponse(http.StatusOK, body), nil
			})

			stores, err := newTestClient(t, rt).Stores(context.Background())
			if err != nil {
				t.Fatalf("stores: %v", err)
			}
			if calls != 1 || len(stores) != 1 {
				t.Fatalf("expected one call and one store, got %d calls %d stores", calls, len(stores))
			}
		})
	}
}

func TestFetchAllFailsOnRepeatedCursor(t *testing.T) {
	pages := map[string]string{
		"":   `{"items":[{"id":"i1"}],"cursor":"p2"}`,
		"p2": `{"items":[{"id":"i2"}],"cursor":"p3"}`,
		"p3": `{"items":[{"id":"i3"}],"cursor":"p2"}`,
	}
	calls := 0
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls > 10 {
			t.Fatalf("fetch kept following a cursor cycle")
		}
		return jsonResponse(http.StatusOK, pages[req.URL.Query().Get("cursor")]), nil
	})

	items, err := newTestClient(t, rt).Items(context.Background())
	if err == nil {
		t.Fatal("expected error for a repeated cursor")
	}
	if items != nil {
		t.Fatalf("expected no partial result, got %+v", items)
	}
	if calls != 3 {
		t.Fatalf("expected 3 requests before the cycle was detected, got %d", calls)
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !strings.Contains(err.Error(), `"p2"`) {
		t.Fatalf("expected the repeated cursor in the error, got %v", err)
	}
}

func TestFetchAllUnauthorizedIsAuthorizationFailure(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"errors":[{"code":"UNAUTHORIZED"}]}`), nil
	})

	_, err := newTestClient(t, rt).Categories(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !pkgerrors.IsAuthorization(err) {
		t.Fatalf("expected authorization failure, got %v", err)
	}
	if pkgerrors.IsRetryable(err) {
		t.Fatal("authorization failures must not be retryable")
	}
}

func TestFetchAllDiscardsPagesOnLaterFailure(t *testing.T) {
	calls := 0
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return jsonResponse(http.StatusOK, `{"items":[{"id":"i1"}],"cursor":"next"}`), nil
		}
		return jsonResponse(http.StatusServiceUnavailable, "upstream down"), nil
	})

	items, err := newTestClient(t, rt).Items(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if items != nil {
		t.Fatalf("expected no partial result, got %+v", items)
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %T", err)
	}
	if reqErr.StatusCode != http.StatusServiceUnavailable || reqErr.Resource != "items" {
		t.Fatalf("unexpected request error %+v", reqErr)
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency || !pkgerrors.IsRetryable(err) {
		t.Fatalf("expected retryable dependency error, got %v", err)
	}
}

func TestFetchAllRateLimit(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, ""), nil
	})

	_, err := newTestClient(t, rt).Suppliers(context.Background())
	if pkgerrors.As(err).Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit code, got %v", err)
	}
}

func TestFetchAllTransportFailureIsRetryable(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset")
	})

	var observed []int
	client, err := NewClient("secret",
		WithBaseURL("http://loyverse.test/v1.0"),
		WithHTTPClient(&http.Client{Transport: rt}),
		WithRequestObserver(func(resource string, status int) { observed = append(observed, status) }),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Stores(context.Background())
	if !pkgerrors.IsRetryable(err) || pkgerrors.IsAuthorization(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if len(observed) != 1 || observed[0] != 0 {
		t.Fatalf("expected one observed failure, got %v", observed)
	}
}

func TestReceiptsSendsWindowAndDecodesMoney(t *testing.T) {
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	body := `{"receipts":[{"receipt_number":"1-1001","receipt_date":"2024-05-03T10:00:00.000Z","cancelled_at":null,
		"line_items":[{"item_id":"i1","item_name":"Cola","quantity":2,"price":1.5,"total_discount":0.5,"sku":"10001"}],
		"payments":[{"type":"CASH","name":"Cash"}]}],"cursor":null}`

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1.0/receipts" {
			t.Fatalf("unexpected path %q", req.URL.Path)
		}
		q := req.URL.Query()
		if q.Get("created_at_min") != "2024-05-01T00:00:00Z" || q.Get("created_at_max") != "2024-06-01T00:00:00Z" {
			t.Fatalf("unexpected window %v", q)
		}
		return jsonResponse(http.StatusOK, body), nil
	})

	receipts, err := newTestClient(t, rt).Receipts(context.Background(), from, to)
	if err != nil {
		t.Fatalf("receipts: %v", err)
	}
	if len(receipts) != 1 || len(receipts[0].LineItems) != 1 {
		t.Fatalf("unexpected receipts %+v", receipts)
	}
	if receipts[0].Cancelled() {
		t.Fatal("receipt should not be cancelled")
	}
	if got := receipts[0].LineItems[0].NetAmount().String(); got != "2.5" {
		t.Fatalf("expected net amount 2.5, got %s", got)
	}
	if receipts[0].Payments[0].DisplayName() != "Cash" {
		t.Fatalf("unexpected payment name %q", receipts[0].Payments[0].DisplayName())
	}
}

func TestInventoryLevelsFiltersByStore(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("store_id") != "s1" {
			t.Fatalf("missing store filter")
		}
		return jsonResponse(http.StatusOK, `{"inventory_levels":[{"variant_id":"v1","store_id":"s1","in_stock":7}],"cursor":null}`), nil
	})

	levels, err := newTestClient(t, rt).InventoryLevels(context.Background(), "s1")
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if len(levels) != 1 || levels[0].InStock.IntPart() != 7 {
		t.Fatalf("unexpected levels %+v", levels)
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error for blank token")
	}
}

func newTestClient(t *testing.T, rt http.RoundTripper) *Client {
	t.Helper()
	client, err := NewClient("secret", WithBaseURL("http://loyverse.test/v1.0"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
