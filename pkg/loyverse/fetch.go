package loyverse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	pkgerrors "github.com/nospicy/possync/pkg/errors"
)

// FetchAll follows the cursor chain of a collection endpoint and returns every
// element of the key array across all pages, in order. A failure on any page
// discards what was accumulated, as does a cursor the upstream already returned.
func FetchAll[T any](ctx context.Context, c *Client, resource, key string, params url.Values) ([]T, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "loyverse client not configured")
	}

	var (
		out    []T
		cursor string
		seen   = map[string]struct{}{}
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		query := url.Values{}
		for k, vs := range params {
			query[k] = append([]string(nil), vs...)
		}
		query.Set("limit", strconv.Itoa(c.pageLimit))
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		page, next, err := fetchPage[T](ctx, c, resource, key, query)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)

		if next == "" {
			return out, nil
		}
		if _, dup := seen[next]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("%s returned cursor %q twice", resource, next))
		}
		seen[next] = struct{}{}
		cursor = next
	}
}

func fetchPage[T any](ctx context.Context, c *Client, resource, key string, query url.Values) ([]T, string, error) {
	body, err := c.get(ctx, resource, query)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = body.Close() }()

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+resource+" page")
	}

	var items []T
	if data, ok := raw[key]; ok && len(data) > 0 {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s.%s", resource, key))
		}
	}

	var cursor *string
	if data, ok := raw["cursor"]; ok && len(data) > 0 {
		if err := json.Unmarshal(data, &cursor); err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+resource+" cursor")
		}
	}
	if cursor == nil {
		return items, "", nil
	}
	return items, *cursor, nil
}
