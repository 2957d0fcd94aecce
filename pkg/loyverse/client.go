package loyverse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/nospicy/possync/pkg/errors"
)

const (
	DefaultBaseURL = "https://api.loyverse.com/v1.0"
	// PageLimit is the largest page size the API accepts.
	PageLimit = 250

	defaultTimeout             = 30 * time.Second
	requestBodyReadLimit int64 = 1024
)

var errTokenRequired = errors.New("loyverse api token is required")

// RequestObserver is notified once per upstream request. status is 0 when no
// response was received.
type RequestObserver func(resource string, status int)

// Client issues authenticated GET requests against the Loyverse REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	pageLimit  int
	timeout    time.Duration
	observe    RequestObserver
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout bounds every request so a hung call fails as a transient error.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithPageLimit lowers the page size. Values outside 1..PageLimit are ignored.
func WithPageLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 && limit <= PageLimit {
			c.pageLimit = limit
		}
	}
}

func WithRequestObserver(fn RequestObserver) Option {
	return func(c *Client) {
		c.observe = fn
	}
}

// NewClient builds a client authenticated with the given access token.
func NewClient(token string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, errTokenRequired
	}

	client := &Client{
		token:      trimmed,
		baseURL:    DefaultBaseURL,
		pageLimit:  PageLimit,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.timeout > 0 {
		hc := *client.httpClient
		hc.Timeout = client.timeout
		client.httpClient = &hc
	}
	return client, nil
}

// RequestError describes a non-2xx answer from the API.
type RequestError struct {
	Resource   string
	StatusCode int
	Status     string
	Body       string
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("loyverse %s: %s", e.Resource, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// HTTPStatusCode exposes the upstream status to error dumps.
func (e *RequestError) HTTPStatusCode() int {
	return e.StatusCode
}

// get performs one request and returns the open body on success. The caller
// closes it.
func (c *Client) get(ctx context.Context, resource string, params url.Values) (io.ReadCloser, error) {
	endpoint := c.buildURL(resource)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+resource+" request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.notify(resource, 0)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+resource+" request")
	}
	c.notify(resource, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, classifyStatus(&RequestError{
			Resource:   resource,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(msg)),
		})
	}
	return resp.Body, nil
}

func classifyStatus(reqErr *RequestError) error {
	switch reqErr.StatusCode {
	case http.StatusUnauthorized:
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, reqErr, "loyverse rejected the access token")
	case http.StatusTooManyRequests:
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, reqErr, "loyverse rate limit reached")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, reqErr, "loyverse request failed")
	}
}

func (c *Client) notify(resource string, status int) {
	if c.observe != nil {
		c.observe(resource, status)
	}
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
