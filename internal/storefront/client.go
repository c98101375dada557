package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/cart-session/internal/domain"
	"github.com/fjod/go_cart/cart-session/internal/metrics"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrStockNotFound   = errors.New("stock not found")
)

// HTTPError is returned for any non-2xx answer that is not a 404.
type HTTPError struct {
	StatusCode int
	Path       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("storefront: %s returned status %d", e.Path, e.StatusCode)
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithBreakerSettings overrides the circuit breaker tuning. Name is always kept.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(c *Client) {
		c.breakerSettings = st
	}
}

// Client talks to the storefront API serving /products/{id} and /stock/{id}.
// It satisfies both the product catalog and the stock service the cart needs.
type Client struct {
	baseURL         *url.URL
	httpClient      *http.Client
	metrics         *metrics.Metrics
	breakerSettings gobreaker.Settings
	breaker         *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("storefront: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("storefront: invalid base URL: %w", err)
	}

	c := &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breakerSettings: gobreaker.Settings{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breakerSettings.Name = "storefront"
	// a missing product is an answer, not an outage; neither is a caller that gave up
	c.breakerSettings.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, errNotFound) || errors.Is(err, errCallerDone)
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](c.breakerSettings)
	return c, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	var product domain.Product

	body, err := c.get(ctx, "products", "/products/"+strconv.FormatInt(id, 10))
	if errors.Is(err, errNotFound) {
		return product, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	if err != nil {
		return product, err
	}

	if err := json.Unmarshal(body, &product); err != nil {
		return product, fmt.Errorf("storefront: decode product: %w", err)
	}
	return product, nil
}

func (c *Client) GetStock(ctx context.Context, id int64) (domain.Stock, error) {
	var stock domain.Stock

	body, err := c.get(ctx, "stock", "/stock/"+strconv.FormatInt(id, 10))
	if errors.Is(err, errNotFound) {
		return stock, fmt.Errorf("%w: id %d", ErrStockNotFound, id)
	}
	if err != nil {
		return stock, err
	}

	if err := json.Unmarshal(body, &stock); err != nil {
		return stock, fmt.Errorf("storefront: decode stock: %w", err)
	}
	return stock, nil
}

var (
	errNotFound   = errors.New("not found")
	errCallerDone = errors.New("caller context done")
)

func (c *Client) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	started := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		body, err := c.do(ctx, path)
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errCallerDone, err)
		}
		return body, err
	})
	c.metrics.ObserveLookup(endpoint, started, err)
	if err != nil && !errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("storefront: get %s: %w", path, err)
	}
	return body, err
}

func (c *Client) do(ctx context.Context, path string) ([]byte, error) {
	u := c.baseURL.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Path: path}
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return raw, nil
}

func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}
