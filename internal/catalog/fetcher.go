package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"finitefield.org/catalog-web/internal/observability"
)

const (
	defaultProductPath = "/api/product"
	maxPayloadBytes    = 8 << 20
	logPayloadBytes    = 2048
)

// Fetcher retrieves the product collection. Implementations never fail:
// every error degrades to an empty, non-nil slice.
type Fetcher interface {
	FetchProducts(ctx context.Context) []Product
}

// FetcherOption customises a fetcher.
type FetcherOption func(*fetcherOptions)

type fetcherOptions struct {
	logger  *zap.Logger
	client  *http.Client
	timeout time.Duration
}

// WithLogger routes fetch diagnostics to logger.
func WithLogger(logger *zap.Logger) FetcherOption {
	return func(o *fetcherOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHTTPClient overrides the HTTP client. Its transport is used as is.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(o *fetcherOptions) {
		if client != nil {
			o.client = client
		}
	}
}

// WithFetchTimeout bounds each request. Zero leaves the caller's context as
// the only bound.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(o *fetcherOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func buildFetcherOptions(opts []FetcherOption) fetcherOptions {
	o := fetcherOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// HTTPFetcher reads the product collection from the catalog API.
type HTTPFetcher struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewHTTPFetcher builds a fetcher for {baseURL}{productPath}.
func NewHTTPFetcher(baseURL, productPath string, opts ...FetcherOption) (*HTTPFetcher, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("catalog: api base url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("catalog: invalid api base url %q", baseURL)
	}
	path := strings.TrimSpace(productPath)
	if path == "" {
		path = defaultProductPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	o := buildFetcherOptions(opts)
	client := o.client
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &HTTPFetcher{
		endpoint: base + path,
		http:     client,
		timeout:  o.timeout,
		logger:   o.logger.Named("fetcher"),
		tracer:   observability.Tracer("catalog"),
	}, nil
}

// Endpoint returns the resolved product collection URL.
func (f *HTTPFetcher) Endpoint() string {
	return f.endpoint
}

// FetchProducts issues one uncached GET. Any failure yields an empty slice.
func (f *HTTPFetcher) FetchProducts(ctx context.Context) []Product {
	ctx, span := f.tracer.Start(ctx, "catalog.FetchProducts",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("catalog.endpoint", f.endpoint)),
	)
	defer span.End()

	products, err := f.fetch(ctx, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		f.logger.Warn("product fetch failed; rendering empty listing",
			zap.String("endpoint", f.endpoint),
			zap.Error(err),
		)
		return []Product{}
	}
	span.SetAttributes(attribute.Int("catalog.product_count", len(products)))
	return products
}

func (f *HTTPFetcher) fetch(ctx context.Context, span trace.Span) ([]Product, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store, max-age=0")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxPayloadBytes {
		return nil, fmt.Errorf("payload exceeds %d bytes", maxPayloadBytes)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f.logger.Debug("product payload received",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.String("payload", truncate(body, logPayloadBytes)),
	)

	var products []Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return normalizeProducts(products, f.logger), nil
}

func truncate(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) []Product

// FetchProducts calls fn.
func (fn FetcherFunc) FetchProducts(ctx context.Context) []Product {
	if fn == nil {
		return []Product{}
	}
	out := fn(ctx)
	if out == nil {
		return []Product{}
	}
	return out
}
