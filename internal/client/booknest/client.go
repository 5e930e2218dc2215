// Package booknest is an HTTP client for the BookNest catalog API.
package booknest

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xenking/booknest/internal/domain/catalog"
	"github.com/xenking/booknest/pkg/httpmiddleware"
)

const (
	booksPath = "books/books/"
	// maxBodySize caps a single catalog page response.
	maxBodySize = 8 << 20
)

var _ catalog.Source = (*Client)(nil)

// StatusError is returned for non-2xx responses. RequestID matches the
// request_id field of the catalog API's request log.
type StatusError struct {
	Code      int
	URL       string
	RequestID string
}

func (e *StatusError) Error() string {
	msg := "unexpected status " + strconv.Itoa(e.Code) + " from " + e.URL
	if e.RequestID != "" {
		msg += " (request " + e.RequestID + ")"
	}
	return msg
}

// Options configures a Client.
type Options struct {
	HTTPClient     *http.Client
	Timeout        time.Duration
	UserAgent      string
	RPS            float64
	Burst          int
	Logger         *zap.Logger
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

func (o *Options) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = "booknest-storefront/1.0"
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = noop.NewMeterProvider()
	}
	if o.TracerProvider == nil {
		o.TracerProvider = tracenoop.NewTracerProvider()
	}
}

// Client reads the book catalog from a BookNest API server.
type Client struct {
	base      *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	lg        *zap.Logger
}

// New creates a Client for the API rooted at baseURL, e.g.
// "https://api.booknest.uz/api/".
func New(baseURL string, opts Options) (*Client, error) {
	opts.setDefaults()

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	inner := hc.Transport
	if inner == nil {
		inner = http.DefaultTransport
	}
	instrumented := *hc
	instrumented.Transport = otelhttp.NewTransport(inner,
		otelhttp.WithMeterProvider(opts.MeterProvider),
		otelhttp.WithTracerProvider(opts.TracerProvider),
	)

	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}

	return &Client{
		base:      base,
		http:      &instrumented,
		limiter:   rate.NewLimiter(limit, opts.Burst),
		userAgent: opts.UserAgent,
		lg:        opts.Logger,
	}, nil
}

// FetchBooks reads one page of the book list.
func (c *Client) FetchBooks(ctx context.Context, q catalog.Query) (*catalog.RemotePage, error) {
	u := c.booksURL(q)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "wait for rate limiter")
	}

	ctx, requestID := httpmiddleware.EnsureRequestID(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set(httpmiddleware.RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &StatusError{Code: resp.StatusCode, URL: u, RequestID: requestID}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	list, err := DecodeBookList(body)
	if err != nil {
		return nil, errors.Wrap(err, "decode book list")
	}

	c.lg.Debug("Fetched catalog page",
		zap.String("url", u),
		zap.String("request_id", requestID),
		zap.Int("results", len(list.Results)),
		zap.Int("count", list.Count),
		zap.Int("undecodable", len(list.Malformed)),
	)

	return &catalog.RemotePage{
		Records:       list.Results,
		Malformed:     list.Malformed,
		NextPageToken: PageToken(list.Next),
	}, nil
}

func (c *Client) booksURL(q catalog.Query) string {
	u := c.base.JoinPath(booksPath)
	// JoinPath drops the trailing slash the API routes require.
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	params := url.Values{}
	if q.Ordering != "" {
		params.Set("ordering", q.Ordering)
	}
	if q.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.PageToken != "" {
		params.Set("page", q.PageToken)
	}
	u.RawQuery = params.Encode()
	return u.String()
}

// PageToken extracts the page number from a pagination link. It returns an
// empty token for an empty or unparseable link.
func PageToken(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	page := u.Query().Get("page")
	if page == "" {
		// DRF omits page=1 from "previous" links; a "next" link always has it.
		return ""
	}
	if n, err := strconv.Atoi(page); err != nil || n < 1 {
		return ""
	}
	return page
}

// Origin returns the scheme and host of an absolute URL, e.g.
// "https://api.booknest.uz" for "https://api.booknest.uz/api/".
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrap(err, "parse url")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.Errorf("url %q is not absolute", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
