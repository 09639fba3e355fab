// Package fetch retrieves remote pages and feeds over HTTP with a shared
// rate limit and a response size cap.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/feedbridge/errors"
	"github.com/c360/feedbridge/metric"
)

const userAgent = "feedbridge/1.0 (+https://github.com/c360/feedbridge)"

// Config holds fetcher configuration
type Config struct {
	// Timeout bounds each request
	Timeout time.Duration
	// MaxBodyBytes caps how much of a response is read
	MaxBodyBytes int64
	// RequestsPerSecond throttles outbound requests across all workers.
	// Zero disables throttling.
	RequestsPerSecond float64
	// Burst is the rate limiter burst size
	Burst int
}

// DefaultConfig returns the fetcher defaults
func DefaultConfig() Config {
	return Config{
		Timeout:           10 * time.Second,
		MaxBodyBytes:      5 * 1024 * 1024,
		RequestsPerSecond: 10,
		Burst:             5,
	}
}

// Fetcher issues GET requests for discovery and subscription
type Fetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	maxBody    int64
	metrics    *metric.Metrics
}

// New creates a fetcher. A nil metrics recorder disables instrumentation.
func New(cfg Config, metrics *metric.Metrics) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody == 0 {
		maxBody = 5 * 1024 * 1024
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		maxBody:    maxBody,
		metrics:    metrics,
	}
}

// Get retrieves a URL. The kind label ("page" or "feed") tags the request
// in metrics.
func (f *Fetcher) Get(ctx context.Context, url, kind string) ([]byte, error) {
	if url == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("url cannot be empty"), "fetch", "Get", "validate url")
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, errors.WrapTransient(err, "fetch", "Get", "rate limit wait")
		}
	}

	start := time.Now()
	body, err := f.get(ctx, url)
	if f.metrics != nil {
		f.metrics.RecordFetch(kind, err, time.Since(start))
	}
	return body, err
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapInvalid(err, "fetch", "Get", "build request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, errors.WrapTransient(err, "fetch", "Get", "request "+url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %s returned %d", errors.ErrFetchFailed, url, resp.StatusCode),
			"fetch", "Get", "request "+url)
	}

	// Read one byte past the cap to detect oversize responses
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, errors.WrapTransient(err, "fetch", "Get", "read body")
	}
	if int64(len(body)) > f.maxBody {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s exceeds %d bytes", errors.ErrResponseTooLarge, url, f.maxBody),
			"fetch", "Get", "read body")
	}

	return body, nil
}
