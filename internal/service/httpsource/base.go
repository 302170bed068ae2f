package httpsource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	domrepo "GammaDesk/internal/domain/repository"
	xhttp "GammaDesk/pkg/http"

	"github.com/sony/gobreaker"
)

var retryBackoff = 200 * time.Millisecond

// Base provides a DRY foundation for market-data HTTP clients.
// It centralizes client construction, JSON GET handling, retries and call metrics.
type Base struct {
	name    string
	baseURL string
	client  *xhttp.Client
	metrics domrepo.Metrics
}

// Options configures a Base.
type Options struct {
	Name    string
	BaseURL string
	Timeout time.Duration
	RPS     float64
	Burst   int
	Breaker *xhttp.BreakerConfig
	Headers map[string]string
	Metrics domrepo.Metrics
}

// New builds an HTTP client with timeout, rate limit, breaker and static headers.
func New(o Options) *Base {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := []xhttp.ClientOption{
		xhttp.WithTimeout(timeout),
		xhttp.WithRateLimit(o.RPS, o.Burst),
		xhttp.WithHeader("User-Agent", "Mozilla/5.0 (compatible; GammaDesk/1.0)"),
		xhttp.WithHeader("Accept", "application/json"),
	}
	for k, v := range o.Headers {
		opts = append(opts, xhttp.WithHeader(k, v))
	}
	if o.Breaker != nil {
		opts = append(opts, xhttp.WithBreaker(o.Name, *o.Breaker))
	}
	m := o.Metrics
	if m == nil {
		m = domrepo.NopMetrics{}
	}
	return &Base{
		name:    o.Name,
		baseURL: o.BaseURL,
		client:  xhttp.NewClient(opts...),
		metrics: m,
	}
}

// Name returns the source name used in logs and metrics.
func (b *Base) Name() string { return b.name }

// Metrics returns the recorder passed at construction.
func (b *Base) Metrics() domrepo.Metrics { return b.metrics }

// GetJSON issues GET baseURL+path with query params and decodes JSON into dest.
func (b *Base) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("%s http client not initialized", b.name)
	}
	start := time.Now()
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         b.baseURL + path,
		QueryParams: query,
	}, dest)
	b.metrics.RecordSourceCall(b.name, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}

// GetJSONWithRetry retries transient failures (transport errors and 5xx) up to attempts times.
func (b *Base) GetJSONWithRetry(ctx context.Context, path string, query map[string][]string, dest interface{}, attempts int) error {
	if attempts <= 1 {
		return b.GetJSON(ctx, path, query, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.GetJSON(ctx, path, query, dest)
		if err == nil || !Transient(err) {
			return err
		}
		select {
		case <-time.After(time.Duration(i) * retryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Transient reports whether err is worth retrying. Cancellation, an expired deadline
// and a breaker that rejects the call are final.
func Transient(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return true
}
