package fetcher

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Observer is notified once per HTTP attempt. status is 0 on transport errors.
type Observer func(host string, status int, elapsed time.Duration)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// MaxRetries is the total number of attempts. 1 disables retrying.
	MaxRetries int
	// RateLimit is the initial per-host request rate; Burst its bucket size.
	RateLimit   rate.Limit
	Burst       int
	BackoffBase time.Duration
	Observer    Observer
	// BreakerThreshold enables a per-host circuit breaker opening after that
	// many consecutive failed requests. 0 disables it.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	initialRate rate.Limit
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		initialRate: initialRate,
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = min(a.currentRate*1.2, a.maxRate)
	a.limiter.SetLimit(a.currentRate)
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = max(a.currentRate*0.5, a.minRate)
	a.limiter.SetLimit(a.currentRate)
	zap.L().Warn("adaptive rate limit: reducing rate after 429",
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher implements Fetcher using net/http with per-host rate limiting
// and optional retry.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
	breakers map[string]*Breaker
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "smartmap/1.0"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20
	}
	if opts.Burst <= 0 {
		opts.Burst = int(math.Ceil(float64(opts.RateLimit)))
	}
	if opts.BackoffBase == 0 {
		opts.BackoffBase = time.Second
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: make(map[string]*AdaptiveLimiter),
		breakers: make(map[string]*Breaker),
	}
}

// Breaker returns the circuit breaker of host, or nil when breaking is
// disabled.
func (f *HTTPFetcher) Breaker(host string) *Breaker {
	if f.opts.BreakerThreshold <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	br, ok := f.breakers[host]
	if !ok {
		br = NewBreaker(host, f.opts.BreakerThreshold, f.opts.BreakerCooldown)
		f.breakers[host] = br
	}
	return br
}

// Limiter returns the limiter of host, creating it on first use.
func (f *HTTPFetcher) Limiter(host string) *AdaptiveLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = NewAdaptiveLimiter(f.opts.RateLimit, f.opts.Burst)
		f.limiters[host] = lim
	}
	return lim
}

func (f *HTTPFetcher) observe(host string, status int, start time.Time) {
	if f.opts.Observer != nil {
		f.opts.Observer(host, status, time.Since(start))
	}
}

// Do sends req, retrying transport failures, 429 and 5xx responses up to
// MaxRetries attempts. Other statuses are returned to the caller as is. The
// request body, if any, must support GetBody.
func (f *HTTPFetcher) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	br := f.Breaker(req.URL.Host)
	if br == nil {
		return f.do(ctx, req)
	}
	if err := br.Allow(); err != nil {
		return nil, eris.Wrapf(err, "http: %s", req.URL.Host)
	}
	resp, err := f.do(ctx, req)
	br.Record((err != nil && ctx.Err() == nil) || (resp != nil && resp.StatusCode >= 500))
	return resp, err
}

func (f *HTTPFetcher) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	host := req.URL.Host
	adaptive := f.Limiter(host)

	var lastErr error
	for attempt := range f.opts.MaxRetries {
		if attempt > 0 {
			f.backoff(ctx, attempt-1)
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "http: cancelled")
			}
		}
		if err := adaptive.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		cloned := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, eris.Wrap(err, "http: rewind body")
			}
			cloned.Body = body
		}

		start := time.Now()
		resp, err := f.client.Do(cloned)
		if err != nil {
			f.observe(host, 0, start)
			lastErr = err
			zap.L().Warn("http request failed",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}
		f.observe(host, resp.StatusCode, start)

		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http 429 from %s", req.URL.String())
			adaptive.OnRateLimit()
			continue
		}

		if resp.StatusCode >= 500 && attempt+1 < f.opts.MaxRetries {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, req.URL.String())
			zap.L().Warn("server error, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			continue
		}

		adaptive.OnSuccess()
		return resp, nil
	}

	if f.opts.MaxRetries == 1 {
		return nil, eris.Wrap(lastErr, "http request")
	}
	return nil, eris.Wrap(lastErr, "all retries exhausted")
}

func (f *HTTPFetcher) backoff(ctx context.Context, attempt int) {
	maxBackoff := 30 * time.Second
	d := time.Duration(float64(f.opts.BackoffBase) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Download fetches the URL and returns the response body. Any status other
// than 200 is an error.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Do(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "download")
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	return resp.Body, nil
}

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return "download: unexpected status " + strconv.Itoa(e.StatusCode) + " from " + e.URL
}
