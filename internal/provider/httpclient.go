package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/newthinker/premia/internal/core"
)

const (
	DefaultTimeout    = 15 * time.Second
	DefaultRateLimit  = 5
	DefaultMaxRetries = 2
	DefaultBackoff    = 500 * time.Millisecond
	defaultUserAgent  = "Mozilla/5.0 (compatible; premia/1.0)"
)

// StatusError records a non-2xx response
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// HTTPClient is the JSON transport shared by REST adapters. It rate limits
// outgoing requests, retries transient failures with exponential backoff and
// maps outcomes onto the core error taxonomy.
type HTTPClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	userAgent  string
	header     http.Header
	logger     *zap.Logger
}

// HTTPOption configures an HTTPClient
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		h.httpClient = c
	}
}

// WithTimeout sets the per-request timeout on a copy of the http.Client
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPClient) {
		c := *h.httpClient
		c.Timeout = d
		h.httpClient = &c
	}
}

// WithRateLimit sets requests per second; zero or less disables limiting
func WithRateLimit(rps float64) HTTPOption {
	return func(h *HTTPClient) {
		if rps <= 0 {
			h.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetries sets the retry count and base backoff
func WithRetries(n int, backoff time.Duration) HTTPOption {
	return func(h *HTTPClient) {
		h.maxRetries = n
		h.backoff = backoff
	}
}

// WithHeader adds a header to every request
func WithHeader(key, value string) HTTPOption {
	return func(h *HTTPClient) {
		h.header.Set(key, value)
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) HTTPOption {
	return func(h *HTTPClient) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHTTPClient creates a client with default timeout, rate and retries
func NewHTTPClient(opts ...HTTPOption) *HTTPClient {
	h := &HTTPClient{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
		userAgent:  defaultUserAgent,
		header:     make(http.Header),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetJSON issues a GET and decodes the response into out
func (h *HTTPClient) GetJSON(ctx context.Context, url string, out any) error {
	return h.do(ctx, http.MethodGet, url, nil, out)
}

// PostJSON encodes body, issues a POST and decodes the response into out
func (h *HTTPClient) PostJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return h.do(ctx, http.MethodPost, url, payload, out)
}

func (h *HTTPClient) do(ctx context.Context, method, url string, payload []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			wait := h.backoff * time.Duration(1<<(attempt-1))
			h.logger.Debug("retrying request",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return core.WrapError(core.ErrProviderTimeout, ctx.Err())
			case <-time.After(wait):
			}
		}

		retry, err := h.attempt(ctx, method, url, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
	}
	return lastErr
}

// attempt performs one round trip and reports whether a failure is worth retrying
func (h *HTTPClient) attempt(ctx context.Context, method, url string, payload []byte, out any) (bool, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return false, core.WrapError(core.ErrProviderTimeout, err)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range h.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, core.WrapError(core.ErrProviderTimeout, ctx.Err())
		}
		// the per-request client timeout fired while the run is still live
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true, core.WrapError(core.ErrProviderTimeout, err)
		}
		classified := core.Classify(err)
		return classified.Code == core.ErrProviderUnavailable.Code, classified
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := &StatusError{StatusCode: resp.StatusCode, URL: url, Body: string(snippet)}
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return false, core.WrapError(core.ErrNoData, statusErr)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return true, core.WrapError(core.ErrProviderUnavailable, statusErr)
		default:
			return false, core.WrapError(core.ErrProviderUnavailable, statusErr)
		}
	}

	if out == nil {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, core.WrapError(core.ErrProviderUnavailable, fmt.Errorf("decoding response: %w", err))
	}
	return false, nil
}
