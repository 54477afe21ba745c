package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mselser95/polymarket-edge/pkg/payload"
	"github.com/mselser95/polymarket-edge/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultRetries is the total number of attempts per request.
	DefaultRetries = 3
	// DefaultBackoffBase is the sleep before the second attempt; it doubles per attempt.
	DefaultBackoffBase = 500 * time.Millisecond
	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 20 * time.Second
	// DefaultUserAgent identifies this service to upstream venues.
	DefaultUserAgent = "polymarket-edge/0.1"
)

// Config holds configuration for a venue fetcher.
type Config struct {
	BaseURL     string
	Venue       string // label used in errors, logs and metrics
	Retries     int
	BackoffBase time.Duration
	Timeout     time.Duration
	UserAgent   string
	Limiter     *rate.Limiter // optional, waited on before every attempt
	HTTPClient  *http.Client  // optional
	Logger      *zap.Logger
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Fetcher performs GET requests against one venue with bounded retries.
//
// Transport failures and 5xx responses are retried with exponential backoff
// (base * 2^attempt, no jitter). Any other status is returned on the first attempt.
// When attempts run out, a transport failure becomes a KindTransport error while a
// 5xx is handed back as a normal response.
type Fetcher struct {
	baseURL     string
	venue       string
	retries     int
	backoffBase time.Duration
	timeout     time.Duration
	userAgent   string
	limiter     *rate.Limiter
	httpClient  *http.Client
	logger      *zap.Logger
}

// New creates a new Fetcher, filling unset fields with defaults.
func New(cfg *Config) *Fetcher {
	f := &Fetcher{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		venue:       cfg.Venue,
		retries:     cfg.Retries,
		backoffBase: cfg.BackoffBase,
		timeout:     cfg.Timeout,
		userAgent:   cfg.UserAgent,
		limiter:     cfg.Limiter,
		httpClient:  cfg.HTTPClient,
		logger:      cfg.Logger,
	}

	if f.retries < 1 {
		f.retries = DefaultRetries
	}
	if f.backoffBase <= 0 {
		f.backoffBase = DefaultBackoffBase
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	if f.httpClient == nil {
		f.httpClient = &http.Client{}
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}

	return f
}

// Get issues a GET for path with the given query parameters.
func (f *Fetcher) Get(ctx context.Context, path string, params url.Values) (*Response, error) {
	requestURL := f.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < f.retries; attempt++ {
		if f.limiter != nil {
			err := f.limiter.Wait(ctx)
			if err != nil {
				return nil, f.transportError(path, fmt.Errorf("wait for rate limiter: %w", err))
			}
		}

		start := time.Now()
		resp, err := f.do(ctx, requestURL)
		RequestDurationSeconds.WithLabelValues(f.venue).Observe(time.Since(start).Seconds())

		if err != nil {
			lastErr = err
			RequestsTotal.WithLabelValues(f.venue, "error").Inc()
			f.logger.Debug("fetch-attempt-failed",
				zap.String("venue", f.venue),
				zap.String("path", path),
				zap.Int("attempt", attempt+1),
				zap.Error(err))

			if ctx.Err() != nil || attempt == f.retries-1 {
				break
			}
		} else {
			RequestsTotal.WithLabelValues(f.venue, statusClass(resp.StatusCode)).Inc()
			if resp.StatusCode < 500 || resp.StatusCode > 599 {
				return resp, nil
			}

			f.logger.Debug("fetch-attempt-upstream-error",
				zap.String("venue", f.venue),
				zap.String("path", path),
				zap.Int("attempt", attempt+1),
				zap.Int("status", resp.StatusCode))

			if attempt == f.retries-1 {
				return resp, nil
			}
		}

		RetriesTotal.WithLabelValues(f.venue).Inc()
		err = f.sleep(ctx, f.backoffBase*time.Duration(1<<attempt))
		if err != nil {
			lastErr = err
			break
		}
	}

	f.logger.Warn("fetch-failed",
		zap.String("venue", f.venue),
		zap.String("path", path),
		zap.Error(lastErr))
	return nil, f.transportError(path, lastErr)
}

// GetJSON calls Get and decodes a 2xx body into a generic JSON value.
// Non-2xx responses become KindUpstreamStatus errors, undecodable bodies KindDataShape.
func (f *Fetcher) GetJSON(ctx context.Context, path string, params url.Values) (any, error) {
	resp, err := f.Get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.APIError{
			Kind:       types.KindUpstreamStatus,
			Venue:      f.venue,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("GET %s: %s", path, truncate(string(resp.Body), 200)),
		}
	}

	v, err := payload.Decode(resp.Body)
	if err != nil {
		return nil, &types.APIError{
			Kind:    types.KindDataShape,
			Venue:   f.venue,
			Message: fmt.Sprintf("GET %s: decode body", path),
			Err:     err,
		}
	}
	return v, nil
}

func (f *Fetcher) do(ctx context.Context, requestURL string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (f *Fetcher) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (f *Fetcher) transportError(path string, err error) *types.APIError {
	if err == nil {
		err = errors.New("no attempts made")
	}
	return &types.APIError{
		Kind:    types.KindTransport,
		Venue:   f.venue,
		Message: "GET " + path,
		Err:     err,
	}
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
