// Package provider is the HTTP client for the external market-data API.
//
// A Session is created once by the process entry point and passed by
// reference into every component that needs provider data; there is no
// package-level initialization state.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Session is a configured, rate-limited connection to the data provider.
// It is safe for concurrent use by multiple workers.
type Session struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter

	// Trading-calendar fetches are identical across workers in one run, so
	// they are deduplicated in flight and cached for the session's lifetime.
	flight    singleflight.Group
	mu        sync.Mutex
	calendars map[string][]string
}

type options struct {
	verbose bool
	// writer controls where verbose HTTP logs are written (typically stderr)
	// so structured output on stdout stays clean and tests can capture logs.
	writer     io.Writer
	httpClient *http.Client
	limit      rate.Limit
	burst      int
}

type Option func(*options)

func WithVerbose(enabled bool, writer io.Writer) Option {
	return func(o *options) {
		o.verbose = enabled
		o.writer = writer
	}
}

// WithRateLimit overrides the default request pacing.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(o *options) {
		o.limit = limit
		o.burst = burst
	}
}

// WithHTTPClient substitutes the underlying HTTP client (tests).
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// loggingRoundTripper wraps an underlying transport and emits one line per
// request and response (including latency) when verbose logging is enabled.
type loggingRoundTripper struct {
	base http.RoundTripper
	w    io.Writer
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	if t.w != nil {
		_, _ = fmt.Fprintf(t.w, "[verbose] provider api: %s %s\n", req.Method, req.URL.String())
	}
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start)
	if t.w != nil {
		if err != nil {
			_, _ = fmt.Fprintf(t.w, "[verbose] provider api: error after %s: %v\n", dur.Truncate(time.Millisecond), err)
		} else {
			_, _ = fmt.Fprintf(t.w, "[verbose] provider api: %d %s (%s)\n", resp.StatusCode, http.StatusText(resp.StatusCode), dur.Truncate(time.Millisecond))
		}
	}
	return resp, err
}

// NewSession builds a provider session. token may be empty for providers
// that allow anonymous access; when set it is sent as a bearer token on
// every request.
func NewSession(ctx context.Context, baseURL, token string, opts ...Option) (*Session, error) {
	if ctx == nil {
		return nil, fmt.Errorf("provider session: ctx is nil")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("provider session: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("provider session: invalid base URL %q: %w", baseURL, err)
	}

	o := &options{limit: rate.Limit(8), burst: 8}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	if o.verbose && o.writer == nil {
		o.writer = os.Stderr
	}

	httpClient := o.httpClient
	if httpClient == nil {
		transport := http.DefaultTransport
		if o.verbose {
			transport = &loggingRoundTripper{base: transport, w: o.writer}
		}
		if token != "" {
			ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
			transport = &oauth2.Transport{Source: ts, Base: transport}
		}
		httpClient = &http.Client{Transport: transport}
	}

	return &Session{
		baseURL:   baseURL,
		http:      httpClient,
		limiter:   rate.NewLimiter(o.limit, o.burst),
		calendars: make(map[string][]string),
	}, nil
}

// get performs one paced GET and decodes the JSON body into v.
func (s *Session) get(ctx context.Context, endpoint string, query url.Values, v any) error {
	if s == nil {
		return fmt.Errorf("provider session is nil")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("provider %s: %w", endpoint, err)
	}

	u := s.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("provider %s: build request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			Status:   resp.StatusCode,
			Endpoint: endpoint,
			Message:  strings.TrimSpace(string(body)),
		}
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("provider %s: decode response: %w", endpoint, err)
	}
	return nil
}

// Ping verifies reachability and authentication. The CLI calls it before any
// workers are dispatched so an auth failure aborts the run cleanly.
func (s *Session) Ping(ctx context.Context) error {
	return s.get(ctx, "/v1/ping", nil, nil)
}

// Instrument returns listing metadata for one stock.
func (s *Session) Instrument(ctx context.Context, code string) (*Instrument, error) {
	var inst Instrument
	if err := s.get(ctx, "/v1/instruments/"+url.PathEscape(code), nil, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// DailyPrices returns daily bars for [start, end] in the given adjust mode.
func (s *Session) DailyPrices(ctx context.Context, code, start, end string, adjust AdjustType) ([]DailyBar, error) {
	q := rangeQuery(code, start, end)
	q.Set("adjust", string(adjust))
	var bars []DailyBar
	if err := s.get(ctx, "/v1/prices/daily", q, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// CapitalFlow returns daily aggregate active buy/sell value.
func (s *Session) CapitalFlow(ctx context.Context, code, start, end string) ([]FlowPoint, error) {
	var points []FlowPoint
	if err := s.get(ctx, "/v1/capital-flow", rangeQuery(code, start, end), &points); err != nil {
		return nil, err
	}
	return points, nil
}

// TurnoverRates returns daily turnover data.
func (s *Session) TurnoverRates(ctx context.Context, code, start, end string) ([]TurnoverPoint, error) {
	var points []TurnoverPoint
	if err := s.get(ctx, "/v1/turnover", rangeQuery(code, start, end), &points); err != nil {
		return nil, err
	}
	return points, nil
}

// FundamentalFactors returns daily values for the named fundamental factors.
func (s *Session) FundamentalFactors(ctx context.Context, code string, factors []string, start, end string) ([]FactorRow, error) {
	q := rangeQuery(code, start, end)
	q.Set("factors", strings.Join(factors, ","))
	var rows []FactorRow
	if err := s.get(ctx, "/v1/factors", q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// HolderCounts returns quarterly shareholder-count observations.
func (s *Session) HolderCounts(ctx context.Context, code, start, end string) ([]HolderPoint, error) {
	var points []HolderPoint
	if err := s.get(ctx, "/v1/holders", rangeQuery(code, start, end), &points); err != nil {
		return nil, err
	}
	return points, nil
}

// TradingCalendar returns the trading days in [start, end] (YYYYMMDD,
// ascending). Concurrent workers requesting the same range share one fetch,
// and ranges are cached for the session's lifetime.
func (s *Session) TradingCalendar(ctx context.Context, start, end string) ([]string, error) {
	key := start + ".." + end

	s.mu.Lock()
	if days, ok := s.calendars[key]; ok {
		s.mu.Unlock()
		return days, nil
	}
	s.mu.Unlock()

	v, err, _ := s.flight.Do(key, func() (any, error) {
		q := url.Values{}
		q.Set("start_date", start)
		q.Set("end_date", end)
		var days []string
		if err := s.get(ctx, "/v1/calendar", q, &days); err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.calendars[key] = days
		s.mu.Unlock()
		return days, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func rangeQuery(code, start, end string) url.Values {
	q := url.Values{}
	q.Set("order_book_id", code)
	q.Set("start_date", start)
	q.Set("end_date", end)
	return q
}
