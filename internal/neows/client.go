// Package neows provides a client for the NASA NeoWs (Near Earth Object
// Web Service) REST API.
package neows

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"neo-tracker/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.nasa.gov/neo/rest/v1"
	DefaultAPIKey      = "DEMO_KEY"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	// The feed endpoint serves at most 7 days per request.
	MaxFeedWindowDays = 7

	// The browse endpoint serves at most 20 objects per page.
	MaxBrowsePageSize = 20
)

// APIError reports a non-2xx response from the NeoWs API.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("neows api error %d: %s", e.StatusCode, e.Body)
}

// Client is an HTTP client for the NeoWs API with retry and backoff.
type Client struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL sets the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a NeoWs API client. An empty apiKey falls back to the
// rate-limited DEMO_KEY.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	if apiKey == "" {
		apiKey = DefaultAPIKey
	}
	c := &Client{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs a GET with retries and exponential backoff. Rate limiting
// (429) and transport errors are retried; other API errors are not.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, result interface{}) (err error) {
	began := time.Now()
	defer func() {
		observability.RecordFeedCall(metricEndpoint(endpoint), time.Since(began).Seconds(), err)
	}()

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// DEMO_KEY allows 30 requests/hour; back off on rate limits.
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &APIError{StatusCode: resp.StatusCode, Body: string(body)}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			// Client errors are not retried
			return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		}

		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// metricEndpoint collapses per-object lookup paths into one label.
func metricEndpoint(endpoint string) string {
	if endpoint == "neo/browse" {
		return endpoint
	}
	if i := strings.Index(endpoint, "/"); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}

// Feed retrieves the close-approach feed for [start, end]. The window is
// capped at 7 days server-side, so end is clamped before the request.
func (c *Client) Feed(ctx context.Context, start, end time.Time) (*FeedResponse, error) {
	if maxEnd := start.AddDate(0, 0, MaxFeedWindowDays); end.After(maxEnd) {
		end = maxEnd
	}

	params := url.Values{}
	params.Set("start_date", start.Format("2006-01-02"))
	params.Set("end_date", end.Format("2006-01-02"))

	var result FeedResponse
	if err := c.get(ctx, "feed", params, &result); err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	return &result, nil
}

// FetchFeed retrieves the feed window and flattens the per-date grouping
// into a single slice.
func (c *Client) FetchFeed(ctx context.Context, start, end time.Time) ([]NeoObject, error) {
	feed, err := c.Feed(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return feed.Objects(), nil
}

// Lookup retrieves a single object by its NEO reference id.
func (c *Client) Lookup(ctx context.Context, neoID string) (*NeoObject, error) {
	var result NeoObject
	if err := c.get(ctx, "neo/"+url.PathEscape(neoID), nil, &result); err != nil {
		return nil, fmt.Errorf("lookup neo %s: %w", neoID, err)
	}
	return &result, nil
}

// Browse pages through the full NEO catalog. Page size is capped at 20.
func (c *Client) Browse(ctx context.Context, page, size int) (*BrowseResponse, error) {
	if size <= 0 || size > MaxBrowsePageSize {
		size = MaxBrowsePageSize
	}

	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("size", fmt.Sprintf("%d", size))

	var result BrowseResponse
	if err := c.get(ctx, "neo/browse", params, &result); err != nil {
		return nil, fmt.Errorf("browse neos: %w", err)
	}
	return &result, nil
}
