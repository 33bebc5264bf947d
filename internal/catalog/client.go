package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bhaskara2k/animelista-sub000/internal/services"
)

const (
	component = "catalog"

	// DefaultBaseURL is the public AniList GraphQL endpoint.
	DefaultBaseURL = "https://graphql.anilist.co"

	defaultRequestsPerMinute = 60
	defaultTimeout           = 20 * time.Second
	defaultMaxAttempts       = 3
	defaultRetryDelay        = 2 * time.Second
	maxRetryDelay            = time.Minute
	maxErrorBody             = 512
)

// Client provides access to the AniList API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	sleep       func(context.Context, time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRequestsPerMinute sets the client-side request budget. Non-positive
// values disable throttling.
func WithRequestsPerMinute(perMinute int) Option {
	return func(c *Client) {
		c.limiter = newLimiter(perMinute)
	}
}

// WithTimeout overrides the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithMaxAttempts sets how many times a throttled or failing request is
// attempted before giving up.
func WithMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
	}
}

// WithSleeper overrides how retry delays are waited out (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// New creates an AniList client. An empty baseURL uses DefaultBaseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", fmt.Sprintf("base url %q must be absolute", baseURL), nil)
	}
	client := &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		limiter:     newLimiter(defaultRequestsPerMinute),
		maxAttempts: defaultMaxAttempts,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type statusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("anilist http %d: %s", e.StatusCode, e.Body)
}

// do posts a GraphQL query and decodes data into out. Throttled and 5xx
// responses are retried up to maxAttempts.
func (c *Client) do(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", operation, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return services.Wrap(services.ErrTransient, component, operation, "rate limiter wait", err)
		}
		payload, err := c.post(ctx, body)
		if err == nil {
			return decodeData(operation, payload, out)
		}
		lastErr = err

		var status *statusError
		if !errors.As(err, &status) {
			if ctx.Err() != nil {
				return services.Wrap(services.ErrTransient, component, operation, "request cancelled", ctx.Err())
			}
			// Network failures are retried like 5xx answers.
			status = &statusError{StatusCode: http.StatusServiceUnavailable}
		}
		if !retryableStatus(status.StatusCode) || attempt == c.maxAttempts {
			break
		}
		delay := status.RetryAfter
		if delay <= 0 {
			delay = defaultRetryDelay * time.Duration(attempt)
		}
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
		if err := c.sleep(ctx, delay); err != nil {
			return services.Wrap(services.ErrTransient, component, operation, "retry wait", err)
		}
	}
	return classify(operation, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response (latency=%v): %w", latency, err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := strings.TrimSpace(string(payload))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &statusError{
			StatusCode: resp.StatusCode,
			Body:       snippet,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return payload, nil
}

func decodeData(operation string, payload []byte, out any) error {
	var envelope graphQLResponse
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return services.Wrap(services.ErrExternal, component, operation, "decode response", err)
	}
	if len(envelope.Errors) > 0 {
		first := envelope.Errors[0]
		marker := services.ErrExternal
		if first.Status == http.StatusNotFound {
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, component, operation, first.Message, nil)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return services.Wrap(services.ErrExternal, component, operation, "response carried no data", nil)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return services.Wrap(services.ErrExternal, component, operation, "decode data", err)
	}
	return nil
}

func classify(operation string, err error) error {
	var status *statusError
	if !errors.As(err, &status) {
		return services.Wrap(services.ErrTransient, component, operation, "request failed", err)
	}
	switch {
	case status.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, component, operation, "", err)
	case retryableStatus(status.StatusCode):
		return services.Wrap(services.ErrTransient, component, operation, "", err)
	default:
		return services.Wrap(services.ErrExternal, component, operation, "", err)
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
