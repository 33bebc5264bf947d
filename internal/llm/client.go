package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bhaskara2k/animelista-sub000/internal/services"
)

// DefaultBaseURL is the OpenRouter chat completion endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

const (
	defaultHTTPTimeout    = 30 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = time.Second
	defaultRetryAttempts  = 5
)

// Config holds the OpenRouter connection settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

func (c Config) trimmed() Config {
	return Config{
		APIKey:         strings.TrimSpace(c.APIKey),
		BaseURL:        strings.TrimSpace(c.BaseURL),
		Model:          strings.TrimSpace(c.Model),
		Referer:        strings.TrimSpace(c.Referer),
		Title:          strings.TrimSpace(c.Title),
		TimeoutSeconds: c.TimeoutSeconds,
	}
}

// Client asks a chat model for JSON answers: synopsis translations,
// recommendations and a health ping.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client; nil is ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts caps attempts per completion. Values below 1 mean a
// single attempt.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) { c.retryMaxAttempts = attempts }
}

// WithRetryBackoff sets the first retry delay and the ceiling it doubles up to.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper replaces the retry wait, for tests.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) { c.sleeper = sleeper }
}

// NewClient builds a client for cfg. An empty base URL means OpenRouter.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg = cfg.trimmed()
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:              cfg,
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether an API key and model are set.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != "" && c.cfg.Model != ""
}

// HealthCheck asks the model for a fixed JSON reply to prove the key and
// model work.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.requireConfigured("health"); err != nil {
		return err
	}
	content, err := c.complete(ctx, "health", "You must respond with JSON only.", `Respond with {"ok":true}`, 0)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return services.Wrap(services.ErrExternal, component, "health", "parse payload", err)
	}
	if !parsed.OK {
		return services.Wrap(services.ErrExternal, component, "health", "unexpected response", nil)
	}
	return nil
}

// complete runs one JSON-mode chat completion and returns the message text.
// Errors carry a services marker.
func (c *Client) complete(ctx context.Context, op, systemPrompt, userPrompt string, temperature float64) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" || userPrompt == "" {
		return "", services.Wrap(services.ErrValidation, component, op, "system and user prompts are required", nil)
	}
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, component, op, "api key required", nil)
	}
	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	content, attempts, err := c.completeWithRetry(ctx, payload, op)
	if err != nil {
		return "", classify(op, attempts, err)
	}
	return content, nil
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// classify tags a completion failure: rejected credentials are a
// configuration problem, retryable failures that ran out of attempts are
// transient, everything else is the provider's fault.
func classify(op string, attempts int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, component, op, "api key rejected", err)
		}
	}
	if attempts > 1 && retryable(err) {
		return services.Wrap(services.ErrTransient, component, op, fmt.Sprintf("gave up after %d attempts", attempts), err)
	}
	return services.Wrap(services.ErrExternal, component, op, "completion failed", err)
}

func (c *Client) completeWithRetry(ctx context.Context, payload chatRequest, op string) (string, int, error) {
	maxAttempts := c.retryAttempts()
	for attempt := 1; ; attempt++ {
		completion, body, err := c.send(ctx, payload)
		if err == nil {
			content, finishReason := completion.content()
			if content != "" {
				return content, attempt, nil
			}
			if len(completion.Choices) == 0 {
				err = errors.New("empty choices")
			} else {
				err = &emptyContentError{
					Op:           op,
					FinishReason: finishReason,
					Refusal:      completion.refusal(),
					Snippet:      summarizeSnippet(string(body)),
				}
			}
		}
		delay, retry := c.retryDelay(ctx, err, attempt, maxAttempts)
		if !retry {
			return "", attempt, err
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return "", attempt, sleepErr
		}
	}
}

func (c *Client) newRequest(ctx context.Context, payload chatRequest) (*http.Request, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
	return req, nil
}

func (c *Client) send(ctx context.Context, payload chatRequest) (chatResponse, []byte, error) {
	var completion chatResponse
	req, err := c.newRequest(ctx, payload)
	if err != nil {
		return completion, nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return completion, nil, fmt.Errorf("post completion (timeout %s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return completion, body, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       summarizeSnippet(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, body, fmt.Errorf("decode response: %w", err)
	}
	if completion.Error != nil {
		return completion, body, fmt.Errorf("provider error: %s", strings.TrimSpace(completion.Error.Message))
	}
	return completion, body, nil
}
