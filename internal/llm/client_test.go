package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bhaskara2k/animelista-sub000/internal/services"
)

func replyWith(t *testing.T, content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts = append([]Option{WithSleeper(func(time.Duration) {}), WithRetryBackoff(0, 0)}, opts...)
	return NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", Title: "animelista"}, opts...)
}

func TestClientHealthCheck(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "animelista" {
			t.Errorf("unexpected X-Title header %q", got)
		}
		replyWith(t, "```json\n{\"ok\":true}\n```")(w, r)
	}))
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	err := client.HealthCheck(context.Background())
	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected rejected key to be a configuration error, got %v", err)
	}
}

func TestClientToolCallArguments(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"","tool_calls":[{"function":{"name":"reply","arguments":"{\"ok\":true}"}}]}}]}`))
	}))
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	var slept []time.Duration
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		replyWith(t, `{"ok":true}`)(w, r)
	}), WithSleeper(func(d time.Duration) { slept = append(slept, d) }), WithRetryBackoff(0, 10*time.Second))

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if diff := cmp.Diff([]time.Duration{2 * time.Second}, slept); diff != "" {
		t.Fatalf("sleep mismatch (-want +got):\n%s", diff)
	}
}

func TestClientEmptyContentExhaustsRetries(t *testing.T) {
	var calls int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"choices":[{"finish_reason":"length","message":{"content":""}}]}`))
	}), WithRetryMaxAttempts(3))

	_, err := client.complete(context.Background(), "test", "system", "user", 0)
	var empty *emptyContentError
	if !errors.As(err, &empty) || empty.FinishReason != "length" {
		t.Fatalf("expected empty content error, got %v", err)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected exhausted retries to be transient, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestClientServerErrorWithoutRetriesIsExternal(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}), WithRetryMaxAttempts(1))
	_, err := client.Translate(context.Background(), "text", "French")
	if !errors.Is(err, services.ErrExternal) || errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected external error, got %v", err)
	}
	if services.HTTPStatus(err) != http.StatusBadGateway {
		t.Fatalf("expected 502 mapping, got %d", services.HTTPStatus(err))
	}
}

func TestBackoffDelayDoublesUpToMax(t *testing.T) {
	client := NewClient(Config{}, WithRetryBackoff(time.Second, 5*time.Second))
	var got []time.Duration
	for attempt := 1; attempt <= 5; attempt++ {
		got = append(got, client.backoffDelay(attempt))
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("backoff mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := map[string]string{
		"plain":       `{"translation":"Olá"}`,
		"fenced":      "```json\n{\"translation\":\"Olá\"}\n```",
		"with prose":  `Sure! Here it is: {"translation":"Olá"} Hope it helps.`,
		"bare fenced": "```\n{\"translation\":\"Olá\"}\n```",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			var out struct {
				Translation string `json:"translation"`
			}
			if err := DecodeJSON(input, &out); err != nil {
				t.Fatalf("DecodeJSON: %v", err)
			}
			if out.Translation != "Olá" {
				t.Fatalf("unexpected translation %q", out.Translation)
			}
		})
	}
	var out map[string]any
	if err := DecodeJSON("no json here", &out); err == nil || !strings.Contains(err.Error(), "no json here") {
		t.Fatalf("expected error with snippet, got %v", err)
	}
}

func TestTranslate(t *testing.T) {
	var system string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		system = req.Messages[0].Content
		replyWith(t, `{"translation":"  Depois do fim da jornada.  "}`)(w, r)
	}))

	got, err := client.Translate(context.Background(), "After the journey's end.", "Portuguese (Brazil)")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != "Depois do fim da jornada." {
		t.Fatalf("unexpected translation %q", got)
	}
	if !strings.Contains(system, "Portuguese (Brazil)") {
		t.Fatalf("target language missing from prompt: %q", system)
	}
}

func TestTranslateRequiresConfiguration(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Translate(context.Background(), "text", "French"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := client.Translate(context.Background(), " ", "French"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecommendFiltersSeedsAndLimits(t *testing.T) {
	var userPrompt string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		userPrompt = req.Messages[1].Content
		replyWith(t, `{"recommendations":[
			{"title":"Mushishi","reason":"Quiet wandering episodes."},
			{"title":"frieren","reason":"Already watched."},
			{"title":"Natsume's Book of Friends","reason":"Gentle yokai stories."},
			{"title":"mushishi","reason":"Duplicate."},
			{"title":"Made in Abyss","reason":"Adventure with weight."}
		]}`)(w, r)
	}))

	got, err := client.Recommend(context.Background(), []Seed{{Title: "Frieren", Rating: 10}, {Title: "Haikyu"}}, 2)
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}
	want := []Recommendation{
		{Title: "Mushishi", Reason: "Quiet wandering episodes."},
		{Title: "Natsume's Book of Friends", Reason: "Gentle yokai stories."},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("recommendations mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(userPrompt, "- Frieren (10/10)\n- Haikyu") {
		t.Fatalf("unexpected user prompt %q", userPrompt)
	}
	if _, err := client.Recommend(context.Background(), nil, 3); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without seeds, got %v", err)
	}
}
