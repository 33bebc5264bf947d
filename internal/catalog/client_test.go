package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bhaskara2k/animelista-sub000/internal/catalog"
	"github.com/bhaskara2k/animelista-sub000/internal/services"
)

type recordedRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...catalog.Option) *catalog.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]catalog.Option{
		catalog.WithRequestsPerMinute(0),
		catalog.WithSleeper(func(context.Context, time.Duration) error { return nil }),
	}, opts...)
	client, err := catalog.New(server.URL, opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func decodeRequest(t *testing.T, r *http.Request) recordedRequest {
	t.Helper()
	if r.Method != http.MethodPost {
		t.Errorf("expected POST, got %s", r.Method)
	}
	var req recordedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Errorf("decode request: %v", err)
	}
	return req
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := catalog.New("graphql.anilist.co"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := catalog.New(""); err != nil {
		t.Fatalf("empty url should fall back to the default: %v", err)
	}
}

func TestSearchSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		if req.Variables["search"] != "frieren" {
			t.Errorf("unexpected search variable %v", req.Variables["search"])
		}
		if req.Variables["perPage"] != float64(50) {
			t.Errorf("expected perPage clamped to 50, got %v", req.Variables["perPage"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"Page":{"pageInfo":{"total":1,"currentPage":1,"lastPage":1,"hasNextPage":false},
			"media":[{"id":154587,"title":{"romaji":"Sousou no Frieren","english":"Frieren: Beyond Journey's End"},"episodes":28}]}}}`))
	})

	result, err := client.Search(context.Background(), "  frieren ", 0, 500)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(result.Media) != 1 || result.Media[0].ID != 154587 {
		t.Fatalf("unexpected result: %#v", result)
	}
	if result.Media[0].Episodes == nil || *result.Media[0].Episodes != 28 {
		t.Fatalf("unexpected episodes %v", result.Media[0].Episodes)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	client, err := catalog.New("https://example.com")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Search(context.Background(), "  ", 1, 10); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMediaGraphQLNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"data":{"Media":null},"errors":[{"message":"Not Found.","status":404}]}`))
	})
	if _, err := client.Media(context.Background(), 42); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMediaGraphQLErrorInOKResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"Validation error","status":400}]}`))
	})
	_, err := client.Media(context.Background(), 42)
	if !errors.Is(err, services.ErrExternal) || !strings.Contains(err.Error(), "Validation error") {
		t.Fatalf("expected external error carrying the message, got %v", err)
	}
}

func TestRetriesAfterTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	var waited []time.Duration
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"Media":{"id":5,"title":{"romaji":"Cowboy Bebop"}}}}`))
	}, catalog.WithSleeper(func(_ context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}))

	media, err := client.Media(context.Background(), 5)
	if err != nil {
		t.Fatalf("Media returned error: %v", err)
	}
	if media.Title.Romaji != "Cowboy Bebop" {
		t.Fatalf("unexpected media %#v", media)
	}
	if diff := cmp.Diff([]time.Duration{7 * time.Second}, waited); diff != "" {
		t.Fatalf("retry delay mismatch (-want +got):\n%s", diff)
	}
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, catalog.WithMaxAttempts(2))

	_, err := client.Media(context.Background(), 5)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`bad query`))
	})
	if _, err := client.Media(context.Background(), 5); !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected external error, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestAiringSchedulePaginates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		switch req.Variables["page"] {
		case float64(1):
			_, _ = w.Write([]byte(`{"data":{"Page":{"pageInfo":{"hasNextPage":true},
				"airingSchedules":[{"episode":1,"airingAt":1704553200},{"episode":2,"airingAt":1705158000}]}}}`))
		default:
			_, _ = w.Write([]byte(`{"data":{"Page":{"pageInfo":{"hasNextPage":false},
				"airingSchedules":[{"episode":3,"airingAt":1705762800}]}}}`))
		}
	})

	airings, err := client.AiringSchedule(context.Background(), 99)
	if err != nil {
		t.Fatalf("AiringSchedule returned error: %v", err)
	}
	want := []catalog.Airing{
		{Episode: 1, AiringAt: 1704553200},
		{Episode: 2, AiringAt: 1705158000},
		{Episode: 3, AiringAt: 1705762800},
	}
	if diff := cmp.Diff(want, airings); diff != "" {
		t.Fatalf("airings mismatch (-want +got):\n%s", diff)
	}
}
