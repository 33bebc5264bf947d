package daemon

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bhaskara2k/animelista-sub000/internal/api"
	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/logging"
	"github.com/bhaskara2k/animelista-sub000/internal/testsupport"
	"github.com/bhaskara2k/animelista-sub000/internal/tracker"
)

func newTestAPI(t *testing.T, opts ...testsupport.ConfigOption) (*apiServer, http.Handler) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	clock := testsupport.FixedClock(time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC))
	store := testsupport.MustOpenStore(t, cfg, library.WithClock(clock))
	svc := tracker.New(cfg, store, tracker.WithClock(clock))
	d, err := New(cfg, store, svc, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.api == nil {
		t.Fatal("expected api server for configured bind")
	}
	return d.api, d.api.routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestAPIAnimeLifecycle(t *testing.T) {
	_, h := newTestAPI(t)

	w := doJSON(t, h, http.MethodPost, "/api/anime", map[string]any{
		"title":         "Frieren",
		"status":        "watching",
		"startDate":     "2024-03-17",
		"weekdays":      []int{0},
		"totalEpisodes": 12,
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode[api.AnimeResponse](t, w).Anime
	if created.Next == nil || created.Next.Episode != 1 || created.Next.Date != "2024-03-17" {
		t.Fatalf("unexpected next airing %+v", created.Next)
	}
	base := "/api/anime/" + jsonNumber(created.ID)

	w = doJSON(t, h, http.MethodGet, "/api/upcoming?days=7", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("upcoming: %d %s", w.Code, w.Body.String())
	}
	upcoming := decode[api.UpcomingResponse](t, w)
	want := []api.UpcomingItem{{ID: created.ID, Title: "Frieren", Status: "watching", Airing: api.Airing{Date: "2024-03-24", Weekday: "Sunday", Episode: 2}}}
	if diff := cmp.Diff(want, upcoming.Items); diff != "" {
		t.Fatalf("upcoming mismatch (-want +got):\n%s", diff)
	}

	behind := decode[api.BehindResponse](t, doJSON(t, h, http.MethodGet, "/api/behind", nil, nil))
	if len(behind.Items) != 1 || behind.Items[0].Behind != 1 {
		t.Fatalf("unexpected behind %+v", behind.Items)
	}

	w = doJSON(t, h, http.MethodPost, base+"/rating", api.RatingRequest{Rating: 9}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("rating unfinished: expected 400, got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, base+"/progress", api.ProgressRequest{Episode: 1}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("progress: %d %s", w.Code, w.Body.String())
	}
	progressed := decode[api.ProgressResponse](t, w)
	if progressed.Reward.XP != 10 || progressed.Anime.Next == nil || progressed.Anime.Next.Date != "2024-03-24" {
		t.Fatalf("unexpected progress response %+v", progressed)
	}

	next := decode[api.NextResponse](t, doJSON(t, h, http.MethodGet, base+"/next", nil, nil))
	if next.Airing == nil || next.Airing.Episode != 2 {
		t.Fatalf("unexpected next %+v", next)
	}

	finished := decode[api.ProgressResponse](t, doJSON(t, h, http.MethodPost, base+"/progress", api.ProgressRequest{Episode: 12}, nil))
	if !finished.Completed || finished.Anime.Status != "completed" || finished.Anime.Next != nil {
		t.Fatalf("expected completion, got %+v", finished)
	}

	rated := decode[api.RatingResponse](t, doJSON(t, h, http.MethodPost, base+"/rating", api.RatingRequest{Rating: 9}, nil))
	if rated.Anime.Rating == nil || *rated.Anime.Rating != 9 || rated.Reward.XP != 5 {
		t.Fatalf("unexpected rating response %+v", rated)
	}

	profile := decode[api.Profile](t, doJSON(t, h, http.MethodGet, "/api/profile", nil, nil))
	if profile.TotalXP != 175 || profile.Level != 2 || profile.Stats.Completed != 1 {
		t.Fatalf("unexpected profile %+v", profile)
	}

	list := decode[api.AnimeListResponse](t, doJSON(t, h, http.MethodGet, "/api/anime?status=completed&sort=rating&desc=true", nil, nil))
	if len(list.Items) != 1 || list.Items[0].Title != "Frieren" {
		t.Fatalf("unexpected list %+v", list.Items)
	}

	if w := doJSON(t, h, http.MethodDelete, base, nil, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, base, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", w.Code)
	}
	if resp := decode[api.ErrorResponse](t, w); resp.RequestID == "" {
		t.Fatal("expected request id in error response")
	}
}

func TestAPIRejectsBadInput(t *testing.T) {
	_, h := newTestAPI(t)
	cases := []struct {
		method string
		path   string
		body   any
		want   int
	}{
		{http.MethodPost, "/api/anime", map[string]any{"title": "x", "weekdays": []int{9}}, http.StatusBadRequest},
		{http.MethodPost, "/api/anime", map[string]any{"title": "x", "bogus": true}, http.StatusBadRequest},
		{http.MethodPost, "/api/anime", map[string]any{"title": "x", "totalEpisodes": 0}, http.StatusBadRequest},
		{http.MethodPost, "/api/anime", map[string]any{"title": "x", "nextAiringOverride": "2024-03-30", "nextAiringOverrideEpisode": 0}, http.StatusBadRequest},
		{http.MethodGet, "/api/upcoming?days=abc", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/upcoming?days=365", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/anime?status=binging", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/anime?sort=popularity", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/anime/42/next", nil, http.StatusNotFound},
		{http.MethodGet, "/api/nowhere", nil, http.StatusNotFound},
		{http.MethodPut, "/api/profile", nil, http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		w := doJSON(t, h, tc.method, tc.path, tc.body, nil)
		if w.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.want, w.Code, w.Body.String())
		}
	}
}

func TestAPIBearerToken(t *testing.T) {
	_, h := newTestAPI(t, testsupport.WithAPIToken("s3cret"))

	if w := doJSON(t, h, http.MethodGet, "/api/status", nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	wrong := http.Header{"Authorization": []string{"Bearer nope"}}
	if w := doJSON(t, h, http.MethodGet, "/api/status", nil, wrong); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}
	right := http.Header{"Authorization": []string{"Bearer s3cret"}}
	w := doJSON(t, h, http.MethodGet, "/api/status", nil, right)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
	status := decode[api.DaemonStatus](t, w)
	if status.Running || status.RunID == "" || status.Refresh.IntervalMinutes == 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestAPIRequestIDEcho(t *testing.T) {
	_, h := newTestAPI(t)
	id := uuid.NewString()
	w := doJSON(t, h, http.MethodGet, "/api/behind", nil, http.Header{requestIDHeader: []string{id}})
	if got := w.Header().Get(requestIDHeader); got != id {
		t.Fatalf("expected request id %q echoed, got %q", id, got)
	}
	w = doJSON(t, h, http.MethodGet, "/api/behind", nil, http.Header{requestIDHeader: []string{"not-a-uuid"}})
	if _, err := uuid.Parse(w.Header().Get(requestIDHeader)); err != nil {
		t.Fatalf("expected generated request id, got %q", w.Header().Get(requestIDHeader))
	}
}

func TestAPIRateLimit(t *testing.T) {
	srv, _ := newTestAPI(t)
	srv.limiter = newIPRateLimiter(rate.Every(time.Hour), 2)
	h := srv.routes()

	for i := 0; i < 2; i++ {
		if w := doJSON(t, h, http.MethodGet, "/api/behind", nil, nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	w := doJSON(t, h, http.MethodGet, "/api/behind", nil, nil)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", w.Code)
	}
	spoofed := http.Header{"X-Forwarded-For": []string{"203.0.113.9"}, "X-Real-Ip": []string{"203.0.113.10"}}
	if w := doJSON(t, h, http.MethodGet, "/api/behind", nil, spoofed); w.Code != http.StatusTooManyRequests {
		t.Fatalf("forwarding headers from an untrusted peer must not open a new bucket, got %d", w.Code)
	}
}

func TestRateLimiterClientIP(t *testing.T) {
	_, proxies, err := net.ParseCIDR("10.0.0.0/8")
	if err != nil {
		t.Fatalf("ParseCIDR: %v", err)
	}
	rl := newIPRateLimiter(1, 1, proxies)
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{name: "direct client ignores header", remote: "198.51.100.7:4000", xff: "203.0.113.9", want: "198.51.100.7"},
		{name: "trusted proxy forwards client", remote: "10.1.2.3:4000", xff: "203.0.113.9", want: "203.0.113.9"},
		{name: "prepended hops are ignored", remote: "10.1.2.3:4000", xff: "1.1.1.1, 203.0.113.9, 10.0.0.5", want: "203.0.113.9"},
		{name: "trusted proxy without header", remote: "10.1.2.3:4000", want: "10.1.2.3"},
		{name: "garbage hop stops the walk", remote: "10.1.2.3:4000", xff: "nonsense", want: "10.1.2.3"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/behind", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if got := rl.clientIP(req); got != tc.want {
				t.Fatalf("clientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	now := time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)
	rl := newIPRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	rl.allow("198.51.100.1")
	now = now.Add(5 * time.Minute)
	rl.allow("198.51.100.2")
	now = now.Add(6 * time.Minute)
	if remaining := rl.evictIdle(limiterIdleTTL); remaining != 1 {
		t.Fatalf("expected one client left, got %d", remaining)
	}
}

func jsonNumber(v int64) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}
