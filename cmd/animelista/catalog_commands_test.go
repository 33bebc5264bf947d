package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bhaskara2k/animelista-sub000/internal/services"
)

const frierenMedia = `{"id":154587,"title":{"romaji":"Sousou no Frieren","english":"Frieren: Beyond Journey's End","native":"葬送のフリーレン"},
"format":"TV","status":"FINISHED","episodes":28,"season":"FALL","seasonYear":2023,
"startDate":{"year":2023,"month":9,"day":29},"description":"The adventure is over.<br>But life goes on."}`

func newAniListServer(t *testing.T, mediaCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, ok := req.Variables["search"]; ok {
			_, _ = w.Write([]byte(`{"data":{"Page":{"pageInfo":{"total":11,"currentPage":1,"lastPage":2,"hasNextPage":true},"media":[` + frierenMedia + `]}}}`))
			return
		}
		mediaCalls.Add(1)
		if req.Variables["id"] != float64(154587) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"data":{"Media":null},"errors":[{"message":"Not Found.","status":404}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"Media":` + frierenMedia + `}}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSearchImportAndSync(t *testing.T) {
	var mediaCalls atomic.Int32
	server := newAniListServer(t, &mediaCalls)
	env := setupCLIEnv(t, server.URL)

	out := env.mustRun(t, "search", "frieren")
	requireContains(t, out, "154587")
	requireContains(t, out, "Frieren: Beyond Journey's End")
	requireContains(t, out, "fall 2023")
	requireContains(t, out, "use --page 2 for more")

	out = env.mustRun(t, "import", "154587", "--status", "watching")
	requireContains(t, out, "Imported #1 Frieren: Beyond Journey's End (Watching)")

	out = env.mustRun(t, "show", "1")
	requireContains(t, out, "Airs:      Fri")
	requireContains(t, out, "https://anilist.co/anime/154587")
	requireContains(t, out, "But life goes on.")

	if _, _, err := env.run(t, "import", "154587"); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict on re-import, got %v", err)
	}
	if _, _, err := env.run(t, "import", "abc"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for bad id, got %v", err)
	}

	requireContains(t, env.mustRun(t, "sync"), "Checked 1")
	requireContains(t, env.mustRun(t, "sync", "frieren"), "Synced #1")
	if got := mediaCalls.Load(); got != 3 {
		t.Fatalf("expected 3 media lookups, got %d", got)
	}
}

func TestSyncEntryRequiresCatalogLink(t *testing.T) {
	env := setupCLIEnv(t, "")
	env.mustRun(t, "add", "Local Only")
	if _, _, err := env.run(t, "sync", "1"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unlinked entry, got %v", err)
	}
}
