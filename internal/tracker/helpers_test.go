package tracker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bhaskara2k/animelista-sub000/internal/catalog"
	"github.com/bhaskara2k/animelista-sub000/internal/config"
	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/llm"
	"github.com/bhaskara2k/animelista-sub000/internal/notifications"
	"github.com/bhaskara2k/animelista-sub000/internal/services"
	"github.com/bhaskara2k/animelista-sub000/internal/testsupport"
	"github.com/bhaskara2k/animelista-sub000/internal/tracker"
)

type fakeCatalog struct {
	mu     sync.Mutex
	media  map[int64]*catalog.Media
	calls  int
	failOn map[int64]bool
	// fetched runs after a lookup, before the result reaches the caller.
	fetched func(id int64)
}

func (f *fakeCatalog) Media(ctx context.Context, id int64) (*catalog.Media, error) {
	m, err := f.lookup(id)
	if f.fetched != nil {
		f.fetched(id)
	}
	return m, err
}

func (f *fakeCatalog) lookup(id int64) (*catalog.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn[id] {
		return nil, services.Wrap(services.ErrTransient, "catalog", "media", "anilist http 503", nil)
	}
	m, ok := f.media[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "media", fmt.Sprintf("anime %d", id), nil)
	}
	copied := *m
	return &copied, nil
}

type event struct {
	Event   notifications.Event
	Payload notifications.Payload
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (r *recordingNotifier) Publish(_ context.Context, e notifications.Event, p notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{Event: e, Payload: p})
	return nil
}

func (r *recordingNotifier) kinds() []notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notifications.Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Event)
	}
	return out
}

type fakeAssistant struct {
	configured bool
	translated string
	lastSeeds  []llm.Seed
	recs       []llm.Recommendation
}

func (f *fakeAssistant) Configured() bool { return f.configured }

func (f *fakeAssistant) Translate(_ context.Context, text, lang string) (string, error) {
	if text == "" || lang == "" {
		return "", errors.New("missing input")
	}
	return f.translated, nil
}

func (f *fakeAssistant) Recommend(_ context.Context, seeds []llm.Seed, limit int) ([]llm.Recommendation, error) {
	f.lastSeeds = seeds
	if limit < len(f.recs) {
		return f.recs[:limit], nil
	}
	return f.recs, nil
}

type fixture struct {
	cfg      *config.Config
	store    *library.Store
	svc      *tracker.Service
	notifier *recordingNotifier
}

func newFixture(t *testing.T, now time.Time, opts ...tracker.Option) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	clock := testsupport.FixedClock(now)
	store := testsupport.MustOpenStore(t, cfg, library.WithClock(clock))
	notifier := &recordingNotifier{}
	opts = append([]tracker.Option{tracker.WithClock(clock), tracker.WithNotifier(notifier)}, opts...)
	return &fixture{
		cfg:      cfg,
		store:    store,
		svc:      tracker.New(cfg, store, opts...),
		notifier: notifier,
	}
}

func at(value string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		panic(err)
	}
	return t
}

func int64Ptr(v int64) *int64 { return &v }
