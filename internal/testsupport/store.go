package testsupport

import (
	"context"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/bhaskara2k/animelista-sub000/internal/config"
	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/schedule"
)

// MustOpenStore opens a library.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...library.Option) *library.Store {
	t.Helper()

	store, err := library.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddEntry inserts an entry for tests.
func AddEntry(t testing.TB, store *library.Store, entry library.Entry) *library.Entry {
	t.Helper()

	added, err := store.Add(context.Background(), &entry)
	if err != nil {
		t.Fatalf("store.Add(%q): %v", entry.Title, err)
	}
	return added
}

// Date parses a YYYY-MM-DD literal or fails the test.
func Date(t testing.TB, value string) civil.Date {
	t.Helper()

	d, err := schedule.ParseDate(value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return d
}

// DatePtr is Date returning a pointer.
func DatePtr(t testing.TB, value string) *civil.Date {
	t.Helper()

	d := Date(t, value)
	return &d
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// FixedClock returns a clock that always reports the given instant.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// Clock is a settable time source for tests that advance time.
type Clock struct {
	mu sync.Mutex
	at time.Time
}

// NewClock starts a clock at the given instant.
func NewClock(at time.Time) *Clock {
	return &Clock{at: at}
}

// Now reports the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
}
