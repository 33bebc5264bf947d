package library_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/progress"
	"github.com/bhaskara2k/animelista-sub000/internal/schedule"
	"github.com/bhaskara2k/animelista-sub000/internal/services"
	"github.com/bhaskara2k/animelista-sub000/internal/testsupport"
)

func int64Ptr(v int64) *int64 { return &v }

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != 4 {
		t.Fatalf("expected schema version 4, got %d", version)
	}
	if store.Path() != cfg.DatabasePath() {
		t.Fatalf("unexpected path %q", store.Path())
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened := testsupport.MustOpenStore(t, cfg)
	if err := reopened.Ping(ctx); err != nil {
		t.Fatalf("reopen ping: %v", err)
	}
}

func TestAddAndGetRoundTrip(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	added := testsupport.AddEntry(t, store, library.Entry{
		CatalogID:          int64Ptr(154587),
		Title:              "  Frieren  ",
		TitleNative:        "葬送のフリーレン",
		TotalEpisodes:      testsupport.IntPtr(28),
		StartDate:          testsupport.DatePtr(t, "2023-09-29"),
		Weekdays:           schedule.NewWeekdaySet(time.Friday),
		NextAiringOverride: testsupport.DatePtr(t, "2023-10-06"),
	})
	if added.ID == 0 {
		t.Fatal("expected id to be assigned")
	}
	if added.Status != library.StatusPlanToWatch {
		t.Fatalf("expected default status, got %q", added.Status)
	}
	if added.Title != "Frieren" {
		t.Fatalf("expected trimmed title, got %q", added.Title)
	}

	fetched, err := store.GetByID(ctx, added.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	want := added.Schedule()
	if diff := cmp.Diff(want, fetched.Schedule()); diff != "" {
		t.Fatalf("schedule mismatch (-want +got):\n%s", diff)
	}
	if fetched.TitleNative != "葬送のフリーレン" {
		t.Fatalf("unexpected native title %q", fetched.TitleNative)
	}

	found, err := store.FindByCatalogID(ctx, 154587)
	if err != nil {
		t.Fatalf("FindByCatalogID: %v", err)
	}
	if found == nil || found.ID != added.ID {
		t.Fatalf("expected to find entry by catalog id, got %#v", found)
	}
	missing, err := store.FindByCatalogID(ctx, 1)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown catalog id, got %#v %v", missing, err)
	}
}

func TestAddValidation(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	cases := map[string]library.Entry{
		"blank title":      {Title: "   "},
		"bad status":       {Title: "x", Status: "binging"},
		"negative episode": {Title: "x", CurrentEpisode: -1},
	}
	for name, entry := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Add(ctx, &entry); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	testsupport.AddEntry(t, store, library.Entry{Title: "Dandadan", CatalogID: int64Ptr(171018)})
	if _, err := store.Add(ctx, &library.Entry{Title: "Dandadan again", CatalogID: int64Ptr(171018)}); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict for duplicate catalog id, got %v", err)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := store.GetByID(context.Background(), 999)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.SetProgress(context.Background(), 999, 1); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found from SetProgress, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.AddEntry(t, store, library.Entry{Title: "Mushishi", Status: library.StatusCompleted})
	testsupport.AddEntry(t, store, library.Entry{Title: "apothecary diaries", Status: library.StatusWatching,
		StartDate: testsupport.DatePtr(t, "2025-01-10"), Weekdays: schedule.NewWeekdaySet(time.Friday)})
	testsupport.AddEntry(t, store, library.Entry{Title: "100%_Orange", Status: library.StatusWatching})
	testsupport.AddEntry(t, store, library.Entry{Title: "Kaiju No. 8", Status: library.StatusDropped})

	titles := func(entries []*library.Entry) []string {
		out := make([]string, 0, len(entries))
		for _, e := range entries {
			out = append(out, e.Title)
		}
		return out
	}

	cases := []struct {
		name   string
		filter library.Filter
		want   []string
	}{
		{"all sorted case-insensitively", library.Filter{}, []string{"100%_Orange", "apothecary diaries", "Kaiju No. 8", "Mushishi"}},
		{"by status", library.Filter{Statuses: []library.Status{library.StatusWatching, library.StatusDropped}}, []string{"100%_Orange", "apothecary diaries", "Kaiju No. 8"}},
		{"query", library.Filter{Query: "DIARIES"}, []string{"apothecary diaries"}},
		{"query escapes wildcards", library.Filter{Query: "%_"}, []string{"100%_Orange"}},
		{"only scheduled", library.Filter{OnlyScheduled: true}, []string{"apothecary diaries"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := store.List(ctx, tc.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if diff := cmp.Diff(tc.want, titles(entries)); diff != "" {
				t.Fatalf("titles mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpdateAndRemove(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	entry := testsupport.AddEntry(t, store, library.Entry{Title: "Vinland Saga"})
	entry.Notes = "season 2 is the farm arc"
	entry.Status = library.StatusPaused
	if err := store.Update(ctx, entry); err != nil {
		t.Fatalf("Update: %v", err)
	}
	fetched, err := store.GetByID(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Notes != entry.Notes || fetched.Status != library.StatusPaused {
		t.Fatalf("update not persisted: %#v", fetched)
	}

	removed, err := store.Remove(ctx, entry.ID)
	if err != nil || !removed {
		t.Fatalf("Remove: %v %v", removed, err)
	}
	removed, err = store.Remove(ctx, entry.ID)
	if err != nil || removed {
		t.Fatalf("second Remove should report false, got %v %v", removed, err)
	}
	if err := store.Update(ctx, entry); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found updating removed entry, got %v", err)
	}
}

func TestSetProgressTransitions(t *testing.T) {
	now := time.Date(2024, 3, 24, 20, 0, 0, 0, time.UTC)
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t), library.WithClock(testsupport.FixedClock(now)))
	ctx := context.Background()

	entry := testsupport.AddEntry(t, store, library.Entry{Title: "Sousou", TotalEpisodes: testsupport.IntPtr(12)})

	change, err := store.SetProgress(ctx, entry.ID, 3)
	if err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	if change.EpisodesAdvanced != 3 || change.NewEpisodes != 3 || change.Completed || change.Entry.Status != library.StatusWatching {
		t.Fatalf("unexpected change %+v (status %s)", change, change.Entry.Status)
	}

	change, err = store.SetProgress(ctx, entry.ID, 40)
	if err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	if change.Entry.CurrentEpisode != 12 || change.EpisodesAdvanced != 9 || !change.Completed || !change.FirstCompletion {
		t.Fatalf("expected clamp to total and completion, got %+v", change)
	}
	if change.Entry.CompletedAt == nil || !change.Entry.CompletedAt.Equal(now) {
		t.Fatalf("expected completed_at %s, got %v", now, change.Entry.CompletedAt)
	}

	change, err = store.SetProgress(ctx, entry.ID, 11)
	if err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	if change.Entry.Status != library.StatusWatching || change.Entry.CompletedAt != nil || change.EpisodesAdvanced != -1 {
		t.Fatalf("rewinding should reopen the entry, got %+v", change)
	}

	change, err = store.SetProgress(ctx, entry.ID, -5)
	if err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	if change.Entry.CurrentEpisode != 0 {
		t.Fatalf("expected clamp to zero, got %d", change.Entry.CurrentEpisode)
	}

	change, err = store.SetProgress(ctx, entry.ID, 12)
	if err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	if !change.Completed || change.FirstCompletion || change.NewEpisodes != 0 || change.EpisodesAdvanced != 12 {
		t.Fatalf("re-watching must not count as new, got %+v", change)
	}
}

func TestSetProgressRaisesRewardMarks(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	entry := testsupport.AddEntry(t, store, library.Entry{Title: "Imported", CurrentEpisode: 4, TotalEpisodes: testsupport.IntPtr(6)})
	if entry.EpisodesRewarded != 4 || entry.CompletionRewarded {
		t.Fatalf("progress present at add time should count as rewarded, got %d %v", entry.EpisodesRewarded, entry.CompletionRewarded)
	}

	change, err := store.SetProgress(ctx, entry.ID, 2)
	if err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	if change.NewEpisodes != 0 || change.Entry.EpisodesRewarded != 4 {
		t.Fatalf("rewind must keep the mark, got %+v", change)
	}
	change, err = store.SetProgress(ctx, entry.ID, 6)
	if err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	if change.NewEpisodes != 2 || !change.FirstCompletion {
		t.Fatalf("expected 2 new episodes and first completion, got %+v", change)
	}
	stored, err := store.GetByID(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.EpisodesRewarded != 6 || !stored.CompletionRewarded {
		t.Fatalf("marks not stored: %d %v", stored.EpisodesRewarded, stored.CompletionRewarded)
	}
}

func TestSetRatingRequiresCompletion(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	entry := testsupport.AddEntry(t, store, library.Entry{Title: "Haikyu", TotalEpisodes: testsupport.IntPtr(2)})

	if _, err := store.SetRating(ctx, entry.ID, 9); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unfinished entry, got %v", err)
	}
	if _, err := store.SetProgress(ctx, entry.ID, 2); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	for _, bad := range []int{0, 11} {
		if _, err := store.SetRating(ctx, entry.ID, bad); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("rating %d: expected validation error, got %v", bad, err)
		}
	}
	change, err := store.SetRating(ctx, entry.ID, 9)
	if err != nil {
		t.Fatalf("SetRating: %v", err)
	}
	if !change.First || change.Entry.Rating == nil || *change.Entry.Rating != 9 {
		t.Fatalf("unexpected rating change %+v", change)
	}
	change, err = store.SetRating(ctx, entry.ID, 10)
	if err != nil {
		t.Fatalf("SetRating: %v", err)
	}
	if change.First {
		t.Fatal("re-rating should not count as first")
	}
}

func TestSetScheduleClampsProgress(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	entry := testsupport.AddEntry(t, store, library.Entry{Title: "Oshi no Ko", CurrentEpisode: 8, Status: library.StatusWatching})

	airing := schedule.AiringSchedule{
		StartDate:     testsupport.DatePtr(t, "2024-07-03"),
		Weekdays:      schedule.NewWeekdaySet(time.Wednesday),
		TotalEpisodes: testsupport.IntPtr(6),
	}
	updated, err := store.SetSchedule(ctx, entry.ID, airing)
	if err != nil {
		t.Fatalf("SetSchedule: %v", err)
	}
	if updated.CurrentEpisode != 6 {
		t.Fatalf("expected progress clamped to 6, got %d", updated.CurrentEpisode)
	}
	if diff := cmp.Diff(airing, updated.Schedule()); diff != "" {
		t.Fatalf("schedule mismatch (-want +got):\n%s", diff)
	}
	for _, total := range []int{-1, 0} {
		if _, err := store.SetSchedule(ctx, entry.ID, schedule.AiringSchedule{TotalEpisodes: testsupport.IntPtr(total)}); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("total %d: expected validation error, got %v", total, err)
		}
	}
	if _, err := store.Add(ctx, &library.Entry{Title: "Zero", TotalEpisodes: testsupport.IntPtr(0)}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error adding a zero total, got %v", err)
	}
}

func TestSetProgressCapsAtSingleEpisodeTotal(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	entry := testsupport.AddEntry(t, store, library.Entry{Title: "Movie", TotalEpisodes: testsupport.IntPtr(1)})

	change, err := store.SetProgress(ctx, entry.ID, 5)
	if err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	if change.Entry.CurrentEpisode != 1 || !change.Completed {
		t.Fatalf("expected clamp to 1 and completion, got %+v", change)
	}
}

func TestUpdateCatalogDataKeepsViewerState(t *testing.T) {
	now := time.Date(2024, 3, 24, 20, 0, 0, 0, time.UTC)
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t), library.WithClock(testsupport.FixedClock(now)))
	ctx := context.Background()
	entry := testsupport.AddEntry(t, store, library.Entry{Title: "Kaiju", CatalogID: int64Ptr(9), Status: library.StatusWatching, CurrentEpisode: 3, Notes: "keep"})

	stale, err := store.GetByID(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if _, err := store.SetProgress(ctx, entry.ID, 7); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}

	updated, err := store.UpdateCatalogData(ctx, entry.ID, func(e *library.Entry) {
		e.CurrentEpisode = stale.CurrentEpisode
		e.Status = library.StatusPlanToWatch
		e.CoverURL = "https://img.example/kaiju.jpg"
		e.ApplySchedule(schedule.AiringSchedule{
			StartDate:       testsupport.DatePtr(t, "2024-04-13"),
			Weekdays:        schedule.NewWeekdaySet(time.Saturday),
			TotalEpisodes:   testsupport.IntPtr(12),
			Override:        testsupport.DatePtr(t, "2024-06-08"),
			OverrideEpisode: testsupport.IntPtr(8),
		})
		e.LastSyncedAt = &now
	})
	if err != nil {
		t.Fatalf("UpdateCatalogData: %v", err)
	}
	if updated.CurrentEpisode != 7 || updated.Status != library.StatusWatching {
		t.Fatalf("viewer state overwritten in result: %+v", updated)
	}

	stored, err := store.GetByID(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.CurrentEpisode != 7 || stored.Status != library.StatusWatching || stored.Notes != "keep" {
		t.Fatalf("viewer state overwritten: episode %d status %s notes %q", stored.CurrentEpisode, stored.Status, stored.Notes)
	}
	if stored.CoverURL != "https://img.example/kaiju.jpg" || stored.LastSyncedAt == nil {
		t.Fatalf("catalog fields not stored: %+v", stored)
	}
	if stored.NextAiringOverrideEpisode == nil || *stored.NextAiringOverrideEpisode != 8 {
		t.Fatalf("override episode not stored: %v", stored.NextAiringOverrideEpisode)
	}

	clamped, err := store.UpdateCatalogData(ctx, entry.ID, func(e *library.Entry) {
		e.TotalEpisodes = testsupport.IntPtr(5)
	})
	if err != nil {
		t.Fatalf("UpdateCatalogData: %v", err)
	}
	if clamped.CurrentEpisode != 5 {
		t.Fatalf("expected progress clamped to new total, got %d", clamped.CurrentEpisode)
	}

	if _, err := store.UpdateCatalogData(ctx, 999, func(*library.Entry) {}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNotificationLog(t *testing.T) {
	clock := testsupport.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t), library.WithClock(clock.Now))
	ctx := context.Background()

	if seen, err := store.WasNotified(ctx, "episode:1:3"); err != nil || seen {
		t.Fatalf("expected unseen key, got %v %v", seen, err)
	}
	for i := 0; i < 2; i++ {
		if err := store.MarkNotified(ctx, "episode:1:3"); err != nil {
			t.Fatalf("MarkNotified: %v", err)
		}
	}
	if seen, err := store.WasNotified(ctx, "episode:1:3"); err != nil || !seen {
		t.Fatalf("expected seen key, got %v %v", seen, err)
	}

	clock.Advance(48 * time.Hour)
	if err := store.MarkNotified(ctx, "episode:1:4"); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	pruned, err := store.PruneNotifications(ctx, clock.Now().Add(-24*time.Hour))
	if err != nil || pruned != 1 {
		t.Fatalf("expected one pruned row, got %d %v", pruned, err)
	}
	if err := store.MarkNotified(ctx, ""); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestProfileAndAchievements(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	profile, err := store.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if diff := cmp.Diff(progress.NewProfile(), profile); diff != "" {
		t.Fatalf("fresh profile mismatch (-want +got):\n%s", diff)
	}

	updated, gained, err := store.AwardXP(ctx, 120, progress.Curve{BaseXP: 100, Growth: 1.5})
	if err != nil {
		t.Fatalf("AwardXP: %v", err)
	}
	if gained != 1 || updated.Level != 2 || updated.XP != 20 {
		t.Fatalf("unexpected award result %+v gained=%d", updated, gained)
	}
	reloaded, err := store.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if diff := cmp.Diff(updated, reloaded); diff != "" {
		t.Fatalf("persisted profile mismatch (-want +got):\n%s", diff)
	}

	fresh, err := store.UnlockAchievement(ctx, "first_episode")
	if err != nil || !fresh {
		t.Fatalf("expected new unlock, got %v %v", fresh, err)
	}
	fresh, err = store.UnlockAchievement(ctx, "first_episode")
	if err != nil || fresh {
		t.Fatalf("expected repeat unlock to be ignored, got %v %v", fresh, err)
	}
	unlocked, err := store.UnlockedAchievements(ctx)
	if err != nil {
		t.Fatalf("UnlockedAchievements: %v", err)
	}
	if _, ok := unlocked["first_episode"]; !ok || len(unlocked) != 1 {
		t.Fatalf("unexpected unlocked set %v", unlocked)
	}
}

func TestStats(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	done := testsupport.AddEntry(t, store, library.Entry{Title: "A", TotalEpisodes: testsupport.IntPtr(12)})
	if _, err := store.SetProgress(ctx, done.ID, 12); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	if _, err := store.SetRating(ctx, done.ID, 8); err != nil {
		t.Fatalf("SetRating: %v", err)
	}
	testsupport.AddEntry(t, store, library.Entry{Title: "B", Status: library.StatusWatching, CurrentEpisode: 5})
	testsupport.AddEntry(t, store, library.Entry{Title: "C"})

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := progress.Stats{Total: 3, Watching: 1, Completed: 1, PlanToWatch: 1, Rated: 1, EpisodesWatched: 17, AverageRating: 8}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]library.Status{
		"watching":      library.StatusWatching,
		"Plan-To-Watch": library.StatusPlanToWatch,
		"ptw":           library.StatusPlanToWatch,
		"on hold":       library.StatusPaused,
		"DONE":          library.StatusCompleted,
	}
	for input, want := range cases {
		got, err := library.ParseStatus(input)
		if err != nil || got != want {
			t.Fatalf("ParseStatus(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := library.ParseStatus("binging"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
