package tracker

import (
	"context"
	"sort"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/schedule"
)

// pastWindowDays bounds how far back DueAirings looks for aired episodes
// that were never announced.
const pastWindowDays = 7

// UpcomingItem is one episode airing inside a window.
type UpcomingItem struct {
	Entry  *library.Entry
	Airing schedule.ProjectedAiring
}

// BehindItem is a watching entry with aired but unwatched episodes.
type BehindItem struct {
	Entry    *library.Entry
	Expected int
	Behind   int
}

// NextResult is the projected next episode of one entry. Airing is nil when
// the projection is indeterminate or the series is finished.
type NextResult struct {
	Entry  *library.Entry
	Airing *schedule.ProjectedAiring
}

var activeStatuses = []library.Status{library.StatusWatching, library.StatusPlanToWatch}

// Upcoming lists unwatched episodes of watching and planned entries airing
// between today and today+days inclusive, ordered by date then title.
func (s *Service) Upcoming(ctx context.Context, days int) ([]UpcomingItem, error) {
	if days < 0 {
		days = 0
	}
	entries, err := s.store.List(ctx, library.Filter{Statuses: activeStatuses})
	if err != nil {
		return nil, err
	}
	today := s.Today()
	items := collectAirings(entries, today, today.AddDays(days), today)
	sortUpcoming(items)
	return items, nil
}

// Behind lists watching entries whose expected episode count exceeds the
// watched count, most behind first.
func (s *Service) Behind(ctx context.Context) ([]BehindItem, error) {
	entries, err := s.store.List(ctx, library.Filter{Statuses: []library.Status{library.StatusWatching}, OnlyScheduled: true})
	if err != nil {
		return nil, err
	}
	today := s.Today()
	var items []BehindItem
	for _, entry := range entries {
		behind, ok := schedule.IsBehindSchedule(entry.Schedule(), today, entry.CurrentEpisode)
		if !ok || behind == 0 {
			continue
		}
		items = append(items, BehindItem{Entry: entry, Expected: entry.CurrentEpisode + behind, Behind: behind})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Behind != items[j].Behind {
			return items[i].Behind > items[j].Behind
		}
		return lessTitle(items[i].Entry, items[j].Entry)
	})
	return items, nil
}

// Next projects the episode after the entry's current one, as of today.
func (s *Service) Next(ctx context.Context, id int64) (NextResult, error) {
	entry, err := s.store.GetByID(ctx, id)
	if err != nil {
		return NextResult{}, err
	}
	return NextResult{Entry: entry, Airing: nextAiring(entry, s.Today())}, nil
}

func nextAiring(entry *library.Entry, today civil.Date) *schedule.ProjectedAiring {
	airing, ok := schedule.NextAiringOnOrAfter(entry.Schedule(), today, entry.CurrentEpisode)
	if !ok {
		return nil
	}
	return &airing
}

// DueAirings lists unwatched episodes of watching entries from a week ago
// through the notification lead window.
func (s *Service) DueAirings(ctx context.Context) ([]UpcomingItem, error) {
	entries, err := s.store.List(ctx, library.Filter{Statuses: []library.Status{library.StatusWatching}})
	if err != nil {
		return nil, err
	}
	today := s.Today()
	items := collectAirings(entries, today.AddDays(-pastWindowDays), today.AddDays(s.leadDays), today)
	sortUpcoming(items)
	return items, nil
}

// collectAirings projects every unwatched episode of entries inside
// [from, to]. A pending override replaces the weekly date of the episode it
// belongs to.
func collectAirings(entries []*library.Entry, from, to, today civil.Date) []UpcomingItem {
	var items []UpcomingItem
	for _, entry := range entries {
		sched := entry.Schedule()
		var override *schedule.ProjectedAiring
		if airing, ok := schedule.OverrideAiring(sched, today, entry.CurrentEpisode); ok {
			override = &airing
		}
		for _, airing := range schedule.AiringsBetween(sched, from, to) {
			if airing.Episode <= entry.CurrentEpisode {
				continue
			}
			if override != nil && airing.Episode == override.Episode {
				continue
			}
			items = append(items, UpcomingItem{Entry: entry, Airing: airing})
		}
		if override != nil && !override.Date.Before(from) && !override.Date.After(to) {
			items = append(items, UpcomingItem{Entry: entry, Airing: *override})
		}
	}
	return items
}

func sortUpcoming(items []UpcomingItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Airing.Date != b.Airing.Date {
			return a.Airing.Date.Before(b.Airing.Date)
		}
		if a.Entry.ID != b.Entry.ID {
			return lessTitle(a.Entry, b.Entry)
		}
		return a.Airing.Episode < b.Airing.Episode
	})
}

func lessTitle(a, b *library.Entry) bool {
	ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title)
	if ta != tb {
		return ta < tb
	}
	return a.ID < b.ID
}
