package tracker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/schedule"
)

// SortKey selects the list ordering.
type SortKey string

const (
	SortTitle      SortKey = "title"
	SortUpdated    SortKey = "updated"
	SortRating     SortKey = "rating"
	SortNextAiring SortKey = "next"
	SortProgress   SortKey = "progress"
)

// ParseSortKey validates a sort key; empty means title.
func ParseSortKey(value string) (SortKey, error) {
	key := SortKey(strings.ToLower(strings.TrimSpace(value)))
	switch key {
	case "":
		return SortTitle, nil
	case SortTitle, SortUpdated, SortRating, SortNextAiring, SortProgress:
		return key, nil
	default:
		return "", fmt.Errorf("unknown sort key %q (want title, updated, rating, next or progress)", value)
	}
}

// ListOptions narrows and orders List results.
type ListOptions struct {
	Statuses []library.Status
	Query    string
	Sort     SortKey
	Desc     bool
}

// ListItem is an entry with its projected next episode.
type ListItem struct {
	Entry *library.Entry
	Next  *schedule.ProjectedAiring
}

// List returns library entries with their next airing, ordered by opts.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]ListItem, error) {
	entries, err := s.store.List(ctx, library.Filter{Statuses: opts.Statuses, Query: opts.Query})
	if err != nil {
		return nil, err
	}
	today := s.Today()
	items := make([]ListItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, ListItem{Entry: entry, Next: nextAiring(entry, today)})
	}
	SortItems(items, opts.Sort, opts.Desc)
	return items, nil
}

// SortItems orders items in place. Items without a value for the key (no
// rating, no next airing) always sort last; ties fall back to title.
func SortItems(items []ListItem, key SortKey, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		cmp := compareBy(a, b, key)
		if cmp == 0 {
			return lessTitle(a.Entry, b.Entry)
		}
		if cmp == missingLast || cmp == -missingLast {
			return cmp < 0
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

// missingLast marks a comparison decided by one side lacking a value.
const missingLast = 2

func compareBy(a, b ListItem, key SortKey) int {
	switch key {
	case SortUpdated:
		return compareInts(a.Entry.UpdatedAt.UnixNano(), b.Entry.UpdatedAt.UnixNano())
	case SortRating:
		switch {
		case a.Entry.Rating == nil && b.Entry.Rating == nil:
			return 0
		case a.Entry.Rating == nil:
			return missingLast
		case b.Entry.Rating == nil:
			return -missingLast
		}
		return compareInts(int64(*a.Entry.Rating), int64(*b.Entry.Rating))
	case SortNextAiring:
		switch {
		case a.Next == nil && b.Next == nil:
			return 0
		case a.Next == nil:
			return missingLast
		case b.Next == nil:
			return -missingLast
		}
		switch {
		case a.Next.Date.Before(b.Next.Date):
			return -1
		case a.Next.Date.After(b.Next.Date):
			return 1
		}
		return 0
	case SortProgress:
		return compareInts(int64(a.Entry.CurrentEpisode), int64(b.Entry.CurrentEpisode))
	default:
		ta, tb := strings.ToLower(a.Entry.Title), strings.ToLower(b.Entry.Title)
		return strings.Compare(ta, tb)
	}
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func catalogURL(entry *library.Entry) string {
	if entry == nil || entry.CatalogID == nil {
		return ""
	}
	return fmt.Sprintf("https://anilist.co/anime/%d", *entry.CatalogID)
}
