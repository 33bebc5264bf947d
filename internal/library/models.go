package library

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/bhaskara2k/animelista-sub000/internal/schedule"
)

// Status is the viewer's relationship with a title.
type Status string

const (
	StatusWatching    Status = "watching"
	StatusCompleted   Status = "completed"
	StatusPlanToWatch Status = "plan_to_watch"
	StatusPaused      Status = "paused"
	StatusDropped     Status = "dropped"
)

// AllStatuses lists every status in display order.
func AllStatuses() []Status {
	return []Status{StatusWatching, StatusPlanToWatch, StatusPaused, StatusCompleted, StatusDropped}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusWatching, StatusCompleted, StatusPlanToWatch, StatusPaused, StatusDropped:
		return true
	}
	return false
}

// Label renders the status for humans.
func (s Status) Label() string {
	switch s {
	case StatusPlanToWatch:
		return "Plan to watch"
	case "":
		return "-"
	default:
		v := string(s)
		return strings.ToUpper(v[:1]) + v[1:]
	}
}

// ParseStatus accepts the stored form plus a few spellings ("plan", "ptw",
// "plan-to-watch", "on hold").
func ParseStatus(value string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch normalized {
	case "plan", "ptw", "planned":
		return StatusPlanToWatch, nil
	case "on_hold", "hold":
		return StatusPaused, nil
	case "done", "finished":
		return StatusCompleted, nil
	}
	status := Status(normalized)
	if !status.Valid() {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return status, nil
}

// Entry is one title in the viewer's library.
type Entry struct {
	ID                 int64
	CatalogID          *int64
	Title              string
	TitleNative        string
	Status             Status
	CurrentEpisode     int
	TotalEpisodes      *int
	Rating             *int
	StartDate          *civil.Date
	Weekdays           schedule.WeekdaySet
	NextAiringOverride *civil.Date
	CoverURL           string
	Synopsis           string
	SynopsisTranslated string
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CompletedAt        *time.Time
	LastSyncedAt       *time.Time
	// NextAiringOverrideEpisode is the episode the override date belongs
	// to; nil means the viewer's next episode.
	NextAiringOverrideEpisode *int
	// EpisodesRewarded is the highest episode that has earned XP.
	EpisodesRewarded int
	// CompletionRewarded is set once the completion bonus was granted.
	CompletionRewarded bool
}

// Schedule returns the airing pattern stored on the entry.
func (e *Entry) Schedule() schedule.AiringSchedule {
	if e == nil {
		return schedule.AiringSchedule{}
	}
	return schedule.AiringSchedule{
		StartDate:     e.StartDate,
		Weekdays:      e.Weekdays,
		TotalEpisodes:   e.TotalEpisodes,
		Override:        e.NextAiringOverride,
		OverrideEpisode: e.NextAiringOverrideEpisode,
	}
}

// ApplySchedule copies the airing pattern onto the entry.
func (e *Entry) ApplySchedule(s schedule.AiringSchedule) {
	e.StartDate = s.StartDate
	e.Weekdays = s.Weekdays
	e.TotalEpisodes = s.TotalEpisodes
	e.NextAiringOverride = s.Override
	e.NextAiringOverrideEpisode = s.OverrideEpisode
}

// IsActive reports whether new episodes matter to the viewer.
func (e *Entry) IsActive() bool {
	return e.Status == StatusWatching || e.Status == StatusPlanToWatch
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Statuses []Status
	// Query matches title or native title, case-insensitively.
	Query string
	// OnlyScheduled keeps entries with a start date and weekdays.
	OnlyScheduled bool
}

// ProgressChange describes the effect of SetProgress.
type ProgressChange struct {
	Entry            *Entry
	PreviousEpisode  int
	EpisodesAdvanced int
	// NewEpisodes counts episodes past the highest one rewarded before.
	// Rewinding and watching again does not raise it.
	NewEpisodes int
	// Completed is true when this call moved the entry to completed.
	Completed bool
	// FirstCompletion is true when Completed happened for the first time.
	FirstCompletion bool
}

// RatingChange describes the effect of SetRating.
type RatingChange struct {
	Entry *Entry
	// First is true when the entry had no rating before.
	First bool
}
