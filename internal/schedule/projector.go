package schedule

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
)

// SearchHorizonDays caps the day-by-day walk in DateForEpisode and
// AiringsBetween: five years plus a month of slack. A schedule whose episode
// is not found inside the horizon (for example one with no weekdays) yields
// the indeterminate result instead of looping forever.
const SearchHorizonDays = 5*365 + 31

// AiringSchedule is the airing pattern of one series. Optional fields are
// pointers; nil means unknown.
type AiringSchedule struct {
	StartDate     *civil.Date
	Weekdays      WeekdaySet
	TotalEpisodes *int
	// Override is a one-off air date that supersedes the weekly pattern for
	// one episode.
	Override *civil.Date
	// OverrideEpisode is the episode Override belongs to. nil means the
	// episode after the viewer's current one.
	OverrideEpisode *int
}

// Validation errors returned by AiringSchedule.Validate.
var (
	ErrTotalEpisodes   = errors.New("total episodes must be at least 1")
	ErrOverrideEpisode = errors.New("override episode must be at least 1")
)

// Validate rejects numeric fields that cannot describe a real series.
func (s AiringSchedule) Validate() error {
	if s.TotalEpisodes != nil && *s.TotalEpisodes < 1 {
		return ErrTotalEpisodes
	}
	if s.OverrideEpisode != nil && *s.OverrideEpisode < 1 {
		return ErrOverrideEpisode
	}
	return nil
}

// ProjectedAiring is a concrete air date for a specific episode.
type ProjectedAiring struct {
	Date         civil.Date
	Episode      int
	FromOverride bool
}

// episodeCap returns the total episode count when it is known.
func (s AiringSchedule) episodeCap() (int, bool) {
	if s.TotalEpisodes == nil {
		return 0, false
	}
	return *s.TotalEpisodes, true
}

// ExpectedEpisodeCount returns how many episodes should have aired by asOf,
// inclusive. It is capped at the total episode count when that is known.
// ok is false when the start date or weekdays are missing.
func ExpectedEpisodeCount(s AiringSchedule, asOf civil.Date) (int, bool) {
	if s.StartDate == nil || s.Weekdays.Empty() {
		return 0, false
	}
	start := *s.StartDate
	if asOf.Before(start) {
		return 0, true
	}
	limit, capped := s.episodeCap()
	if capped && limit <= 0 {
		return 0, true
	}
	count := 0
	for day := start; !day.After(asOf); day = day.AddDays(1) {
		if !s.Weekdays.Has(weekdayOf(day)) {
			continue
		}
		count++
		if capped && count >= limit {
			return limit, true
		}
	}
	return count, true
}

// DateForEpisode returns the day episode target (1-based) airs on. ok is
// false when target is below 1, the start date is missing, target is past
// the total episode count, or the episode is not found within
// SearchHorizonDays.
func DateForEpisode(s AiringSchedule, target int) (civil.Date, bool) {
	if target < 1 || s.StartDate == nil {
		return civil.Date{}, false
	}
	if limit, capped := s.episodeCap(); capped && target > limit {
		return civil.Date{}, false
	}
	day := *s.StartDate
	count := 0
	for i := 0; i < SearchHorizonDays; i++ {
		if s.Weekdays.Has(weekdayOf(day)) {
			count++
			if count == target {
				return day, true
			}
		}
		day = day.AddDays(1)
	}
	return civil.Date{}, false
}

// OverrideAiring returns the override as an airing of the episode it
// belongs to. ok is false when no override is set, the date is before from,
// the episode is already watched, or it lies past the total episode count.
func OverrideAiring(s AiringSchedule, from civil.Date, currentEpisode int) (ProjectedAiring, bool) {
	if s.Override == nil || s.Override.Before(from) {
		return ProjectedAiring{}, false
	}
	if currentEpisode < 0 {
		currentEpisode = 0
	}
	episode := currentEpisode + 1
	if s.OverrideEpisode != nil {
		episode = *s.OverrideEpisode
	}
	if episode <= currentEpisode {
		return ProjectedAiring{}, false
	}
	if limit, capped := s.episodeCap(); capped && episode > limit {
		return ProjectedAiring{}, false
	}
	return ProjectedAiring{Date: *s.Override, Episode: episode, FromOverride: true}, true
}

// NextAiringOnOrAfter projects the episode after currentEpisode. An
// override for that episode whose date is not before from always wins over
// the weekly pattern, even when the weekly date is earlier. An override for
// a later episode does not move this one. Without an applicable override
// the weekly date is returned as is; a date before from means the episode
// is already out.
func NextAiringOnOrAfter(s AiringSchedule, from civil.Date, currentEpisode int) (ProjectedAiring, bool) {
	if currentEpisode < 0 {
		currentEpisode = 0
	}
	target := currentEpisode + 1
	if limit, capped := s.episodeCap(); capped && target > limit {
		return ProjectedAiring{}, false
	}
	if override, ok := OverrideAiring(s, from, currentEpisode); ok && override.Episode == target {
		return override, true
	}
	day, ok := DateForEpisode(s, target)
	if !ok {
		return ProjectedAiring{}, false
	}
	return ProjectedAiring{Date: day, Episode: target}, true
}

// IsBehindSchedule returns how many aired episodes the viewer has not watched yet as
// of asOf. ok follows ExpectedEpisodeCount.
func IsBehindSchedule(s AiringSchedule, asOf civil.Date, currentEpisode int) (int, bool) {
	expected, ok := ExpectedEpisodeCount(s, asOf)
	if !ok {
		return 0, false
	}
	if behind := expected - currentEpisode; behind > 0 {
		return behind, true
	}
	return 0, true
}

// AiringsBetween lists every weekly airing that falls inside [from, to],
// numbered from the start date and capped at the total episode count. The
// walk stops at SearchHorizonDays past the start date.
func AiringsBetween(s AiringSchedule, from, to civil.Date) []ProjectedAiring {
	if s.StartDate == nil || s.Weekdays.Empty() || to.Before(from) {
		return nil
	}
	limit, capped := s.episodeCap()
	var out []ProjectedAiring
	day := *s.StartDate
	count := 0
	for i := 0; i < SearchHorizonDays && !day.After(to); i++ {
		if s.Weekdays.Has(weekdayOf(day)) {
			count++
			if capped && count > limit {
				break
			}
			if !day.Before(from) {
				out = append(out, ProjectedAiring{Date: day, Episode: count})
			}
		}
		day = day.AddDays(1)
	}
	return out
}

// DateOf returns the calendar day of t in loc. A nil loc uses t's own
// location.
func DateOf(t time.Time, loc *time.Location) civil.Date {
	if loc != nil {
		t = t.In(loc)
	}
	return civil.DateOf(t)
}

// ParseDate parses a YYYY-MM-DD date. Longer timestamps are truncated to
// their date part.
func ParseDate(value string) (civil.Date, error) {
	if len(value) > 10 {
		value = value[:10]
	}
	return civil.ParseDate(value)
}

func weekdayOf(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}
