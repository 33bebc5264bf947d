package api

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/progress"
	"github.com/bhaskara2k/animelista-sub000/internal/schedule"
	"github.com/bhaskara2k/animelista-sub000/internal/services"
	"github.com/bhaskara2k/animelista-sub000/internal/tracker"
)

// FromEntry converts a library entry to its API representation. next may be
// nil.
func FromEntry(entry *library.Entry, next *schedule.ProjectedAiring) Anime {
	if entry == nil {
		return Anime{}
	}
	dto := Anime{
		ID:                 entry.ID,
		CatalogID:          entry.CatalogID,
		Title:              entry.Title,
		TitleNative:        entry.TitleNative,
		Status:             string(entry.Status),
		CurrentEpisode:     entry.CurrentEpisode,
		TotalEpisodes:      entry.TotalEpisodes,
		Rating:             entry.Rating,
		StartDate:          formatDate(entry.StartDate),
		Weekdays:           entry.Weekdays.Ints(),
		NextAiringOverride: formatDate(entry.NextAiringOverride),
		CoverURL:           entry.CoverURL,
		Synopsis:           entry.Synopsis,
		SynopsisTranslated: entry.SynopsisTranslated,
		Notes:              entry.Notes,
		CreatedAt:          formatTime(entry.CreatedAt),
		UpdatedAt:          formatTime(entry.UpdatedAt),
		Next:               FromAiring(next),
	}
	dto.NextAiringOverrideEpisode = entry.NextAiringOverrideEpisode
	if entry.CatalogID != nil {
		dto.CatalogURL = fmt.Sprintf("https://anilist.co/anime/%d", *entry.CatalogID)
	}
	if entry.CompletedAt != nil {
		dto.CompletedAt = formatTime(*entry.CompletedAt)
	}
	if entry.LastSyncedAt != nil {
		dto.LastSyncedAt = formatTime(*entry.LastSyncedAt)
	}
	return dto
}

// FromListItems converts tracker list rows.
func FromListItems(items []tracker.ListItem) []Anime {
	out := make([]Anime, 0, len(items))
	for _, item := range items {
		out = append(out, FromEntry(item.Entry, item.Next))
	}
	return out
}

// FromAiring converts a projected airing; nil stays nil.
func FromAiring(airing *schedule.ProjectedAiring) *Airing {
	if airing == nil {
		return nil
	}
	return &Airing{
		Date:         airing.Date.String(),
		Weekday:      airing.Date.In(time.UTC).Weekday().String(),
		Episode:      airing.Episode,
		FromOverride: airing.FromOverride,
	}
}

// FromUpcoming converts calendar rows.
func FromUpcoming(items []tracker.UpcomingItem) []UpcomingItem {
	out := make([]UpcomingItem, 0, len(items))
	for _, item := range items {
		airing := item.Airing
		out = append(out, UpcomingItem{
			ID:     item.Entry.ID,
			Title:  item.Entry.Title,
			Status: string(item.Entry.Status),
			Airing: *FromAiring(&airing),
		})
	}
	return out
}

// FromBehind converts behind-schedule rows.
func FromBehind(items []tracker.BehindItem) []BehindItem {
	out := make([]BehindItem, 0, len(items))
	for _, item := range items {
		out = append(out, BehindItem{
			ID:             item.Entry.ID,
			Title:          item.Entry.Title,
			CurrentEpisode: item.Entry.CurrentEpisode,
			Expected:       item.Expected,
			Behind:         item.Behind,
		})
	}
	return out
}

// FromStats converts the library tally.
func FromStats(stats progress.Stats) Stats {
	return Stats{
		Total:           stats.Total,
		Watching:        stats.Watching,
		Completed:       stats.Completed,
		PlanToWatch:     stats.PlanToWatch,
		Paused:          stats.Paused,
		Dropped:         stats.Dropped,
		Rated:           stats.Rated,
		EpisodesWatched: stats.EpisodesWatched,
		AverageRating:   stats.AverageRating,
	}
}

// FromProfile converts the leveling dashboard.
func FromProfile(view tracker.ProfileView) Profile {
	achievements := make([]Achievement, 0, len(view.Achievements))
	for _, a := range view.Achievements {
		achievements = append(achievements, Achievement{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			Target:      a.Target,
			Current:     a.Current,
			Unlocked:    a.Unlocked,
		})
	}
	return Profile{
		Level:        view.Profile.Level,
		XP:           view.Profile.XP,
		TotalXP:      view.Profile.TotalXP,
		ToNextLevel:  view.ToNextLevel,
		NextLevelXP:  view.NextLevelXP,
		Stats:        FromStats(view.Stats),
		Achievements: achievements,
	}
}

// FromReward converts the XP side effects of an action.
func FromReward(reward tracker.Reward) Reward {
	dto := Reward{
		XP:           reward.XP,
		LevelsGained: reward.LevelsGained,
		Level:        reward.Profile.Level,
	}
	for _, a := range reward.Unlocked {
		dto.Unlocked = append(dto.Unlocked, Achievement{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			Target:      a.Target,
			Current:     a.Target,
			Unlocked:    true,
		})
	}
	return dto
}

// ToEntry validates the request and builds the entry to insert.
func (r CreateAnimeRequest) ToEntry() (*library.Entry, error) {
	title := strings.TrimSpace(r.Title)
	if title == "" && r.CatalogID == nil {
		return nil, invalid("title or catalogId is required")
	}
	entry := &library.Entry{
		Title:          title,
		CatalogID:      r.CatalogID,
		CurrentEpisode: r.CurrentEpisode,
		TotalEpisodes:  r.TotalEpisodes,
		Notes:          strings.TrimSpace(r.Notes),
	}
	if r.CurrentEpisode < 0 {
		return nil, invalid("currentEpisode must be >= 0")
	}
	if r.TotalEpisodes != nil && *r.TotalEpisodes < 1 {
		return nil, invalid("totalEpisodes must be >= 1; omit it when unknown")
	}
	if r.NextAiringOverrideEpisode != nil && *r.NextAiringOverrideEpisode < 1 {
		return nil, invalid("nextAiringOverrideEpisode must be >= 1")
	}
	entry.NextAiringOverrideEpisode = r.NextAiringOverrideEpisode
	if strings.TrimSpace(r.Status) != "" {
		status, err := library.ParseStatus(r.Status)
		if err != nil {
			return nil, invalid(err.Error())
		}
		entry.Status = status
	}
	var err error
	if entry.StartDate, err = parseOptionalDate("startDate", r.StartDate); err != nil {
		return nil, err
	}
	if entry.NextAiringOverride, err = parseOptionalDate("nextAiringOverride", r.NextAiringOverride); err != nil {
		return nil, err
	}
	if entry.Weekdays, err = schedule.WeekdaysFromInts(r.Weekdays); err != nil {
		return nil, invalid(err.Error())
	}
	return entry, nil
}

func parseOptionalDate(field, value string) (*civil.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	d, err := schedule.ParseDate(value)
	if err != nil {
		return nil, invalid(fmt.Sprintf("%s must be YYYY-MM-DD", field))
	}
	return &d, nil
}

func invalid(message string) error {
	return services.Wrap(services.ErrValidation, "api", "decode", message, nil)
}

func formatDate(d *civil.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
