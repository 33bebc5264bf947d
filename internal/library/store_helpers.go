package library

import (
	"database/sql"
	"errors"
	"time"

	"cloud.google.com/go/civil"

	"github.com/bhaskara2k/animelista-sub000/internal/schedule"
)

const entryColumns = "id, catalog_id, title, title_native, status, current_episode, total_episodes, rating, start_date, weekdays, next_airing_override, cover_url, synopsis, synopsis_translated, notes, created_at, updated_at, completed_at, last_synced_at, next_airing_override_episode, episodes_rewarded, completion_rewarded"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(scanner rowScanner) (*Entry, error) {
	var (
		id                 int64
		catalogID          sql.NullInt64
		title              string
		titleNative        sql.NullString
		statusStr          string
		currentEpisode     int
		totalEpisodes      sql.NullInt64
		rating             sql.NullInt64
		startRaw           sql.NullString
		weekdays           int64
		overrideRaw        sql.NullString
		coverURL           sql.NullString
		synopsis           sql.NullString
		synopsisTranslated sql.NullString
		notes              sql.NullString
		createdRaw         string
		updatedRaw         string
		completedRaw       sql.NullString
		syncedRaw          sql.NullString
		overrideEpisode    sql.NullInt64
		episodesRewarded   int
		completionRewarded bool
	)
	if err := scanner.Scan(
		&id,
		&catalogID,
		&title,
		&titleNative,
		&statusStr,
		&currentEpisode,
		&totalEpisodes,
		&rating,
		&startRaw,
		&weekdays,
		&overrideRaw,
		&coverURL,
		&synopsis,
		&synopsisTranslated,
		&notes,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
		&syncedRaw,
		&overrideEpisode,
		&episodesRewarded,
		&completionRewarded,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:                 id,
		Title:              title,
		TitleNative:        titleNative.String,
		Status:             Status(statusStr),
		CurrentEpisode:     currentEpisode,
		Weekdays:           schedule.WeekdaySet(weekdays),
		CoverURL:           coverURL.String,
		Synopsis:           synopsis.String,
		SynopsisTranslated: synopsisTranslated.String,
		Notes:              notes.String,
		StartDate:          parseDateColumn(startRaw),
		NextAiringOverride: parseDateColumn(overrideRaw),
		CompletedAt:        parseTimeColumn(completedRaw),
		LastSyncedAt:       parseTimeColumn(syncedRaw),
		EpisodesRewarded:   episodesRewarded,
		CompletionRewarded: completionRewarded,
	}
	if catalogID.Valid {
		v := catalogID.Int64
		entry.CatalogID = &v
	}
	if totalEpisodes.Valid {
		v := int(totalEpisodes.Int64)
		entry.TotalEpisodes = &v
	}
	if overrideEpisode.Valid {
		v := int(overrideEpisode.Int64)
		entry.NextAiringOverrideEpisode = &v
	}
	if rating.Valid {
		v := int(rating.Int64)
		entry.Rating = &v
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableDate(value *civil.Date) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return value.String()
}

// timeLayout is fixed width so stored timestamps compare lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func parseTimeColumn(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

// parseDateColumn drops unparsable dates rather than failing the row; the
// projector treats a missing date as unknown.
func parseDateColumn(value sql.NullString) *civil.Date {
	if !value.Valid || value.String == "" {
		return nil
	}
	d, err := civil.ParseDate(value.String)
	if err != nil {
		return nil
	}
	return &d
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
