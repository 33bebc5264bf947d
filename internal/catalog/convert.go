package catalog

import (
	"html"
	"regexp"
	"strings"
	"time"
	"unicode"

	"cloud.google.com/go/civil"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bhaskara2k/animelista-sub000/internal/schedule"
)

const daysPerWeek = 7

// ToSchedule derives the weekly airing pattern of m in loc.
//
// The weekday comes from the next airing timestamp when the series is still
// airing and from the start date otherwise. A missing start date is
// back-filled from the next airing assuming one episode per week. When the
// weekly pattern does not land the next episode on its announced day (a
// break week or a delayed episode) the announced day becomes the override
// for that episode number.
func ToSchedule(m *Media, loc *time.Location) schedule.AiringSchedule {
	var out schedule.AiringSchedule
	if m == nil {
		return out
	}
	if loc == nil {
		loc = time.UTC
	}
	if m.Episodes != nil && *m.Episodes > 0 {
		total := *m.Episodes
		out.TotalEpisodes = &total
	}
	if m.StartDate.Complete() {
		start := civil.Date{Year: m.StartDate.Year, Month: time.Month(m.StartDate.Month), Day: m.StartDate.Day}
		if start.IsValid() {
			out.StartDate = &start
		}
	}

	next := m.NextAiringEpisode
	if next == nil || next.AiringAt <= 0 || next.Episode < 1 {
		if out.StartDate != nil {
			out.Weekdays = schedule.NewWeekdaySet(out.StartDate.In(time.UTC).Weekday())
		}
		return out
	}

	nextDay := AiringDate(next.AiringAt, loc)
	out.Weekdays = schedule.NewWeekdaySet(nextDay.In(time.UTC).Weekday())
	if out.StartDate == nil || nextDay.Before(*out.StartDate) {
		start := nextDay.AddDays(-daysPerWeek * (next.Episode - 1))
		out.StartDate = &start
	}
	if weekly, ok := schedule.DateForEpisode(out, next.Episode); !ok || weekly != nextDay {
		override, episode := nextDay, next.Episode
		out.Override = &override
		out.OverrideEpisode = &episode
	}
	return out
}

// AiringDate converts a unix airing timestamp into a calendar day in loc.
func AiringDate(airingAt int64, loc *time.Location) civil.Date {
	return schedule.DateOf(time.Unix(airingAt, 0), loc)
}

// DisplayTitle picks the English title, then romaji, then native.
func DisplayTitle(m *Media) string {
	if m == nil {
		return ""
	}
	for _, candidate := range []string{m.Title.English, m.Title.Romaji, m.Title.Native} {
		if title := NormalizeTitle(candidate); title != "" {
			return title
		}
	}
	return ""
}

// NormalizeTitle collapses whitespace and title-cases titles that arrive
// entirely upper or lower case. Mixed-case titles are kept as written.
func NormalizeTitle(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return ""
	}
	if hasCasedLetters(value) && (value == strings.ToUpper(value) || value == strings.ToLower(value)) {
		// Casers carry state, so each call gets its own.
		return cases.Title(language.English).String(value)
	}
	return value
}

func hasCasedLetters(value string) bool {
	for _, r := range value {
		if unicode.IsUpper(r) || unicode.IsLower(r) {
			return true
		}
	}
	return false
}

var (
	lineBreakTags = regexp.MustCompile(`(?i)<br\s*/?>`)
	markupTags    = regexp.MustCompile(`<[^>]+>`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
)

// CleanDescription strips the light HTML AniList puts in synopses.
func CleanDescription(value string) string {
	value = lineBreakTags.ReplaceAllString(value, "\n")
	value = markupTags.ReplaceAllString(value, "")
	value = html.UnescapeString(value)
	value = strings.ReplaceAll(value, "\r\n", "\n")
	value = blankLines.ReplaceAllString(value, "\n\n")
	return strings.TrimSpace(value)
}
