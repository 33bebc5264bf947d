package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/schedule"
)

func formatDate(d *civil.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func formatEpisodes(entry *library.Entry) string {
	total := "?"
	if entry.TotalEpisodes != nil {
		total = strconv.Itoa(*entry.TotalEpisodes)
	}
	return fmt.Sprintf("%d/%s", entry.CurrentEpisode, total)
}

func formatRating(rating *int) string {
	if rating == nil {
		return "-"
	}
	return fmt.Sprintf("%d/10", *rating)
}

// formatAiring renders "2024-03-24 Sun (in 4d)". Override dates carry a
// trailing asterisk.
func formatAiring(airing *schedule.ProjectedAiring, today civil.Date) string {
	if airing == nil {
		return "-"
	}
	label := fmt.Sprintf("%s %s", airing.Date, airing.Date.In(time.UTC).Weekday().String()[:3])
	if airing.FromOverride {
		label += "*"
	}
	return label + " (" + relativeDays(airing.Date.DaysSince(today)) + ")"
}

func relativeDays(days int) string {
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days == -1:
		return "yesterday"
	case days < 0:
		return fmt.Sprintf("%dd ago", -days)
	default:
		return fmt.Sprintf("in %dd", days)
	}
}

func truncate(value string, width int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if width <= 1 || len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}

func parseStatuses(values []string) ([]library.Status, error) {
	var out []library.Status
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, err := library.ParseStatus(part)
			if err != nil {
				return nil, err
			}
			out = append(out, status)
		}
	}
	return out, nil
}
