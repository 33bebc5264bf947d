package catalog_test

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"

	"github.com/bhaskara2k/animelista-sub000/internal/catalog"
	"github.com/bhaskara2k/animelista-sub000/internal/schedule"
)

func intPtr(v int) *int { return &v }

func datePtr(y int, m time.Month, d int) *civil.Date {
	return &civil.Date{Year: y, Month: m, Day: d}
}

func unixAt(loc *time.Location, y int, m time.Month, d, hour int) int64 {
	return time.Date(y, m, d, hour, 0, 0, 0, loc).Unix()
}

func TestToSchedule(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)

	tests := []struct {
		name  string
		media catalog.Media
		loc   *time.Location
		want  schedule.AiringSchedule
	}{
		{
			name: "finished series uses start weekday",
			media: catalog.Media{
				Episodes:  intPtr(12),
				StartDate: catalog.FuzzyDate{Year: 2024, Month: 1, Day: 7},
			},
			want: schedule.AiringSchedule{
				StartDate:     datePtr(2024, time.January, 7),
				Weekdays:      schedule.NewWeekdaySet(time.Sunday),
				TotalEpisodes: intPtr(12),
			},
		},
		{
			name: "airing on pattern has no override",
			media: catalog.Media{
				Episodes:          intPtr(12),
				StartDate:         catalog.FuzzyDate{Year: 2024, Month: 1, Day: 5},
				NextAiringEpisode: &catalog.Airing{Episode: 3, AiringAt: unixAt(tokyo, 2024, time.January, 19, 23)},
			},
			loc: tokyo,
			want: schedule.AiringSchedule{
				StartDate:     datePtr(2024, time.January, 5),
				Weekdays:      schedule.NewWeekdaySet(time.Friday),
				TotalEpisodes: intPtr(12),
			},
		},
		{
			name: "break week becomes override",
			media: catalog.Media{
				StartDate:         catalog.FuzzyDate{Year: 2024, Month: 1, Day: 5},
				NextAiringEpisode: &catalog.Airing{Episode: 5, AiringAt: unixAt(tokyo, 2024, time.February, 9, 23)},
			},
			loc: tokyo,
			want: schedule.AiringSchedule{
				StartDate:       datePtr(2024, time.January, 5),
				Weekdays:        schedule.NewWeekdaySet(time.Friday),
				Override:        datePtr(2024, time.February, 9),
				OverrideEpisode: intPtr(5),
			},
		},
		{
			name: "timezone decides the weekday",
			media: catalog.Media{
				StartDate:         catalog.FuzzyDate{Year: 2024, Month: 1, Day: 5},
				NextAiringEpisode: &catalog.Airing{Episode: 1, AiringAt: unixAt(tokyo, 2024, time.January, 6, 1)},
			},
			loc: time.UTC,
			want: schedule.AiringSchedule{
				StartDate: datePtr(2024, time.January, 5),
				Weekdays:  schedule.NewWeekdaySet(time.Friday),
			},
		},
		{
			name: "missing start date is back-filled",
			media: catalog.Media{
				StartDate:         catalog.FuzzyDate{Year: 2024},
				NextAiringEpisode: &catalog.Airing{Episode: 3, AiringAt: unixAt(time.UTC, 2024, time.April, 17, 12)},
				Episodes:          intPtr(0),
			},
			loc: time.UTC,
			want: schedule.AiringSchedule{
				StartDate: datePtr(2024, time.April, 3),
				Weekdays:  schedule.NewWeekdaySet(time.Wednesday),
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := catalog.ToSchedule(&tc.media, tc.loc)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("schedule mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if got := catalog.ToSchedule(nil, nil); !got.Weekdays.Empty() || got.StartDate != nil {
		t.Fatalf("nil media should yield an empty schedule, got %#v", got)
	}
}

func TestDisplayTitle(t *testing.T) {
	tests := []struct {
		titles catalog.Titles
		want   string
	}{
		{catalog.Titles{English: "Frieren:  Beyond Journey's End", Romaji: "Sousou no Frieren"}, "Frieren: Beyond Journey's End"},
		{catalog.Titles{Romaji: "ONE PIECE"}, "One Piece"},
		{catalog.Titles{Romaji: "   ", Native: "葬送のフリーレン"}, "葬送のフリーレン"},
		{catalog.Titles{Romaji: "Dr. STONE"}, "Dr. STONE"},
	}
	for _, tc := range tests {
		got := catalog.DisplayTitle(&catalog.Media{Title: tc.titles})
		if got != tc.want {
			t.Fatalf("DisplayTitle(%+v) = %q, want %q", tc.titles, got, tc.want)
		}
	}
}

func TestCleanDescription(t *testing.T) {
	input := "The adventure is over.<br><br>\r\n<i>Frieren</i> &amp; friends<br/>set out again."
	want := "The adventure is over.\n\nFrieren & friends\nset out again."
	if got := catalog.CleanDescription(input); got != want {
		t.Fatalf("CleanDescription() = %q, want %q", got, want)
	}
}
