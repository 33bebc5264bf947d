package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bhaskara2k/animelista-sub000/internal/services"
)

const (
	defaultPerPage   = 10
	maxPerPage       = 50
	maxSchedulePages = 10
)

// FuzzyDate is AniList's partial date; zero parts are unknown.
type FuzzyDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Complete reports whether every part of the date is known.
func (d FuzzyDate) Complete() bool {
	return d.Year > 0 && d.Month > 0 && d.Day > 0
}

// Titles holds the title variants of a media record.
type Titles struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
	Native  string `json:"native"`
}

// Airing is one scheduled episode. AiringAt is a unix timestamp.
type Airing struct {
	Episode         int   `json:"episode"`
	AiringAt        int64 `json:"airingAt"`
	TimeUntilAiring int64 `json:"timeUntilAiring,omitempty"`
}

// CoverImage links to the cover artwork.
type CoverImage struct {
	Large  string `json:"large"`
	Medium string `json:"medium"`
}

// Media is an anime record.
type Media struct {
	ID                int64      `json:"id"`
	Title             Titles     `json:"title"`
	Format            string     `json:"format"`
	Status            string     `json:"status"`
	Episodes          *int       `json:"episodes"`
	Duration          *int       `json:"duration"`
	Season            string     `json:"season"`
	SeasonYear        int        `json:"seasonYear"`
	StartDate         FuzzyDate  `json:"startDate"`
	EndDate           FuzzyDate  `json:"endDate"`
	NextAiringEpisode *Airing    `json:"nextAiringEpisode"`
	CoverImage        CoverImage `json:"coverImage"`
	Description       string     `json:"description"`
	Genres            []string   `json:"genres"`
	AverageScore      *int       `json:"averageScore"`
}

// PageInfo describes a result page.
type PageInfo struct {
	Total       int  `json:"total"`
	CurrentPage int  `json:"currentPage"`
	LastPage    int  `json:"lastPage"`
	HasNextPage bool `json:"hasNextPage"`
}

// SearchResult is one page of search matches.
type SearchResult struct {
	PageInfo PageInfo `json:"pageInfo"`
	Media    []Media  `json:"media"`
}

const mediaFields = `
  id
  title { romaji english native }
  format
  status
  episodes
  duration
  season
  seasonYear
  startDate { year month day }
  endDate { year month day }
  nextAiringEpisode { episode airingAt timeUntilAiring }
  coverImage { large medium }
  description(asHtml: false)
  genres
  averageScore
`

const searchQuery = `query ($search: String, $page: Int, $perPage: Int) {
  Page(page: $page, perPage: $perPage) {
    pageInfo { total currentPage lastPage hasNextPage }
    media(search: $search, type: ANIME, sort: SEARCH_MATCH) {` + mediaFields + `}
  }
}`

const mediaQuery = `query ($id: Int) {
  Media(id: $id, type: ANIME) {` + mediaFields + `}
}`

const scheduleQuery = `query ($id: Int, $page: Int) {
  Page(page: $page, perPage: 50) {
    pageInfo { hasNextPage }
    airingSchedules(mediaId: $id, sort: EPISODE) { episode airingAt }
  }
}`

// Search looks up anime by title. page is 1-based; perPage is clamped to
// 1..50 with 10 used for non-positive values.
func (c *Client) Search(ctx context.Context, query string, page, perPage int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, component, "search", "query must not be empty", nil)
	}
	if page < 1 {
		page = 1
	}
	switch {
	case perPage <= 0:
		perPage = defaultPerPage
	case perPage > maxPerPage:
		perPage = maxPerPage
	}
	var data struct {
		Page SearchResult `json:"Page"`
	}
	vars := map[string]any{"search": query, "page": page, "perPage": perPage}
	if err := c.do(ctx, "search", searchQuery, vars, &data); err != nil {
		return nil, err
	}
	return &data.Page, nil
}

// Media fetches one anime by AniList id.
func (c *Client) Media(ctx context.Context, id int64) (*Media, error) {
	if id <= 0 {
		return nil, services.Wrap(services.ErrValidation, component, "media", fmt.Sprintf("invalid id %d", id), nil)
	}
	var data struct {
		Media *Media `json:"Media"`
	}
	if err := c.do(ctx, "media", mediaQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.Media == nil {
		return nil, services.Wrap(services.ErrNotFound, component, "media", fmt.Sprintf("anime %d", id), nil)
	}
	return data.Media, nil
}

// AiringSchedule lists every known airing of an anime ordered by episode.
func (c *Client) AiringSchedule(ctx context.Context, id int64) ([]Airing, error) {
	if id <= 0 {
		return nil, services.Wrap(services.ErrValidation, component, "schedule", fmt.Sprintf("invalid id %d", id), nil)
	}
	var airings []Airing
	for page := 1; page <= maxSchedulePages; page++ {
		var data struct {
			Page struct {
				PageInfo        PageInfo `json:"pageInfo"`
				AiringSchedules []Airing `json:"airingSchedules"`
			} `json:"Page"`
		}
		err := c.do(ctx, "schedule", scheduleQuery, map[string]any{"id": id, "page": page}, &data)
		if err != nil {
			if page > 1 && errors.Is(err, services.ErrTransient) {
				// Keep what was fetched; the next sync fills the rest.
				return airings, nil
			}
			return nil, err
		}
		airings = append(airings, data.Page.AiringSchedules...)
		if !data.Page.PageInfo.HasNextPage {
			break
		}
	}
	return airings, nil
}
