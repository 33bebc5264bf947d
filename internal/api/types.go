package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Airing is a projected air date for one episode.
type Airing struct {
	Date         string `json:"date"`
	Weekday      string `json:"weekday"`
	Episode      int    `json:"episode"`
	FromOverride bool   `json:"fromOverride"`
}

// Anime describes a library entry in a transport-friendly format.
type Anime struct {
	ID                 int64   `json:"id"`
	CatalogID          *int64  `json:"catalogId,omitempty"`
	CatalogURL         string  `json:"catalogUrl,omitempty"`
	Title              string  `json:"title"`
	TitleNative        string  `json:"titleNative,omitempty"`
	Status             string  `json:"status"`
	CurrentEpisode     int     `json:"currentEpisode"`
	TotalEpisodes      *int    `json:"totalEpisodes,omitempty"`
	Rating             *int    `json:"rating,omitempty"`
	StartDate          string  `json:"startDate,omitempty"`
	Weekdays           []int   `json:"weekdays"`
	NextAiringOverride string  `json:"nextAiringOverride,omitempty"`
	CoverURL           string  `json:"coverUrl,omitempty"`
	Synopsis           string  `json:"synopsis,omitempty"`
	SynopsisTranslated string  `json:"synopsisTranslated,omitempty"`
	Notes              string  `json:"notes,omitempty"`
	CreatedAt          string  `json:"createdAt,omitempty"`
	UpdatedAt          string  `json:"updatedAt,omitempty"`
	CompletedAt        string  `json:"completedAt,omitempty"`
	LastSyncedAt       string  `json:"lastSyncedAt,omitempty"`
	Next               *Airing `json:"next,omitempty"`
	// NextAiringOverrideEpisode is the episode the override belongs to.
	NextAiringOverrideEpisode *int `json:"nextAiringOverrideEpisode,omitempty"`
}

// AnimeListResponse wraps a collection of entries.
type AnimeListResponse struct {
	Items []Anime `json:"items"`
}

// AnimeResponse wraps a single entry.
type AnimeResponse struct {
	Anime Anime `json:"anime"`
}

// CreateAnimeRequest is the body of POST /api/anime. Either Title or
// CatalogID is required; a catalog id without a title imports the entry
// from the catalog.
type CreateAnimeRequest struct {
	Title              string `json:"title"`
	CatalogID          *int64 `json:"catalogId,omitempty"`
	Status             string `json:"status,omitempty"`
	CurrentEpisode     int    `json:"currentEpisode,omitempty"`
	TotalEpisodes      *int   `json:"totalEpisodes,omitempty"`
	StartDate          string `json:"startDate,omitempty"`
	Weekdays           []int  `json:"weekdays,omitempty"`
	NextAiringOverride string `json:"nextAiringOverride,omitempty"`
	// NextAiringOverrideEpisode pins the override to one episode. Omitted
	// means the viewer's next episode.
	NextAiringOverrideEpisode *int   `json:"nextAiringOverrideEpisode,omitempty"`
	Notes                     string `json:"notes,omitempty"`
}

// ProgressRequest is the body of POST /api/anime/{id}/progress.
type ProgressRequest struct {
	Episode int `json:"episode"`
}

// RatingRequest is the body of POST /api/anime/{id}/rating.
type RatingRequest struct {
	Rating int `json:"rating"`
}

// Achievement is one milestone and the viewer's progress toward it.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Target      int    `json:"target"`
	Current     int    `json:"current"`
	Unlocked    bool   `json:"unlocked"`
}

// Reward reports the XP side effects of a viewer action.
type Reward struct {
	XP           int           `json:"xp"`
	LevelsGained int           `json:"levelsGained"`
	Level        int           `json:"level"`
	Unlocked     []Achievement `json:"unlocked,omitempty"`
}

// ProgressResponse answers a progress update.
type ProgressResponse struct {
	Anime     Anime  `json:"anime"`
	Completed bool   `json:"completed"`
	Reward    Reward `json:"reward"`
}

// RatingResponse answers a rating update.
type RatingResponse struct {
	Anime  Anime  `json:"anime"`
	Reward Reward `json:"reward"`
}

// NextResponse answers GET /api/anime/{id}/next. Airing is null when the
// next episode cannot be projected.
type NextResponse struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Airing *Airing `json:"airing"`
}

// UpcomingItem is one calendar row.
type UpcomingItem struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Airing Airing `json:"airing"`
}

// UpcomingResponse lists episodes airing in the requested window.
type UpcomingResponse struct {
	Days  int            `json:"days"`
	Items []UpcomingItem `json:"items"`
}

// BehindItem is a watching entry with unwatched aired episodes.
type BehindItem struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	CurrentEpisode int    `json:"currentEpisode"`
	Expected       int    `json:"expected"`
	Behind         int    `json:"behind"`
}

// BehindResponse lists entries behind schedule, most behind first.
type BehindResponse struct {
	Items []BehindItem `json:"items"`
}

// Stats is the library tally.
type Stats struct {
	Total           int     `json:"total"`
	Watching        int     `json:"watching"`
	Completed       int     `json:"completed"`
	PlanToWatch     int     `json:"planToWatch"`
	Paused          int     `json:"paused"`
	Dropped         int     `json:"dropped"`
	Rated           int     `json:"rated"`
	EpisodesWatched int     `json:"episodesWatched"`
	AverageRating   float64 `json:"averageRating"`
}

// Profile is the leveling dashboard.
type Profile struct {
	Level        int           `json:"level"`
	XP           int           `json:"xp"`
	TotalXP      int           `json:"totalXp"`
	ToNextLevel  int           `json:"toNextLevel"`
	NextLevelXP  int           `json:"nextLevelXp"`
	Stats        Stats         `json:"stats"`
	Achievements []Achievement `json:"achievements"`
}

// LoopStatus reports the last run of a background loop.
type LoopStatus struct {
	IntervalMinutes int    `json:"intervalMinutes"`
	LastRun         string `json:"lastRun,omitempty"`
	LastError       string `json:"lastError,omitempty"`
	Runs            int    `json:"runs"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool       `json:"running"`
	PID          int        `json:"pid"`
	RunID        string     `json:"runId"`
	StartedAt    string     `json:"startedAt,omitempty"`
	DatabasePath string     `json:"databasePath"`
	LockFilePath string     `json:"lockFilePath"`
	Refresh      LoopStatus `json:"refresh"`
	Notify       LoopStatus `json:"notify"`
	Library      Stats      `json:"library"`
}

// RefreshResponse answers POST /api/refresh.
type RefreshResponse struct {
	Checked  int    `json:"checked"`
	Updated  int    `json:"updated"`
	Failed   int    `json:"failed"`
	Notified int    `json:"notified"`
	Error    string `json:"error,omitempty"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}
