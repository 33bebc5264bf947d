package progress

// Stats is the library tally achievements are measured against.
type Stats struct {
	Total           int `json:"total"`
	Watching        int `json:"watching"`
	Completed       int `json:"completed"`
	PlanToWatch     int `json:"plan_to_watch"`
	Paused          int `json:"paused"`
	Dropped         int `json:"dropped"`
	Rated           int `json:"rated"`
	EpisodesWatched int `json:"episodes_watched"`
	// AverageRating is zero when nothing is rated.
	AverageRating float64 `json:"average_rating"`
}

// Achievement is a fixed milestone.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Target      int    `json:"target"`
	metric      func(Stats) int
}

// AchievementProgress reports how close the viewer is to one achievement.
type AchievementProgress struct {
	Achievement
	Current  int  `json:"current"`
	Unlocked bool `json:"unlocked"`
}

func episodes(s Stats) int  { return s.EpisodesWatched }
func completed(s Stats) int { return s.Completed }
func rated(s Stats) int     { return s.Rated }
func tracked(s Stats) int   { return s.Total }

var catalogue = []Achievement{
	{ID: "first_episode", Title: "First Steps", Description: "Watch your first episode", Target: 1, metric: episodes},
	{ID: "episodes_100", Title: "Binge Watcher", Description: "Watch 100 episodes", Target: 100, metric: episodes},
	{ID: "episodes_500", Title: "Marathoner", Description: "Watch 500 episodes", Target: 500, metric: episodes},
	{ID: "first_completion", Title: "Finisher", Description: "Complete a series", Target: 1, metric: completed},
	{ID: "completed_10", Title: "Collector", Description: "Complete 10 series", Target: 10, metric: completed},
	{ID: "completed_50", Title: "Veteran", Description: "Complete 50 series", Target: 50, metric: completed},
	{ID: "first_rating", Title: "Critic", Description: "Rate a completed series", Target: 1, metric: rated},
	{ID: "rated_25", Title: "Seasoned Critic", Description: "Rate 25 series", Target: 25, metric: rated},
	{ID: "library_20", Title: "Curator", Description: "Track 20 titles", Target: 20, metric: tracked},
}

// Achievements returns the catalogue in display order.
func Achievements() []Achievement {
	out := make([]Achievement, len(catalogue))
	copy(out, catalogue)
	return out
}

// Evaluate measures stats against every achievement. Current is capped at
// the target.
func Evaluate(stats Stats) []AchievementProgress {
	out := make([]AchievementProgress, 0, len(catalogue))
	for _, a := range catalogue {
		current := a.metric(stats)
		if current > a.Target {
			current = a.Target
		}
		if current < 0 {
			current = 0
		}
		out = append(out, AchievementProgress{Achievement: a, Current: current, Unlocked: current >= a.Target})
	}
	return out
}

// NewlyUnlocked returns the unlocked achievements whose ID is not in known.
func NewlyUnlocked(results []AchievementProgress, known map[string]bool) []Achievement {
	var out []Achievement
	for _, r := range results {
		if r.Unlocked && !known[r.ID] {
			out = append(out, r.Achievement)
		}
	}
	return out
}
