// Package schedule projects weekly airing patterns onto calendar dates.
//
// An AiringSchedule describes when a series releases new episodes: a start
// date, the weekdays it airs on, an optional total episode count and an
// optional one-off override date for a delayed or special episode. The
// functions here answer three questions about such a schedule: how many
// episodes should be out by a given day, on which day a given episode airs,
// and what the next episode for a viewer is.
//
// Every function is pure. Nothing reads the system clock; callers pass the
// reference date explicitly. Missing or malformed schedule data never panics
// and never returns an error: results carry an ok flag that is false when the
// question cannot be answered (the indeterminate result). Date arithmetic
// works on civil dates, so time-of-day and daylight-saving shifts cannot move
// an airing across a day boundary.
package schedule
