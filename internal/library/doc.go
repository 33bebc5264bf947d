// Package library persists the viewer's anime list in SQLite.
//
// The Store owns the database handle, applies embedded goose migrations on
// open, and retries writes that hit SQLITE_BUSY so the daemon and CLI can
// share one file. Besides entries it keeps the notification log used to
// de-duplicate episode alerts, the leveling profile and unlocked
// achievements.
//
// Airing data lives on each Entry as plain columns; Entry.Schedule converts
// them into the value the schedule package projects.
package library
