// Package tracker is the application layer of animelista.
//
// A Service composes the library store, the pure schedule projector, the
// AniList catalog, the leveling rules and the notification pipeline. CLI
// commands and API handlers call it instead of touching those packages
// directly, so every surface applies the same status transitions, XP awards
// and notification rules.
//
// "Today" always comes from the injected clock in the configured timezone.
package tracker
