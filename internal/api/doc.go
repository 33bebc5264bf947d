// Package api defines wire-format types and converters for the HTTP API. It
// translates library entries, projected airings and leveling state into
// transport-friendly DTOs that the CLI and other consumers can render
// without coupling to internal types.
//
// # Key Types
//
// Anime: transport representation of a library entry with its schedule and
// projected next episode.
//
// Upcoming/Behind: airing calendar rows.
//
// Profile: level, XP, library stats and achievement progress.
//
// DaemonStatus: runtime state of the background refresh and notify loops.
//
// # Converters
//
// FromEntry, FromAiring, FromUpcoming, FromBehind, FromProfile convert
// tracker and library values. CreateAnimeRequest.ToEntry parses an
// incoming entry.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Calendar days are YYYY-MM-DD strings,
// timestamps use RFC3339 with milliseconds, weekdays are integers with
// 0 = Sunday.
package api
