// Package services defines shared utilities consumed by the library, tracker,
// daemon and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp anime IDs and correlation identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper, which the API layer maps
//     onto HTTP status codes.
//
// The package has no subpackages. Clients for outside services live next to
// their callers: the LLM client in internal/llm, the ntfy publisher in
// internal/notifications and the AniList client in internal/catalog.
package services
