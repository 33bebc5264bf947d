// Package daemon coordinates the long-running animelista process.
//
// It wires configuration, the library store and the tracker into a single
// lifecycle with flock-based locking to prevent multiple instances. Two
// background loops keep the library current: a catalog refresh that pulls
// airing schedules from AniList, and a notification pass that announces aired
// episodes and the behind-schedule digest. The HTTP API exposes the library,
// the airing calendar and manual refresh.
//
// Keep orchestration logic here: projection and library rules live in
// internal/schedule and internal/tracker while the daemon focuses on startup,
// shutdown, and scheduling.
package daemon
