// Command animelista is the command line front end of the anime tracker.
//
// It works directly on the local SQLite library, so every command is usable
// without a running daemon: add and edit titles, record progress, look at
// the airing calendar (upcoming, behind, next), pull schedules from AniList
// (search, import, sync), and ask the LLM for translations or
// recommendations. `animelista daemon` runs the background refresh and
// notification loops in the foreground; `animelista status` asks a running
// daemon over its HTTP API.
//
// Commands that list things accept --json for scripting; otherwise output
// is rendered as rounded tables.
package main
