// Package logs reads the daemon log file for `animelista logs`.
//
// Tail returns the last N lines with bounded memory. Follow polls for
// appended lines and starts over from the beginning when lumberjack rotates
// the file underneath it (the file shrinks below the last offset).
package logs
