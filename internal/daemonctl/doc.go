// Package daemonctl starts and stops a detached animelista daemon.
//
// The daemon is identified through two files in data_dir: the flock lock it
// holds while running and the PID file written by daemonrun. A held lock is
// the source of truth for "running"; the PID file only says which process
// to signal.
package daemonctl
