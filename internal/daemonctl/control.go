package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/bhaskara2k/animelista-sub000/internal/config"
)

const pollInterval = 100 * time.Millisecond

// ErrDaemonNotRunning indicates no process holds the daemon lock.
var ErrDaemonNotRunning = errors.New("daemon not running")

// PIDPath returns where the daemon records its process id.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "animelistad.pid")
}

// WritePIDFile records the current process id at path.
func WritePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// Running reports whether a daemon holds the lock, plus its PID when the
// PID file is readable.
func Running(cfg *config.Config) (bool, int, error) {
	lock := flock.New(cfg.LockPath())
	acquired, err := lock.TryLock()
	if err != nil {
		return false, 0, fmt.Errorf("probe daemon lock: %w", err)
	}
	if acquired {
		_ = lock.Unlock()
		return false, 0, nil
	}
	pid, _ := readPID(PIDPath(cfg))
	return true, pid, nil
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// Launch starts a detached `animelista daemon` process.
func Launch(executablePath, configPath string) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}
	args := []string{"daemon"}
	if path := strings.TrimSpace(configPath); path != "" {
		args = append(args, "--config", path)
	}
	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// EnsureStarted launches the daemon unless one is already running and
// waits up to timeout for it to take the lock.
func EnsureStarted(cfg *config.Config, executablePath, configPath string, timeout time.Duration) (StartResult, error) {
	running, pid, err := Running(cfg)
	if err != nil {
		return StartResult{}, err
	}
	if running {
		return StartResult{State: StartStateAlreadyRunning, PID: pid}, nil
	}
	if err := Launch(executablePath, configPath); err != nil {
		return StartResult{}, err
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		running, pid, err = Running(cfg)
		if err != nil {
			return StartResult{}, err
		}
		if running {
			return StartResult{State: StartStateStarted, PID: pid}, nil
		}
		time.Sleep(pollInterval)
	}
	return StartResult{}, fmt.Errorf("daemon did not start within %s; see %s", timeout, cfg.DaemonLogPath())
}

// StopResult captures daemon stop outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Stop sends SIGTERM to the running daemon and SIGKILL when it is still
// alive after gracePeriod.
func Stop(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	running, pid, err := Running(cfg)
	if err != nil {
		return StopResult{}, err
	}
	if !running {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid <= 0 {
		return StopResult{}, fmt.Errorf("daemon lock is held but pid file %s is unreadable", PIDPath(cfg))
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return StopResult{}, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	result := StopResult{PID: pid}
	if waitExit(proc, gracePeriod) {
		return result, nil
	}
	if err := proc.Kill(); err != nil {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	result.ForcedKill = true
	if err := os.Remove(PIDPath(cfg)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("remove pid file: %w", err)
	}
	return result, nil
}

func waitExit(proc *os.Process, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !alive(proc) {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}

func alive(proc *os.Process) bool {
	return proc.Signal(syscall.Signal(0)) == nil
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %s", path)
	}
	return pid, nil
}
