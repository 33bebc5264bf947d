package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bhaskara2k/animelista-sub000/internal/api"
	"github.com/bhaskara2k/animelista-sub000/internal/config"
	"github.com/bhaskara2k/animelista-sub000/internal/daemonctl"
	"github.com/bhaskara2k/animelista-sub000/internal/daemonrun"
)

const statusTimeout = 5 * time.Second

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the background refresh and notification loops in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    strings.TrimSpace(logLevel),
				Development: development,
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&development, "dev", false, "Development logging (source locations)")
	return cmd
}

const (
	startTimeout    = 10 * time.Second
	stopGracePeriod = 15 * time.Second
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			executable, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			configPath := strings.TrimSpace(*ctx.configFlag)
			if configPath != "" {
				if configPath, err = filepath.Abs(configPath); err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
			}
			result, err := daemonctl.EnsureStarted(cfg, executable, configPath, startTimeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fprintf(out, "Daemon already running (pid %d)\n", result.PID)
			default:
				fprintf(out, "Daemon started (pid %d), logging to %s\n", result.PID, cfg.DaemonLogPath())
			}
			return nil
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := daemonctl.Stop(cfg, stopGracePeriod)
			out := cmd.OutOrStdout()
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fprintf(out, "Daemon is not running\n")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fprintf(out, "Daemon (pid %d) did not exit within %s and was killed\n", result.PID, stopGracePeriod)
				return nil
			}
			fprintf(out, "Daemon stopped (pid %d)\n", result.PID)
			return nil
		},
	}
}

var errDaemonUnreachable = errors.New("daemon unreachable")

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Ask a running daemon for its status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, err := fetchDaemonStatus(cmd.Context(), cfg, http.DefaultClient)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if errors.Is(err, errDaemonUnreachable) {
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.DaemonStatus{Running: false})
				}
				fprintf(out, "%s\n", renderStatusLine("Daemon", statusWarn, "not running ("+cfg.Paths.APIBind+")", colorize))
				return nil
			}
			if err != nil {
				return err
			}
			return ctx.emit(cmd, status, func() error {
				renderDaemonStatus(cmd, status, colorize)
				return nil
			})
		},
	}
}

func fetchDaemonStatus(ctx context.Context, cfg *config.Config, client *http.Client) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return status, fmt.Errorf("paths.api_bind is empty; the daemon API is disabled")
	}
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+bind+"/api/status", nil)
	if err != nil {
		return status, err
	}
	if token := strings.TrimSpace(cfg.Paths.APIToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return status, fmt.Errorf("%w: %v", errDaemonUnreachable, err)
		}
		return status, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return status, fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("decode status: %w", err)
	}
	return status, nil
}

func renderDaemonStatus(cmd *cobra.Command, status api.DaemonStatus, colorize bool) {
	out := cmd.OutOrStdout()
	fprintf(out, "%s\n", renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d, since %s)", status.PID, status.StartedAt), colorize))
	fprintf(out, "%s\n", renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
	fprintf(out, "%s\n", renderLoopLine("Refresh", status.Refresh, colorize))
	fprintf(out, "%s\n", renderLoopLine("Notify", status.Notify, colorize))
	lib := status.Library
	fprintf(out, "%s\n", renderStatusLine("Library", statusInfo,
		fmt.Sprintf("%d titles, %d watching", lib.Total, lib.Watching), colorize))
}

func renderLoopLine(label string, loop api.LoopStatus, colorize bool) string {
	switch {
	case loop.LastError != "":
		return renderStatusLine(label, statusError, loop.LastError, colorize)
	case loop.LastRun == "":
		return renderStatusLine(label, statusInfo, fmt.Sprintf("every %dm, not run yet", loop.IntervalMinutes), colorize)
	default:
		return renderStatusLine(label, statusOK, fmt.Sprintf("every %dm, last %s (%d runs)", loop.IntervalMinutes, loop.LastRun, loop.Runs), colorize)
	}
}
