package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bhaskara2k/animelista-sub000/internal/config"
	"github.com/bhaskara2k/animelista-sub000/internal/daemon"
	"github.com/bhaskara2k/animelista-sub000/internal/daemonctl"
	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/logging"
	"github.com/bhaskara2k/animelista-sub000/internal/preflight"
	"github.com/bhaskara2k/animelista-sub000/internal/tracker"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the animelista daemon and blocks until SIGINT/SIGTERM or
// cmdCtx is cancelled.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		Console:     os.Stdout,
		FilePath:    cfg.DaemonLogPath(),
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logConfigSnapshot(logger, cfg)
	store, err := library.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open library store", "library_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check data_dir permissions"),
		)
		return err
	}

	svc, err := tracker.NewFromConfig(cfg, store, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("build tracker: %w", err)
	}

	d, err := daemon.New(cfg, store, svc, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	// Written only once the lock is held so a second instance cannot clobber it.
	pidPath := daemonctl.PIDPath(cfg)
	if err := daemonctl.WritePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)
	go logPreflight(signalCtx, logger, cfg)

	<-signalCtx.Done()
	logger.Info("animelista daemon shutting down")
	return nil
}

// logPreflight reports failing readiness checks. The daemon keeps running;
// a failing catalog only degrades refreshes.
func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.RunAll(ctx, cfg) {
		if !result.Failed() {
			logger.Debug("preflight check passed", logging.String("check", result.Name), logging.String("detail", result.Detail))
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run animelista check for details"),
			logging.String(logging.FieldImpact, "dependent features may fail until fixed"),
		)
	}
}

// logConfigSnapshot records which optional integrations are active.
func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("data_dir", cfg.Paths.DataDir),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_set", strings.TrimSpace(cfg.Paths.APIToken) != ""),
		logging.String("catalog_url", cfg.Catalog.BaseURL),
		logging.String("timezone", cfg.Location().String()),
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.Bool("ntfy_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Int("refresh_interval_minutes", cfg.Daemon.RefreshIntervalMinutes),
		logging.Int("notify_interval_minutes", cfg.Daemon.NotifyIntervalMinutes),
	)
}
