package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/bhaskara2k/animelista-sub000/internal/config"
	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/logging"
	"github.com/bhaskara2k/animelista-sub000/internal/services"
	"github.com/bhaskara2k/animelista-sub000/internal/tracker"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
	now        func() time.Time

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool, now func() time.Time) *commandContext {
	if now == nil {
		now = time.Now
	}
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
		now:        now,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// cliLogger keeps command output clean: only warnings reach stderr.
func (c *commandContext) cliLogger(cmd *cobra.Command) *slog.Logger {
	cfg, _ := c.ensureConfig()
	format := "console"
	if cfg != nil {
		format = cfg.Logging.Format
	}
	logger, err := logging.New(logging.Options{Level: "warn", Format: format, Console: cmd.ErrOrStderr()})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// withTracker opens the library and runs fn against a fully wired tracker.
func (c *commandContext) withTracker(cmd *cobra.Command, fn func(context.Context, *tracker.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := library.Open(cfg, library.WithClock(c.now))
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := tracker.NewFromConfig(cfg, store, c.cliLogger(cmd), tracker.WithClock(c.now))
	if err != nil {
		return err
	}
	return fn(cmd.Context(), svc)
}

// resolveEntry accepts an entry id or a unique, case-insensitive title
// fragment.
func resolveEntry(ctx context.Context, svc *tracker.Service, arg string) (*library.Entry, error) {
	arg = strings.TrimSpace(arg)
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return svc.Store().GetByID(ctx, id)
	}
	matches, err := svc.Store().List(ctx, library.Filter{Query: arg})
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, services.Wrap(services.ErrNotFound, "cli", "resolve", fmt.Sprintf("no title matches %q", arg), nil)
	case 1:
		return matches[0], nil
	}
	for _, m := range matches {
		if strings.EqualFold(m.Title, arg) {
			return m, nil
		}
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, fmt.Sprintf("#%d %s", m.ID, m.Title))
	}
	return nil, services.Wrap(services.ErrValidation, "cli", "resolve",
		fmt.Sprintf("%q is ambiguous: %s", arg, strings.Join(names, ", ")), nil)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func fprintf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
