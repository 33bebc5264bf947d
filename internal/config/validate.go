package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateIntervals(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLeveling(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q is not host:port: %w", c.Paths.APIBind, err)
	}
	for _, proxy := range c.Paths.TrustedProxies {
		if _, ok := parseProxy(proxy); !ok {
			return fmt.Errorf("paths.api_trusted_proxies entry %q is not an IP or CIDR", proxy)
		}
	}
	return nil
}

func (c *Config) validateCatalog() error {
	parsed, err := url.Parse(c.Catalog.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("catalog.base_url %q must be an absolute URL", c.Catalog.BaseURL)
	}
	if c.Catalog.Timezone != "" {
		if _, err := time.LoadLocation(c.Catalog.Timezone); err != nil {
			return fmt.Errorf("catalog.timezone %q: %w", c.Catalog.Timezone, err)
		}
	}
	return nil
}

func (c *Config) validateIntervals() error {
	return ensurePositiveMap(map[string]int{
		"catalog.requests_per_minute":     c.Catalog.RequestsPerMinute,
		"catalog.timeout_seconds":         c.Catalog.TimeoutSeconds,
		"catalog.sync_concurrency":        c.Catalog.SyncConcurrency,
		"llm.timeout_seconds":             c.LLM.TimeoutSeconds,
		"notifications.request_timeout":   c.Notifications.RequestTimeout,
		"daemon.refresh_interval_minutes": c.Daemon.RefreshIntervalMinutes,
		"daemon.notify_interval_minutes":  c.Daemon.NotifyIntervalMinutes,
	})
}

func (c *Config) validateNotifications() error {
	if c.Notifications.LeadDays < 0 || c.Notifications.LeadDays > 14 {
		return errors.New("notifications.lead_days must be between 0 and 14")
	}
	return nil
}

func (c *Config) validateLeveling() error {
	if c.Leveling.BaseXP <= 0 {
		return errors.New("leveling.base_xp must be positive")
	}
	if c.Leveling.Growth < 1 {
		return errors.New("leveling.growth must be at least 1")
	}
	if c.Leveling.XPPerEpisode < 0 || c.Leveling.XPPerCompletion < 0 || c.Leveling.XPPerRating < 0 {
		return errors.New("leveling awards must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
