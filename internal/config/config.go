package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
	// TrustedProxies lists addresses or CIDR ranges whose X-Forwarded-For
	// header is believed when rate limiting API clients.
	TrustedProxies []string `toml:"api_trusted_proxies"`
}

// Catalog contains configuration for the AniList GraphQL catalog.
type Catalog struct {
	BaseURL           string `toml:"base_url"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	SyncConcurrency   int    `toml:"sync_concurrency"`
	// Timezone is the IANA zone used to turn catalog airing timestamps into
	// calendar days. Empty means the local zone.
	Timezone string `toml:"timezone"`
}

// LLM contains the OpenRouter-compatible connection used for synopsis
// translation and recommendations.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	TargetLanguage string `toml:"target_language"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	NewEpisodes    bool   `toml:"new_episodes"`
	BehindSchedule bool   `toml:"behind_schedule"`
	// LeadDays is how many days ahead an upcoming airing is announced.
	// Zero only announces episodes on their air date.
	LeadDays int `toml:"lead_days"`
}

// Daemon contains background loop intervals.
type Daemon struct {
	RefreshIntervalMinutes int `toml:"refresh_interval_minutes"`
	NotifyIntervalMinutes  int `toml:"notify_interval_minutes"`
}

// Leveling contains the XP curve and awards.
type Leveling struct {
	BaseXP          int     `toml:"base_xp"`
	Growth          float64 `toml:"growth"`
	XPPerEpisode    int     `toml:"xp_per_episode"`
	XPPerCompletion int     `toml:"xp_per_completion"`
	XPPerRating     int     `toml:"xp_per_rating"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for animelista.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories, API bind address and token
//   - Catalog: AniList endpoint, rate limit and sync fan-out
//   - LLM: translation and recommendation model settings
//   - Notifications: ntfy push settings
//   - Daemon: background refresh and notify intervals
//   - Leveling: XP curve and awards
//   - Logging: log format, level, and rotation
type Config struct {
	Paths         Paths         `toml:"paths"`
	Catalog       Catalog       `toml:"catalog"`
	LLM           LLM           `toml:"llm"`
	Notifications Notifications `toml:"notifications"`
	Daemon        Daemon        `toml:"daemon"`
	Leveling      Leveling      `toml:"leveling"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("animelista.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite library location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "animelista.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "animelistad.lock")
}

// DaemonLogPath returns the rotated daemon log file.
func (c *Config) DaemonLogPath() string {
	return filepath.Join(c.Paths.LogDir, "animelistad.log")
}

// Location resolves the catalog timezone. Invalid names were rejected by
// Validate, so a lookup failure here falls back to the local zone.
func (c *Config) Location() *time.Location {
	name := strings.TrimSpace(c.Catalog.Timezone)
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// RefreshInterval returns the catalog sync period.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Daemon.RefreshIntervalMinutes) * time.Minute
}

// NotifyInterval returns the notification dispatch period.
func (c *Config) NotifyInterval() time.Duration {
	return time.Duration(c.Daemon.NotifyIntervalMinutes) * time.Minute
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the LLM connection settings.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// TrustedProxyNets parses Paths.TrustedProxies. A bare address becomes a
// single-host range; unparsable entries are skipped since Validate rejects
// them.
func (c *Config) TrustedProxyNets() []*net.IPNet {
	var out []*net.IPNet
	for _, value := range c.Paths.TrustedProxies {
		if network, ok := parseProxy(value); ok {
			out = append(out, network)
		}
	}
	return out
}

func parseProxy(value string) (*net.IPNet, bool) {
	value = strings.TrimSpace(value)
	if _, network, err := net.ParseCIDR(value); err == nil {
		return network, true
	}
	ip := net.ParseIP(value)
	if ip == nil {
		return nil, false
	}
	bits := 128
	if v4 := ip.To4(); v4 != nil {
		ip, bits = v4, 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, true
}

// GetLLM returns the LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}
