package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"

	"github.com/bhaskara2k/animelista-sub000/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"ANIMELISTA_API_TOKEN", "LLM_API_KEY", "OPENROUTER_API_KEY", "NTFY_TOPIC"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "animelista", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}

	wantData := filepath.Join(tempHome, ".local", "share", "animelista")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "animelista.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Paths.APIBind != "127.0.0.1:7488" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Catalog.BaseURL != "https://graphql.anilist.co" {
		t.Fatalf("unexpected catalog url: %q", cfg.Catalog.BaseURL)
	}
	if cfg.RefreshInterval() != 6*time.Hour {
		t.Fatalf("unexpected refresh interval: %s", cfg.RefreshInterval())
	}
	if cfg.Location() != time.Local {
		t.Fatalf("expected local zone when timezone unset, got %s", cfg.Location())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "animelista.toml")

	type payload struct {
		Paths struct {
			DataDir  string `toml:"data_dir"`
			APIToken string `toml:"api_token"`
		} `toml:"paths"`
		Catalog struct {
			Timezone        string `toml:"timezone"`
			SyncConcurrency int    `toml:"sync_concurrency"`
		} `toml:"catalog"`
		Logging struct {
			Format string `toml:"format"`
			Level  string `toml:"level"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Paths.APIToken = " secret "
	custom.Catalog.Timezone = "UTC"
	custom.Catalog.SyncConcurrency = 9
	custom.Logging.Format = "JSON"
	custom.Logging.Level = "Debug"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DataDir != filepath.Join(tempDir, "data") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.APIToken != "secret" {
		t.Fatalf("expected trimmed token, got %q", cfg.Paths.APIToken)
	}
	if cfg.Catalog.SyncConcurrency != 9 {
		t.Fatalf("expected sync concurrency 9, got %d", cfg.Catalog.SyncConcurrency)
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %s", cfg.Location())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging, got %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
	if cfg.Catalog.RequestsPerMinute != config.Default().Catalog.RequestsPerMinute {
		t.Fatalf("expected default rate limit, got %d", cfg.Catalog.RequestsPerMinute)
	}
}

func TestEnvFallbacksFillEmptyValues(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "animelista.toml")
	if err := os.WriteFile(configPath, []byte("[llm]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OPENROUTER_API_KEY", "env-key")
	t.Setenv("NTFY_TOPIC", "anime-alerts")
	t.Setenv("ANIMELISTA_API_TOKEN", "env-token")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Errorf("expected file key to win, got %q", cfg.LLM.APIKey)
	}
	if cfg.Notifications.NtfyTopic != "anime-alerts" {
		t.Errorf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Errorf("expected api token from env, got %q", cfg.Paths.APIToken)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(configPath, []byte("[paths\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "animelista") {
		t.Fatalf("expected data dir to contain animelista, got %q", cfg.Paths.DataDir)
	}
	defaults := config.Default()
	if cfg.Leveling != defaults.Leveling {
		t.Fatalf("sample leveling drifted from defaults: %+v vs %+v", cfg.Leveling, defaults.Leveling)
	}
	if cfg.Daemon != defaults.Daemon {
		t.Fatalf("sample daemon drifted from defaults: %+v vs %+v", cfg.Daemon, defaults.Daemon)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"zero refresh":      func(c *config.Config) { c.Daemon.RefreshIntervalMinutes = 0 },
		"zero notify":       func(c *config.Config) { c.Daemon.NotifyIntervalMinutes = -1 },
		"bad bind":          func(c *config.Config) { c.Paths.APIBind = "localhost" },
		"relative catalog":  func(c *config.Config) { c.Catalog.BaseURL = "graphql.anilist.co" },
		"unknown timezone":  func(c *config.Config) { c.Catalog.Timezone = "Mars/Olympus" },
		"shrinking growth":  func(c *config.Config) { c.Leveling.Growth = 0.5 },
		"negative award":    func(c *config.Config) { c.Leveling.XPPerRating = -1 },
		"lead days too far": func(c *config.Config) { c.Notifications.LeadDays = 30 },
		"bad level":         func(c *config.Config) { c.Logging.Level = "loud" },
		"bad proxy":         func(c *config.Config) { c.Paths.TrustedProxies = []string{"10.0.0.0/8", "proxy.lan"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestTrustedProxyNets(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.TrustedProxies = []string{" 10.0.0.0/8 ", "192.168.1.5", "::1"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	nets := cfg.TrustedProxyNets()
	var got []string
	for _, n := range nets {
		got = append(got, n.String())
	}
	want := []string{"10.0.0.0/8", "192.168.1.5/32", "::1/128"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("trusted nets mismatch (-want +got):\n%s", diff)
	}
}
