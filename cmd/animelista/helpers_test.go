package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC)

type cliEnv struct {
	configPath string
	dataDir    string
	logDir     string
}

// setupCLIEnv writes a config pointing at a temp data directory. The API
// bind targets a port nothing listens on.
func setupCLIEnv(t *testing.T, catalogURL string) *cliEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	for _, key := range []string{"ANIMELISTA_API_TOKEN", "LLM_API_KEY", "OPENROUTER_API_KEY", "NTFY_TOPIC"} {
		t.Setenv(key, "")
	}
	if catalogURL == "" {
		catalogURL = "https://graphql.anilist.co"
	}
	env := &cliEnv{
		configPath: filepath.Join(base, "config.toml"),
		dataDir:    filepath.Join(base, "data"),
		logDir:     filepath.Join(base, "logs"),
	}
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
api_bind = "127.0.0.1:1"

[catalog]
base_url = %q
timezone = "UTC"
`, env.dataDir, env.logDir, catalogURL)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var configFlag string
	var jsonFlag bool
	cmd := newRootCommandWith(newCommandContext(&configFlag, &jsonFlag, func() time.Time { return testNow }))
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%s: %v\nstdout: %s\nstderr: %s", strings.Join(args, " "), err, out, stderr)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
