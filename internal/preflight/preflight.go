package preflight

import (
	"context"

	"github.com/bhaskara2k/animelista-sub000/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Skipped bool   `json:"skipped,omitempty"`
	Detail  string `json:"detail"`
}

// Failed reports whether the check ran and did not pass.
func (r Result) Failed() bool {
	return !r.Passed && !r.Skipped
}

// RunAll executes every check for cfg. Network checks are bounded by their
// own timeouts.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDatabase(ctx, cfg.DatabasePath()),
		CheckCatalog(ctx, cfg.Catalog.BaseURL),
	}

	if llmCfg := cfg.GetLLM(); llmCfg.APIKey != "" {
		results = append(results, CheckLLM(ctx, "LLM", llmCfg))
	} else {
		results = append(results, Result{Name: "LLM", Skipped: true, Detail: "no api key; translate and recommend disabled"})
	}

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	} else {
		results = append(results, Result{Name: "ntfy", Skipped: true, Detail: "no topic; push notifications disabled"})
	}
	return results
}

// AnyFailed reports whether at least one check failed.
func AnyFailed(results []Result) bool {
	for _, r := range results {
		if r.Failed() {
			return true
		}
	}
	return false
}
