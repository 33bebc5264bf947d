package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bhaskara2k/animelista-sub000/internal/catalog"
	"github.com/bhaskara2k/animelista-sub000/internal/config"
	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/llm"
	"github.com/bhaskara2k/animelista-sub000/internal/notifications"
)

const (
	serviceTimeout = 10 * time.Second
	llmTimeout     = 30 * time.Second
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDatabase opens the library, which applies pending migrations, and
// reports the schema version.
func CheckDatabase(ctx context.Context, path string) Result {
	const name = "Library database"
	store, err := library.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (schema v%d)", path, version)}
}

// CheckCatalog runs a one-result search against AniList without retries.
func CheckCatalog(ctx context.Context, baseURL string) Result {
	const name = "AniList"
	client, err := catalog.New(baseURL, catalog.WithMaxAttempts(1), catalog.WithTimeout(serviceTimeout))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	checkCtx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()
	if _, err := client.Search(checkCtx, "frieren", 1, 1); err != nil {
		return Result{Name: name, Detail: summarizeNetError(err, "AniList")}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a single attempt.
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeNetError(err, "LLM API")}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", cfg.Model)}
}

// CheckNtfy asks the ntfy server behind topic for its health endpoint. No
// message is published.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"
	endpoint, err := url.Parse(notifications.Endpoint(topic))
	if err != nil || endpoint.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("invalid topic %q", topic)}
	}
	health := url.URL{Scheme: endpoint.Scheme, Host: endpoint.Host, Path: "/v1/health"}

	checkCtx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, health.String(), nil)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err, endpoint.Host)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("%s health returned %d", endpoint.Host, resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: endpoint.Host + " reachable"}
}

func summarizeNetError(err error, target string) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("timed out (%s unresponsive)", target)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("timed out (%s unreachable)", target)
	}
	return err.Error()
}
