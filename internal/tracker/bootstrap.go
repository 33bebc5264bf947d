package tracker

import (
	"log/slog"
	"time"

	"github.com/bhaskara2k/animelista-sub000/internal/catalog"
	"github.com/bhaskara2k/animelista-sub000/internal/config"
	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/llm"
	"github.com/bhaskara2k/animelista-sub000/internal/logging"
	"github.com/bhaskara2k/animelista-sub000/internal/notifications"
)

// NewFromConfig wires the catalog client, the LLM assistant and the ntfy
// notifier described by cfg. Extra options are applied last.
func NewFromConfig(cfg *config.Config, store *library.Store, logger *slog.Logger, opts ...Option) (*Service, error) {
	client, err := catalog.New(cfg.Catalog.BaseURL,
		catalog.WithRequestsPerMinute(cfg.Catalog.RequestsPerMinute),
		catalog.WithTimeout(time.Duration(cfg.Catalog.TimeoutSeconds)*time.Second),
	)
	if err != nil {
		return nil, err
	}
	llmCfg := cfg.GetLLM()
	assistant := llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	})
	base := []Option{
		WithCatalog(client),
		WithAssistant(assistant),
		WithNotifier(notifications.NewService(cfg)),
		WithLogger(logging.NewComponentLogger(logger, component)),
	}
	return New(cfg, store, append(base, opts...)...), nil
}
