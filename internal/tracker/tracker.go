package tracker

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"

	"github.com/bhaskara2k/animelista-sub000/internal/catalog"
	"github.com/bhaskara2k/animelista-sub000/internal/config"
	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/llm"
	"github.com/bhaskara2k/animelista-sub000/internal/logging"
	"github.com/bhaskara2k/animelista-sub000/internal/notifications"
	"github.com/bhaskara2k/animelista-sub000/internal/progress"
	"github.com/bhaskara2k/animelista-sub000/internal/schedule"
)

const component = "tracker"

// Clock returns the current instant.
type Clock func() time.Time

// Catalog is the subset of the AniList client the tracker needs.
type Catalog interface {
	Media(ctx context.Context, id int64) (*catalog.Media, error)
}

// Assistant is the subset of the LLM client the tracker needs.
type Assistant interface {
	Configured() bool
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
	Recommend(ctx context.Context, seeds []llm.Seed, limit int) ([]llm.Recommendation, error)
}

// Service implements tracker operations on top of the library store.
type Service struct {
	store     *library.Store
	catalog   Catalog
	assistant Assistant
	notifier  notifications.Service
	episodes  *notifications.EpisodeNotifier
	clock     Clock
	loc       *time.Location
	logger    *slog.Logger

	curve           progress.Curve
	awards          progress.Awards
	syncConcurrency int
	targetLanguage  string
	notifyEpisodes  bool
	notifyBehind    bool
	leadDays        int
}

// Option configures a Service.
type Option func(*Service)

// WithCatalog sets the catalog used by Sync and Import.
func WithCatalog(c Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// WithAssistant sets the LLM used by TranslateSynopsis and Recommend.
func WithAssistant(a Assistant) Option {
	return func(s *Service) { s.assistant = a }
}

// WithNotifier sets the push notification service.
func WithNotifier(n notifications.Service) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a Service from configuration. Collaborators not supplied
// through options stay disabled: Sync without a catalog fails with a
// configuration error and notifications go nowhere.
func New(cfg *config.Config, store *library.Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		notifier:        notifications.NewService(nil),
		clock:           time.Now,
		loc:             time.Local,
		logger:          logging.NewNop(),
		curve:           progress.DefaultCurve,
		awards:          progress.Awards{PerEpisode: 10, PerCompletion: 50, PerRating: 5},
		syncConcurrency: 4,
		notifyEpisodes:  true,
	}
	if cfg != nil {
		s.loc = cfg.Location()
		s.curve = progress.Curve{BaseXP: cfg.Leveling.BaseXP, Growth: cfg.Leveling.Growth}
		s.awards = progress.Awards{
			PerEpisode:    cfg.Leveling.XPPerEpisode,
			PerCompletion: cfg.Leveling.XPPerCompletion,
			PerRating:     cfg.Leveling.XPPerRating,
		}
		if cfg.Catalog.SyncConcurrency > 0 {
			s.syncConcurrency = cfg.Catalog.SyncConcurrency
		}
		s.targetLanguage = cfg.LLM.TargetLanguage
		s.notifyEpisodes = cfg.Notifications.NewEpisodes
		s.notifyBehind = cfg.Notifications.BehindSchedule
		s.leadDays = cfg.Notifications.LeadDays
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, component)
	s.episodes = notifications.NewEpisodeNotifier(s.notifier, store,
		notifications.WithLeadDays(s.leadDays),
		notifications.WithLogger(s.logger),
	)
	return s
}

// Now returns the current instant from the injected clock.
func (s *Service) Now() time.Time {
	return s.clock()
}

// Today returns the current calendar day in the configured timezone.
func (s *Service) Today() civil.Date {
	return schedule.DateOf(s.clock(), s.loc)
}

// Location returns the configured timezone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Store exposes the underlying library store.
func (s *Service) Store() *library.Store {
	return s.store
}

// CatalogEnabled reports whether Sync and Import can reach a catalog.
func (s *Service) CatalogEnabled() bool {
	return s.catalog != nil
}
