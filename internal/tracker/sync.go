package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/sourcegraph/conc/pool"

	"github.com/bhaskara2k/animelista-sub000/internal/catalog"
	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/logging"
	"github.com/bhaskara2k/animelista-sub000/internal/notifications"
	"github.com/bhaskara2k/animelista-sub000/internal/schedule"
	"github.com/bhaskara2k/animelista-sub000/internal/services"
)

// SyncResult summarises a catalog sync pass.
type SyncResult struct {
	Checked int
	Updated int
	Failed  int
}

var syncStatuses = []library.Status{library.StatusWatching, library.StatusPlanToWatch, library.StatusPaused}

// Sync refreshes the airing schedule of every linked watching, planned or
// paused entry from the catalog. Up to sync_concurrency entries are fetched
// at once. A failing entry does not stop the others; all failures are
// returned joined.
func (s *Service) Sync(ctx context.Context) (SyncResult, error) {
	if s.catalog == nil {
		return SyncResult{}, services.Wrap(services.ErrConfiguration, component, "sync", "catalog client not configured", nil)
	}
	entries, err := s.store.List(ctx, library.Filter{Statuses: syncStatuses})
	if err != nil {
		return SyncResult{}, err
	}

	var (
		mu     sync.Mutex
		result SyncResult
	)
	p := pool.New().WithMaxGoroutines(s.syncConcurrency).WithContext(ctx)
	for _, entry := range entries {
		if entry.CatalogID == nil {
			continue
		}
		result.Checked++
		p.Go(func(ctx context.Context) error {
			_, changed, err := s.syncEntry(ctx, entry)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				return err
			}
			if changed {
				result.Updated++
			}
			return nil
		})
	}
	err = p.Wait()
	if err != nil {
		logging.WarnWithContext(s.logger, "catalog sync finished with failures", "catalog_sync_failed",
			logging.Int("failed", result.Failed),
			logging.Int("checked", result.Checked),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access to the catalog"),
			logging.String(logging.FieldImpact, "affected schedules keep their previous values"),
		)
		if pubErr := s.notifier.Publish(ctx, notifications.EventSyncFailed, notifications.Payload{
			"error": fmt.Sprintf("%d of %d titles failed", result.Failed, result.Checked),
		}); pubErr != nil {
			s.logger.Debug("sync failure notification not sent", logging.Error(pubErr))
		}
	} else {
		s.logger.Info("catalog sync complete",
			logging.Int("checked", result.Checked),
			logging.Int("updated", result.Updated),
		)
	}
	return result, err
}

// SyncEntry refreshes one entry from the catalog.
func (s *Service) SyncEntry(ctx context.Context, id int64) (*library.Entry, error) {
	if s.catalog == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "sync", "catalog client not configured", nil)
	}
	entry, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.CatalogID == nil {
		return nil, services.Wrap(services.ErrValidation, component, "sync", fmt.Sprintf("%q is not linked to the catalog", entry.Title), nil)
	}
	updated, _, err := s.syncEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// syncEntry queries the catalog without holding a transaction, then merges
// the result into the stored row. Viewer state written meanwhile is kept.
func (s *Service) syncEntry(ctx context.Context, entry *library.Entry) (*library.Entry, bool, error) {
	media, err := s.catalog.Media(ctx, *entry.CatalogID)
	if err != nil {
		return nil, false, fmt.Errorf("sync %q (catalog %d): %w", entry.Title, *entry.CatalogID, err)
	}
	var (
		changed bool
		after   schedule.AiringSchedule
	)
	now := s.clock()
	updated, err := s.store.UpdateCatalogData(ctx, entry.ID, func(current *library.Entry) {
		before := current.Schedule()
		s.applyMedia(current, media)
		after = current.Schedule()
		changed = !sameSchedule(before, after)
		current.LastSyncedAt = &now
	})
	if err != nil {
		return nil, false, fmt.Errorf("save %q: %w", entry.Title, err)
	}
	if changed {
		s.logger.Debug("schedule updated",
			logging.AnimeID(updated.ID),
			logging.CatalogID(*entry.CatalogID),
			logging.String("weekdays", after.Weekdays.String()),
		)
	}
	return updated, changed, nil
}

// applyMedia copies catalog data onto entry. Local text the viewer may have
// edited (title, synopsis) is only filled when empty.
func (s *Service) applyMedia(entry *library.Entry, media *catalog.Media) {
	sched := catalog.ToSchedule(media, s.loc)
	if sched.StartDate != nil || !sched.Weekdays.Empty() {
		entry.ApplySchedule(sched)
	} else if sched.TotalEpisodes != nil {
		entry.TotalEpisodes = sched.TotalEpisodes
	}
	if entry.Title == "" {
		entry.Title = catalog.DisplayTitle(media)
	}
	if entry.TitleNative == "" {
		entry.TitleNative = media.Title.Native
	}
	if media.CoverImage.Large != "" {
		entry.CoverURL = media.CoverImage.Large
	}
	if entry.Synopsis == "" {
		entry.Synopsis = catalog.CleanDescription(media.Description)
	}
}

func sameSchedule(a, b schedule.AiringSchedule) bool {
	return a.Weekdays == b.Weekdays &&
		sameDate(a.StartDate, b.StartDate) &&
		sameDate(a.Override, b.Override) &&
		sameInt(a.OverrideEpisode, b.OverrideEpisode) &&
		sameInt(a.TotalEpisodes, b.TotalEpisodes)
}

func sameDate(a, b *civil.Date) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Import adds the catalog title id to the library with its schedule.
func (s *Service) Import(ctx context.Context, catalogID int64, status library.Status) (*library.Entry, error) {
	if s.catalog == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "import", "catalog client not configured", nil)
	}
	existing, err := s.store.FindByCatalogID(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, services.Wrap(services.ErrConflict, component, "import",
			fmt.Sprintf("catalog id %d already tracked as %q (#%d)", catalogID, existing.Title, existing.ID), nil)
	}
	media, err := s.catalog.Media(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = library.StatusPlanToWatch
	}
	id := media.ID
	if id == 0 {
		id = catalogID
	}
	now := s.clock()
	entry := &library.Entry{CatalogID: &id, Status: status, LastSyncedAt: &now}
	s.applyMedia(entry, media)
	added, err := s.store.Add(ctx, entry)
	if err != nil {
		if errors.Is(err, services.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("import catalog %d: %w", catalogID, err)
	}
	s.logger.Info("imported from catalog",
		logging.AnimeID(added.ID),
		logging.CatalogID(id),
		logging.String("title", added.Title),
	)
	return added, nil
}
