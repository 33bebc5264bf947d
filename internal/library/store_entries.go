package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bhaskara2k/animelista-sub000/internal/services"
)

const component = "library"

// Add inserts a new entry. Status defaults to plan_to_watch. A catalog id
// already present in the library is a conflict.
func (s *Store) Add(ctx context.Context, entry *Entry) (*Entry, error) {
	if entry == nil {
		return nil, services.Wrap(services.ErrValidation, component, "add", "entry is nil", nil)
	}
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, component, "add", "title is required", nil)
	}
	status := entry.Status
	if status == "" {
		status = StatusPlanToWatch
	}
	if !status.Valid() {
		return nil, services.Wrap(services.ErrValidation, component, "add", fmt.Sprintf("unknown status %q", status), nil)
	}
	if entry.CurrentEpisode < 0 {
		return nil, services.Wrap(services.ErrValidation, component, "add", "current episode must be >= 0", nil)
	}
	if err := entry.Schedule().Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, component, "add", err.Error(), nil)
	}
	if entry.CatalogID != nil {
		existing, err := s.FindByCatalogID(ctx, *entry.CatalogID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, services.Wrap(services.ErrConflict, component, "add",
				fmt.Sprintf("catalog id %d already tracked as %q (#%d)", *entry.CatalogID, existing.Title, existing.ID), nil)
		}
	}

	now := s.timestamp()
	stamp := formatTime(now)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO anime_entries (
            catalog_id, title, title_native, status, current_episode, total_episodes, rating,
            start_date, weekdays, next_airing_override, cover_url, synopsis, synopsis_translated,
            notes, created_at, updated_at, completed_at, last_synced_at, next_airing_override_episode,
            episodes_rewarded, completion_rewarded
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableInt64(entry.CatalogID),
		title,
		nullableString(entry.TitleNative),
		status,
		entry.CurrentEpisode,
		nullableInt(entry.TotalEpisodes),
		nullableInt(entry.Rating),
		nullableDate(entry.StartDate),
		int64(entry.Weekdays),
		nullableDate(entry.NextAiringOverride),
		nullableString(entry.CoverURL),
		nullableString(entry.Synopsis),
		nullableString(entry.SynopsisTranslated),
		nullableString(entry.Notes),
		stamp,
		stamp,
		nullableTime(entry.CompletedAt),
		nullableTime(entry.LastSyncedAt),
		nullableInt(entry.NextAiringOverrideEpisode),
		entry.CurrentEpisode,
		status == StatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches an entry. A missing id yields an error marked
// services.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+entryColumns+` FROM anime_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("get", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// FindByCatalogID returns the entry linked to an AniList id, or nil.
func (s *Store) FindByCatalogID(ctx context.Context, catalogID int64) (*Entry, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+entryColumns+` FROM anime_entries WHERE catalog_id = ? LIMIT 1`, catalogID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by catalog id: %w", err)
	}
	return entry, nil
}

// List returns entries matching filter ordered by title.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM anime_entries`
	var (
		clauses []string
		args    []any
	)
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		clauses = append(clauses, "(title LIKE ? ESCAPE '\\' OR title_native LIKE ? ESCAPE '\\')")
		pattern := "%" + escapeLike(q) + "%"
		args = append(args, pattern, pattern)
	}
	if filter.OnlyScheduled {
		clauses = append(clauses, "start_date IS NOT NULL AND weekdays != 0")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY title COLLATE NOCASE, id"

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Update persists every mutable field of entry except the reward marks,
// which only SetProgress moves.
func (s *Store) Update(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return errors.New("entry is nil")
	}
	if strings.TrimSpace(entry.Title) == "" {
		return services.Wrap(services.ErrValidation, component, "update", "title is required", nil)
	}
	if !entry.Status.Valid() {
		return services.Wrap(services.ErrValidation, component, "update", fmt.Sprintf("unknown status %q", entry.Status), nil)
	}
	if err := entry.Schedule().Validate(); err != nil {
		return services.Wrap(services.ErrValidation, component, "update", err.Error(), nil)
	}
	entry.UpdatedAt = s.timestamp()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return updateEntryTx(ctx, tx, entry)
	})
}

// UpdateCatalogData re-reads entry id and lets apply fill catalog-owned
// fields inside one transaction. Only titles, schedule, cover, synopses and
// the sync time are written back, so progress, status, rating and notes
// recorded while the catalog was being queried survive. Progress above a
// lowered total is clamped.
func (s *Store) UpdateCatalogData(ctx context.Context, id int64, apply func(*Entry)) (*Entry, error) {
	var updated *Entry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		entry, err := getEntryTx(ctx, tx, id)
		if err != nil {
			return err
		}
		viewer := *entry
		apply(entry)
		entry.Status, entry.Rating, entry.Notes = viewer.Status, viewer.Rating, viewer.Notes
		entry.CompletedAt, entry.CurrentEpisode = viewer.CompletedAt, viewer.CurrentEpisode
		if strings.TrimSpace(entry.Title) == "" {
			return services.Wrap(services.ErrValidation, component, "catalog update", "title is required", nil)
		}
		if err := entry.Schedule().Validate(); err != nil {
			return services.Wrap(services.ErrValidation, component, "catalog update", err.Error(), nil)
		}
		if entry.TotalEpisodes != nil && entry.CurrentEpisode > *entry.TotalEpisodes {
			entry.CurrentEpisode = *entry.TotalEpisodes
		}
		entry.UpdatedAt = s.timestamp()
		_, err = tx.ExecContext(
			ctx,
			`UPDATE anime_entries
             SET title = ?, title_native = ?, current_episode = ?, total_episodes = ?, start_date = ?,
                 weekdays = ?, next_airing_override = ?, next_airing_override_episode = ?, cover_url = ?,
                 synopsis = ?, synopsis_translated = ?, updated_at = ?, last_synced_at = ?
             WHERE id = ?`,
			strings.TrimSpace(entry.Title),
			nullableString(entry.TitleNative),
			entry.CurrentEpisode,
			nullableInt(entry.TotalEpisodes),
			nullableDate(entry.StartDate),
			int64(entry.Weekdays),
			nullableDate(entry.NextAiringOverride),
			nullableInt(entry.NextAiringOverrideEpisode),
			nullableString(entry.CoverURL),
			nullableString(entry.Synopsis),
			nullableString(entry.SynopsisTranslated),
			formatTime(entry.UpdatedAt),
			nullableTime(entry.LastSyncedAt),
			entry.ID,
		)
		if err != nil {
			return fmt.Errorf("update catalog data: %w", err)
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func updateEntryTx(ctx context.Context, tx *sql.Tx, entry *Entry) error {
	res, err := tx.ExecContext(
		ctx,
		`UPDATE anime_entries
         SET catalog_id = ?, title = ?, title_native = ?, status = ?, current_episode = ?,
             total_episodes = ?, rating = ?, start_date = ?, weekdays = ?, next_airing_override = ?,
             cover_url = ?, synopsis = ?, synopsis_translated = ?, notes = ?, updated_at = ?,
             completed_at = ?, last_synced_at = ?, next_airing_override_episode = ?
         WHERE id = ?`,
		nullableInt64(entry.CatalogID),
		strings.TrimSpace(entry.Title),
		nullableString(entry.TitleNative),
		entry.Status,
		entry.CurrentEpisode,
		nullableInt(entry.TotalEpisodes),
		nullableInt(entry.Rating),
		nullableDate(entry.StartDate),
		int64(entry.Weekdays),
		nullableDate(entry.NextAiringOverride),
		nullableString(entry.CoverURL),
		nullableString(entry.Synopsis),
		nullableString(entry.SynopsisTranslated),
		nullableString(entry.Notes),
		formatTime(entry.UpdatedAt),
		nullableTime(entry.CompletedAt),
		nullableTime(entry.LastSyncedAt),
		nullableInt(entry.NextAiringOverrideEpisode),
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("update", entry.ID)
	}
	return nil
}

// Remove deletes an entry. It reports whether a row was removed.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM anime_entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func getEntryTx(ctx context.Context, tx *sql.Tx, id int64) (*Entry, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM anime_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("get", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

func notFound(operation string, id int64) error {
	return services.Wrap(services.ErrNotFound, component, operation, fmt.Sprintf("anime %d", id), nil)
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
