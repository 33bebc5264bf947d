package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bhaskara2k/animelista-sub000/internal/progress"
)

// MarkNotified records that the notification identified by key was sent.
// Marking twice is harmless.
func (s *Store) MarkNotified(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("notification key is empty")
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO notification_log (key, notified_at) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`,
		key, formatTime(s.timestamp()))
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

// WasNotified reports whether key has been recorded.
func (s *Store) WasNotified(ctx context.Context, key string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM notification_log WHERE key = ?`, key).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check notified: %w", err)
	}
	return count > 0, nil
}

// PruneNotifications drops log rows older than cutoff.
func (s *Store) PruneNotifications(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM notification_log WHERE notified_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune notifications: %w", err)
	}
	return res.RowsAffected()
}

// Profile loads the leveling profile, returning a fresh level 1 profile
// before the first save.
func (s *Store) Profile(ctx context.Context) (progress.Profile, error) {
	profile := progress.NewProfile()
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT level, xp, total_xp FROM profile WHERE id = 1`).Scan(&profile.Level, &profile.XP, &profile.TotalXP)
	if errors.Is(err, sql.ErrNoRows) {
		return progress.NewProfile(), nil
	}
	if err != nil {
		return progress.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}

// SaveProfile persists the leveling profile.
func (s *Store) SaveProfile(ctx context.Context, profile progress.Profile) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO profile (id, level, xp, total_xp, updated_at) VALUES (1, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET level = excluded.level, xp = excluded.xp,
             total_xp = excluded.total_xp, updated_at = excluded.updated_at`,
		profile.Level, profile.XP, profile.TotalXP, formatTime(s.timestamp()))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// AwardXP adds experience to the stored profile in one transaction and
// returns the updated profile with the number of levels gained.
func (s *Store) AwardXP(ctx context.Context, amount int, curve progress.Curve) (progress.Profile, int, error) {
	var (
		profile progress.Profile
		gained  int
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		profile = progress.NewProfile()
		err := tx.QueryRowContext(ctx, `SELECT level, xp, total_xp FROM profile WHERE id = 1`).
			Scan(&profile.Level, &profile.XP, &profile.TotalXP)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("load profile: %w", err)
		}
		gained = profile.AddXP(amount, curve)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO profile (id, level, xp, total_xp, updated_at) VALUES (1, ?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET level = excluded.level, xp = excluded.xp,
                 total_xp = excluded.total_xp, updated_at = excluded.updated_at`,
			profile.Level, profile.XP, profile.TotalXP, formatTime(s.timestamp()))
		return err
	})
	if err != nil {
		return progress.Profile{}, 0, fmt.Errorf("award xp: %w", err)
	}
	return profile, gained, nil
}

// UnlockAchievement records an achievement. It reports whether it was new.
func (s *Store) UnlockAchievement(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT INTO achievements (id, unlocked_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		id, formatTime(s.timestamp()))
	if err != nil {
		return false, fmt.Errorf("unlock achievement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// UnlockedAchievements returns unlock times keyed by achievement id.
func (s *Store) UnlockedAchievements(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT id, unlocked_at FROM achievements`)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()
	out := make(map[string]time.Time)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		ts, _ := parseTimeString(raw)
		out[id] = ts
	}
	return out, rows.Err()
}

// Stats tallies the library by status plus watched episodes and ratings.
func (s *Store) Stats(ctx context.Context) (progress.Stats, error) {
	ctx = ensureContext(ctx)
	var stats progress.Stats
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1), COALESCE(SUM(current_episode), 0) FROM anime_entries GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("stats by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status   string
			count    int
			episodes int
		)
		if err := rows.Scan(&status, &count, &episodes); err != nil {
			return stats, fmt.Errorf("scan stats: %w", err)
		}
		stats.Total += count
		stats.EpisodesWatched += episodes
		switch Status(status) {
		case StatusWatching:
			stats.Watching = count
		case StatusCompleted:
			stats.Completed = count
		case StatusPlanToWatch:
			stats.PlanToWatch = count
		case StatusPaused:
			stats.Paused = count
		case StatusDropped:
			stats.Dropped = count
		}
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate stats: %w", err)
	}

	var average sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(rating), AVG(rating) FROM anime_entries WHERE rating IS NOT NULL`).
		Scan(&stats.Rated, &average); err != nil {
		return stats, fmt.Errorf("stats ratings: %w", err)
	}
	stats.AverageRating = average.Float64
	return stats, nil
}
