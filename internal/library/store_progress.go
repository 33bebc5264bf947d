package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bhaskara2k/animelista-sub000/internal/schedule"
	"github.com/bhaskara2k/animelista-sub000/internal/services"
)

const (
	minRating = 1
	maxRating = 10
)

// SetProgress records the last watched episode. The value is clamped to
// 0..total when the total is known. Reaching the total marks the entry
// completed; watching the first episode of a planned title moves it to
// watching. The entry's reward marks only ever rise, so NewEpisodes and
// FirstCompletion count each episode and the completion once.
func (s *Store) SetProgress(ctx context.Context, id int64, episode int) (ProgressChange, error) {
	var change ProgressChange
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		entry, err := getEntryTx(ctx, tx, id)
		if err != nil {
			return err
		}
		change = applyProgress(entry, episode, s.timestamp())
		if err := updateEntryTx(ctx, tx, entry); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE anime_entries SET episodes_rewarded = ?, completion_rewarded = ? WHERE id = ?`,
			entry.EpisodesRewarded, entry.CompletionRewarded, entry.ID)
		if err != nil {
			return fmt.Errorf("update reward marks: %w", err)
		}
		return nil
	})
	if err != nil {
		return ProgressChange{}, err
	}
	return change, nil
}

func applyProgress(entry *Entry, episode int, now time.Time) ProgressChange {
	if episode < 0 {
		episode = 0
	}
	if entry.TotalEpisodes != nil && episode > *entry.TotalEpisodes {
		episode = *entry.TotalEpisodes
	}
	change := ProgressChange{
		Entry:            entry,
		PreviousEpisode:  entry.CurrentEpisode,
		EpisodesAdvanced: episode - entry.CurrentEpisode,
	}
	entry.CurrentEpisode = episode
	entry.UpdatedAt = now
	if episode > entry.EpisodesRewarded {
		change.NewEpisodes = episode - entry.EpisodesRewarded
		entry.EpisodesRewarded = episode
	}

	finished := entry.TotalEpisodes != nil && episode == *entry.TotalEpisodes
	switch {
	case finished && entry.Status != StatusCompleted:
		entry.Status = StatusCompleted
		completedAt := now
		entry.CompletedAt = &completedAt
		change.Completed = true
		change.FirstCompletion = !entry.CompletionRewarded
		entry.CompletionRewarded = true
	case !finished && entry.Status == StatusCompleted:
		entry.Status = StatusWatching
		entry.CompletedAt = nil
	case episode > 0 && entry.Status == StatusPlanToWatch:
		entry.Status = StatusWatching
	}
	return change
}

// SetRating rates a completed entry from 1 to 10.
func (s *Store) SetRating(ctx context.Context, id int64, rating int) (RatingChange, error) {
	if rating < minRating || rating > maxRating {
		return RatingChange{}, services.Wrap(services.ErrValidation, component, "rate",
			fmt.Sprintf("rating %d outside %d..%d", rating, minRating, maxRating), nil)
	}
	var change RatingChange
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		entry, err := getEntryTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if entry.Status != StatusCompleted {
			return services.Wrap(services.ErrValidation, component, "rate",
				fmt.Sprintf("only completed titles can be rated; %q is %s", entry.Title, entry.Status), nil)
		}
		change = RatingChange{Entry: entry, First: entry.Rating == nil}
		value := rating
		entry.Rating = &value
		entry.UpdatedAt = s.timestamp()
		return updateEntryTx(ctx, tx, entry)
	})
	if err != nil {
		return RatingChange{}, err
	}
	return change, nil
}

// SetSchedule replaces the airing pattern of an entry. Progress above a new
// total is clamped. A total below 1 is rejected; nil means unknown.
func (s *Store) SetSchedule(ctx context.Context, id int64, airing schedule.AiringSchedule) (*Entry, error) {
	if err := airing.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, component, "schedule", err.Error(), nil)
	}
	var updated *Entry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		entry, err := getEntryTx(ctx, tx, id)
		if err != nil {
			return err
		}
		entry.ApplySchedule(airing)
		if entry.TotalEpisodes != nil && entry.CurrentEpisode > *entry.TotalEpisodes {
			entry.CurrentEpisode = *entry.TotalEpisodes
		}
		entry.UpdatedAt = s.timestamp()
		updated = entry
		return updateEntryTx(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
