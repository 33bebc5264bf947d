package tracker

import (
	"context"

	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/logging"
	"github.com/bhaskara2k/animelista-sub000/internal/notifications"
	"github.com/bhaskara2k/animelista-sub000/internal/progress"
)

// Reward is the leveling outcome of a viewer action.
type Reward struct {
	XP           int
	LevelsGained int
	Profile      progress.Profile
	Unlocked     []progress.Achievement
}

// ProgressOutcome is returned by RecordProgress.
type ProgressOutcome struct {
	library.ProgressChange
	Reward
}

// RatingOutcome is returned by Rate.
type RatingOutcome struct {
	library.RatingChange
	Reward
}

// ProfileView is the leveling dashboard.
type ProfileView struct {
	Profile      progress.Profile
	ToNextLevel  int
	NextLevelXP  int
	Stats        progress.Stats
	Achievements []progress.AchievementProgress
}

// RecordProgress sets the watched episode of an entry and awards XP for
// episodes past the highest one already rewarded and for completing the
// series the first time.
func (s *Service) RecordProgress(ctx context.Context, id int64, episode int) (ProgressOutcome, error) {
	change, err := s.store.SetProgress(ctx, id, episode)
	if err != nil {
		return ProgressOutcome{}, err
	}
	reward, err := s.reward(ctx, s.awards.ForProgress(change.NewEpisodes, change.FirstCompletion))
	if err != nil {
		return ProgressOutcome{ProgressChange: change}, err
	}
	if change.Completed {
		s.publish(ctx, notifications.EventSeriesCompleted, notifications.Payload{"title": change.Entry.Title})
	}
	s.logger.Info("progress recorded",
		logging.AnimeID(change.Entry.ID),
		logging.Episode(change.Entry.CurrentEpisode),
		logging.String("status", string(change.Entry.Status)),
		logging.Int("xp", reward.XP),
	)
	return ProgressOutcome{ProgressChange: change, Reward: reward}, nil
}

// Rate scores a completed entry. Only the first rating of a title earns XP.
func (s *Service) Rate(ctx context.Context, id int64, rating int) (RatingOutcome, error) {
	change, err := s.store.SetRating(ctx, id, rating)
	if err != nil {
		return RatingOutcome{}, err
	}
	reward, err := s.reward(ctx, s.awards.ForRating(change.First))
	if err != nil {
		return RatingOutcome{RatingChange: change}, err
	}
	return RatingOutcome{RatingChange: change, Reward: reward}, nil
}

// reward grants xp, then unlocks achievements reached by the current
// library stats. Level ups and unlocks are pushed as notifications.
func (s *Service) reward(ctx context.Context, xp int) (Reward, error) {
	var out Reward
	if xp > 0 {
		profile, gained, err := s.store.AwardXP(ctx, xp, s.curve)
		if err != nil {
			return out, err
		}
		out.XP, out.LevelsGained, out.Profile = xp, gained, profile
		if gained > 0 {
			s.publish(ctx, notifications.EventLevelUp, notifications.Payload{"level": profile.Level})
		}
	} else {
		profile, err := s.store.Profile(ctx)
		if err != nil {
			return out, err
		}
		out.Profile = profile
	}

	unlocked, err := s.unlockAchievements(ctx)
	if err != nil {
		return out, err
	}
	out.Unlocked = unlocked
	return out, nil
}

func (s *Service) unlockAchievements(ctx context.Context) ([]progress.Achievement, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := s.store.UnlockedAchievements(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(stored))
	for id := range stored {
		known[id] = true
	}
	var unlocked []progress.Achievement
	for _, achievement := range progress.NewlyUnlocked(progress.Evaluate(stats), known) {
		fresh, err := s.store.UnlockAchievement(ctx, achievement.ID)
		if err != nil {
			return unlocked, err
		}
		if !fresh {
			continue
		}
		unlocked = append(unlocked, achievement)
		s.publish(ctx, notifications.EventAchievementUnlocked, notifications.Payload{
			"name":        achievement.Title,
			"description": achievement.Description,
		})
	}
	return unlocked, nil
}

// Profile returns level, XP, library stats and achievement progress.
func (s *Service) Profile(ctx context.Context) (ProfileView, error) {
	profile, err := s.store.Profile(ctx)
	if err != nil {
		return ProfileView{}, err
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return ProfileView{}, err
	}
	return ProfileView{
		Profile:      profile,
		ToNextLevel:  profile.ToNextLevel(s.curve),
		NextLevelXP:  s.curve.XPForLevel(profile.Level),
		Stats:        stats,
		Achievements: progress.Evaluate(stats),
	}, nil
}

func (s *Service) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := s.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(s.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the viewer was not notified"),
		)
	}
}
