package tracker

import (
	"context"
	"errors"

	"github.com/bhaskara2k/animelista-sub000/internal/notifications"
)

// NotifyResult summarises a notification pass.
type NotifyResult struct {
	notifications.DispatchResult
	DigestSent bool
}

// NotifyDue announces aired and soon-airing episodes of watching entries
// and, when enabled, the daily behind-schedule digest.
func (s *Service) NotifyDue(ctx context.Context) (NotifyResult, error) {
	var (
		result NotifyResult
		errs   []error
	)
	today := s.Today()
	if s.notifyEpisodes {
		due, err := s.DueAirings(ctx)
		if err != nil {
			return result, err
		}
		airings := make([]notifications.Airing, 0, len(due))
		for _, item := range due {
			airings = append(airings, notifications.Airing{
				AnimeID: item.Entry.ID,
				Title:   item.Entry.Title,
				Episode: item.Airing.Episode,
				Date:    item.Airing.Date,
				URL:     catalogURL(item.Entry),
			})
		}
		dispatched, err := s.episodes.Dispatch(ctx, airings, today)
		result.DispatchResult = dispatched
		if err != nil {
			errs = append(errs, err)
		}
	}
	if s.notifyBehind {
		behind, err := s.Behind(ctx)
		if err != nil {
			return result, errors.Join(append(errs, err)...)
		}
		items := make([]notifications.BehindItem, 0, len(behind))
		for _, b := range behind {
			items = append(items, notifications.BehindItem{
				AnimeID:  b.Entry.ID,
				Title:    b.Entry.Title,
				Current:  b.Entry.CurrentEpisode,
				Expected: b.Expected,
			})
		}
		sent, err := s.episodes.DispatchBehind(ctx, items, today)
		result.DigestSent = sent
		if err != nil {
			errs = append(errs, err)
		}
	}
	return result, errors.Join(errs...)
}
