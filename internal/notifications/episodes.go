package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/bhaskara2k/animelista-sub000/internal/logging"
)

// NotifiedSet remembers which notifications were already delivered.
type NotifiedSet interface {
	WasNotified(ctx context.Context, key string) (bool, error)
	MarkNotified(ctx context.Context, key string) error
}

// Airing is a projected episode of a tracked anime.
type Airing struct {
	AnimeID int64
	Title   string
	Episode int
	Date    civil.Date
	URL     string
}

// BehindItem is one line of the behind-schedule digest.
type BehindItem struct {
	AnimeID  int64
	Title    string
	Current  int
	Expected int
}

// DispatchResult counts what a dispatch pass did.
type DispatchResult struct {
	Sent    int
	Skipped int
	Failed  int
}

// EpisodeNotifier announces aired and soon-to-air episodes once each.
type EpisodeNotifier struct {
	service  Service
	notified NotifiedSet
	leadDays int
	logger   *slog.Logger
}

// NotifierOption configures an EpisodeNotifier.
type NotifierOption func(*EpisodeNotifier)

// WithLeadDays announces episodes up to days before they air. Zero only
// announces aired episodes.
func WithLeadDays(days int) NotifierOption {
	return func(n *EpisodeNotifier) {
		if days >= 0 {
			n.leadDays = days
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *slog.Logger) NotifierOption {
	return func(n *EpisodeNotifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewEpisodeNotifier builds a notifier publishing through svc.
func NewEpisodeNotifier(svc Service, notified NotifiedSet, opts ...NotifierOption) *EpisodeNotifier {
	if svc == nil {
		svc = noopService{}
	}
	n := &EpisodeNotifier{
		service:  svc,
		notified: notified,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = logging.NewComponentLogger(n.logger, "notifier")
	return n
}

// EpisodeKey identifies the "episode aired" notification of one episode.
func EpisodeKey(animeID int64, episode int) string {
	return fmt.Sprintf("episode:%d:%d", animeID, episode)
}

// UpcomingKey identifies the "airing soon" notification of one episode.
func UpcomingKey(animeID int64, episode int) string {
	return fmt.Sprintf("upcoming:%d:%d", animeID, episode)
}

// BehindKey identifies the behind-schedule digest for one day.
func BehindKey(day civil.Date) string {
	return "behind:" + day.String()
}

// Dispatch sends one notification per (anime, episode) whose air date is
// today or earlier and that was not announced before. With lead days set,
// episodes airing within that window get an "airing soon" message. A failed
// delivery is left unmarked so the next pass retries it.
func (n *EpisodeNotifier) Dispatch(ctx context.Context, airings []Airing, today civil.Date) (DispatchResult, error) {
	var (
		result DispatchResult
		errs   []error
	)
	horizon := today.AddDays(n.leadDays)
	seen := make(map[string]struct{}, len(airings))

	for _, airing := range airings {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		var (
			key   string
			event Event
		)
		switch {
		case !airing.Date.After(today):
			key, event = EpisodeKey(airing.AnimeID, airing.Episode), EventEpisodeAired
		case n.leadDays > 0 && !airing.Date.After(horizon):
			key, event = UpcomingKey(airing.AnimeID, airing.Episode), EventEpisodeUpcoming
		default:
			result.Skipped++
			continue
		}
		if _, dup := seen[key]; dup {
			result.Skipped++
			continue
		}
		seen[key] = struct{}{}

		sent, err := n.publishOnce(ctx, key, event, Payload{
			"title":   airing.Title,
			"episode": airing.Episode,
			"date":    airing.Date.String(),
			"url":     airing.URL,
		})
		switch {
		case err != nil:
			result.Failed++
			errs = append(errs, err)
			logging.WarnWithContext(n.logger, "episode notification failed", "notification_failed",
				logging.AnimeID(airing.AnimeID),
				logging.Episode(airing.Episode),
				logging.Error(err),
				logging.String(logging.FieldImpact, "episode will be announced on the next pass"),
			)
		case sent:
			result.Sent++
		default:
			result.Skipped++
		}
	}
	return result, errors.Join(errs...)
}

// DispatchBehind sends at most one digest per day listing titles with aired
// but unwatched episodes. It reports whether a digest went out.
func (n *EpisodeNotifier) DispatchBehind(ctx context.Context, items []BehindItem, today civil.Date) (bool, error) {
	if len(items) == 0 {
		return false, nil
	}
	sorted := append([]BehindItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		bi, bj := sorted[i].Expected-sorted[i].Current, sorted[j].Expected-sorted[j].Current
		if bi != bj {
			return bi > bj
		}
		return strings.ToLower(sorted[i].Title) < strings.ToLower(sorted[j].Title)
	})
	lines := make([]string, 0, len(sorted))
	for _, item := range sorted {
		lines = append(lines, fmt.Sprintf("- %s: %d behind (ep %d of %d aired)",
			item.Title, item.Expected-item.Current, item.Current, item.Expected))
	}
	return n.publishOnce(ctx, BehindKey(today), EventBehindDigest, Payload{"lines": strings.Join(lines, "\n")})
}

func (n *EpisodeNotifier) publishOnce(ctx context.Context, key string, event Event, payload Payload) (bool, error) {
	if n.notified != nil {
		done, err := n.notified.WasNotified(ctx, key)
		if err != nil {
			return false, fmt.Errorf("check %s: %w", key, err)
		}
		if done {
			return false, nil
		}
	}
	if err := n.service.Publish(ctx, event, payload); err != nil {
		return false, fmt.Errorf("publish %s: %w", key, err)
	}
	if n.notified != nil {
		if err := n.notified.MarkNotified(ctx, key); err != nil {
			return true, fmt.Errorf("mark %s: %w", key, err)
		}
	}
	n.logger.Debug("notification sent", logging.String("key", key), logging.String(logging.FieldEventType, string(event)))
	return true, nil
}
