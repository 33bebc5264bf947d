package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bhaskara2k/animelista-sub000/internal/config"
)

const (
	userAgent      = "animelista/0.1"
	defaultNtfyURL = "https://ntfy.sh/"
)

// Event identifies a notification kind.
type Event string

const (
	EventEpisodeAired        Event = "episode_aired"
	EventEpisodeUpcoming     Event = "episode_upcoming"
	EventBehindDigest        Event = "behind_digest"
	EventSeriesCompleted     Event = "series_completed"
	EventLevelUp             Event = "level_up"
	EventAchievementUnlocked Event = "achievement_unlocked"
	EventSyncFailed          Event = "sync_failed"
	EventTest                Event = "test"
)

// Payload carries the values an event message is built from.
type Payload map[string]any

// Service publishes notification events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: Endpoint(topic),
		client:   &http.Client{Timeout: timeout},
	}
}

// Endpoint resolves a configured topic to its publish URL. A bare topic
// name is published on ntfy.sh.
func Endpoint(topic string) string {
	topic = strings.TrimSpace(topic)
	if strings.HasPrefix(topic, "http://") || strings.HasPrefix(topic, "https://") {
		return topic
	}
	return defaultNtfyURL + strings.TrimLeft(topic, "/")
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
	click    string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventEpisodeAired:
		return message{
			title: "New episode",
			body:  fmt.Sprintf("📺 %s episode %s is out", payload.text("title"), payload.text("episode")),
			tags:  []string{"animelista", "episode", "aired"},
			click: payload.text("url"),
		}, true
	case EventEpisodeUpcoming:
		return message{
			title: "Airing soon",
			body:  fmt.Sprintf("⏳ %s episode %s airs %s", payload.text("title"), payload.text("episode"), payload.text("date")),
			tags:  []string{"animelista", "episode", "upcoming"},
			click: payload.text("url"),
		}, true
	case EventBehindDigest:
		return message{
			title: "Catch up",
			body:  "You are behind on:\n" + payload.text("lines"),
			tags:  []string{"animelista", "behind"},
		}, true
	case EventSeriesCompleted:
		return message{
			title: "Series complete",
			body:  fmt.Sprintf("✅ Finished %s", payload.text("title")),
			tags:  []string{"animelista", "completed"},
		}, true
	case EventLevelUp:
		return message{
			title: "Level up",
			body:  fmt.Sprintf("⭐ Reached level %s", payload.text("level")),
			tags:  []string{"animelista", "level"},
		}, true
	case EventAchievementUnlocked:
		return message{
			title: "Achievement unlocked",
			body:  fmt.Sprintf("🏆 %s: %s", payload.text("name"), payload.text("description")),
			tags:  []string{"animelista", "achievement"},
		}, true
	case EventSyncFailed:
		body := "❌ Catalog sync failed"
		if detail := payload.text("error"); detail != "" {
			body += ": " + detail
		}
		return message{
			title:    "Sync error",
			body:     body,
			tags:     []string{"animelista", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "animelista test",
			body:     "🧪 Notification system test",
			tags:     []string{"animelista", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}
	if msg.click != "" {
		req.Header.Set("Click", msg.click)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

// Enabled reports whether svc actually delivers messages.
func Enabled(svc Service) bool {
	if svc == nil {
		return false
	}
	_, noop := svc.(noopService)
	return !noop
}
