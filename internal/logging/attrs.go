package logging

import (
	"context"
	"log/slog"
	"time"
)

// FieldImpact states what the operator loses because of a warning.
const FieldImpact = "impact"

const defaultHint = "check logs for details"

func Bool(key string, value bool) slog.Attr              { return slog.Bool(key, value) }
func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }
func Int(key string, value int) slog.Attr                { return slog.Int(key, value) }
func Int64(key string, value int64) slog.Attr            { return slog.Int64(key, value) }
func String(key, value string) slog.Attr                 { return slog.String(key, value) }

// AnimeID tags a line with a library entry id.
func AnimeID(id int64) slog.Attr { return slog.Int64(FieldAnimeID, id) }

// CatalogID tags a line with an AniList media id.
func CatalogID(id int64) slog.Attr { return slog.Int64(FieldCatalogID, id) }

// Episode tags a line with an episode number.
func Episode(n int) slog.Attr { return slog.Int(FieldEpisode, n) }

// Error renders err under the "error" key; nil is logged explicitly.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func toArgs(attrs []slog.Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

// NewNop returns a logger that drops everything.
func NewNop() *slog.Logger {
	return slog.New(discardHandler{})
}

// NewComponentLogger tags every line of logger with component. A nil logger
// yields a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact. Caller attrs win over the defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs,
		slog.String(FieldEventType, eventType),
		slog.String(FieldErrorHint, defaultHint),
		slog.String(FieldImpact, "operation completed with warnings"),
	)
	logger.Warn(msg, toArgs(attrs)...)
}

// ErrorWithContext logs an error that always carries event_type and
// error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs,
		slog.String(FieldEventType, eventType),
		slog.String(FieldErrorHint, defaultHint),
	)
	logger.Error(msg, toArgs(attrs)...)
}

func withDefaults(attrs []slog.Attr, defaults ...slog.Attr) []slog.Attr {
	present := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		present[a.Key] = true
	}
	for _, d := range defaults {
		if !present[d.Key] {
			attrs = append(attrs, d)
		}
	}
	return attrs
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
