package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	opts := slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	}
	return subjectHandler{Handler: slog.NewJSONHandler(w, &opts)}
}

// subjectHandler adds the same "Anime #12 ep 4" subject the console format
// prints, so JSON lines about one title can be matched on a single field.
// Attributes inside a group are not considered.
type subjectHandler struct {
	slog.Handler
	animeID string
	episode string
}

func (h subjectHandler) Handle(ctx context.Context, record slog.Record) error {
	animeID, episode := h.animeID, h.episode
	record.Attrs(func(attr slog.Attr) bool {
		animeID, episode = subjectParts(attr, animeID, episode)
		return true
	})
	if subject := FormatSubject(animeID, episode); subject != "" {
		record = record.Clone()
		record.AddAttrs(slog.String(FieldSubject, subject))
	}
	return h.Handler.Handle(ctx, record)
}

func (h subjectHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := subjectHandler{Handler: h.Handler.WithAttrs(attrs), animeID: h.animeID, episode: h.episode}
	for _, attr := range attrs {
		next.animeID, next.episode = subjectParts(attr, next.animeID, next.episode)
	}
	return next
}

func (h subjectHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.Handler.WithGroup(name)
}

// subjectParts keeps the first anime id and episode seen, like the console
// handler does.
func subjectParts(attr slog.Attr, animeID, episode string) (string, string) {
	switch attr.Key {
	case FieldAnimeID:
		if animeID == "" {
			animeID = attrString(attr.Value)
		}
	case FieldEpisode:
		if episode == "" {
			episode = attrString(attr.Value)
		}
	}
	return animeID, episode
}
