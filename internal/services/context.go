package services

import "context"

type contextKey string

const (
	animeIDKey   contextKey = "anime_id"
	requestIDKey contextKey = "request_id"
)

// WithAnimeID annotates context with the library entry identifier.
func WithAnimeID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, animeIDKey, id)
}

// AnimeIDFromContext extracts the library entry identifier if present.
func AnimeIDFromContext(ctx context.Context) (int64, bool) {
	switch val := ctx.Value(animeIDKey).(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
