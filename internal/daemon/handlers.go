package daemon

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/bhaskara2k/animelista-sub000/internal/api"
	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/services"
	"github.com/bhaskara2k/animelista-sub000/internal/tracker"
)

const (
	defaultUpcomingDays = 7
	maxUpcomingDays     = 90
	maxBodyBytes        = 64 << 10
)

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status()
	stats, err := s.daemon.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		RunID:        status.RunID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Refresh:      loopDTO(status.Refresh),
		Notify:       loopDTO(status.Notify),
		Library:      api.FromStats(stats),
	}
	if !status.StartedAt.IsZero() {
		payload.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func loopDTO(state LoopStatus) api.LoopStatus {
	dto := api.LoopStatus{
		IntervalMinutes: int(state.Interval / time.Minute),
		LastError:       state.LastError,
		Runs:            state.Runs,
	}
	if !state.LastRun.IsZero() {
		dto.LastRun = state.LastRun.UTC().Format(time.RFC3339)
	}
	return dto
}

func (s *apiServer) handleListAnime(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := tracker.ListOptions{Query: strings.TrimSpace(query.Get("q"))}
	for _, raw := range query["status"] {
		for _, value := range strings.Split(raw, ",") {
			if strings.TrimSpace(value) == "" {
				continue
			}
			status, err := library.ParseStatus(value)
			if err != nil {
				s.writeError(w, r, badRequest(err.Error()))
				return
			}
			opts.Statuses = append(opts.Statuses, status)
		}
	}
	sortKey, err := tracker.ParseSortKey(query.Get("sort"))
	if err != nil {
		s.writeError(w, r, badRequest(err.Error()))
		return
	}
	opts.Sort = sortKey
	opts.Desc = parseBool(query.Get("desc"))

	items, err := s.daemon.tracker.List(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.AnimeListResponse{Items: api.FromListItems(items)})
}

func (s *apiServer) handleCreateAnime(w http.ResponseWriter, r *http.Request) {
	var req api.CreateAnimeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := req.ToEntry()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var created *library.Entry
	if entry.Title == "" && entry.CatalogID != nil {
		created, err = s.daemon.tracker.Import(r.Context(), *entry.CatalogID, entry.Status)
	} else {
		created, err = s.daemon.store.Add(r.Context(), entry)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	next, err := s.daemon.tracker.Next(r.Context(), created.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/anime/%d", created.ID))
	s.writeJSON(w, http.StatusCreated, api.AnimeResponse{Anime: api.FromEntry(next.Entry, next.Airing)})
}

func (s *apiServer) handleGetAnime(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	next, err := s.daemon.tracker.Next(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.AnimeResponse{Anime: api.FromEntry(next.Entry, next.Airing)})
}

func (s *apiServer) handleDeleteAnime(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	removed, err := s.daemon.store.Remove(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !removed {
		s.writeError(w, r, services.Wrap(services.ErrNotFound, "api", "remove", fmt.Sprintf("anime %d", id), nil))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req api.ProgressRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := services.WithAnimeID(r.Context(), id)
	outcome, err := s.daemon.tracker.RecordProgress(ctx, id, req.Episode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	next, err := s.daemon.tracker.Next(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ProgressResponse{
		Anime:     api.FromEntry(next.Entry, next.Airing),
		Completed: outcome.Completed,
		Reward:    api.FromReward(outcome.Reward),
	})
}

func (s *apiServer) handleRating(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req api.RatingRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	outcome, err := s.daemon.tracker.Rate(services.WithAnimeID(r.Context(), id), id, req.Rating)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RatingResponse{
		Anime:  api.FromEntry(outcome.Entry, nil),
		Reward: api.FromReward(outcome.Reward),
	})
}

func (s *apiServer) handleNext(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	next, err := s.daemon.tracker.Next(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NextResponse{
		ID:     next.Entry.ID,
		Title:  next.Entry.Title,
		Airing: api.FromAiring(next.Airing),
	})
}

func (s *apiServer) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	days := defaultUpcomingDays
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed > maxUpcomingDays {
			s.writeError(w, r, badRequest(fmt.Sprintf("days must be an integer between 0 and %d", maxUpcomingDays)))
			return
		}
		days = parsed
	}
	items, err := s.daemon.tracker.Upcoming(r.Context(), days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.UpcomingResponse{Days: days, Items: api.FromUpcoming(items)})
}

func (s *apiServer) handleBehind(w http.ResponseWriter, r *http.Request) {
	items, err := s.daemon.tracker.Behind(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.BehindResponse{Items: api.FromBehind(items)})
}

func (s *apiServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.tracker.Profile(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromProfile(view))
}

// handleRefresh runs a refresh inline. Sync failures of single titles do not
// fail the request; they are reported in the error field.
func (s *apiServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	result, err := s.daemon.Refresh(r.Context())
	payload := api.RefreshResponse{
		Checked:  result.Sync.Checked,
		Updated:  result.Sync.Updated,
		Failed:   result.Sync.Failed,
		Notified: result.Notify.Sent,
	}
	if err != nil {
		payload.Error = err.Error()
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest(fmt.Sprintf("invalid anime id %q", raw))
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return badRequest(fmt.Sprintf("decode request body: %v", err))
	}
	return nil
}

func badRequest(message string) error {
	return services.Wrap(services.ErrValidation, "api", "request", message, nil)
}

func parseBool(value string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && parsed
}
