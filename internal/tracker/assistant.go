package tracker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/llm"
	"github.com/bhaskara2k/animelista-sub000/internal/logging"
	"github.com/bhaskara2k/animelista-sub000/internal/services"
)

const maxRecommendationSeeds = 15

// TranslateSynopsis translates an entry's synopsis into the configured
// target language and stores it. A stored translation is returned as is
// unless force is set.
func (s *Service) TranslateSynopsis(ctx context.Context, id int64, force bool) (*library.Entry, error) {
	if s.assistant == nil || !s.assistant.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, component, "translate", "llm is not configured", nil)
	}
	entry, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(entry.Synopsis) == "" {
		return nil, services.Wrap(services.ErrValidation, component, "translate", fmt.Sprintf("%q has no synopsis", entry.Title), nil)
	}
	if entry.SynopsisTranslated != "" && !force {
		return entry, nil
	}
	translated, err := s.assistant.Translate(ctx, entry.Synopsis, s.targetLanguage)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateCatalogData(ctx, entry.ID, func(current *library.Entry) {
		current.SynopsisTranslated = translated
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("synopsis translated", logging.AnimeID(updated.ID), logging.String("language", s.targetLanguage))
	return updated, nil
}

// Recommend asks the LLM for titles similar to the viewer's best rated
// completed series. Titles already in the library are filtered out.
func (s *Service) Recommend(ctx context.Context, limit int) ([]llm.Recommendation, error) {
	if s.assistant == nil || !s.assistant.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, component, "recommend", "llm is not configured", nil)
	}
	all, err := s.store.List(ctx, library.Filter{})
	if err != nil {
		return nil, err
	}
	seeds := recommendationSeeds(all)
	if len(seeds) == 0 {
		return nil, services.Wrap(services.ErrValidation, component, "recommend", "complete or start watching a title first", nil)
	}
	recs, err := s.assistant.Recommend(ctx, seeds, limit)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]struct{}, len(all))
	for _, entry := range all {
		owned[strings.ToLower(entry.Title)] = struct{}{}
	}
	out := recs[:0]
	for _, rec := range recs {
		if _, ok := owned[strings.ToLower(rec.Title)]; ok {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// recommendationSeeds prefers completed titles by rating, then titles in
// progress.
func recommendationSeeds(entries []*library.Entry) []llm.Seed {
	var candidates []*library.Entry
	for _, entry := range entries {
		if entry.Status == library.StatusCompleted || (entry.Status == library.StatusWatching && entry.CurrentEpisode > 0) {
			candidates = append(candidates, entry)
		}
	}
	rating := func(e *library.Entry) int {
		if e.Rating == nil {
			return 0
		}
		return *e.Rating
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i].Status == library.StatusCompleted, candidates[j].Status == library.StatusCompleted
		if ci != cj {
			return ci
		}
		return rating(candidates[i]) > rating(candidates[j])
	})
	if len(candidates) > maxRecommendationSeeds {
		candidates = candidates[:maxRecommendationSeeds]
	}
	seeds := make([]llm.Seed, 0, len(candidates))
	for _, entry := range candidates {
		seeds = append(seeds, llm.Seed{Title: entry.Title, Rating: rating(entry)})
	}
	return seeds
}
