// Package compose turns retrieval candidates into a validated recommendation set.
package compose

import (
	"context"

	"go.uber.org/zap"

	"github.com/hiringlab/assessrec/internal/domain"
	"github.com/hiringlab/assessrec/internal/metrics"
)

const fallbackRationale = "Closely matches the stated requirement based on catalog similarity."

// Service composes recommendation sets from candidates via the generator.
// It is the only layer that converts upstream failure into degraded success.
type Service struct {
	gen                 Generator
	maxPromptCandidates int
	logger              *zap.Logger
}

// Result carries the recommendations plus whether the generator was bypassed.
type Result struct {
	Recommendations domain.RecommendationSet
	Fallback        bool
}

// New creates a compose service. maxPromptCandidates caps how many candidates
// enter the prompt, never above domain.MaxRecommendations.
func New(gen Generator, maxPromptCandidates int, logger *zap.Logger) *Service {
	if maxPromptCandidates <= 0 || maxPromptCandidates > domain.MaxRecommendations {
		maxPromptCandidates = domain.MaxRecommendations
	}
	return &Service{gen: gen, maxPromptCandidates: maxPromptCandidates, logger: logger}
}

// Compose builds the recommendation set for the query. Empty candidates yield
// an empty set without calling the generator. Generator output is untrusted:
// rows whose URL is not among the prompt candidates are dropped, and zero
// surviving rows (or a generator error) falls back to rank order.
func (s *Service) Compose(ctx context.Context, query string, candidates []domain.Candidate) (Result, error) {
	if len(candidates) == 0 {
		return Result{Recommendations: domain.RecommendationSet{}}, nil
	}

	prompt := candidates
	if len(prompt) > s.maxPromptCandidates {
		prompt = prompt[:s.maxPromptCandidates]
	}

	text, err := s.gen.Generate(ctx, buildPrompt(query, prompt))
	if err != nil {
		s.logger.Warn("Generator failed, composing fallback", zap.Error(err))
		return s.fallback(prompt), nil
	}

	recs := s.matchRows(parseResponse(text), prompt)
	if len(recs) == 0 {
		s.logger.Warn("Generator produced no usable rows, composing fallback",
			zap.Int("response_chars", len(text)),
		)
		return s.fallback(prompt), nil
	}

	return Result{Recommendations: recs.Clamp()}, nil
}

// matchRows keeps generator rows that point at a prompted candidate, resolving
// each row to that candidate's catalog metadata. Duplicate URLs collapse to
// the first occurrence so the generator cannot pad the list.
func (s *Service) matchRows(rows []tableRow, candidates []domain.Candidate) domain.RecommendationSet {
	byURL := make(map[string]domain.Assessment, len(candidates))
	for _, c := range candidates {
		byURL[c.Assessment.URL] = c.Assessment
	}

	seen := make(map[string]bool, len(rows))
	var recs domain.RecommendationSet
	for _, row := range rows {
		a, ok := byURL[row.URL]
		if !ok {
			s.logger.Warn("Dropping generated row with unknown url", zap.String("url", row.URL))
			continue
		}
		if seen[row.URL] {
			continue
		}
		seen[row.URL] = true

		rationale := row.Rationale
		if rationale == "" {
			rationale = fallbackRationale
		}
		recs = append(recs, domain.Recommendation{
			Title:           a.Title,
			URL:             a.URL,
			DurationMinutes: a.DurationMinutes,
			Rationale:       rationale,
		})
	}
	return recs
}

// fallback builds recommendations from candidates in rank order.
func (s *Service) fallback(candidates []domain.Candidate) Result {
	metrics.GenerationFallbackTotal.Inc()

	recs := make(domain.RecommendationSet, 0, len(candidates))
	for _, c := range candidates {
		recs = append(recs, domain.Recommendation{
			Title:           c.Assessment.Title,
			URL:             c.Assessment.URL,
			DurationMinutes: c.Assessment.DurationMinutes,
			Rationale:       fallbackRationale,
		})
	}
	return Result{Recommendations: recs.Clamp(), Fallback: true}
}
