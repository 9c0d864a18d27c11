// Package retrieve turns a free-text query into ranked assessment candidates.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hiringlab/assessrec/internal/domain"
)

const (
	minK = 1
	maxK = domain.MaxRecommendations
)

// Service embeds queries and retrieves the top-k nearest assessments.
type Service struct {
	embed  Embedder
	repo   Repository
	logger *zap.Logger
}

// New creates a retrieval service.
func New(embed Embedder, repo Repository, logger *zap.Logger) *Service {
	return &Service{embed: embed, repo: repo, logger: logger}
}

// Retrieve embeds the query and returns candidates ranked 1..n by similarity.
// k is clamped into [1, 10]. Defaulting of an omitted k is the caller's job.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]domain.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrInvalidInput)
	}

	k = clampK(k)

	result, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.repo.Search(ctx, result.Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	candidates := make([]domain.Candidate, len(hits))
	for i, h := range hits {
		candidates[i] = domain.Candidate{
			Assessment: h.Assessment,
			Score:      h.Score,
			Rank:       i + 1,
		}
	}

	s.logger.Debug("Retrieved candidates",
		zap.Int("k", k),
		zap.Int("hits", len(candidates)),
	)
	return candidates, nil
}

func clampK(k int) int {
	if k < minK {
		return minK
	}
	if k > maxK {
		return maxK
	}
	return k
}
