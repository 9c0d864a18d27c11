// Package ingest embeds catalog records and writes them to the vector index.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hiringlab/assessrec/internal/domain"
)

// Service indexes assessment catalogs batch by batch.
type Service struct {
	embed         Embedder
	repo          Repository
	truncateChars int
	batchSize     int
	logger        *zap.Logger
}

// Report summarizes one ingest run. FailedIDs lists assessments whose batch
// could not be embedded or stored; the rest of the catalog is still indexed.
type Report struct {
	Upserted  int
	FailedIDs []string
}

// New creates an ingest service. truncateChars caps the embedded text length,
// batchSize controls how many records go into one embedding call.
func New(embed Embedder, repo Repository, truncateChars, batchSize int, logger *zap.Logger) *Service {
	if truncateChars <= 0 {
		truncateChars = 2000
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Service{
		embed:         embed,
		repo:          repo,
		truncateChars: truncateChars,
		batchSize:     batchSize,
		logger:        logger,
	}
}

// Ingest validates, embeds and upserts the given assessments. Re-ingesting an
// existing id overwrites its vector and metadata. A failing batch is recorded
// in the report and does not abort the remaining batches.
func (s *Service) Ingest(ctx context.Context, assessments []domain.Assessment) (Report, error) {
	if len(assessments) == 0 {
		return Report{}, nil
	}

	for _, a := range assessments {
		if err := validate(a); err != nil {
			return Report{}, err
		}
	}

	if err := s.repo.EnsureIndex(ctx); err != nil {
		return Report{}, fmt.Errorf("ensure index: %w", err)
	}

	var report Report
	for start := 0; start < len(assessments); start += s.batchSize {
		end := start + s.batchSize
		if end > len(assessments) {
			end = len(assessments)
		}
		batch := assessments[start:end]

		if err := s.ingestBatch(ctx, batch); err != nil {
			for _, a := range batch {
				report.FailedIDs = append(report.FailedIDs, a.ID)
			}
			s.logger.Error("Failed to ingest batch",
				zap.Int("offset", start),
				zap.Int("size", len(batch)),
				zap.Error(err),
			)
			continue
		}
		report.Upserted += len(batch)
	}

	s.logger.Info("Catalog ingest finished",
		zap.Int("upserted", report.Upserted),
		zap.Int("failed", len(report.FailedIDs)),
	)
	return report, nil
}

func (s *Service) ingestBatch(ctx context.Context, batch []domain.Assessment) error {
	texts := make([]string, len(batch))
	for i, a := range batch {
		texts[i] = a.EmbeddingText(s.truncateChars)
	}

	result, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(result.Embeddings) != len(batch) {
		return fmt.Errorf("got %d embeddings for %d records", len(result.Embeddings), len(batch))
	}

	if err := s.repo.UpsertBatch(ctx, batch, result.Embeddings); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return nil
}

// IndexedCount returns how many assessments the index currently holds.
func (s *Service) IndexedCount(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func validate(a domain.Assessment) error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("assessment with empty id: %w", domain.ErrMalformedCatalog)
	}
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("assessment %q: missing title: %w", a.ID, domain.ErrMalformedCatalog)
	}
	if strings.TrimSpace(a.URL) == "" {
		return fmt.Errorf("assessment %q: missing url: %w", a.ID, domain.ErrMalformedCatalog)
	}
	return nil
}
