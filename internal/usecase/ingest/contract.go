package ingest

import (
	"context"

	"github.com/hiringlab/assessrec/internal/domain"
)

// Embedder vectorizes batches of catalog texts.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Repository persists assessments and their vectors in the index.
type Repository interface {
	EnsureIndex(ctx context.Context) error
	UpsertBatch(ctx context.Context, assessments []domain.Assessment, vectors [][]float32) error
	Count(ctx context.Context) (int64, error)
}
