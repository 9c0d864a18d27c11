package retrieve

import (
	"context"

	"github.com/hiringlab/assessrec/internal/domain"
	"github.com/hiringlab/assessrec/internal/repository/index"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Repository runs KNN searches against the assessment index.
type Repository interface {
	Search(ctx context.Context, vector []float32, k int) ([]index.Hit, error)
}
