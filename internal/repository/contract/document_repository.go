package contract

import (
	"context"

	"deep-nexus-be/internal/entity"
)

// ScoredDocumentChunk pairs a chunk with its cosine similarity to the
// search vector.
type ScoredDocumentChunk struct {
	Chunk      *entity.DocumentChunk
	Similarity float64
}

// DocumentRepository exposes the two retrieval modes of the document
// store: dense vector similarity and keyword/substring match.
type DocumentRepository interface {
	Create(ctx context.Context, chunk *entity.DocumentChunk, vector []float32) error
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int) ([]*ScoredDocumentChunk, error)
	SearchByKeywords(ctx context.Context, keywords []string, limit int) ([]*entity.DocumentChunk, error)
}
