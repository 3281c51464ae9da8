package contract

import (
	"context"

	"deep-nexus-be/internal/entity"
)

// SchemaCatalogRepository reads the table catalog used to ground
// text-to-SQL generation.
type SchemaCatalogRepository interface {
	Create(ctx context.Context, entry *entity.SchemaCatalogEntry, vector []float32) error
	FindAll(ctx context.Context) ([]*entity.SchemaCatalogEntry, error)

	// SearchSimilarDDL returns the DDL text of the tables whose
	// description embeddings are closest to the query vector.
	SearchSimilarDDL(ctx context.Context, embedding []float32, limit int) ([]string, error)
}
