package implementation

import (
	"context"
	"encoding/json"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"deep-nexus-be/internal/entity"
	"deep-nexus-be/internal/model"
	"deep-nexus-be/internal/repository/contract"
)

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) contract.DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, chunk *entity.DocumentChunk, vector []float32) error {
	var metadata datatypes.JSON
	if chunk.Metadata != nil {
		raw, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return err
		}
		metadata = datatypes.JSON(raw)
	}

	row := &model.DocumentChunk{
		Content:       chunk.Content,
		DocTitle:      chunk.Title,
		DocURL:        chunk.URL,
		Metadata:      metadata,
		ContentVector: pgvector.NewVector(vector),
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// SearchSimilarWithScore returns the closest chunks with their cosine
// similarity. pgvector's <=> operator yields cosine distance, so the
// similarity is 1 - distance.
func (r *documentRepository) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int) ([]*contract.ScoredDocumentChunk, error) {
	if limit <= 0 {
		limit = 15
	}

	type result struct {
		model.DocumentChunk
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("tbl_deep_nexus_docs").
		Select("tbl_deep_nexus_docs.*, 1 - (content_vector <=> ?) as similarity", queryVector).
		Order(gorm.Expr("content_vector <=> ?", queryVector)).
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredDocumentChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredDocumentChunk{
			Chunk:      toDocumentEntity(&res.DocumentChunk),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}

func (r *documentRepository) SearchByKeywords(ctx context.Context, keywords []string, limit int) ([]*entity.DocumentChunk, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 15
	}

	patterns := make([]string, len(keywords))
	for i, kw := range keywords {
		patterns[i] = "%" + kw + "%"
	}

	var rows []model.DocumentChunk
	err := r.db.WithContext(ctx).
		Where("content ILIKE ANY (ARRAY[?])", patterns).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	chunks := make([]*entity.DocumentChunk, len(rows))
	for i := range rows {
		chunks[i] = toDocumentEntity(&rows[i])
	}
	return chunks, nil
}

func toDocumentEntity(row *model.DocumentChunk) *entity.DocumentChunk {
	var metadata map[string]interface{}
	if len(row.Metadata) > 0 {
		_ = json.Unmarshal(row.Metadata, &metadata)
	}
	return &entity.DocumentChunk{
		Content:  row.Content,
		Title:    row.DocTitle,
		URL:      row.DocURL,
		Metadata: metadata,
	}
}
