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

type schemaCatalogRepository struct {
	db *gorm.DB
}

func NewSchemaCatalogRepository(db *gorm.DB) contract.SchemaCatalogRepository {
	return &schemaCatalogRepository{db: db}
}

func (r *schemaCatalogRepository) Create(ctx context.Context, entry *entity.SchemaCatalogEntry, vector []float32) error {
	columns, err := json.Marshal(entry.Columns)
	if err != nil {
		return err
	}

	row := &model.SchemaCatalogEntry{
		Name:         entry.TableName,
		Description:  entry.Description,
		ColumnList:   datatypes.JSON(columns),
		DdlContent:   entry.DDL,
		SchemaVector: pgvector.NewVector(vector),
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *schemaCatalogRepository) FindAll(ctx context.Context) ([]*entity.SchemaCatalogEntry, error) {
	var rows []model.SchemaCatalogEntry
	if err := r.db.WithContext(ctx).Order("table_name asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]*entity.SchemaCatalogEntry, 0, len(rows))
	for _, row := range rows {
		var columns []string
		if len(row.ColumnList) > 0 {
			// Column lists written by older seeders may be absent.
			_ = json.Unmarshal(row.ColumnList, &columns)
		}
		entries = append(entries, &entity.SchemaCatalogEntry{
			TableName:   row.Name,
			Description: row.Description,
			Columns:     columns,
			DDL:         row.DdlContent,
		})
	}
	return entries, nil
}

func (r *schemaCatalogRepository) SearchSimilarDDL(ctx context.Context, embedding []float32, limit int) ([]string, error) {
	var ddls []string
	err := r.db.WithContext(ctx).
		Model(&model.SchemaCatalogEntry{}).
		Order(gorm.Expr("schema_vector <=> ?", pgvector.NewVector(embedding))).
		Limit(limit).
		Pluck("ddl_content", &ddls).Error
	if err != nil {
		return nil, err
	}
	return ddls, nil
}
