package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type SchemaCatalogEntry struct {
	Id           int64           `gorm:"primaryKey;autoIncrement"`
	Name         string          `gorm:"column:table_name;type:varchar(128);not null;uniqueIndex"`
	Description  string          `gorm:"type:text"`
	ColumnList   datatypes.JSON  `gorm:"column:column_list;type:jsonb"`
	DdlContent   string          `gorm:"column:ddl_content;type:text;not null"`
	SchemaVector pgvector.Vector `gorm:"column:schema_vector;type:vector(1024)"` // KURE-v1 uses 1024 dimensions
	CreatedAt    time.Time       `gorm:"autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime"`
}

func (SchemaCatalogEntry) TableName() string {
	return "tbl_deep_nexus_schema"
}
