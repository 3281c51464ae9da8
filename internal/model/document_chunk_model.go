package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type DocumentChunk struct {
	Id            int64           `gorm:"primaryKey;autoIncrement"`
	Content       string          `gorm:"type:text;not null"`
	DocTitle      string          `gorm:"column:doc_title;type:varchar(255)"`
	DocURL        string          `gorm:"column:doc_url;type:text"`
	Metadata      datatypes.JSON  `gorm:"type:jsonb"`
	ContentVector pgvector.Vector `gorm:"column:content_vector;type:vector(1024)"`
	CreatedAt     time.Time       `gorm:"autoCreateTime"`
}

func (DocumentChunk) TableName() string {
	return "tbl_deep_nexus_docs"
}
