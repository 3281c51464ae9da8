package entity

// SchemaCatalogEntry describes one relational table for retrieval: its
// natural-language description, column listing and raw DDL.
type SchemaCatalogEntry struct {
	TableName   string
	Description string
	Columns     []string
	DDL         string
}
