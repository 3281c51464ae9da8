package main

import (
	"log"
	"os"

	"deep-nexus-be/internal/model"
	"deep-nexus-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	log.Println("Step 1: Setting up Extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
		log.Printf("Warn: Failed to create vector extension: %v. Continuing...", err)
	}

	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.SchemaCatalogEntry{},
		&model.DocumentChunk{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatal("Error: AutoMigrate failed:", err)
	}

	log.Println("Step 3: Creating vector indexes...")
	indexSQL := []string{
		`CREATE INDEX IF NOT EXISTS idx_schema_vector ON tbl_deep_nexus_schema USING hnsw (schema_vector vector_cosine_ops);`,
		`CREATE INDEX IF NOT EXISTS idx_docs_vector ON tbl_deep_nexus_docs USING hnsw (content_vector vector_cosine_ops);`,
	}
	for _, sql := range indexSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to create index: %v. Continuing...", err)
		}
	}

	log.Println("Migration completed.")
}
