package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"deep-nexus-be/internal/entity"
	"deep-nexus-be/internal/repository/contract"
	"deep-nexus-be/internal/repository/implementation"
	"deep-nexus-be/pkg/database"
	"deep-nexus-be/pkg/embedding"
	"deep-nexus-be/pkg/embedding/tei"
)

type schemaSeed struct {
	TableName   string   `json:"table_name"`
	Description string   `json:"description"`
	ColumnList  []string `json:"column_list"`
	DdlContent  string   `json:"ddl_content"`
}

type docSeed struct {
	Content  string                 `json:"content"`
	DocTitle string                 `json:"doc_title"`
	DocURL   string                 `json:"doc_url"`
	Metadata map[string]interface{} `json:"metadata"`
}

func main() {
	schemaPath := flag.String("schema", "", "path to schema catalog JSON")
	docsPath := flag.String("docs", "", "path to document chunks JSON")
	flag.Parse()

	if *schemaPath == "" && *docsPath == "" {
		color.Red("Nothing to do: pass -schema and/or -docs")
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		color.Yellow("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		color.Red("DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		color.Red("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	embeddingURL := os.Getenv("EMBEDDING_BASE_URL")
	if embeddingURL == "" {
		embeddingURL = "http://localhost:8080"
	}
	embedder := tei.NewTeiProvider(embeddingURL)

	ctx := context.Background()

	if *schemaPath != "" {
		seedSchemas(ctx, db, embedder, *schemaPath)
	}
	if *docsPath != "" {
		seedDocs(ctx, db, embedder, *docsPath)
	}

	color.Green("Seeding completed.")
}

func seedSchemas(ctx context.Context, db *gorm.DB, embedder embedding.EmbeddingProvider, path string) {
	var seeds []schemaSeed
	loadJSON(path, &seeds)

	repo := implementation.NewSchemaCatalogRepository(db)
	for _, seed := range seeds {
		// Similarity search runs against the description text, so that
		// is what gets embedded.
		resp, err := embedder.Generate(seed.Description, embedding.TaskRetrievalDocument)
		if err != nil {
			color.Red("Failed to embed schema %s: %v", seed.TableName, err)
			os.Exit(1)
		}

		entry := &entity.SchemaCatalogEntry{
			TableName:   seed.TableName,
			Description: seed.Description,
			Columns:     seed.ColumnList,
			DDL:         seed.DdlContent,
		}
		if err := repo.Create(ctx, entry, resp.Embedding.Values); err != nil {
			color.Red("Failed to insert schema %s: %v", seed.TableName, err)
			os.Exit(1)
		}
		color.Cyan("Seeded schema: %s", seed.TableName)
	}
}

func seedDocs(ctx context.Context, db *gorm.DB, embedder embedding.EmbeddingProvider, path string) {
	var seeds []docSeed
	loadJSON(path, &seeds)

	var repo contract.DocumentRepository = implementation.NewDocumentRepository(db)
	for i, seed := range seeds {
		resp, err := embedder.Generate(seed.Content, embedding.TaskRetrievalDocument)
		if err != nil {
			color.Red("Failed to embed chunk %d (%s): %v", i, seed.DocTitle, err)
			os.Exit(1)
		}

		chunk := &entity.DocumentChunk{
			Content:  seed.Content,
			Title:    seed.DocTitle,
			URL:      seed.DocURL,
			Metadata: seed.Metadata,
		}
		if err := repo.Create(ctx, chunk, resp.Embedding.Values); err != nil {
			color.Red("Failed to insert chunk %d (%s): %v", i, seed.DocTitle, err)
			os.Exit(1)
		}
	}
	color.Cyan("Seeded %d document chunks", len(seeds))
}

func loadJSON(path string, out interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		color.Red("Failed to read %s: %v", path, err)
		os.Exit(1)
	}
	if err := json.Unmarshal(data, out); err != nil {
		color.Red("Failed to parse %s: %v", path, err)
		os.Exit(1)
	}
}
