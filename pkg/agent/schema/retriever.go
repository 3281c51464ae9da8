package schema

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"deep-nexus-be/internal/entity"
	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/internal/repository/contract"
	"deep-nexus-be/pkg/embedding"
)

const (
	ddlLimit          = 5
	inventoryCacheKey = "schema:inventory"
	inventoryTTL      = 5 * time.Minute
)

// InventoryUnavailable stands in for the catalog summary when the
// catalog cannot be read; routing still proceeds without it.
const InventoryUnavailable = "no schema information available"

// Retriever grounds SQL generation in the table catalog: a flattened
// inventory of every table for routing, and the DDL of the closest
// tables for generation.
type Retriever struct {
	catalog  contract.SchemaCatalogRepository
	embedder embedding.EmbeddingProvider
	memo     *gocache.Cache
	logger   logger.ILogger
}

func NewRetriever(catalog contract.SchemaCatalogRepository, embedder embedding.EmbeddingProvider, log logger.ILogger) *Retriever {
	return &Retriever{
		catalog:  catalog,
		embedder: embedder,
		memo:     gocache.New(inventoryTTL, 2*inventoryTTL),
		logger:   log,
	}
}

// RelevantDDL embeds the joined keywords and returns the DDL of the
// five closest catalog entries, separated by blank lines.
func (r *Retriever) RelevantDDL(ctx context.Context, keywords []string) (string, error) {
	queryText := strings.Join(keywords, " ")

	resp, err := r.embedder.Generate(queryText, embedding.TaskRetrievalQuery)
	if err != nil {
		return "", fmt.Errorf("failed to embed schema keywords: %w", err)
	}

	ddls, err := r.catalog.SearchSimilarDDL(ctx, resp.Embedding.Values, ddlLimit)
	if err != nil {
		return "", fmt.Errorf("schema catalog search failed: %w", err)
	}
	return strings.Join(ddls, "\n\n"), nil
}

// Inventory returns one line per catalog table ("- name: col, col").
// The catalog changes rarely, so the rendered text is memoized.
func (r *Retriever) Inventory(ctx context.Context) string {
	if cached, found := r.memo.Get(inventoryCacheKey); found {
		return cached.(string)
	}

	entries, err := r.catalog.FindAll(ctx)
	if err != nil {
		r.logger.Warn("schema", "failed to load schema inventory", map[string]interface{}{
			"error": err.Error(),
		})
		return InventoryUnavailable
	}

	text := FormatInventory(entries)
	r.memo.Set(inventoryCacheKey, text, gocache.DefaultExpiration)
	return text
}

// FormatInventory renders catalog entries into the list the prompts
// embed.
func FormatInventory(entries []*entity.SchemaCatalogEntry) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("- %s: %s", entry.TableName, strings.Join(entry.Columns, ", ")))
	}
	if len(lines) == 0 {
		return InventoryUnavailable
	}
	return strings.Join(lines, "\n")
}
