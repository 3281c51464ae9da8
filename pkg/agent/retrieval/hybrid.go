package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"deep-nexus-be/internal/entity"
	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/internal/repository/contract"
	"deep-nexus-be/pkg/embedding"
	"deep-nexus-be/pkg/rerank"
)

const (
	denseLimit   = 15
	keywordLimit = 15
	topK         = 3
)

// NoResultsSentinel is returned when neither search mode finds
// anything. The generator rephrases it rather than quoting it.
const NoResultsSentinel = "no matching documents found."

type Candidate struct {
	Chunk      *entity.DocumentChunk
	Similarity float64
}

// Retriever runs hybrid document search: dense vector similarity plus
// keyword substring match, merged, cross-encoder reranked, and the top
// chunks formatted as generator evidence.
type Retriever struct {
	docs     contract.DocumentRepository
	embedder embedding.EmbeddingProvider
	reranker rerank.Reranker
	logger   logger.ILogger
}

func NewRetriever(docs contract.DocumentRepository, embedder embedding.EmbeddingProvider, reranker rerank.Reranker, log logger.ILogger) *Retriever {
	return &Retriever{
		docs:     docs,
		embedder: embedder,
		reranker: reranker,
		logger:   log,
	}
}

// Search never fails the request: any infrastructure error is folded
// into the returned evidence string so generation can still explain
// the situation. departmentCode is part of the caller contract but not
// yet restrictive; document access is currently company-wide.
func (r *Retriever) Search(ctx context.Context, query, departmentCode string, filterKeywords []string) string {
	resp, err := r.embedder.Generate(query, embedding.TaskRetrievalQuery)
	if err != nil {
		return r.searchError("query embedding failed", err)
	}

	dense, err := r.docs.SearchSimilarWithScore(ctx, resp.Embedding.Values, denseLimit)
	if err != nil {
		return r.searchError("dense search failed", err)
	}

	var keyword []*entity.DocumentChunk
	if len(filterKeywords) > 0 {
		keyword, err = r.docs.SearchByKeywords(ctx, filterKeywords, keywordLimit)
		if err != nil {
			return r.searchError("keyword search failed", err)
		}
	}

	merged := Merge(dense, keyword)
	if len(merged) == 0 {
		return NoResultsSentinel
	}

	top, err := r.rerankTop(query, merged)
	if err != nil {
		return r.searchError("rerank failed", err)
	}

	r.logger.Info("retrieval", "hybrid search completed", map[string]interface{}{
		"department": departmentCode,
		"dense":      len(dense),
		"keyword":    len(keyword),
		"merged":     len(merged),
		"returned":   len(top),
	})
	return formatChunks(top)
}

// Merge deduplicates the two result sets by chunk content. Dense hits
// win and keep their similarity; keyword-only hits come in with a
// neutral 0.0 score, which the reranker overrides anyway.
func Merge(dense []*contract.ScoredDocumentChunk, keyword []*entity.DocumentChunk) []Candidate {
	seen := make(map[string]struct{}, len(dense)+len(keyword))
	merged := make([]Candidate, 0, len(dense)+len(keyword))

	for _, hit := range dense {
		if _, dup := seen[hit.Chunk.Content]; dup {
			continue
		}
		seen[hit.Chunk.Content] = struct{}{}
		merged = append(merged, Candidate{Chunk: hit.Chunk, Similarity: hit.Similarity})
	}
	for _, chunk := range keyword {
		if _, dup := seen[chunk.Content]; dup {
			continue
		}
		seen[chunk.Content] = struct{}{}
		merged = append(merged, Candidate{Chunk: chunk, Similarity: 0.0})
	}
	return merged
}

func (r *Retriever) rerankTop(query string, merged []Candidate) ([]Candidate, error) {
	documents := make([]string, len(merged))
	for i, c := range merged {
		documents[i] = c.Chunk.Content
	}

	scores, err := r.reranker.Score(query, documents)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(merged))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	limit := topK
	if limit > len(order) {
		limit = len(order)
	}
	top := make([]Candidate, limit)
	for i := 0; i < limit; i++ {
		top[i] = merged[order[i]]
	}
	return top, nil
}

func formatChunks(top []Candidate) string {
	formatted := make([]string, len(top))
	for i, c := range top {
		formatted[i] = fmt.Sprintf("- Content: %s\n- Document: %s\n- Source: %s\n", c.Chunk.Content, c.Chunk.Title, c.Chunk.URL)
	}
	return strings.Join(formatted, "\n\n")
}

func (r *Retriever) searchError(stage string, err error) string {
	r.logger.Error("retrieval", stage, map[string]interface{}{
		"error": err.Error(),
	})
	return fmt.Sprintf("Error: %s: %v", stage, err)
}
