package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/pkg/embedding"

	"github.com/redis/go-redis/v9"
)

// SemanticCache stores whole query/answer pairs in a Redis vector index
// and serves repeats by embedding-space proximity instead of exact text
// match. Every operation is best-effort: a broken cache never fails the
// caller's request.
type SemanticCache struct {
	rdb               *redis.Client
	embeddingProvider embedding.EmbeddingProvider
	logger            logger.ILogger

	indexName         string
	keyPrefix         string
	vectorDim         int
	distanceThreshold float64
	ttl               time.Duration
}

func NewSemanticCache(
	rdb *redis.Client,
	embeddingProvider embedding.EmbeddingProvider,
	sysLogger logger.ILogger,
	vectorDim int,
	distanceThreshold float64,
	ttl time.Duration,
) *SemanticCache {
	c := &SemanticCache{
		rdb:               rdb,
		embeddingProvider: embeddingProvider,
		logger:            sysLogger,
		indexName:         "idx:semantic_cache",
		keyPrefix:         "cache:",
		vectorDim:         vectorDim,
		distanceThreshold: distanceThreshold,
		ttl:               ttl,
	}
	c.ensureIndex(context.Background())
	return c
}

// ensureIndex lazily creates the HNSW index. Creation failures are
// logged, not returned; Search/Store retry it on the next call.
func (c *SemanticCache) ensureIndex(ctx context.Context) {
	if err := c.rdb.FTInfo(ctx, c.indexName).Err(); err == nil {
		return
	}

	err := c.rdb.FTCreate(ctx, c.indexName,
		&redis.FTCreateOptions{
			OnHash: true,
			Prefix: []interface{}{c.keyPrefix},
		},
		&redis.FieldSchema{
			FieldName: "response_text",
			FieldType: redis.SearchFieldTypeText,
		},
		&redis.FieldSchema{
			FieldName: "query_vector",
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				HNSWOptions: &redis.FTHNSWOptions{
					Type:           "FLOAT32",
					Dim:            c.vectorDim,
					DistanceMetric: "COSINE",
				},
			},
		},
	).Err()
	if err != nil {
		c.logger.Warn("semantic_cache", "Failed to create vector index", map[string]interface{}{"error": err.Error()})
		return
	}
	c.logger.Info("semantic_cache", "Vector index created", map[string]interface{}{"index": c.indexName})
}

// Search returns the cached answer for a semantically equivalent query.
// A hit requires the nearest neighbour's cosine distance to fall below
// the configured threshold.
func (c *SemanticCache) Search(ctx context.Context, queryText string) (string, bool) {
	embeddingRes, err := c.embeddingProvider.Generate(queryText, embedding.TaskRetrievalQuery)
	if err != nil {
		c.logger.Warn("semantic_cache", "Cache lookup embedding failed", map[string]interface{}{"error": err.Error()})
		return "", false
	}

	res, err := c.rdb.FTSearchWithArgs(ctx, c.indexName,
		"*=>[KNN 1 @query_vector $vec AS score]",
		&redis.FTSearchOptions{
			Return: []redis.FTSearchReturn{
				{FieldName: "response_text"},
				{FieldName: "score"},
			},
			DialectVersion: 2,
			Params: map[string]interface{}{
				"vec": vectorBytes(embeddingRes.Embedding.Values),
			},
		},
	).Result()
	if err != nil {
		c.ensureIndex(ctx)
		c.logger.Warn("semantic_cache", "Cache search failed", map[string]interface{}{"error": err.Error()})
		return "", false
	}

	if res.Total == 0 {
		return "", false
	}

	doc := res.Docs[0]
	score, err := strconv.ParseFloat(doc.Fields["score"], 64)
	if err != nil {
		return "", false
	}
	if !IsHit(score, c.distanceThreshold) {
		return "", false
	}

	c.logger.Info("semantic_cache", "Cache hit", map[string]interface{}{"distance": score})
	return doc.Fields["response_text"], true
}

// Store upserts a query/answer pair under a content-derived key with a
// TTL. Failures are swallowed.
func (c *SemanticCache) Store(ctx context.Context, queryText, responseText string) {
	embeddingRes, err := c.embeddingProvider.Generate(queryText, embedding.TaskRetrievalQuery)
	if err != nil {
		c.logger.Warn("semantic_cache", "Cache store embedding failed", map[string]interface{}{"error": err.Error()})
		return
	}

	key := c.Key(queryText)
	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"response_text": responseText,
		"query_vector":  vectorBytes(embeddingRes.Embedding.Values),
		"created_at":    time.Now().Unix(),
	})
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.ensureIndex(ctx)
		c.logger.Warn("semantic_cache", "Cache store failed", map[string]interface{}{"error": err.Error()})
		return
	}

	c.logger.Debug("semantic_cache", "Cache saved", map[string]interface{}{"key": key})
}

// Key derives a stable cache key from the query text, so storing the
// same query twice overwrites a single entry.
func (c *SemanticCache) Key(queryText string) string {
	return fmt.Sprintf("%s%x", c.keyPrefix, sha256.Sum256([]byte(queryText)))
}

// IsHit reports whether a nearest-neighbour distance qualifies as a hit.
func IsHit(distance, threshold float64) bool {
	return distance < threshold
}

// vectorBytes encodes a float32 vector as the little-endian blob the
// RediSearch KNN operator expects.
func vectorBytes(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
