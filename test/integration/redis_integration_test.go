package integration

import (
	"context"
	"crypto/sha256"
	"log"
	"os"
	"testing"
	"time"

	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/pkg/cache"
	"deep-nexus-be/pkg/embedding"
	"deep-nexus-be/pkg/memory"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder derives a stable vector from the text itself, so equal
// queries get equal vectors without a model server.
type hashEmbedder struct{}

func (hashEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	sum := sha256.Sum256([]byte(text))
	values := make([]float32, 8)
	for i := range values {
		values[i] = float32(sum[i]) - 128
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: values},
	}, nil
}

func redisClient(t *testing.T) *redis.Client {
	t.Helper()

	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}

	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	return redis.NewClient(opt)
}

func TestConversationMemoryWindowRoundTrip(t *testing.T) {
	rdb := redisClient(t)
	ctx := context.Background()

	sessionID := "it-" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(ctx, "history:"+sessionID) })

	mem := memory.NewConversationMemory(rdb, logger.NewNopLogger(), 4, time.Minute)

	// Six turns through a window of four: the two oldest must fall out.
	contents := []string{"t1", "t2", "t3", "t4", "t5", "t6"}
	for i, content := range contents {
		role := memory.RoleUser
		if i%2 == 1 {
			role = memory.RoleAssistant
		}
		require.NoError(t, mem.AddMessage(ctx, sessionID, role, content))
	}

	history, err := mem.GetHistory(ctx, sessionID)
	require.NoError(t, err)

	require.Len(t, history, 4)
	assert.Equal(t, "t3", history[0].Content)
	assert.Equal(t, "t4", history[1].Content)
	assert.Equal(t, "t5", history[2].Content)
	assert.Equal(t, "t6", history[3].Content)
	assert.Equal(t, memory.RoleUser, history[0].Role)
	assert.Equal(t, memory.RoleAssistant, history[3].Role)

	ttl, err := rdb.TTL(ctx, "history:"+sessionID).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestSemanticCacheStoreTwiceSearchOnce(t *testing.T) {
	rdb := redisClient(t)
	ctx := context.Background()

	if err := rdb.FT_List(ctx).Err(); err != nil {
		t.Skip("Skipping integration test: RediSearch module not available")
	}

	// Recreate the index so its dimension matches the test embedder.
	_ = rdb.FTDropIndex(ctx, "idx:semantic_cache").Err()

	c := cache.NewSemanticCache(rdb, hashEmbedder{}, logger.NewNopLogger(), 8, 0.1, time.Minute)

	question := "integration question " + uuid.NewString()
	t.Cleanup(func() { rdb.Del(ctx, c.Key(question)) })

	c.Store(ctx, question, "first answer")
	c.Store(ctx, question, "second answer")

	// The content-derived key makes the second store an overwrite.
	exists, err := rdb.Exists(ctx, c.Key(question)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	answer, hit := c.Search(ctx, question)
	require.True(t, hit, "identical query should be a cache hit")
	assert.Equal(t, "second answer", answer)
}
