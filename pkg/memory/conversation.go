package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"deep-nexus-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one exchange entry in a session's conversation log.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationMemory keeps a bounded per-session log of turns in a
// Redis list. Turns are pushed to the front, trimmed to the window and
// read back in chronological order.
type ConversationMemory struct {
	rdb    *redis.Client
	logger logger.ILogger
	window int
	ttl    time.Duration
	prefix string
}

func NewConversationMemory(rdb *redis.Client, sysLogger logger.ILogger, window int, ttl time.Duration) *ConversationMemory {
	return &ConversationMemory{
		rdb:    rdb,
		logger: sysLogger,
		window: window,
		ttl:    ttl,
		prefix: "history:",
	}
}

// GetHistory returns up to window turns for the session, oldest first.
func (m *ConversationMemory) GetHistory(ctx context.Context, sessionID string) ([]Turn, error) {
	key := m.prefix + sessionID
	raw, err := m.rdb.LRange(ctx, key, 0, int64(m.window-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return Chronological(raw), nil
}

// AddMessage appends a turn, evicts beyond the window and refreshes the
// session TTL.
func (m *ConversationMemory) AddMessage(ctx context.Context, sessionID, role, content string) error {
	payload, err := json.Marshal(Turn{Role: role, Content: content})
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	key := m.prefix + sessionID
	pipe := m.rdb.Pipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, int64(m.window-1))
	pipe.Expire(ctx, key, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Chronological decodes raw list entries (most-recent-first, as stored)
// into oldest-first turns. Corrupt entries are skipped.
func Chronological(raw []string) []Turn {
	turns := make([]Turn, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var t Turn
		if err := json.Unmarshal([]byte(raw[i]), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns
}
