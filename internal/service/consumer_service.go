package service

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"deep-nexus-be/internal/dto"
	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/pkg/cache"
	"deep-nexus-be/pkg/memory"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService applies the deferred writes after a chat stream has
// ended: semantic-cache store plus the two conversation-memory
// appends. Every failure is logged and swallowed; the exchange already
// reached the user.
type consumerService struct {
	pubSub        *gochannel.GoChannel
	topicName     string
	semanticCache *cache.SemanticCache
	conversations *memory.ConversationMemory
	logger        logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	semanticCache *cache.SemanticCache,
	conversations *memory.ConversationMemory,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:        pubSub,
		topicName:     topicName,
		semanticCache: semanticCache,
		conversations: conversations,
		logger:        log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	// Every path acks: these writes are best effort and a redelivery
	// loop would be worse than a lost cache entry.
	defer msg.Ack()

	var payload dto.ChatCompletedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("consumer", "failed to unmarshal chat.completed payload", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if payload.Answer == "" {
		return
	}

	cs.semanticCache.Store(ctx, payload.Question, payload.Answer)

	if err := cs.conversations.AddMessage(ctx, payload.EmployeeID, memory.RoleUser, payload.Question); err != nil {
		cs.logger.Warn("consumer", "failed to append user turn", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := cs.conversations.AddMessage(ctx, payload.EmployeeID, memory.RoleAssistant, payload.Answer); err != nil {
		cs.logger.Warn("consumer", "failed to append assistant turn", map[string]interface{}{
			"error": err.Error(),
		})
	}

	cs.logger.Debug("consumer", "chat.completed processed", map[string]interface{}{
		"employee_id": payload.EmployeeID,
		"intent":      payload.Intent,
	})
}
