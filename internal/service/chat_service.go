package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"deep-nexus-be/internal/dto"
	"deep-nexus-be/internal/entity"
	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/pkg/agent"
	"deep-nexus-be/pkg/cache"
	"deep-nexus-be/pkg/events"
	"deep-nexus-be/pkg/llm"
	"deep-nexus-be/pkg/memory"
	pktNats "deep-nexus-be/pkg/nats"
)

type IChatService interface {
	StreamChat(ctx context.Context, sec entity.SecurityContext, req *dto.SendChatRequest, handler llm.StreamHandler) error
}

// chatService runs one question end to end: semantic-cache lookup,
// memory read, workflow execution with token streaming, then the
// deferred cache/memory writes via the message bus. Conversation
// memory is keyed by employee, matching the identity the RLS context
// is built from.
type chatService struct {
	workflow         *agent.Workflow
	semanticCache    *cache.SemanticCache
	conversations    *memory.ConversationMemory
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	logger           logger.ILogger
}

func NewChatService(
	workflow *agent.Workflow,
	semanticCache *cache.SemanticCache,
	conversations *memory.ConversationMemory,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		workflow:         workflow,
		semanticCache:    semanticCache,
		conversations:    conversations,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		logger:           log,
	}
}

func (cs *chatService) StreamChat(ctx context.Context, sec entity.SecurityContext, req *dto.SendChatRequest, handler llm.StreamHandler) error {
	// A cache hit answers immediately. No memory write: the cached
	// exchange was already recorded when it was first generated.
	if cached, hit := cs.semanticCache.Search(ctx, req.Question); hit {
		cs.logger.Info("chat", "semantic cache hit", map[string]interface{}{
			"employee_id": sec.EmployeeID,
		})
		return handler(cached)
	}

	history, err := cs.conversations.GetHistory(ctx, sec.EmployeeID)
	if err != nil {
		// Degraded history is survivable; the workflow runs without it.
		cs.logger.Warn("chat", "failed to load conversation history", map[string]interface{}{
			"employee_id": sec.EmployeeID,
			"error":       err.Error(),
		})
		history = nil
	}

	state := &agent.State{
		Question:    req.Question,
		FileContext: req.FileContext,
		Security:    sec,
		History:     history,
	}

	answer, err := cs.workflow.Run(ctx, state, handler)
	if err != nil {
		return err
	}
	if answer == "" {
		return nil
	}

	cs.publishCompleted(ctx, sec, state, answer)
	return nil
}

func (cs *chatService) publishCompleted(ctx context.Context, sec entity.SecurityContext, state *agent.State, answer string) {
	exchangeID := uuid.NewString()

	payload, err := json.Marshal(dto.ChatCompletedMessage{
		ExchangeID: exchangeID,
		EmployeeID: sec.EmployeeID,
		Question:   state.Question,
		Answer:     answer,
		Intent:     string(state.Intent),
	})
	if err != nil {
		cs.logger.Error("chat", "failed to marshal chat.completed payload", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if err := cs.publisherService.Publish(ctx, payload); err != nil {
		cs.logger.Error("chat", "failed to publish chat.completed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Audit event for external consumers. Absence of NATS only warns.
	if cs.eventPublisher != nil {
		evt := events.NewChatAnswered(exchangeID, sec.EmployeeID, string(state.Intent), len(answer))
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			cs.logger.Warn("chat", "failed to publish audit event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
