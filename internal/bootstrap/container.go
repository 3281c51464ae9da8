package bootstrap

import (
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"deep-nexus-be/internal/config"
	"deep-nexus-be/internal/controller"
	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/internal/repository/implementation"
	"deep-nexus-be/internal/service"
	"deep-nexus-be/pkg/agent"
	"deep-nexus-be/pkg/agent/generate"
	"deep-nexus-be/pkg/agent/retrieval"
	"deep-nexus-be/pkg/agent/router"
	"deep-nexus-be/pkg/agent/schema"
	"deep-nexus-be/pkg/agent/sqlagent"
	"deep-nexus-be/pkg/cache"
	"deep-nexus-be/pkg/embedding"
	"deep-nexus-be/pkg/embedding/tei"
	"deep-nexus-be/pkg/llm/factory"
	"deep-nexus-be/pkg/mailer"
	"deep-nexus-be/pkg/memory"
	pktNats "deep-nexus-be/pkg/nats"
	"deep-nexus-be/pkg/rerank"
)

const (
	chatCompletedTopic = "chat.completed"
	auditStreamName    = "EVENTS"
)

// Container wires every dependency once at startup.
type Container struct {
	Logger logger.ILogger

	ChatController controller.IChatController
	MailController controller.IMailController

	ConsumerService service.IConsumerService
	EventPublisher  *pktNats.Publisher
}

func NewContainer(gormDB *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Redis backs both the semantic cache and conversation memory.
	redisOpt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Panicf("Invalid REDIS_URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpt)

	// AI providers.
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = tei.NewTeiProvider(cfg.Ai.EmbeddingBaseURL)
	}

	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMBaseURL, cfg.Ai.LLMAPIKey, cfg.Ai.LLMModel, cfg.Ai.OllamaBaseURL)
	if err != nil {
		log.Panicf("Failed to create LLM provider: %v", err)
	}

	reranker := rerank.NewHTTPClient(cfg.Ai.RerankBaseURL, cfg.Ai.RerankAPIKey, cfg.Ai.RerankModel)

	// Repositories.
	schemaCatalogRepo := implementation.NewSchemaCatalogRepository(gormDB)
	documentRepo := implementation.NewDocumentRepository(gormDB)
	queryExecutor := implementation.NewQueryExecutor(gormDB)

	// Redis-backed stores.
	semanticCache := cache.NewSemanticCache(
		redisClient,
		embeddingProvider,
		sysLogger,
		cfg.Ai.EmbeddingDim,
		cfg.Agent.CacheDistanceThreshold,
		time.Duration(cfg.Agent.CacheTTLHours)*time.Hour,
	)
	conversations := memory.NewConversationMemory(
		redisClient,
		sysLogger,
		cfg.Agent.MemoryWindow,
		time.Duration(cfg.Agent.MemoryTTLDays)*24*time.Hour,
	)

	// Workflow nodes.
	schemaRetriever := schema.NewRetriever(schemaCatalogRepo, embeddingProvider, sysLogger)
	intentRouter := router.New(llmProvider, sysLogger)
	sqlAgent := sqlagent.NewAgent(llmProvider, queryExecutor, schemaRetriever, sysLogger, cfg.Ai.LLMModelLarge, cfg.Agent.SQLMaxAttempts)
	docRetriever := retrieval.NewRetriever(documentRepo, embeddingProvider, reranker, sysLogger)
	generator := generate.NewGenerator(llmProvider, sysLogger, cfg.Ai.LLMModel, cfg.Ai.LLMModelLarge, cfg.Agent.LargeModelThreshold)
	workflow := agent.NewWorkflow(intentRouter, schemaRetriever, sqlAgent, docRetriever, generator, sysLogger)

	// In-process bus for deferred cache/memory writes.
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)
	publisherService := service.NewPublisherService(chatCompletedTopic, pubSub)
	consumerService := service.NewConsumerService(pubSub, chatCompletedTopic, semanticCache, conversations, sysLogger)

	// Audit events. NATS being down degrades to a warning.
	eventPublisher, err := pktNats.NewPublisher(cfg.App.NatsURL, auditStreamName)
	if err != nil {
		sysLogger.Warn("bootstrap", "NATS unavailable, audit events disabled", map[string]interface{}{
			"error": err.Error(),
		})
		eventPublisher = nil
	}

	// Services and controllers.
	chatService := service.NewChatService(workflow, semanticCache, conversations, publisherService, eventPublisher, sysLogger)
	emailService := mailer.NewEmailService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Email, cfg.SMTP.Password, cfg.SMTP.Email)
	mailService := service.NewMailService(emailService, sysLogger)

	return &Container{
		Logger:          sysLogger,
		ChatController:  controller.NewChatController(chatService),
		MailController:  controller.NewMailController(mailService),
		ConsumerService: consumerService,
		EventPublisher:  eventPublisher,
	}
}
