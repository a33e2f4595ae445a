package bootstrap

import (
	"context"
	"fmt"
	"time"

	"medconsult-be/internal/config"
	"medconsult-be/internal/controller"
	"medconsult-be/internal/pkg/eventbus"
	"medconsult-be/internal/pkg/logger"
	"medconsult-be/internal/pkg/metrics"
	"medconsult-be/internal/pkg/serverutils"
	"medconsult-be/internal/repository/memory"
	"medconsult-be/internal/service"
	"medconsult-be/pkg/chatbot"
	"medconsult-be/pkg/lightrag"
	"medconsult-be/pkg/llm/factory"
	"medconsult-be/pkg/llm/local"
	pktNats "medconsult-be/pkg/nats"
	ragMemory "medconsult-be/pkg/rag/memory"
	"medconsult-be/pkg/rag/prompt"
	"medconsult-be/pkg/rag/session"
	"medconsult-be/pkg/store"
	"medconsult-be/pkg/vision"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ChatbotController   controller.IChatbotController
	RetrievalController controller.IRetrievalController
	VisionController    controller.IVisionController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger            *logger.ZapLogger
	LLMLogger         *logger.ZapLogger
	Metrics           *metrics.Metrics
	SessionRepository *memory.SessionRepository

	closers []func()
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)
	m := metrics.New()
	c := &Container{Logger: sysLogger, LLMLogger: llmLogger, Metrics: m}

	defaultBackend, err := store.ParseBackend(cfg.App.DefaultBackend)
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_BACKEND: %w", err)
	}

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	var natsPub *pktNats.Publisher
	if cfg.Events.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.Events.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher, events stay in-process", map[string]interface{}{
				"url":   cfg.Events.NatsURL,
				"error": err.Error(),
			})
			natsPub = nil
		} else {
			c.closers = append(c.closers, natsPub.Close)
		}
	}
	bus := eventbus.New(pubSub, natsPub, sysLogger)

	// 3. Context sources
	memorySource, err := c.newMemorySource(cfg, sysLogger)
	if err != nil {
		return nil, err
	}
	assembler := prompt.NewAssembler(memorySource)

	// 4. Model providers
	settings := factory.Settings{
		APIKey:  cfg.Ai.OpenAIAPIKey,
		BaseURL: cfg.Ai.OpenAIBaseURL,
		Model:   cfg.Ai.OpenAIModel,
		Timeout: cfg.Ai.Timeout,
	}
	hosted, err := factory.NewStreamingProvider(factory.ProviderOpenAI, settings)
	if err != nil {
		return nil, err
	}
	if cfg.Ai.OpenAIAPIKey == "" {
		sysLogger.Warn("BOOTSTRAP", "OPENAI_API_KEY is empty, hosted turns will fail", nil)
	}
	localProvider, err := factory.NewLLMProvider(factory.ProviderLocal, factory.Settings{
		Endpoint: cfg.Ai.LMStudioURL,
		Model:    cfg.Ai.LMStudioModel,
		Timeout:  cfg.Ai.Timeout,
	})
	if err != nil {
		return nil, err
	}
	// The vision analyzer needs the multimodal call on the concrete type.
	localModel, ok := localProvider.(*local.LocalProvider)
	if !ok {
		return nil, fmt.Errorf("local provider has unexpected type %T", localProvider)
	}
	sysLogger.Info("BOOTSTRAP", "LLM providers ready", map[string]interface{}{
		"hosted_model": cfg.Ai.OpenAIModel,
		"local_model":  cfg.Ai.LMStudioModel,
		"local_url":    cfg.Ai.LMStudioURL,
	})

	adapter := chatbot.NewAdapter(hosted, localModel)
	ragClient := lightrag.NewClient(cfg.LightRAG.ServerURL, cfg.LightRAG.Timeout)
	analyzer := vision.NewAnalyzer(localModel, cfg.Ai.LMStudioModel)

	// 5. Sessions
	c.SessionRepository = memory.NewSessionRepository(cfg.App.SessionTTL)
	sessionManager := session.NewManager(c.SessionRepository)

	// 6. Services
	chatbotService := service.NewChatbotService(
		sessionManager,
		assembler,
		adapter,
		ragClient,
		bus,
		defaultBackend,
		sysLogger,
		llmLogger,
	)
	retrievalService := service.NewRetrievalService(ragClient, sessionManager, bus, sysLogger)
	visionService := service.NewVisionService(analyzer, bus, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, eventbus.Topic, m, sysLogger)

	// 7. Controllers
	auth := serverutils.JwtMiddleware(cfg.Auth.JwtSecret)
	c.ChatbotController = controller.NewChatbotController(chatbotService, auth, sysLogger)
	c.RetrievalController = controller.NewRetrievalController(retrievalService, auth)
	c.VisionController = controller.NewVisionController(visionService, auth)

	return c, nil
}

func (c *Container) newMemorySource(cfg *config.Config, log logger.ILogger) (ragMemory.Source, error) {
	if cfg.Memory.Source != "redis" {
		log.Info("BOOTSTRAP", "Using file memory source", map[string]interface{}{"path": cfg.LightRAG.ChunksPath})
		return ragMemory.NewFileSource(cfg.LightRAG.ChunksPath, log), nil
	}

	opt, err := redis.ParseURL(cfg.Memory.RedisURL)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.Memory.RedisURL}
	}
	rdb := redis.NewClient(opt)
	c.closers = append(c.closers, func() { _ = rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Not fatal: each turn reports the outage as a diagnostic fragment.
		log.Warn("BOOTSTRAP", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}
	log.Info("BOOTSTRAP", "Using redis memory source", map[string]interface{}{"key": cfg.Memory.RedisKey})
	return ragMemory.NewRedisSource(rdb, cfg.Memory.RedisKey, log), nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.LLMLogger.Sync()
	_ = c.Logger.Sync()
}
