package bootstrap

import (
	"context"
	"fmt"
	"log"

	"ai-chatbot-be/internal/config"
	"ai-chatbot-be/internal/controller"
	"ai-chatbot-be/internal/gateway"
	"ai-chatbot-be/internal/mapper"
	"ai-chatbot-be/internal/pkg/authsession"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/internal/pkg/serverutils"
	"ai-chatbot-be/internal/repository/memory"
	"ai-chatbot-be/internal/repository/unitofwork"
	"ai-chatbot-be/internal/service"
	"ai-chatbot-be/internal/websocket"
	"ai-chatbot-be/pkg/conversation"
	"ai-chatbot-be/pkg/embedding"
	"ai-chatbot-be/pkg/events"
	"ai-chatbot-be/pkg/llm/factory"
	pktNats "ai-chatbot-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const msgChatState = "chat_state"

type Container struct {
	// Controllers
	AuthController      controller.IAuthController
	ChatController      controller.IChatController
	ProfileController   controller.IProfileController
	KnowledgeController controller.IKnowledgeController

	// Background components, started by Start
	WebSocketHub     *websocket.Hub
	SessionLifecycle *service.SessionLifecycle
	Notifier         *authsession.Notifier

	Logger logger.ILogger

	authPubSub *gochannel.GoChannel
	natsPub    *pktNats.Publisher
	rdb        *redis.Client
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	// 2. Providers
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OpenAIAPIKey,
		cfg.Ai.OpenAIBaseURL,
	)
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, llmProvider.ModelName())

	embeddingProvider, err := embedding.NewEmbeddingProvider(
		cfg.Embedding.Provider,
		cfg.Embedding.Model,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OpenAIAPIKey,
		cfg.Ai.OpenAIBaseURL,
	)
	if err != nil {
		return nil, fmt.Errorf("init embedding provider: %w", err)
	}

	// 3. Infrastructure
	var natsPub *pktNats.Publisher
	var eventPublisher events.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			eventPublisher = natsPub
		}
	}

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	blobs, err := gateway.NewLocalBlobStore(cfg.Storage.UploadDir, cfg.Storage.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("init blob store: %w", err)
	}

	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	wsHub := websocket.NewHub(rdb, wsLogger)

	// 4. Auth
	issuer := authsession.NewTokenIssuer(cfg.Auth.JwtSecret, cfg.Auth.AccessTokenTTL)
	authPubSub := authsession.NewInMemoryPubSub()
	notifier := authsession.NewNotifier(authPubSub, sysLogger)
	jwtMiddleware := serverutils.NewJwtMiddleware(issuer)

	// 5. Gateways and the per-owner controller registry
	persistence := gateway.NewPersistenceGateway(uowFactory, blobs, eventPublisher, sysLogger)
	completion := gateway.NewCompletionGateway(llmProvider)
	settings := conversation.Settings{
		ReplyTemperature: cfg.Ai.ReplyTemperature,
		ReplyMaxTokens:   cfg.Ai.ReplyMaxTokens,
		TitleTemperature: cfg.Ai.TitleTemperature,
		TitleMaxTokens:   cfg.Ai.TitleMaxTokens,
	}

	registry := memory.NewControllerRegistry(func(ownerId uuid.UUID) *conversation.Controller {
		ctrl := conversation.NewController(ownerId, persistence, completion,
			conversation.WithLogger(sysLogger),
			conversation.WithSettings(settings),
		)
		ctrl.OnChange(func(snap conversation.Snapshot) {
			wsHub.SendToUser(snap.OwnerId, msgChatState, mapper.SnapshotToResponse(snap))
		})
		return ctrl
	})

	// 6. Services
	authService := service.NewAuthService(uowFactory, issuer, notifier, eventPublisher, cfg.Auth.RefreshTokenTTL, sysLogger)
	oauthService := service.NewOAuthService(
		authService,
		cfg.Auth.GoogleClientID,
		cfg.Auth.GoogleClientSecret,
		cfg.Auth.GoogleRedirectURL,
		sysLogger,
	)
	profileService := service.NewProfileService(persistence, memory.NewProfileCache(), sysLogger)
	knowledgeService := service.NewKnowledgeService(uowFactory, embeddingProvider, sysLogger)
	conversationService := service.NewConversationService(registry)
	lifecycle := service.NewSessionLifecycle(registry, profileService, sysLogger)

	wsHandler := wsHub.Handler(func(ownerId uuid.UUID) {
		wsHub.SendToUser(ownerId, msgChatState, conversationService.State(context.Background(), ownerId))
	})

	// 7. Controllers
	return &Container{
		AuthController:      controller.NewAuthController(authService, oauthService, jwtMiddleware),
		ChatController:      controller.NewChatController(conversationService, jwtMiddleware, wsHandler),
		ProfileController:   controller.NewProfileController(profileService, jwtMiddleware),
		KnowledgeController: controller.NewKnowledgeController(knowledgeService, jwtMiddleware),

		WebSocketHub:     wsHub,
		SessionLifecycle: lifecycle,
		Notifier:         notifier,
		Logger:           sysLogger,

		authPubSub: authPubSub,
		natsPub:    natsPub,
		rdb:        rdb,
	}, nil
}

// Start launches the hub and the auth-change subscription; both stop with ctx.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)
	return c.SessionLifecycle.Start(ctx, c.Notifier)
}

func (c *Container) Close() {
	if err := c.authPubSub.Close(); err != nil {
		log.Printf("[WARN] Failed to close auth bus: %v", err)
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
}
